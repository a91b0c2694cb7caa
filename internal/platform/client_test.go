package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policynav/policynav/internal/log"
)

// newTestClient points a client at the test server with fast retries.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
		Retry: RetryConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
		Logger: log.NewNop(),
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiredFields(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k", Logger: log.NewNop()})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://x", Logger: log.NewNop()})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://x", APIKey: "k"})
	assert.Error(t, err)
}

func TestClient_SendsAPIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{"id":"agent-1","name":"n","status":"onboarded"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"text":"recovered"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.RunAgent(context.Background(), RunRequest{AgentID: "a", Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Answer)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.RunAgent(context.Background(), RunRequest{AgentID: "a", Query: "q"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load(), "auth errors must not be retried")
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.RunAgent(context.Background(), RunRequest{AgentID: "a", Query: "q"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus MaxRetries")
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RunAgent(ctx, RunRequest{AgentID: "a", Query: "q"})
	require.Error(t, err)
}

func TestUpsertDocument(t *testing.T) {
	var gotPath string
	var gotBody IndexDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = jsonDecode(r, &gotBody)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	doc := IndexDocument{
		Text:     "document body",
		Metadata: DocumentMeta{Source: "example.com", URL: "https://example.com/page"},
	}
	require.NoError(t, c.UpsertDocument(context.Background(), "idx-1", doc))
	assert.Equal(t, "/sdk/indexes/idx-1/documents", gotPath)
	assert.Equal(t, "document body", gotBody.Text)
	assert.Equal(t, "example.com", gotBody.Metadata.Source)
}

func TestUpsertDocument_EmptyTextRejectedLocally(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.UpsertDocument(context.Background(), "idx-1", IndexDocument{})
	require.Error(t, err)
	assert.Zero(t, calls.Load(), "empty content must never reach the upload endpoint")
}

func TestGetModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sdk/models/6736411cf127849667606689", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"6736411cf127849667606689","name":"Tavily Search","status":"onboarded"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	model, err := c.GetModel(context.Background(), "6736411cf127849667606689")
	require.NoError(t, err)
	assert.Equal(t, "Tavily Search", model.Name)
	assert.Equal(t, "onboarded", model.Status)

	_, err = c.GetModel(context.Background(), "")
	require.Error(t, err)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sdk/indexes/idx-1/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"details":[{"data":"chunk","metadata":{"url":"https://a.example"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	results, err := c.Search(context.Background(), "idx-1", "highest GDPR fine 2019", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk", results[0].Text)
	assert.Equal(t, "https://a.example", results[0].Source)
}

// jsonDecode is a tiny request-body decode helper for handlers.
func jsonDecode(r *http.Request, out any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(out)
}
