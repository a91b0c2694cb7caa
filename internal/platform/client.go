// Package platform is a thin client for the hosted agentic RAG platform.
//
// The platform owns chunking, embedding, vector search, tool selection and
// answer synthesis; this package only translates between Go types and the
// platform's REST API. Two endpoint families are consumed: the managed
// vector index (document upsert + search) and the agent service (create,
// deploy, run).
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/policynav/policynav/internal/log"
)

const (
	// defaultTimeout bounds one platform round trip. Agent runs can be
	// slow; the platform serializes index mutations itself.
	defaultTimeout = 120 * time.Second

	// maxResponseSize caps a platform response body read.
	maxResponseSize = 16 << 20 // 16 MB
)

// Config contains client parameters.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout for one HTTP round trip. Zero uses defaultTimeout.
	Timeout time.Duration

	// RateLimiter optionally throttles outgoing calls (nil = unlimited).
	RateLimiter *rate.Limiter

	// Retry controls transient-error retry (zero value uses defaults).
	Retry RetryConfig

	Logger log.Logger
}

// Client issues authenticated calls against the platform API.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	retry   RetryConfig
	logger  log.Logger
}

// NewClient creates a platform client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("platform base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("platform API key is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.InitialInterval == 0 {
		retry = DefaultRetryConfig()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: cfg.RateLimiter,
		retry:   retry,
		logger:  cfg.Logger,
	}, nil
}

// post issues a JSON POST and decodes the response into out (out may be nil).
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// get issues a GET and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// call executes one API call with rate limiting and transient-error retry.
// Each attempt is rate limited; non-retryable errors fail immediately.
// Every call carries a request id so retries of the same call can be
// correlated in the logs.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	requestID := uuid.NewString()
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}

		err := c.doOnce(ctx, method, path, requestID, payload, out)
		if err == nil {
			c.logger.Debug("platform call succeeded",
				"request_id", requestID,
				"method", method,
				"path", path,
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return nil
		}
		lastErr = err

		if !retryableError(err) {
			return err
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying platform call",
			"request_id", requestID,
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return fmt.Errorf("platform call %s %s after %d retries (elapsed: %v): %w",
		method, path, c.retry.MaxRetries, time.Since(start), lastErr)
}

// doOnce executes a single HTTP attempt.
func (c *Client) doOnce(ctx context.Context, method, path, requestID string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-request-id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
