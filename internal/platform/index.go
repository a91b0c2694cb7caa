package platform

import (
	"context"
	"fmt"
	"net/url"
)

// DocumentMeta is attached to an upserted document and comes back in
// search result metadata.
type DocumentMeta struct {
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Source   string `json:"source,omitempty"` // display label ("local", a dataset tag, a URL)
}

// IndexDocument is one document pushed to the managed vector index.
// Chunking and embedding happen platform-side.
type IndexDocument struct {
	Text     string       `json:"text"`
	Metadata DocumentMeta `json:"metadata"`
}

// UpsertDocument pushes one document into the index and waits for the
// acknowledgement. The platform serializes index mutations itself.
func (c *Client) UpsertDocument(ctx context.Context, indexID string, doc IndexDocument) error {
	if indexID == "" {
		return fmt.Errorf("index id is required")
	}
	if doc.Text == "" {
		return fmt.Errorf("document text is empty")
	}

	var ack struct {
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/sdk/indexes/"+url.PathEscape(indexID)+"/documents", doc, &ack); err != nil {
		return fmt.Errorf("upsert document (source %q): %w", doc.Metadata.Source, err)
	}
	c.logger.Debug("document upserted", "index", indexID, "source", doc.Metadata.Source, "status", ack.Status)
	return nil
}

// Search retrieves the topK most relevant chunks for the query. The result
// list tolerates all of the platform's envelope variants; an empty result
// is not an error.
func (c *Client) Search(ctx context.Context, indexID, query string, topK int) ([]SearchResult, error) {
	if indexID == "" {
		return nil, fmt.Errorf("index id is required")
	}
	if topK <= 0 {
		topK = 5
	}

	req := struct {
		Query string `json:"query"`
		TopK  int    `json:"topK"`
	}{Query: query, TopK: topK}

	var envelope searchEnvelope
	if err := c.post(ctx, "/sdk/indexes/"+url.PathEscape(indexID)+"/search", req, &envelope); err != nil {
		return nil, fmt.Errorf("search index %s: %w", indexID, err)
	}
	return envelope.results(), nil
}
