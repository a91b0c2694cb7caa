package platform

import (
	"encoding/json"
	"strings"
)

// RunResponse is the normalized result of one agent run.
type RunResponse struct {
	// Answer is the synthesized prose answer.
	Answer string

	// SessionID is the platform-side conversation identifier to thread
	// into the next run.
	SessionID string

	// Raw is the undecoded data payload, kept for raw-text passthrough
	// when the envelope is malformed.
	Raw json.RawMessage
}

// SearchResult is one retrieved chunk from the managed index.
type SearchResult struct {
	Text   string
	Source string // url, path, or dataset tag from chunk metadata
	Score  float64
}

// runEnvelope tolerates the platform's response variants: a top-level
// "text", or a "data" member that is either a plain string or an object
// whose answer hides under output/text/message/content.
type runEnvelope struct {
	Text      string          `json:"text"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// normalize flattens the envelope into a RunResponse. An unrecognized
// shape degrades to raw passthrough rather than an error.
func (e runEnvelope) normalize() *RunResponse {
	resp := &RunResponse{SessionID: e.SessionID, Raw: e.Data}

	if e.Text != "" {
		resp.Answer = strings.TrimSpace(e.Text)
		return resp
	}
	if len(e.Data) == 0 {
		return resp
	}

	// data as plain string
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		resp.Answer = strings.TrimSpace(s)
		return resp
	}

	// data as object
	var obj struct {
		Output    json.RawMessage `json:"output"`
		Text      string          `json:"text"`
		Message   string          `json:"message"`
		Content   string          `json:"content"`
		SessionID string          `json:"session_id"`
	}
	if err := json.Unmarshal(e.Data, &obj); err != nil {
		resp.Answer = strings.TrimSpace(string(e.Data))
		return resp
	}
	if obj.SessionID != "" && resp.SessionID == "" {
		resp.SessionID = obj.SessionID
	}

	switch {
	case len(obj.Output) > 0:
		var out string
		if err := json.Unmarshal(obj.Output, &out); err == nil {
			resp.Answer = strings.TrimSpace(out)
		} else {
			// Structured output: pass the JSON through for the caller
			// to fence.
			resp.Answer = strings.TrimSpace(string(obj.Output))
		}
	case obj.Text != "":
		resp.Answer = strings.TrimSpace(obj.Text)
	case obj.Message != "":
		resp.Answer = strings.TrimSpace(obj.Message)
	case obj.Content != "":
		resp.Answer = strings.TrimSpace(obj.Content)
	default:
		resp.Answer = strings.TrimSpace(string(e.Data))
	}
	return resp
}

// searchEnvelope tolerates the index search variants: a bare list, or an
// object keyed by details / output / results, nested at the top level or
// under "data".
type searchEnvelope struct {
	raw json.RawMessage
}

func (e *searchEnvelope) UnmarshalJSON(data []byte) error {
	e.raw = append(e.raw[:0], data...)
	return nil
}

// results extracts the normalized result list.
func (e searchEnvelope) results() []SearchResult {
	items := extractItems(e.raw)
	out := make([]SearchResult, 0, len(items))
	for _, item := range items {
		if r, ok := itemToResult(item); ok {
			out = append(out, r)
		}
	}
	return out
}

// extractItems walks the envelope shapes and returns the raw item list.
func extractItems(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var obj struct {
		Details []json.RawMessage `json:"details"`
		Output  []json.RawMessage `json:"output"`
		Results []json.RawMessage `json:"results"`
		Data    json.RawMessage   `json:"data"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	switch {
	case len(obj.Details) > 0:
		return obj.Details
	case len(obj.Output) > 0:
		return obj.Output
	case len(obj.Results) > 0:
		return obj.Results
	case len(obj.Data) > 0:
		return extractItems(obj.Data)
	}
	return nil
}

// itemToResult converts one result item. Items are either plain strings or
// objects carrying text under data/text/content/document with optional
// metadata naming the source.
func itemToResult(raw json.RawMessage) (SearchResult, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return SearchResult{}, false
		}
		return SearchResult{Text: s}, true
	}

	var obj struct {
		Data     string  `json:"data"`
		Text     string  `json:"text"`
		Content  string  `json:"content"`
		Document string  `json:"document"`
		Score    float64 `json:"score"`
		Metadata struct {
			URL    string `json:"url"`
			Path   string `json:"path"`
			Source string `json:"source"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return SearchResult{}, false
	}

	text := obj.Data
	if text == "" {
		text = obj.Text
	}
	if text == "" {
		text = obj.Content
	}
	if text == "" {
		text = obj.Document
	}
	if text == "" {
		return SearchResult{}, false
	}

	source := obj.Metadata.URL
	if source == "" {
		source = obj.Metadata.Path
	}
	if source == "" {
		source = obj.Metadata.Source
	}

	return SearchResult{Text: text, Source: source, Score: obj.Score}, true
}
