package agent

import (
	"encoding/json"
	"strings"

	"github.com/policynav/policynav/internal/platform"
)

// Reply is a formatted answer ready for display.
type Reply struct {
	// Answer is the prose answer. When the platform returned bare JSON
	// this holds a short lead-in instead and Structured carries the data.
	Answer string

	// Structured is pretty-printed JSON payload, empty when the answer
	// was plain prose.
	Structured string

	// Sources are unique reference labels, retrieval hits first, then
	// recently added session sources.
	Sources []string
}

// parseReply converts a platform run response into a Reply. A response
// whose whole text is a JSON document is split into a lead-in plus a
// fenced structured block; prose with an embedded trailing JSON object is
// left alone.
func parseReply(resp *platform.RunResponse, sources []string) *Reply {
	text := strings.TrimSpace(resp.Answer)
	reply := &Reply{Answer: text, Sources: sources}

	if structured, ok := reformatJSON(text); ok {
		reply.Answer = "Here is the structured result:"
		reply.Structured = structured
	}
	return reply
}

// reformatJSON reports whether s is entirely a JSON object or array, and
// if so returns it pretty-printed.
func reformatJSON(s string) (string, bool) {
	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		return "", false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return "", false
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", false
	}
	return string(pretty), true
}

// Render produces the display form: answer text, optional fenced JSON
// block, and a Sources footer when any references exist.
func (r *Reply) Render() string {
	var b strings.Builder
	b.WriteString(r.Answer)

	if r.Structured != "" {
		b.WriteString("\n```json\n")
		b.WriteString(r.Structured)
		b.WriteString("\n```")
	}

	if len(r.Sources) > 0 {
		b.WriteString("\n\n**Sources**\n")
		for _, src := range r.Sources {
			b.WriteString("- ")
			b.WriteString(src)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
