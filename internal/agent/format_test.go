package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policynav/policynav/internal/platform"
)

func TestParseReply_PlainProse(t *testing.T) {
	reply := parseReply(&platform.RunResponse{Answer: "  Executive Order 14067 covers digital assets.  "}, nil)

	assert.Equal(t, "Executive Order 14067 covers digital assets.", reply.Answer)
	assert.Empty(t, reply.Structured)
}

func TestParseReply_BareJSONBecomesStructured(t *testing.T) {
	raw := `{"status":"active","document_number":"2022-04875"}`
	reply := parseReply(&platform.RunResponse{Answer: raw}, nil)

	assert.Equal(t, "Here is the structured result:", reply.Answer)
	assert.Contains(t, reply.Structured, `"status": "active"`)
	assert.Contains(t, reply.Structured, `"document_number": "2022-04875"`)
}

func TestParseReply_JSONArray(t *testing.T) {
	reply := parseReply(&platform.RunResponse{Answer: `[{"id":1},{"id":2}]`}, nil)

	require.NotEmpty(t, reply.Structured)
	assert.Contains(t, reply.Structured, `"id": 1`)
}

func TestParseReply_ProseWithEmbeddedJSONStaysProse(t *testing.T) {
	text := `The lookup returned: {"status":"active"}`
	reply := parseReply(&platform.RunResponse{Answer: text}, nil)

	assert.Equal(t, text, reply.Answer)
	assert.Empty(t, reply.Structured)
}

func TestParseReply_InvalidJSONStaysProse(t *testing.T) {
	reply := parseReply(&platform.RunResponse{Answer: "{not json at all"}, nil)

	assert.Equal(t, "{not json at all", reply.Answer)
	assert.Empty(t, reply.Structured)
}

func TestRender_SourcesFooter(t *testing.T) {
	reply := &Reply{
		Answer:  "Fines reach 20 million EUR.",
		Sources: []string{"gdpr_fines.md", "https://eur-lex.europa.eu/gdpr"},
	}

	out := reply.Render()

	assert.True(t, strings.HasPrefix(out, "Fines reach 20 million EUR."))
	assert.Contains(t, out, "**Sources**")
	assert.Contains(t, out, "- gdpr_fines.md")
	assert.Contains(t, out, "- https://eur-lex.europa.eu/gdpr")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestRender_NoSourcesNoFooter(t *testing.T) {
	reply := &Reply{Answer: "Plain answer."}

	assert.Equal(t, "Plain answer.", reply.Render())
}

func TestRender_StructuredBlockIsFenced(t *testing.T) {
	reply := &Reply{
		Answer:     "Here is the structured result:",
		Structured: "{\n  \"status\": \"active\"\n}",
		Sources:    []string{"registry lookup"},
	}

	out := reply.Render()

	assert.Contains(t, out, "```json\n{\n  \"status\": \"active\"\n}\n```")
	assert.Less(t, strings.Index(out, "```json"), strings.Index(out, "**Sources**"),
		"structured block renders before the footer")
}
