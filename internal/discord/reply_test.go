package discord

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMessage_ShortPassthrough(t *testing.T) {
	assert.Equal(t, []string{"hello"}, chunkMessage("hello", 2000))
}

func TestChunkMessage_Empty(t *testing.T) {
	assert.Nil(t, chunkMessage("", 2000))
	assert.Nil(t, chunkMessage("   \n  ", 2000))
}

func TestChunkMessage_SplitsOnLineBoundaries(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 90))
	}
	text := strings.Join(lines, "\n")

	chunks := chunkMessage(text, 500)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 500)
		for _, line := range strings.Split(chunk, "\n") {
			assert.Len(t, line, 90, "lines must not be cut mid-way")
		}
	}
	assert.Equal(t, strings.ReplaceAll(text, "\n", ""), strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
}

func TestChunkMessage_ReclosesFencedBlocks(t *testing.T) {
	var body []string
	for i := 0; i < 30; i++ {
		body = append(body, `  "field": "`+strings.Repeat("v", 50)+`",`)
	}
	text := "Here is the structured result:\n```json\n{\n" + strings.Join(body, "\n") + "\n}\n```"

	chunks := chunkMessage(text, 400)

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 400)
		opens := strings.Count(chunk, "```")
		assert.Equal(t, 0, opens%2, "chunk %d has an unbalanced fence:\n%s", i, chunk)
	}
	// Continuation chunks reopen with the original language tag.
	assert.True(t, strings.HasPrefix(chunks[1], "```json\n"))
}

func TestChunkMessage_HardCutsOversizedLine(t *testing.T) {
	text := strings.Repeat("a", 1200)

	chunks := chunkMessage(text, 500)

	require.Greater(t, len(chunks), 1)
	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 500)
		total += len(chunk)
	}
	assert.Equal(t, 1200, total)
}

func TestParsePrefixAsk(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		question string
		ok       bool
	}{
		{"basic", "!ask what is GDPR", "what is GDPR", true},
		{"extra whitespace", "!ask   what is GDPR  ", "what is GDPR", true},
		{"newline separator", "!ask\nmultiline question", "multiline question", true},
		{"bare command", "!ask", "", false},
		{"command with only spaces", "!ask   ", "", false},
		{"different word", "!asking a question", "", false},
		{"no prefix", "ask what is GDPR", "", false},
		{"other command", "!help", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := parsePrefixAsk(tt.content, "!")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.question, q)
		})
	}
}
