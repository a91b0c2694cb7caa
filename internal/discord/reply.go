package discord

import "strings"

// messageLimit is Discord's hard cap on message content length.
const messageLimit = 2000

const fence = "```"

// chunkMessage splits text into pieces of at most limit characters.
// Splits happen on line boundaries, and a fenced code block is re-closed
// at a chunk edge and re-opened in the next chunk so every piece renders
// on its own. Oversized single lines are hard-cut as a last resort.
func chunkMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	// Reserve room for a trailing fence close and a leading re-open.
	budget := limit - len(fence) - 1

	var chunks []string
	var b strings.Builder
	inFence := false
	fenceHead := "" // opening line, e.g. "```json"

	flush := func() {
		out := strings.TrimRight(b.String(), "\n")
		b.Reset()
		if out == "" {
			return
		}
		if inFence {
			out += "\n" + fence
		}
		chunks = append(chunks, out)
		if inFence {
			b.WriteString(fenceHead)
			b.WriteString("\n")
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for len(line) > budget {
			// A single line longer than a whole chunk.
			if b.Len() > 0 {
				flush()
			}
			b.WriteString(line[:budget])
			line = line[budget:]
			flush()
		}

		if b.Len()+len(line)+1 > budget {
			flush()
		}
		b.WriteString(line)
		b.WriteString("\n")

		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			if inFence {
				inFence = false
				fenceHead = ""
			} else {
				inFence = true
				fenceHead = strings.TrimSpace(line)
			}
		}
	}
	flush()
	return chunks
}
