package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/policynav/policynav/internal/ingest"
)

// onInteraction dispatches slash commands. Each command is handled on its
// own goroutine after an immediate deferral, so slow platform calls never
// trip Discord's 3 second acknowledgement window.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", "command", name, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
		defer cancel()

		sessionID := i.ChannelID
		unlock := b.sessions.Acquire(sessionID)
		defer unlock()

		var reply string
		switch name {
		case cmdAsk:
			reply = b.handleAsk(ctx, sessionID, i)
		case cmdAdd:
			reply = b.handleAdd(ctx, sessionID, i)
		case cmdReset:
			reply = b.handleReset(sessionID)
		default:
			reply = "Unknown command."
		}
		b.respond(s, i, reply)
	}()
}

func (b *Bot) handleAsk(ctx context.Context, sessionID string, i *discordgo.InteractionCreate) string {
	question := strings.TrimSpace(stringOption(i, "query"))
	if question == "" {
		return "Please provide a question."
	}
	detail := boolOption(i, "detail")

	reply, err := b.answerer.Answer(ctx, sessionID, question, detail)
	if err != nil {
		b.logger.Error("ask failed", "session", sessionID, "error", err)
		return "Sorry, I couldn't reach the answer service. Please try again in a moment."
	}
	return reply.Render()
}

func (b *Bot) handleAdd(ctx context.Context, sessionID string, i *discordgo.InteractionCreate) string {
	data := i.ApplicationCommandData()

	var rawURL string
	var attachment *discordgo.MessageAttachment
	for _, opt := range data.Options {
		switch opt.Name {
		case "url":
			rawURL = strings.TrimSpace(opt.StringValue())
		case "file":
			if id, ok := opt.Value.(string); ok {
				attachment = data.Resolved.Attachments[id]
			}
		}
	}

	switch {
	case rawURL != "":
		return b.addURL(ctx, sessionID, rawURL)
	case attachment != nil:
		return b.addAttachment(ctx, sessionID, attachment)
	default:
		return "Provide a url or attach a file to index."
	}
}

func (b *Bot) addURL(ctx context.Context, sessionID, rawURL string) string {
	src, err := b.ingestor.AddURL(ctx, rawURL)
	if err != nil {
		if errors.Is(err, ingest.ErrBlockedPage) {
			return "That site blocks automated access, so the page itself could not be " +
				"indexed. When an official PDF version was linked I indexed that instead."
		}
		b.logger.Error("url ingestion failed", "session", sessionID, "url", rawURL, "error", err)
		return fmt.Sprintf("Could not index %s: %v", rawURL, err)
	}
	b.sessions.AddSource(sessionID, src)
	return fmt.Sprintf("Indexed %s. Ask away with /ask.", src.Label)
}

func (b *Bot) addAttachment(ctx context.Context, sessionID string, att *discordgo.MessageAttachment) string {
	if att.Size > maxAttachmentSize {
		return fmt.Sprintf("%s is too large to index (limit %d MB).", att.Filename, maxAttachmentSize>>20)
	}

	content, err := b.downloadAttachment(ctx, att.URL)
	if err != nil {
		b.logger.Error("attachment download failed", "session", sessionID, "file", att.Filename, "error", err)
		return fmt.Sprintf("Could not download %s from Discord.", att.Filename)
	}

	src, err := b.ingestor.AddFile(ctx, att.Filename, content)
	if err != nil {
		b.logger.Error("file ingestion failed", "session", sessionID, "file", att.Filename, "error", err)
		return fmt.Sprintf("Could not index %s: %v", att.Filename, err)
	}
	b.sessions.AddSource(sessionID, src)
	return fmt.Sprintf("Indexed %s. Ask away with /ask.", src.Label)
}

func (b *Bot) downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
}

func (b *Bot) handleReset(sessionID string) string {
	b.sessions.Reset(sessionID)
	return "Conversation history and session sources cleared."
}

// onMessage implements the legacy prefix command, e.g. "!ask what changed".
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	question, ok := parsePrefixAsk(m.Content, b.prefix)
	if !ok {
		return
	}

	_ = s.ChannelTyping(m.ChannelID)

	ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
	defer cancel()

	sessionID := m.ChannelID
	unlock := b.sessions.Acquire(sessionID)
	defer unlock()

	reply, err := b.answerer.Answer(ctx, sessionID, question, false)
	if err != nil {
		b.logger.Error("prefix ask failed", "session", sessionID, "error", err)
		b.sendChunks(s, m.ChannelID, "Sorry, I couldn't reach the answer service. Please try again in a moment.")
		return
	}
	b.sendChunks(s, m.ChannelID, reply.Render())
}

func (b *Bot) sendChunks(s *discordgo.Session, channelID, text string) {
	for _, chunk := range chunkMessage(text, messageLimit) {
		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			b.logger.Error("failed to send message", "channel", channelID, "error", err)
			return
		}
	}
}

// respond edits the deferred interaction response with the first chunk and
// posts the rest as followups.
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	chunks := chunkMessage(text, messageLimit)
	if len(chunks) == 0 {
		chunks = []string{"Done."}
	}

	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &chunks[0]})
	if err != nil {
		b.logger.Error("failed to edit deferred response", "error", err)
		return
	}
	for _, chunk := range chunks[1:] {
		_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: chunk})
		if err != nil {
			b.logger.Error("failed to send followup", "error", err)
			return
		}
	}
}

// parsePrefixAsk extracts the question from a "<prefix>ask ..." message.
// "!asking" and a bare "!ask" do not match.
func parsePrefixAsk(content, prefix string) (string, bool) {
	rest, found := strings.CutPrefix(content, prefix+"ask")
	if !found {
		return "", false
	}
	if rest == "" || !isSpace(rest[0]) {
		return "", false
	}
	question := strings.TrimSpace(rest)
	return question, question != ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func boolOption(i *discordgo.InteractionCreate, name string) bool {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionBoolean {
			return opt.BoolValue()
		}
	}
	return false
}
