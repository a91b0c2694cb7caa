// Package discord exposes the navigator over Discord slash commands and
// a legacy message prefix.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/policynav/policynav/internal/agent"
	"github.com/policynav/policynav/internal/log"
	"github.com/policynav/policynav/internal/session"
)

const (
	// answerTimeout bounds one platform round trip per command.
	answerTimeout = 120 * time.Second

	// maxAttachmentSize caps files accepted through /add.
	maxAttachmentSize = 8 << 20
)

// Answerer produces an answer for one question within a session.
type Answerer interface {
	Answer(ctx context.Context, sessionID, query string, detail bool) (*agent.Reply, error)
}

// Ingestor registers documents with the managed index.
type Ingestor interface {
	AddURL(ctx context.Context, rawURL string) (session.Source, error)
	AddFile(ctx context.Context, name string, content []byte) (session.Source, error)
}

// Config contains all required parameters for the bot.
type Config struct {
	Token    string
	GuildID  string // empty = register commands globally
	Prefix   string // legacy text command prefix, empty disables it
	Answerer Answerer
	Ingestor Ingestor
	Sessions *session.Store
	Logger   log.Logger
}

func (cfg Config) validate() error {
	if cfg.Token == "" {
		return errors.New("discord token is required")
	}
	if cfg.Answerer == nil {
		return errors.New("answerer is required")
	}
	if cfg.Ingestor == nil {
		return errors.New("ingestor is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Bot owns the Discord gateway connection and its command handlers.
type Bot struct {
	session  *discordgo.Session
	answerer Answerer
	ingestor Ingestor
	sessions *session.Store
	logger   log.Logger

	guildID string
	prefix  string

	// http fetches /add attachments from Discord's CDN.
	http *http.Client

	registered []*discordgo.ApplicationCommand
}

// New creates a Bot and wires its handlers. The gateway connection is not
// opened until Start.
func New(cfg Config) (*Bot, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session:  dg,
		answerer: cfg.Answerer,
		ingestor: cfg.Ingestor,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		guildID:  cfg.GuildID,
		prefix:   cfg.Prefix,
		http:     &http.Client{Timeout: 30 * time.Second},
	}

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onInteraction)
	if b.prefix != "" {
		dg.AddHandler(b.onMessage)
	}
	return b, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		_ = b.session.Close()
		return err
	}
	return nil
}

// Stop unregisters guild-scoped commands and closes the gateway. Global
// commands are left in place so a restart does not churn them.
func (b *Bot) Stop() error {
	if b.guildID != "" {
		for _, cmd := range b.registered {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.guildID, cmd.ID); err != nil {
				b.logger.Warn("failed to remove command", "command", cmd.Name, "error", err)
			}
		}
	}
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord gateway ready",
		"user", r.User.Username,
		"guilds", len(r.Guilds),
	)
}
