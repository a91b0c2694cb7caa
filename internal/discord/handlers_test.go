package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policynav/policynav/internal/agent"
	"github.com/policynav/policynav/internal/ingest"
	"github.com/policynav/policynav/internal/log"
	"github.com/policynav/policynav/internal/session"
)

type fakeAnswerer struct {
	reply *agent.Reply
	err   error

	lastSession string
	lastQuery   string
	lastDetail  bool
}

func (f *fakeAnswerer) Answer(_ context.Context, sessionID, query string, detail bool) (*agent.Reply, error) {
	f.lastSession = sessionID
	f.lastQuery = query
	f.lastDetail = detail
	return f.reply, f.err
}

type fakeIngestor struct {
	src session.Source
	err error

	lastURL  string
	lastFile string
}

func (f *fakeIngestor) AddURL(_ context.Context, rawURL string) (session.Source, error) {
	f.lastURL = rawURL
	return f.src, f.err
}

func (f *fakeIngestor) AddFile(_ context.Context, name string, _ []byte) (session.Source, error) {
	f.lastFile = name
	return f.src, f.err
}

func newTestBot(t *testing.T, answerer Answerer, ingestor Ingestor) (*Bot, *session.Store) {
	t.Helper()
	store := session.NewStore(session.Config{MaxTurns: 10, Logger: log.NewNop()})
	return &Bot{
		answerer: answerer,
		ingestor: ingestor,
		sessions: store,
		logger:   log.NewNop(),
		prefix:   "!",
	}, store
}

func askInteraction(channelID, question string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ChannelID: channelID,
			Type:      discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{
				Name: cmdAsk,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "query", Type: discordgo.ApplicationCommandOptionString, Value: question},
				},
			},
		},
	}
}

func addURLInteraction(channelID, url string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ChannelID: channelID,
			Type:      discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{
				Name: cmdAdd,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "url", Type: discordgo.ApplicationCommandOptionString, Value: url},
				},
			},
		},
	}
}

func TestHandleAsk_RendersReply(t *testing.T) {
	answerer := &fakeAnswerer{reply: &agent.Reply{
		Answer:  "Fines reach 20 million EUR.",
		Sources: []string{"gdpr_fines.md"},
	}}
	bot, _ := newTestBot(t, answerer, &fakeIngestor{})

	out := bot.handleAsk(context.Background(), "chan-1", askInteraction("chan-1", "max GDPR fine?"))

	assert.Equal(t, "chan-1", answerer.lastSession)
	assert.Equal(t, "max GDPR fine?", answerer.lastQuery)
	assert.False(t, answerer.lastDetail)
	assert.Contains(t, out, "Fines reach 20 million EUR.")
	assert.Contains(t, out, "**Sources**")
}

func TestHandleAsk_DetailOption(t *testing.T) {
	answerer := &fakeAnswerer{reply: &agent.Reply{Answer: "long answer"}}
	bot, _ := newTestBot(t, answerer, &fakeIngestor{})

	i := askInteraction("chan-1", "question")
	data := i.Data.(discordgo.ApplicationCommandInteractionData)
	data.Options = append(data.Options, &discordgo.ApplicationCommandInteractionDataOption{
		Name: "detail", Type: discordgo.ApplicationCommandOptionBoolean, Value: true,
	})
	i.Data = data

	bot.handleAsk(context.Background(), "chan-1", i)

	assert.True(t, answerer.lastDetail)
}

func TestHandleAsk_EmptyQuestion(t *testing.T) {
	answerer := &fakeAnswerer{}
	bot, _ := newTestBot(t, answerer, &fakeIngestor{})

	out := bot.handleAsk(context.Background(), "chan-1", askInteraction("chan-1", "   "))

	assert.Equal(t, "Please provide a question.", out)
	assert.Empty(t, answerer.lastQuery, "a blank question never reaches the answerer")
}

func TestHandleAsk_ErrorIsUserFriendly(t *testing.T) {
	answerer := &fakeAnswerer{err: errors.New("api key rejected by upstream")}
	bot, _ := newTestBot(t, answerer, &fakeIngestor{})

	out := bot.handleAsk(context.Background(), "chan-1", askInteraction("chan-1", "question"))

	assert.NotContains(t, out, "api key", "internal errors must not leak to the channel")
	assert.Contains(t, out, "try again")
}

func TestHandleAdd_URLRecordsSessionSource(t *testing.T) {
	ingestor := &fakeIngestor{src: session.Source{Kind: session.SourceURL, Label: "example.gov/rule"}}
	bot, store := newTestBot(t, &fakeAnswerer{}, ingestor)

	out := bot.handleAdd(context.Background(), "chan-1", addURLInteraction("chan-1", "https://example.gov/rule"))

	assert.Equal(t, "https://example.gov/rule", ingestor.lastURL)
	assert.Contains(t, out, "Indexed example.gov/rule")

	recent := store.RecentSources("chan-1", 0)
	require.Len(t, recent, 1)
	assert.Equal(t, "example.gov/rule", recent[0].Label)
}

func TestHandleAdd_BlockedPageMessage(t *testing.T) {
	ingestor := &fakeIngestor{err: ingest.ErrBlockedPage}
	bot, store := newTestBot(t, &fakeAnswerer{}, ingestor)

	out := bot.handleAdd(context.Background(), "chan-1", addURLInteraction("chan-1", "https://www.federalregister.gov/doc"))

	assert.Contains(t, out, "blocks automated access")
	assert.Empty(t, store.RecentSources("chan-1", 0), "a failed ingest adds no session source")
}

func TestHandleAdd_NoArguments(t *testing.T) {
	bot, _ := newTestBot(t, &fakeAnswerer{}, &fakeIngestor{})

	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ChannelID: "chan-1",
			Type:      discordgo.InteractionApplicationCommand,
			Data:      discordgo.ApplicationCommandInteractionData{Name: cmdAdd},
		},
	}
	out := bot.handleAdd(context.Background(), "chan-1", i)

	assert.Contains(t, out, "Provide a url or attach a file")
}

func TestHandleReset_ClearsSession(t *testing.T) {
	bot, store := newTestBot(t, &fakeAnswerer{}, &fakeIngestor{})
	store.Record("chan-1", "q", "a")
	store.AddSource("chan-1", session.Source{Kind: session.SourceFile, Label: "notes.md"})

	out := bot.handleReset("chan-1")

	assert.Contains(t, out, "cleared")
	assert.Empty(t, store.Turns("chan-1"))
	assert.Empty(t, store.RecentSources("chan-1", 0))
}

func TestCommandDefinitions_AskTakesQueryOption(t *testing.T) {
	var ask *discordgo.ApplicationCommand
	for _, def := range commandDefinitions() {
		if def.Name == cmdAsk {
			ask = def
		}
	}
	require.NotNil(t, ask)
	require.NotEmpty(t, ask.Options)
	assert.Equal(t, "query", ask.Options[0].Name)
	assert.True(t, ask.Options[0].Required)
}

func TestConfigValidate(t *testing.T) {
	store := session.NewStore(session.Config{MaxTurns: 10, Logger: log.NewNop()})
	valid := func() Config {
		return Config{
			Token:    "token",
			Answerer: &fakeAnswerer{},
			Ingestor: &fakeIngestor{},
			Sessions: store,
			Logger:   log.NewNop(),
		}
	}

	assert.NoError(t, valid().validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Token = "" }},
		{"missing answerer", func(c *Config) { c.Answerer = nil }},
		{"missing ingestor", func(c *Config) { c.Ingestor = nil }},
		{"missing sessions", func(c *Config) { c.Sessions = nil }},
		{"missing logger", func(c *Config) { c.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}
