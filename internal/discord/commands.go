package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	cmdAsk   = "ask"
	cmdAdd   = "add"
	cmdReset = "reset_history"
)

// commandDefinitions is the full slash command surface. Registration is
// idempotent: Discord upserts by name.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdAsk,
			Description: "Ask a question about government regulations and compliance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Your question",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "detail",
					Description: "Ask for a longer answer with excerpts",
				},
			},
		},
		{
			Name:        cmdAdd,
			Description: "Add a document or web page to the knowledge index",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "URL of a page to index",
				},
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "file",
					Description: "File to index (.txt, .md, .html, .csv, .json)",
				},
			},
		},
		{
			Name:        cmdReset,
			Description: "Forget this channel's conversation history and sources",
		},
	}
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	for _, def := range commandDefinitions() {
		cmd, err := b.session.ApplicationCommandCreate(appID, b.guildID, def)
		if err != nil {
			return fmt.Errorf("registering command %s: %w", def.Name, err)
		}
		b.registered = append(b.registered, cmd)
	}
	scope := "global"
	if b.guildID != "" {
		scope = "guild " + b.guildID
	}
	b.logger.Info("slash commands registered", "count", len(b.registered), "scope", scope)
	return nil
}
