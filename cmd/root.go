// Package cmd wires the CLI surface: the bot itself plus one-shot
// ingestion and version commands.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "policynav",
	Short: "Discord bot for navigating government regulations",
	Long: `policynav answers questions about government regulations and compliance
through a hosted agent platform. It keeps per-channel conversation context,
lets users add documents and web pages to a managed vector index, and
formats the agent's answers with their sources for Discord.

Running policynav with no arguments starts the bot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

// Execute runs the root command.
func Execute() error {
	// A missing .env is fine; the environment may be set elsewhere.
	_ = godotenv.Load()
	return rootCmd.Execute()
}
