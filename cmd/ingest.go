package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var ingestBackfill bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path|url...]",
	Short: "Index local documents or URLs without starting the bot",
	Long: `Ingest indexes the given files, directories or URLs into the managed
vector index and exits. With no arguments it scans the configured data
directory, skipping files that have not changed since the last run. Pass
--backfill to also crawl the configured seed URL.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestBackfill, "backfill", false,
		"also crawl the configured seed URL")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 0 {
		if ingestBackfill {
			if a.cfg.SeedURL == "" {
				return fmt.Errorf("--backfill requires SEED_URL to be configured")
			}
			a.cfg.WebBackfill = true
		}
		a.seedIndex(ctx)
		return nil
	}

	total := 0
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			src, err := a.ingestor.AddURL(ctx, arg)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", arg, err)
			}
			fmt.Printf("Indexed %s\n", src.Label)
			total++
			continue
		}
		count, err := a.ingestor.IngestFolder(ctx, arg, "local")
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", arg, err)
		}
		total += count
	}
	fmt.Printf("Indexed %d document(s)\n", total)
	return nil
}
