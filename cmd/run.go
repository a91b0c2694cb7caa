package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/policynav/policynav/internal/agent"
	"github.com/policynav/policynav/internal/config"
	"github.com/policynav/policynav/internal/discord"
	"github.com/policynav/policynav/internal/ingest"
	"github.com/policynav/policynav/internal/log"
	"github.com/policynav/policynav/internal/platform"
	"github.com/policynav/policynav/internal/session"
)

// platformRateLimit caps outgoing platform calls. The hosted API throttles
// at roughly 2 rps per key; staying under that avoids burning retries.
var platformRateLimit = rate.NewLimiter(rate.Limit(2), 4)

// app holds the assembled components shared by the bot and ingest commands.
type app struct {
	cfg       *config.Config
	logger    log.Logger
	client    *platform.Client
	sessions  *session.Store
	ingestor  *ingest.Ingestor
	navigator *agent.Navigator
}

// buildApp loads configuration and constructs every component up to, but
// not including, the Discord connection.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	client, err := platform.NewClient(platform.Config{
		BaseURL:     cfg.PlatformBaseURL,
		APIKey:      cfg.PlatformAPIKey,
		Timeout:     cfg.PlatformHTTPTimeout(),
		RateLimiter: platformRateLimit,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building platform client: %w", err)
	}

	sessions := session.NewStore(session.Config{
		MaxTurns: cfg.MaxTurns,
		Logger:   logger,
	})

	ingestor, err := ingest.New(ingest.Config{
		Uploader: client,
		IndexID:  cfg.IndexID,
		DataDir:  cfg.DataDir,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building ingestor: %w", err)
	}

	navigator, err := agent.New(agent.Config{
		Client:              client,
		Sessions:            sessions,
		Logger:              logger,
		AgentID:             cfg.AgentID,
		IndexID:             cfg.IndexID,
		ModelID:             cfg.ModelID,
		AgentName:           cfg.AgentName,
		Tools:               cfg.Tools,
		Deploy:              cfg.DeployAgent,
		TopK:                cfg.TopK,
		MaxHistoryChars:     cfg.MaxHistoryChars,
		SourceWindow:        cfg.SourceRecencyWindow(),
		AllowGeneralAnswers: cfg.AllowGeneralAnswers,
	})
	if err != nil {
		return nil, fmt.Errorf("building navigator: %w", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		sessions:  sessions,
		ingestor:  ingestor,
		navigator: navigator,
	}, nil
}

// dataFolders are the snapshot subdirectories scanned at startup and
// optionally watched for new files.
func (a *app) dataFolders() []string {
	return []string{
		filepath.Join(a.cfg.DataDir, "uploads"),
		filepath.Join(a.cfg.DataDir, "web"),
		a.kaggleFolder(),
	}
}

// kaggleFolder is where an operator stages a downloaded Kaggle dataset.
// Its contents are labeled with the dataset id instead of "local".
func (a *app) kaggleFolder() string {
	return filepath.Join(a.cfg.DataDir, "kaggle")
}

// seedIndex ingests the local data folders, skipping unchanged files, and
// optionally backfills the index by crawling the configured seed URL.
func (a *app) seedIndex(ctx context.Context) {
	for _, folder := range a.dataFolders() {
		if folder == a.kaggleFolder() {
			continue
		}
		count, err := a.ingestor.IngestFolder(ctx, folder, "local")
		if err != nil {
			a.logger.Warn("startup folder ingestion failed", "folder", folder, "error", err)
			continue
		}
		if count > 0 {
			a.logger.Info("ingested local documents", "folder", folder, "count", count)
		}
	}

	src, count, err := a.ingestor.IngestDataset(ctx, a.kaggleFolder(), a.cfg.KaggleDatasetID)
	if err != nil {
		a.logger.Warn("startup dataset ingestion failed", "folder", a.kaggleFolder(), "error", err)
	} else if count > 0 {
		a.logger.Info("ingested dataset documents", "dataset", src.Label, "count", count)
	}

	if a.cfg.WebBackfill && a.cfg.SeedURL != "" {
		src, pages, err := a.ingestor.Backfill(ctx, a.cfg.SeedURL, ingest.ScrapeConfig{
			MaxPages:    a.cfg.Scraper.MaxPages,
			Parallelism: a.cfg.Scraper.Parallelism,
			Delay:       a.cfg.Scraper.Delay(),
			Timeout:     a.cfg.Scraper.Timeout(),
		})
		if err != nil {
			a.logger.Warn("web backfill failed", "seed", a.cfg.SeedURL, "error", err)
		} else {
			a.logger.Info("web backfill complete", "seed", src.Ref, "pages", pages)
		}
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.navigator.Ensure(ctx); err != nil {
		return fmt.Errorf("preparing agent: %w", err)
	}

	a.seedIndex(ctx)

	var watcher *ingest.Watcher
	if a.cfg.WatchDataDir {
		watcher, err = ingest.NewWatcher(a.ingestor, a.dataFolders(), a.logger)
		if err != nil {
			return fmt.Errorf("starting data dir watcher: %w", err)
		}
		watcher.Start(ctx)
		defer func() {
			if err := watcher.Close(); err != nil {
				a.logger.Warn("closing watcher", "error", err)
			}
		}()
	}

	bot, err := discord.New(discord.Config{
		Token:    a.cfg.DiscordToken,
		GuildID:  a.cfg.GuildID,
		Prefix:   a.cfg.CommandPrefix,
		Answerer: a.navigator,
		Ingestor: a.ingestor,
		Sessions: a.sessions,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("building discord bot: %w", err)
	}
	if err := bot.Start(); err != nil {
		return err
	}
	a.logger.Info("bot running, press ctrl-c to stop")

	<-ctx.Done()
	a.logger.Info("shutting down")
	return bot.Stop()
}
