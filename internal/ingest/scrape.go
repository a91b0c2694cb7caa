package ingest

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/policynav/policynav/internal/platform"
	"github.com/policynav/policynav/internal/session"
)

// ScrapeConfig bounds the seed-URL backfill crawl.
type ScrapeConfig struct {
	// MaxPages caps how many pages are fetched. Zero uses 3.
	MaxPages int

	// Parallelism is max concurrent requests per domain. Zero uses 2.
	Parallelism int

	// Delay between requests to the same domain. Zero uses 1s.
	Delay time.Duration

	// Timeout per request. Zero uses 30s.
	Timeout time.Duration
}

func (c ScrapeConfig) withDefaults() ScrapeConfig {
	if c.MaxPages <= 0 {
		c.MaxPages = 3
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 2
	}
	if c.Delay <= 0 {
		c.Delay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Backfill crawls the seed URL, staying on the seed's domain and stopping
// after cfg.MaxPages pages. Each page is snapshotted under dataDir/web and
// its extracted text uploaded to the index labeled with the seed host.
// Per-page failures are logged and skipped; the crawl itself is best
// effort.
func (ing *Ingestor) Backfill(ctx context.Context, seedURL string, cfg ScrapeConfig) (session.Source, int, error) {
	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		return session.Source{}, 0, fmt.Errorf("invalid seed URL %q", seedURL)
	}
	cfg = cfg.withDefaults()

	collector := colly.NewCollector(
		colly.AllowedDomains(seed.Host),
		colly.MaxDepth(2),
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
	}); err != nil {
		return session.Source{}, 0, fmt.Errorf("configuring crawl limits: %w", err)
	}

	pages := 0

	collector.OnResponse(func(r *colly.Response) {
		if pages >= cfg.MaxPages {
			return
		}
		pageURL := r.Request.URL.String()

		rel := filepath.Join("web", fmt.Sprintf("page_%d.html", pages))
		if err := ing.snapshot(rel, r.Body); err != nil {
			ing.logger.Warn("backfill snapshot failed", "url", pageURL, "error", err)
		}

		text, err := extractText(r.Body, pageURL)
		if err != nil {
			ing.logger.Warn("backfill extraction failed", "url", pageURL, "error", err)
			return
		}
		doc := ing.backfillDocument(text, pageURL, seed.Host)
		if err := ing.uploader.UpsertDocument(ctx, ing.indexID, doc); err != nil {
			ing.logger.Warn("backfill upload failed", "url", pageURL, "error", err)
			return
		}
		pages++
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if pages >= cfg.MaxPages {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}
		// Visit errors (off-domain, already visited, depth) are expected.
		_ = e.Request.Visit(link)
	})

	collector.OnError(func(r *colly.Response, err error) {
		ing.logger.Warn("backfill fetch failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := collector.Visit(seedURL); err != nil {
		return session.Source{}, 0, fmt.Errorf("backfill of %s: %w", seedURL, err)
	}
	collector.Wait()

	ing.logger.Info("backfill complete", "seed", seedURL, "pages", pages)
	src := session.Source{Kind: session.SourceURL, Label: seed.Host, Ref: seedURL}
	return src, pages, nil
}

func (ing *Ingestor) backfillDocument(text, pageURL, host string) platform.IndexDocument {
	return platform.IndexDocument{
		Text: text,
		Metadata: platform.DocumentMeta{
			URL:    pageURL,
			Source: host,
		},
	}
}
