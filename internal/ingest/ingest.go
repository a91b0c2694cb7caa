// Package ingest submits file and URL content to the platform's managed
// vector index. Chunking and embedding happen platform-side; this package
// only fetches, extracts text, snapshots raw content under the data
// directory, and forwards documents for indexing.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/policynav/policynav/internal/log"
	"github.com/policynav/policynav/internal/platform"
	"github.com/policynav/policynav/internal/session"
)

// textSuffixes are the file types read directly. Everything else (PDF and
// friends) is snapshotted but not indexed locally.
var textSuffixes = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".csv":  true,
	".json": true,
}

// Uploader is the slice of the platform client the ingestor needs.
// Defined here, by the consumer.
type Uploader interface {
	UpsertDocument(ctx context.Context, indexID string, doc platform.IndexDocument) error
}

// Config contains Ingestor parameters.
type Config struct {
	Uploader Uploader
	IndexID  string

	// DataDir is the local snapshot root. Subdirectories web/ and
	// uploads/ are created on demand.
	DataDir string

	// FetchTimeout bounds one page fetch. Zero uses 30s.
	FetchTimeout time.Duration

	Logger log.Logger
}

// Ingestor accepts files and URLs and forwards their content to the
// platform index, waiting synchronously for the acknowledgement.
//
// Failure modes are deliberate: a failed fetch reports an ingestion error
// and never calls the upload endpoint; an upload failure is surfaced
// as-is with no partial-failure recovery.
type Ingestor struct {
	uploader Uploader
	indexID  string
	dataDir  string
	fetcher  *fetcher
	logger   log.Logger
}

// New creates an Ingestor.
func New(cfg Config) (*Ingestor, error) {
	if cfg.Uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if cfg.IndexID == "" {
		return nil, fmt.Errorf("index id is required")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Ingestor{
		uploader: cfg.Uploader,
		indexID:  cfg.IndexID,
		dataDir:  cfg.DataDir,
		fetcher:  &fetcher{client: &http.Client{Timeout: timeout}},
		logger:   cfg.Logger,
	}, nil
}

// AddURL fetches a public URL, extracts its text and uploads it to the
// index. The raw page is snapshotted under dataDir/web keyed by the URL
// hash. On fetch failure the upload endpoint is never called.
//
// FederalRegister special case: when the site returns its "Request Access"
// blocker page, the embedded govinfo.gov PDF is downloaded and snapshotted
// instead, and ErrBlockedPage is returned (the PDF itself carries no
// locally extractable text).
func (ing *Ingestor) AddURL(ctx context.Context, rawURL string) (session.Source, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return session.Source{}, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	ing.logger.Info("fetching URL", "url", rawURL)
	pg, err := ing.fetcher.fetch(ctx, rawURL)
	if err != nil {
		return session.Source{}, fmt.Errorf("ingestion failed: %w", err)
	}

	if strings.Contains(strings.ToLower(rawURL), "federalregister.gov") && isBlockedHTML(pg.Body) {
		return ing.handleBlockedPage(ctx, rawURL, pg)
	}

	snapshot := filepath.Join("web", "external-"+hashName(rawURL, nil)+".html")
	if err := ing.snapshot(snapshot, pg.Body); err != nil {
		ing.logger.Warn("snapshot failed", "url", rawURL, "error", err)
	}

	text, err := extractText(pg.Body, rawURL)
	if err != nil {
		return session.Source{}, fmt.Errorf("ingestion failed: %w", err)
	}

	doc := platform.IndexDocument{
		Text: text,
		Metadata: platform.DocumentMeta{
			URL:    rawURL,
			Source: rawURL,
		},
	}
	if err := ing.uploader.UpsertDocument(ctx, ing.indexID, doc); err != nil {
		return session.Source{}, fmt.Errorf("ingestion failed: %w", err)
	}

	ing.logger.Info("URL ingested", "url", rawURL, "chars", len(text))
	return session.Source{Kind: session.SourceURL, Label: rawURL, Ref: rawURL}, nil
}

// handleBlockedPage follows the govinfo PDF fallback for a blocked
// FederalRegister page. The PDF snapshot is kept for operators; the caller
// receives ErrBlockedPage either way because no text reached the index.
func (ing *Ingestor) handleBlockedPage(ctx context.Context, rawURL string, pg *page) (session.Source, error) {
	ing.logger.Info("detected FederalRegister blocker page, trying govinfo PDF fallback", "url", rawURL)

	if pdfURL := govinfoPDFURL(pg.Body); pdfURL != "" {
		pdf, err := ing.fetcher.fetch(ctx, pdfURL)
		if err == nil {
			name := filepath.Join("web", fmt.Sprintf("federalregister_govinfo_%d.pdf", time.Now().Unix()))
			if err := ing.snapshot(name, pdf.Body); err != nil {
				ing.logger.Warn("PDF snapshot failed", "url", pdfURL, "error", err)
			} else {
				ing.logger.Info("saved govinfo PDF snapshot", "url", pdfURL, "path", name)
			}
		} else {
			ing.logger.Warn("govinfo PDF fetch failed", "url", pdfURL, "error", err)
		}
	}

	blocked := filepath.Join("web", fmt.Sprintf("blocked_%d.html", time.Now().Unix()))
	if err := ing.snapshot(blocked, pg.Body); err != nil {
		ing.logger.Warn("blocked-page snapshot failed", "url", rawURL, "error", err)
	}

	return session.Source{}, fmt.Errorf("ingestion failed for %s: %w", rawURL, ErrBlockedPage)
}

// AddFile saves uploaded bytes under dataDir/uploads as <hash>-<name>,
// extracts text for known text suffixes and uploads it to the index.
func (ing *Ingestor) AddFile(ctx context.Context, name string, content []byte) (session.Source, error) {
	if len(content) == 0 {
		return session.Source{}, fmt.Errorf("uploaded file %q is empty", name)
	}

	// Strip any path component a client may have smuggled in.
	safe := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	saved := filepath.Join("uploads", hashName(safe, content)+"-"+safe)
	if err := ing.snapshot(saved, content); err != nil {
		return session.Source{}, fmt.Errorf("saving upload %q: %w", safe, err)
	}
	ing.logger.Info("saved upload", "file", safe, "path", saved)

	suffix := strings.ToLower(filepath.Ext(safe))
	if !textSuffixes[suffix] {
		return session.Source{}, fmt.Errorf("unsupported file type %q: only text formats (%s) are indexed",
			suffix, strings.Join(sortedSuffixes(), ", "))
	}

	text := string(content)
	if suffix == ".html" || suffix == ".htm" {
		if extracted, err := extractText(content, ""); err == nil {
			text = extracted
		}
	}

	doc := platform.IndexDocument{
		Text: text,
		Metadata: platform.DocumentMeta{
			Path:     saved,
			Filename: safe,
			Source:   safe,
		},
	}
	if err := ing.uploader.UpsertDocument(ctx, ing.indexID, doc); err != nil {
		return session.Source{}, fmt.Errorf("ingestion failed: %w", err)
	}

	ing.logger.Info("file ingested", "file", safe, "chars", len(text))
	return session.Source{Kind: session.SourceFile, Label: safe, Ref: saved}, nil
}

// IngestPath ingests one local file by path, using the manifest-free
// direct route. The bool reports whether the file actually reached the
// index; non-text and empty files are skipped without error.
func (ing *Ingestor) IngestPath(ctx context.Context, path, sourceHint string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	suffix := strings.ToLower(filepath.Ext(path))
	if !textSuffixes[suffix] {
		ing.logger.Debug("skipping non-text file", "path", path)
		return false, nil
	}

	text := string(content)
	if suffix == ".html" || suffix == ".htm" {
		if extracted, err := extractText(content, ""); err == nil {
			text = extracted
		}
	}
	if strings.TrimSpace(text) == "" {
		ing.logger.Debug("skipping empty file", "path", path)
		return false, nil
	}

	if sourceHint == "" {
		sourceHint = "local"
	}
	doc := platform.IndexDocument{
		Text: text,
		Metadata: platform.DocumentMeta{
			Path:     path,
			Filename: filepath.Base(path),
			Source:   sourceHint,
		},
	}
	if err := ing.uploader.UpsertDocument(ctx, ing.indexID, doc); err != nil {
		return false, fmt.Errorf("indexing %s: %w", path, err)
	}
	ing.logger.Info("indexed file", "path", path, "source", sourceHint)
	return true, nil
}

// snapshot writes raw bytes under the data directory, creating parents.
func (ing *Ingestor) snapshot(rel string, content []byte) error {
	path := filepath.Join(ing.dataDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o640)
}

// DataDir exposes the snapshot root for the watcher and seeding.
func (ing *Ingestor) DataDir() string {
	return ing.dataDir
}

// hashName derives a short stable id from a name plus optional content.
func hashName(name string, extra []byte) string {
	h := sha256.New()
	h.Write([]byte(name))
	if extra != nil {
		h.Write(extra)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func sortedSuffixes() []string {
	return []string{".csv", ".htm", ".html", ".json", ".md", ".txt"}
}
