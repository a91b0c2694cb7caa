package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/policynav/policynav/internal/session"
)

// manifestName is the smart-skip manifest kept at the data dir root.
const manifestName = ".index_manifest.json"

// manifestEntry records one file's state at its last ingestion.
type manifestEntry struct {
	MTime   int64 `json:"mtime_unix_nano"`
	Size    int64 `json:"size"`
	Skipped bool  `json:"skipped"`
}

// manifest tracks file modification times so repeated folder ingestion
// only re-uploads changed files. Safe to rebuild from scratch at any time;
// losing it only costs redundant uploads.
type manifest struct {
	path    string
	entries map[string]manifestEntry
}

// loadManifest reads the manifest, tolerating a missing or corrupt file.
func loadManifest(dataDir string) *manifest {
	m := &manifest{
		path:    filepath.Join(dataDir, manifestName),
		entries: make(map[string]manifestEntry),
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		m.entries = make(map[string]manifestEntry)
	}
	return m
}

// save persists the manifest. Best effort.
func (m *manifest) save() error {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o640)
}

// changed reports whether the file differs from its manifest entry.
func (m *manifest) changed(path string, info fs.FileInfo) bool {
	prev, ok := m.entries[path]
	if !ok {
		return true
	}
	return prev.MTime != info.ModTime().UnixNano() || (!prev.Skipped && prev.Size != info.Size())
}

// record stores the file's current state.
func (m *manifest) record(path string, info fs.FileInfo, skipped bool) {
	m.entries[path] = manifestEntry{
		MTime:   info.ModTime().UnixNano(),
		Size:    info.Size(),
		Skipped: skipped,
	}
}

// IngestFolder walks folder and ingests every changed text file, recording
// state in the data-dir manifest so unchanged files are skipped on the
// next run. Per-file errors are logged and do not abort the walk.
// A missing folder is not an error.
func (ing *Ingestor) IngestFolder(ctx context.Context, folder, sourceHint string) (int, error) {
	if _, err := os.Stat(folder); errors.Is(err, fs.ErrNotExist) {
		ing.logger.Debug("folder not found, skipping", "folder", folder)
		return 0, nil
	}

	m := loadManifest(ing.dataDir)
	count := 0

	walkErr := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || d.Name() == manifestName {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !m.changed(path, info) {
			return nil
		}

		uploaded, err := ing.IngestPath(ctx, path, sourceHint)
		if err != nil {
			ing.logger.Warn("ingest error", "path", path, "error", err)
			return nil
		}
		m.record(path, info, !uploaded)
		if uploaded {
			count++
		}
		return nil
	})

	if err := m.save(); err != nil {
		ing.logger.Warn("could not write manifest", "error", err)
	}
	if walkErr != nil {
		return count, fmt.Errorf("walking %s: %w", folder, walkErr)
	}
	if count > 0 {
		ing.logger.Info("folder ingested", "folder", folder, "files", count)
	}
	return count, nil
}

// IngestDataset ingests a locally staged dataset folder, labeling every
// document with the dataset tag so retrieved chunks cite the dataset
// rather than individual files. Tag defaults to the folder name.
func (ing *Ingestor) IngestDataset(ctx context.Context, folder, tag string) (session.Source, int, error) {
	if tag == "" {
		tag = filepath.Base(folder)
	}
	count, err := ing.IngestFolder(ctx, folder, tag)
	if err != nil {
		return session.Source{}, count, err
	}
	return session.Source{Kind: session.SourceDataset, Label: tag, Ref: folder}, count, nil
}
