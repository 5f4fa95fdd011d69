package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/wunjo/internal/parser"
	"github.com/starford/wunjo/internal/storage"
)

// Sync brings the index up to date with the workspace: changed files are
// re-parsed, files gone from disk are removed.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	indexed := 0
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	removed := 0
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.RemoveSource(p); err != nil {
			logger.Warn("sync: remove failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: done",
		slog.Int("files", len(metas)),
		slog.Int("indexed", indexed),
		slog.Int("removed", removed),
	)
	return nil
}

// indexFile parses data by file kind and stores the resulting records.
func indexFile(db *DB, path string, data []byte, modTime time.Time) error {
	sum := storage.Checksum(data)
	switch storage.KindOf(path) {
	case storage.KindNote:
		return db.IndexNote(path, sum, parser.ParseNote(path, data, modTime))
	case storage.KindBoard:
		doc, err := parser.ParseBoard(path, data, modTime)
		if err != nil {
			return err
		}
		return db.IndexBoard(path, sum, doc)
	}
	return fmt.Errorf("index: unsupported file %s", path)
}
