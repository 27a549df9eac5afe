package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/sift/internal/checksum"
	"github.com/starford/sift/internal/models"
	"github.com/starford/sift/internal/parser"
	"github.com/starford/sift/internal/storage"
)

// SyncResult counts the changes a Sync applied.
type SyncResult struct {
	Indexed int
	Removed int
	Failed  int
}

// Changed reports whether the index was modified.
func (r SyncResult) Changed() bool { return r.Indexed > 0 || r.Removed > 0 }

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) (SyncResult, error) {
	var res SyncResult

	metas, err := store.List("")
	if err != nil {
		return res, err
	}
	checksums, err := db.AllChecksums(ctx)
	if err != nil {
		return res, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			res.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(ctx, db, m.Path, data, m.UpdatedAt); err != nil {
			res.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		res.Indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(ctx, p); err != nil {
			res.Failed++
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		res.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: done",
		slog.Int("indexed", res.Indexed),
		slog.Int("removed", res.Removed),
		slog.Int("failed", res.Failed))
	return res, nil
}

// IndexFile parses data and upserts it as the note at path.
func IndexFile(ctx context.Context, idx NoteIndex, path string, data []byte, modTime time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", path, err)
	}

	rec := models.NoteRecord{
		ID:        res.ID,
		Path:      path,
		Title:     res.Title,
		Body:      res.PlainText,
		Tags:      res.Tags,
		Checksum:  checksum.Sum(data),
		CreatedAt: createdAt(res.Frontmatter),
		UpdatedAt: modTime,
	}
	return idx.UpsertNote(ctx, rec, res.Links)
}

// createdAt reads the frontmatter "created" field, a date or a timestamp.
func createdAt(fm map[string]any) time.Time {
	switch v := fm["created"].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
