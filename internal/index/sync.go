package index

import (
	"log/slog"
	"time"

	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/storage"
)

// Sync walks the notes directory and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Files that fail to parse are still indexed, with their parse error, so
// validation can report them.
func Sync(db NoteIndex, store storage.Provider, logger *slog.Logger) error {
	entries, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		disk[e.Path] = struct{}{}

		if checksums[e.Path] == e.Checksum {
			continue
		}

		data, err := store.Read(e.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, e.Path, data, e.UpdatedAt, logger); err != nil {
			logger.Warn("sync: index failed", slog.String("path", e.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", e.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it into the index. The note service
// calls it after writing a file so reads see the change immediately.
func IndexFile(db NoteIndex, path string, data []byte, logger *slog.Logger) error {
	return indexFile(db, path, data, time.Now(), logger)
}

func indexFile(db NoteIndex, path string, data []byte, updatedAt time.Time, logger *slog.Logger) error {
	row := Row{
		Path:      path,
		Checksum:  storage.Checksum(data),
		UpdatedAt: updatedAt,
	}
	doc, err := note.Parse(data)
	if err != nil {
		logger.Warn("index: parse failed", slog.String("path", path), slog.String("error", err.Error()))
		row.ParseError = err.Error()
	} else {
		row.Document = doc
	}
	return db.UpsertNote(row)
}
