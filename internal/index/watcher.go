package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notelog/internal/storage"
)

// Change kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after an index change with one of the Event kinds.
type EventCallback func(kind string, path string)

// settleDelay is how long the watcher waits for a burst of file events (an
// editor saving, a git checkout) to end before re-indexing.
const settleDelay = 100 * time.Millisecond

type watcher struct {
	db     NoteIndex
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	fsw    *fsnotify.Watcher

	dirty  map[string]struct{}
	rescan bool
}

// Watch keeps the index in step with the notes directory until ctx is
// cancelled. Events are coalesced per path and applied once the directory
// settles; each path is then compared with its indexed checksum, so cb (if
// non-nil) only hears about notes whose content actually changed.
//
// New directories are watched as they appear. Removing or renaming a
// directory triggers a full rescan, which also covers notes moved out of
// the tree.
func Watch(ctx context.Context, db NoteIndex, store storage.Provider, notesRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{
		db:     db,
		store:  store,
		root:   notesRoot,
		logger: logger,
		cb:     cb,
		fsw:    fsw,
		dirty:  make(map[string]struct{}),
	}
	if err := w.addDirs(notesRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", notesRoot))

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.observe(ev) {
				settle.Reset(settleDelay)
			}

		case <-settle.C:
			w.flush()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// observe records what ev touched and reports whether a flush is needed.
func (w *watcher) observe(ev fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || storage.Hidden(rel) {
		return false
	}
	rel = filepath.ToSlash(rel)

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addDirs(ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", rel),
					slog.String("error", err.Error()))
			}
			// Files may land in the directory before it is watched.
			w.markTree(ev.Name)
			return true
		}
	}

	if strings.HasSuffix(rel, storage.NoteExt) {
		w.dirty[rel] = struct{}{}
		return true
	}
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.rescan = true
		return true
	}
	return false
}

// markTree marks every note below dir as dirty.
func (w *watcher) markTree(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, storage.NoteExt) {
			return nil
		}
		if rel, err := filepath.Rel(w.root, p); err == nil && !storage.Hidden(rel) {
			w.dirty[filepath.ToSlash(rel)] = struct{}{}
		}
		return nil
	})
}

// flush re-indexes every dirty path in path order.
func (w *watcher) flush() {
	if w.rescan {
		w.rescan = false
		w.markStale()
	}
	paths := make([]string, 0, len(w.dirty))
	for p := range w.dirty {
		paths = append(paths, p)
	}
	clear(w.dirty)
	slices.Sort(paths)
	for _, p := range paths {
		w.refresh(p)
	}
}

// markStale marks indexed notes that are gone from disk, and notes on disk
// whose checksum differs from the index.
func (w *watcher) markStale() {
	indexed, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("watcher: rescan failed", slog.String("error", err.Error()))
		return
	}
	entries, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: rescan failed", slog.String("error", err.Error()))
		return
	}
	onDisk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		onDisk[e.Path] = struct{}{}
		if indexed[e.Path] != e.Checksum {
			w.dirty[e.Path] = struct{}{}
		}
	}
	for p := range indexed {
		if _, ok := onDisk[p]; !ok {
			w.dirty[p] = struct{}{}
		}
	}
}

// refresh brings one path's index row in line with the file on disk.
func (w *watcher) refresh(rel string) {
	prev, err := w.db.GetChecksum(rel)
	if err != nil {
		w.logger.Warn("watcher: checksum lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	data, err := w.store.Read(rel)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if prev == "" {
			return
		}
		if err := w.db.DeleteNote(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		w.notify(EventDeleted, rel)
		return
	case err != nil:
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	if storage.Checksum(data) == prev {
		return
	}
	if err := indexFile(w.db, rel, data, time.Now(), w.logger); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind := EventUpdated
	if prev == "" {
		kind = EventCreated
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.notify(kind, rel)
}

func (w *watcher) notify(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// addDirs adds root and all its non-hidden subdirectories to the watcher.
func (w *watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}
