package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/notelog/internal/storage"
)

// watcherTestEnv sets up a notes dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	notesDir := t.TempDir()
	store, err := storage.NewFS(notesDir)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "notelog-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return notesDir, store, db
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, notesDir, logger, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(notesDir, "new.md"), []byte("---\nkind: new\n---\n# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.md")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, notesDir, logger, nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(notesDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("subdir/deep.md")
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = os.WriteFile(filepath.Join(notesDir, "del.md"), []byte("# Delete Me"), 0o644)
	Sync(db, store, logger)

	cs, _ := db.GetChecksum("del.md")
	if cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, notesDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(notesDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = os.WriteFile(filepath.Join(notesDir, "old.md"), []byte("# Rename"), 0o644)
	Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, notesDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(notesDir, "old.md"), filepath.Join(notesDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.md")
		newCS, _ := db.GetChecksum("renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcher_HiddenFilesIgnored(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, notesDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(notesDir, ".drafts"), 0o755)
	_ = os.WriteFile(filepath.Join(notesDir, ".drafts", "wip.md"), []byte("# WIP"), 0o644)
	_ = os.WriteFile(filepath.Join(notesDir, "visible.md"), []byte("# Visible"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("visible.md")
		return cs != ""
	}, "visible file not indexed")

	if cs, _ := db.GetChecksum(".drafts/wip.md"); cs != "" {
		t.Error("hidden file was indexed")
	}
}

// recorder collects watcher callbacks.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func TestWatcher_EventKinds(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec recorder
	go Watch(ctx, db, store, notesDir, logger, rec.record)
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(notesDir, "k.md")
	steps := []struct {
		act  func()
		want string
	}{
		{func() { _ = os.WriteFile(file, []byte("# One"), 0o644) }, "created:k.md"},
		{func() { _ = os.WriteFile(file, []byte("# Two"), 0o644) }, "updated:k.md"},
		{func() { _ = os.Remove(file) }, "deleted:k.md"},
	}
	for i, step := range steps {
		step.act()
		eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
			return len(rec.snapshot()) > i
		}, "missing "+step.want)
		if got := rec.snapshot(); len(got) <= i || got[i] != step.want {
			t.Fatalf("events = %v, want %s at %d", got, step.want, i)
		}
	}
}

func TestWatcher_UnchangedContentSilent(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	content := []byte("# Same")
	_ = os.WriteFile(filepath.Join(notesDir, "same.md"), content, 0o644)
	_ = Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec recorder
	go Watch(ctx, db, store, notesDir, logger, rec.record)
	time.Sleep(100 * time.Millisecond)

	// Rewriting identical bytes, as the note service does before the
	// watcher sees it, must not be reported.
	_ = os.WriteFile(filepath.Join(notesDir, "same.md"), content, 0o644)
	_ = os.WriteFile(filepath.Join(notesDir, "other.md"), []byte("# Other"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(rec.snapshot()) > 0
	}, "no events")
	time.Sleep(2 * settleDelay)
	if got := rec.snapshot(); len(got) != 1 || got[0] != "created:other.md" {
		t.Errorf("events = %v, want only created:other.md", got)
	}
}

func TestWatcher_DirRemovedRescans(t *testing.T) {
	notesDir, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = os.MkdirAll(filepath.Join(notesDir, "2023"), 0o755)
	_ = os.WriteFile(filepath.Join(notesDir, "2023", "old.md"), []byte("# Old"), 0o644)
	_ = os.WriteFile(filepath.Join(notesDir, "keep.md"), []byte("# Keep"), 0o644)
	_ = Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, notesDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.RemoveAll(filepath.Join(notesDir, "2023"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("2023/old.md")
		return cs == ""
	}, "note in removed directory still indexed")
	if cs, _ := db.GetChecksum("keep.md"); cs == "" {
		t.Error("unrelated note dropped by rescan")
	}
}
