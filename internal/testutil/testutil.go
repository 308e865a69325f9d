// Package testutil provides shared test helpers for setting up notes
// directories, databases and services.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/notelog/internal/index"
	"github.com/starford/notelog/internal/noteservice"
	"github.com/starford/notelog/internal/schema"
	"github.com/starford/notelog/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notelog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestNotes creates a temporary notes directory with a storage.Provider.
func TestNotes(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Schema is a changelog schema exercising every field type.
func Schema() *schema.Schema {
	return schema.MustNew([]schema.Field{
		{Name: "type", Type: schema.TypeString, Enum: []string{"feature", "fix", "security"}},
		{Name: "issues", Type: schema.TypeNumber, List: true, Optional: true},
		{Name: "released", Type: schema.TypeDate, Optional: true},
		{Name: "version", Type: schema.TypeSemver, Optional: true},
		{Name: "ffVersion", Type: schema.TypeFFVersion, Optional: true},
		{Name: "breaking", Type: schema.TypeBoolean, Optional: true},
		{Name: "owner", Type: schema.TypeString, Optional: true},
	})
}

// Env is a notes directory, index and service wired together.
type Env struct {
	Dir   string
	Store storage.Provider
	DB    *index.DB
	Svc   *noteservice.Service
}

// NewEnv writes files into a fresh notes directory, syncs the index and
// returns the service over it.
func NewEnv(t *testing.T, files map[string]string, opts ...noteservice.Option) *Env {
	t.Helper()
	dir, store := TestNotes(t)
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	db := TestDB(t)
	svc := noteservice.NewService(Schema(), store, db, Logger(), opts...)
	if err := svc.Sync(t.Context()); err != nil {
		t.Fatal(err)
	}
	return &Env{Dir: dir, Store: store, DB: db, Svc: svc}
}
