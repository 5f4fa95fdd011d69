// Package testutil provides shared test helpers for setting up workspaces and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/wunjo/internal/index"
	"github.com/starford/wunjo/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "wunjo-test-*.db")
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

// TestWorkspace creates a temporary workspace directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Files is a small workspace: one board with an open and a finished card,
// and two notes, one of them in a folder.
var Files = map[string]string{
	"boards/work.yaml": `name: Work
lists:
  - name: To Do
    cards:
      - title: Write report
        tags: [urgent]
  - name: Done
    cards:
      - title: Ship v1
`,
	"notes/ideas.md": "---\ntitle: Ideas\npinned: true\n---\nA #planning list of things to try.\n",
	"notes/work/retro.md": "# Retro\n\nWhat went well #planning\n",
}

// Seed writes files into store, indexes them into db and returns db.
func Seed(t *testing.T, store storage.Provider, db *index.DB, files map[string]string) *index.DB {
	t.Helper()
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	if err := index.Sync(db, store, Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
