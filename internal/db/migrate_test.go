package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMigrationsSortedByVersion(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_second.sql": "SELECT 2;",
		"001_first.sql":  "SELECT 1;",
		"010_tenth.sql":  "SELECT 10;",
		"notes.md":       "skip me",
		"broken.sql":     "-- no version prefix",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	migrations, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("LoadMigrations failed: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	wantNames := []string{"001_first", "002_second", "010_tenth"}
	for i, m := range migrations {
		if m.Version != wantVersions[i] || m.Name != wantNames[i] {
			t.Fatalf("migration %d = %d %q", i, m.Version, m.Name)
		}
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	if _, err := LoadMigrations("/does/not/exist"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
