package db

import (
	"os"
	"path/filepath"
	"testing"
)

const migrationsTestPrefix = "db:migrations_test"

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - failed to write %s: %v", migrationsTestPrefix, name, err)
		}
	}
}

func TestLoadMigrationFiles_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"0002_create_ros_status.sql":   "SECOND",
		"0001_create_ros_messages.sql": "FIRST",
		"README.md":                    "# notes",
		"seed.json":                    "{}",
	})
	// directories are skipped even with a .sql suffix
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755); err != nil {
		t.Fatalf("%s - mkdir: %v", migrationsTestPrefix, err)
	}

	got, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) != 2 {
		t.Fatalf("%s - expected 2 migrations, got %d", migrationsTestPrefix, len(got))
	}
	if got[0].Name != "0001_create_ros_messages.sql" || got[0].SQL != "FIRST" {
		t.Errorf("%s - first migration = %+v", migrationsTestPrefix, got[0])
	}
	if got[1].SQL != "SECOND" {
		t.Errorf("%s - second migration = %+v", migrationsTestPrefix, got[1])
	}
}

func TestLoadMigrationFiles_EmptyDir(t *testing.T) {
	got, err := LoadMigrationFiles(t.TempDir())
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) != 0 {
		t.Errorf("%s - expected no migrations, got %d", migrationsTestPrefix, len(got))
	}
}

func TestLoadMigrationFiles_NonExistentDir(t *testing.T) {
	if _, err := LoadMigrationFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("%s - expected error for missing directory", migrationsTestPrefix)
	}
}

func TestLoadMigrationFiles_RepoMigrations(t *testing.T) {
	got, err := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) == 0 || got[0].Name != "0001_create_ros_messages.sql" {
		t.Errorf("%s - unexpected repo migrations %+v", migrationsTestPrefix, got)
	}
}
