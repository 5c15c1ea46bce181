package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	// this file lives in cmd/migrate/, so repo root is ../..
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations"))
}

func TestCollectMigrations_ParsesMigrationsDir(t *testing.T) {
	migrations, err := goose.CollectMigrations(migrationsDir(t), 0, goose.MaxVersion)
	require.NoError(t, err)
	assert.NotEmpty(t, migrations)
}

func TestSQLMigrations_HaveGooseDirectives(t *testing.T) {
	dir := migrationsDir(t)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)

		s := string(b)
		assert.Contains(t, s, "-- +goose Up", e.Name())
		assert.Contains(t, s, "-- +goose Down", e.Name())
	}
}

func TestBooksMigration_EnforcesBookInvariants(t *testing.T) {
	b, err := os.ReadFile(filepath.Join(migrationsDir(t), "00001_create_books.sql"))
	require.NoError(t, err)
	s := string(b)

	for _, col := range []string{"title", "author", "publisher", "isbn", "classification", "category"} {
		assert.Contains(t, s, "CHECK (btrim("+col+") <> '')", col)
	}
	assert.Contains(t, s, "CHECK (page_count > 0)")
	assert.Contains(t, s, "CHECK (price >= 0)")
	assert.Contains(t, s, "ON books (title, id)")
}

func TestMigrate_RejectsBadCommands(t *testing.T) {
	assert.ErrorContains(t, migrate(nil, migrationsDir(t), "sideways", ""), "unknown command")
	assert.ErrorContains(t, migrate(nil, t.TempDir(), "create", ""), "name is required")
}

func TestMigrate_Create(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, migrate(nil, dir, "create", "add_books_isbn_index"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_add_books_isbn_index.sql"))
}
