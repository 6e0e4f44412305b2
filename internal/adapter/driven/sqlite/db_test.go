package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_FileInWALMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())

	var mode string
	require.NoError(t, db.Reader.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNewDB_EmptyPath(t *testing.T) {
	_, err := NewDB(context.Background(), "")
	assert.Error(t, err)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	first, err := RunMigrations(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	again, err := RunMigrations(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	var n int
	require.NoError(t, db.Reader.QueryRow("SELECT COUNT(*) FROM device_sessions").Scan(&n))
	assert.Zero(t, n)
}
