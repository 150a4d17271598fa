// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "wal.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrate_IsVersioned(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "migrate.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	schema := `CREATE TABLE IF NOT EXISTS things (id TEXT PRIMARY KEY);`
	require.NoError(t, Migrate(ctx, db, 1, schema))
	require.NoError(t, Migrate(ctx, db, 1, `THIS IS NOT SQL`), "same version must not re-apply")

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version)

	assert.Error(t, Migrate(ctx, db, 2, `THIS IS NOT SQL`))
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version, "failed migration must roll back")
}

func TestVerifyIntegrity_Healthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthy.sqlite")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(path, "quick")
	require.NoError(t, err)
	assert.Nil(t, issues)
}
