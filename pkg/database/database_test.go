package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	names, err := fs.Glob(Migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/00001_users.sql",
		"migrations/00002_campaigns.sql",
		"migrations/00003_revoked_tokens.sql",
	}, names)

	for _, n := range names {
		raw, err := fs.ReadFile(Migrations, n)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "-- +goose Up", n)
		assert.Contains(t, string(raw), "-- +goose Down", n)
	}
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, "migrations", gotDir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	assert.ErrorContains(t, Migrate(context.Background(), db), "boom")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory://")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.InMemory())
	assert.Equal(t, 5, cfg.MaxConns)

	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("DATABASE_MAX_CONNS", "0")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.InMemory())
	assert.Equal(t, 5, cfg.MaxConns)
}
