package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisHanRam/Placify-Backend/internal/repository"
	"github.com/nisHanRam/Placify-Backend/internal/repository/storetest"
	"github.com/nisHanRam/Placify-Backend/pkg/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenMemory(t *testing.T) {
	b, err := Open(context.Background(), config.APIConfig{StoreBackend: config.StoreMemory}, discard())
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Health)
	require.NoError(t, b.Prepare(context.Background(), true))
	_, err = b.Migrations()
	assert.True(t, errors.Is(err, ErrNoMigrations))
	_, ok := b.Store.(repository.UserLocker)
	assert.True(t, ok)
}

func TestOpenSQLiteAppliesMigrations(t *testing.T) {
	ctx := context.Background()
	cfg := config.APIConfig{
		StoreBackend: config.StoreSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "placify.db"),
	}
	b, err := Open(ctx, cfg, discard())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Prepare(ctx, true))
	require.NoError(t, b.Health(ctx))
	runner, err := b.Migrations()
	require.NoError(t, err)
	version, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	_, ok := b.Store.(repository.Transactor)
	assert.True(t, ok)
	storetest.SeedUser(t, b.Store, "ada@example.com")
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, config.APIConfig{StoreBackend: "mongodb"}, discard())
	assert.Error(t, err)

	_, err = Open(ctx, config.APIConfig{StoreBackend: config.StorePostgres}, discard())
	assert.Error(t, err)
}
