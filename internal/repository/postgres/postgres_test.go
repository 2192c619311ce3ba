package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nisHanRam/Placify-Backend/internal/app/migrate"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
	"github.com/nisHanRam/Placify-Backend/internal/repository/storetest"
)

var migrateOnce sync.Once

// connect returns a pool on PLACIFY_TEST_DATABASE_URL with a migrated,
// emptied schema, or skips the test when the variable is unset.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("PLACIFY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PLACIFY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	migrateOnce.Do(func() {
		runner, err := migrate.Open(dsn, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)
		defer runner.Close()
		require.NoError(t, runner.Ensure(ctx))
	})
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = pool.Exec(ctx, `TRUNCATE places, users`)
	require.NoError(t, err)
	return pool
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return New(connect(t)) })
}
