package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisHanRam/Placify-Backend/internal/app/migrate"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
	"github.com/nisHanRam/Placify-Backend/internal/repository/storetest"
)

// openMigrated returns a file-backed store with the schema applied.
func openMigrated(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "placify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runner, err := migrate.New(store.DB(), migrate.DialectSQLite, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, runner.Ensure(context.Background()))
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return openMigrated(t) })
}

func TestInMemoryDatabase(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runner, err := migrate.New(store.DB(), migrate.DialectSQLite, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, runner.Ensure(context.Background()))

	user := storetest.SeedUser(t, store, "ada@example.com")
	got, err := store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "placify.db")
	store, err := Open(path)
	require.NoError(t, err)
	runner, err := migrate.New(store.DB(), migrate.DialectSQLite, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, runner.Ensure(context.Background()))
	user := storetest.SeedUser(t, store, "ada@example.com")
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestNestedWithinTxReusesTransaction(t *testing.T) {
	store := openMigrated(t)
	ctx := context.Background()
	user := storetest.SeedUser(t, store, "ada@example.com")

	err := store.WithinTx(ctx, func(outer repository.Store) error {
		inner, ok := outer.(repository.Transactor)
		require.True(t, ok)
		return inner.WithinTx(ctx, func(s repository.Store) error {
			u, err := s.GetUserForUpdate(ctx, user.ID)
			if err != nil {
				return err
			}
			u.Name = "Inside"
			return s.UpdateUser(ctx, u)
		})
	})
	require.NoError(t, err)

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inside", got.Name)
}
