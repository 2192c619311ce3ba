// Package storage opens the configured repository backend together with its
// health probe and migration runner.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nisHanRam/Placify-Backend/internal/app/migrate"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
	"github.com/nisHanRam/Placify-Backend/internal/repository/memory"
	"github.com/nisHanRam/Placify-Backend/internal/repository/postgres"
	"github.com/nisHanRam/Placify-Backend/internal/repository/sqlite"
	"github.com/nisHanRam/Placify-Backend/pkg/config"
)

// ErrNoMigrations is returned for backends without a schema.
var ErrNoMigrations = errors.New("backend has no migrations")

// Backend is an opened store.
type Backend struct {
	Name  string
	Store repository.Store
	// Health pings the database; nil for the memory backend.
	Health func(context.Context) error

	runner  *migrate.Runner
	closers []func()
}

// Open connects to the backend named by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return &Backend{Name: config.StoreMemory, Store: memory.New()}, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		runner, err := migrate.New(store.DB(), migrate.DialectSQLite, cfg.MigrationsDir, log)
		if err != nil {
			store.Close()
			return nil, err
		}
		return &Backend{
			Name:    config.StoreSQLite,
			Store:   store,
			Health:  store.Ping,
			runner:  &runner,
			closers: []func(){func() { store.Close() }},
		}, nil
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		runner, err := migrate.Open(cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &Backend{
			Name:    config.StorePostgres,
			Store:   postgres.New(pool),
			Health:  pool.Ping,
			runner:  &runner,
			closers: []func(){runner.Close, pool.Close},
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Migrations returns the backend's migration runner.
func (b *Backend) Migrations() (migrate.Runner, error) {
	if b.runner == nil {
		return migrate.Runner{}, fmt.Errorf("%s: %w", b.Name, ErrNoMigrations)
	}
	return *b.runner, nil
}

// Prepare pings the database and, when autoMigrate is set, applies pending
// migrations. It is a no-op for the memory backend.
func (b *Backend) Prepare(ctx context.Context, autoMigrate bool) error {
	if b.runner == nil {
		return nil
	}
	if err := b.runner.Ping(ctx); err != nil {
		return err
	}
	if !autoMigrate {
		return nil
	}
	return b.runner.Ensure(ctx)
}

// Close releases connections in reverse order of acquisition.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
