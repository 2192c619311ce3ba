package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/nisHanRam/Placify-Backend/db"
)

// Dialects understood by the runner.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// goose keeps its settings in package state.
var gooseMu sync.Mutex

// Runner wraps database migration capabilities.
type Runner struct {
	db      *sql.DB
	owned   bool
	dialect string
	fsys    fs.FS
	dir     string
	log     *slog.Logger
}

// Source resolves the migration files for a dialect. An empty override
// selects the embedded migrations.
func Source(dialect, override string) (fs.FS, string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return nil, "", fmt.Errorf("locate migrations dir: %w", err)
		}
		return os.DirFS(override), ".", nil
	}
	switch dialect {
	case DialectPostgres:
		return db.Migrations, db.PostgresDir, nil
	case DialectSQLite:
		return db.Migrations, db.SQLiteDir, nil
	default:
		return nil, "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// Open returns a runner on a connection it opens and owns. Postgres DSNs use
// the pgx stdlib driver.
func Open(dsn, migrationsDir string, log *slog.Logger) (Runner, error) {
	if dsn == "" {
		return Runner{}, errors.New("empty database dsn")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return Runner{}, fmt.Errorf("open sql connection: %w", err)
	}
	r, err := New(conn, DialectPostgres, migrationsDir, log)
	if err != nil {
		conn.Close()
		return Runner{}, err
	}
	r.owned = true
	return r, nil
}

// New returns a migration runner on an existing connection.
func New(conn *sql.DB, dialect, migrationsDir string, log *slog.Logger) (Runner, error) {
	if conn == nil {
		return Runner{}, errors.New("nil database provided")
	}
	fsys, dir, err := Source(dialect, migrationsDir)
	if err != nil {
		return Runner{}, err
	}
	if log == nil {
		log = slog.Default()
	}
	return Runner{db: conn, dialect: dialect, fsys: fsys, dir: dir, log: log}, nil
}

// Ensure applies pending migrations.
func (r Runner) Ensure(ctx context.Context) error {
	return r.withGoose(func() error {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		r.log.Info("applying migrations", "dialect", r.dialect, "dir", r.dir)
		if err := goose.UpContext(runCtx, r.db, r.dir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.log.Info("migrations applied")
		return nil
	})
}

// Status reports applied and pending migrations.
func (r Runner) Status(ctx context.Context) error {
	return r.withGoose(func() error {
		r.log.Info("migration status", "dialect", r.dialect, "dir", r.dir)
		if err := goose.StatusContext(ctx, r.db, r.dir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version.
func (r Runner) Version(ctx context.Context) (int64, error) {
	var version int64
	err := r.withGoose(func() error {
		v, err := goose.GetDBVersionContext(ctx, r.db)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// Down rolls back migrations either to the previous version or a specific target version.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withGoose(func() error {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		if targetVersion > 0 {
			r.log.Info("rolling back migrations", "target", targetVersion)
			if err := goose.DownToContext(runCtx, r.db, r.dir, targetVersion); err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
		} else {
			r.log.Info("rolling back latest migration")
			if err := goose.DownContext(runCtx, r.db, r.dir); err != nil {
				return fmt.Errorf("rollback latest migration: %w", err)
			}
		}

		r.log.Info("rollback complete")
		return nil
	})
}

// Ping ensures the database connection is alive.
func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the connection when the runner opened it.
func (r Runner) Close() {
	if r.owned && r.db != nil {
		r.db.Close()
	}
}

func (r Runner) withGoose(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(r.fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{log: r.log})
	if err := goose.SetDialect(r.dialect); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return fn()
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), "component", "goose")
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), "component", "goose")
	os.Exit(1)
}
