// Package sqlite implements the repositories on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements persistence interfaces on SQLite. A Store returned to a
// WithinTx callback is bound to that transaction.
type Store struct {
	db *sql.DB
	q  queryer
}

var (
	_ repository.Store      = (*Store)(nil)
	_ repository.Transactor = (*Store)(nil)
)

// Open opens the database at path (":memory:" for a private in-memory
// database). A single connection is kept so writers never interleave.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn inside a transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, password_hash, image, place_ids, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u        domain.User
		placeIDs string
		created  int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &placeIDs, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(placeIDs), &u.PlaceIDs); err != nil {
		return nil, fmt.Errorf("decode place ids for user %s: %w", u.ID, err)
	}
	if u.PlaceIDs == nil {
		u.PlaceIDs = []string{}
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	return &u, nil
}

func encodePlaceIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.PlaceIDs == nil {
		user.PlaceIDs = []string{}
	}
	placeIDs, err := encodePlaceIDs(user.PlaceIDs)
	if err != nil {
		return err
	}
	const query = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.q.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.Image, placeIDs, user.CreatedAt.UnixNano())
	return mapError(err)
}

// GetUserByID retrieves a user by identifier.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// GetUserForUpdate retrieves a user; SQLite locks the whole database for the
// writing transaction, so no row lock is needed.
func (s *Store) GetUserForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return s.GetUserByID(ctx, id)
}

// GetUserByEmail fetches a user by email, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	u, err := scanUser(s.q.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// ListUsers returns users in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY rowid`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser overwrites a stored user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	placeIDs, err := encodePlaceIDs(user.PlaceIDs)
	if err != nil {
		return err
	}
	const query = `UPDATE users SET name = ?, email = ?, password_hash = ?, image = ?, place_ids = ? WHERE id = ?`
	res, err := s.q.ExecContext(ctx, query, user.Name, user.Email, user.PasswordHash, user.Image, placeIDs, user.ID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

const placeColumns = `id, title, description, address, image, creator_id, created_at, updated_at`

func scanPlace(row rowScanner) (*domain.Place, error) {
	var (
		p                domain.Place
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Address, &p.Image, &p.CreatorID, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

// CreatePlace inserts a place.
func (s *Store) CreatePlace(ctx context.Context, place *domain.Place) error {
	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if place.CreatedAt.IsZero() {
		place.CreatedAt = now
	}
	place.UpdatedAt = now
	const query = `INSERT INTO places (` + placeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.q.ExecContext(ctx, query, place.ID, place.Title, place.Description, place.Address, place.Image, place.CreatorID, place.CreatedAt.UnixNano(), place.UpdatedAt.UnixNano())
	return mapError(err)
}

// GetPlaceByID fetches a place.
func (s *Store) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	const query = `SELECT ` + placeColumns + ` FROM places WHERE id = ?`
	p, err := scanPlace(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// ListPlacesByCreator returns a user's places in insertion order.
func (s *Store) ListPlacesByCreator(ctx context.Context, userID string) ([]domain.Place, error) {
	const query = `SELECT ` + placeColumns + ` FROM places WHERE creator_id = ? ORDER BY rowid`
	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	places := make([]domain.Place, 0)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, *p)
	}
	return places, rows.Err()
}

// UpdatePlace overwrites the mutable fields of a place.
func (s *Store) UpdatePlace(ctx context.Context, place *domain.Place) error {
	now := time.Now().UTC()
	const query = `UPDATE places SET title = ?, description = ?, address = ?, image = ?, updated_at = ? WHERE id = ?`
	res, err := s.q.ExecContext(ctx, query, place.Title, place.Description, place.Address, place.Image, now.UnixNano(), place.ID)
	if err != nil {
		return mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	place.UpdatedAt = now
	return nil
}

// DeletePlace removes a place record.
func (s *Store) DeletePlace(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM places WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", repository.ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
		}
	}
	return err
}
