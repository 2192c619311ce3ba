package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	db   querier
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.Store      = (*Repository)(nil)
	_ repository.Transactor = (*Repository)(nil)
)

// WithinTx runs fn inside a transaction. Calls on an already bound
// Repository join the surrounding transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, password_hash, image, place_ids, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Image, &u.PlaceIDs, &u.CreatedAt); err != nil {
		return nil, err
	}
	if u.PlaceIDs == nil {
		u.PlaceIDs = []string{}
	}
	return &u, nil
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.PlaceIDs == nil {
		user.PlaceIDs = []string{}
	}
	const query = `INSERT INTO users (id, name, email, password_hash, image, place_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.Image, user.PlaceIDs, user.CreatedAt)
	return mapError(err)
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// GetUserForUpdate retrieves a user and locks its row until the surrounding
// transaction ends.
func (r *Repository) GetUserForUpdate(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// GetUserByEmail fetches a user by email, ignoring case.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// ListUsers returns users in insertion order.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY seq`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
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
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	placeIDs := user.PlaceIDs
	if placeIDs == nil {
		placeIDs = []string{}
	}
	const query = `UPDATE users
		SET name = $2, email = $3, password_hash = $4, image = $5, place_ids = $6
		WHERE id = $1`
	cmdTag, err := r.db.Exec(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.Image, placeIDs)
	if err != nil {
		return mapError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const placeColumns = `id, title, description, address, image, creator_id, created_at, updated_at`

func scanPlace(row pgx.Row) (*domain.Place, error) {
	var p domain.Place
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Address, &p.Image, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlace inserts a place.
func (r *Repository) CreatePlace(ctx context.Context, place *domain.Place) error {
	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if place.CreatedAt.IsZero() {
		place.CreatedAt = now
	}
	place.UpdatedAt = now
	const query = `INSERT INTO places (` + placeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query, place.ID, place.Title, place.Description, place.Address, place.Image, place.CreatorID, place.CreatedAt, place.UpdatedAt)
	return mapError(err)
}

// GetPlaceByID fetches a place.
func (r *Repository) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	const query = `SELECT ` + placeColumns + ` FROM places WHERE id = $1`
	p, err := scanPlace(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// ListPlacesByCreator returns a user's places in insertion order.
func (r *Repository) ListPlacesByCreator(ctx context.Context, userID string) ([]domain.Place, error) {
	const query = `SELECT ` + placeColumns + ` FROM places WHERE creator_id = $1 ORDER BY seq`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
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
func (r *Repository) UpdatePlace(ctx context.Context, place *domain.Place) error {
	const query = `UPDATE places
		SET title = $2, description = $3, address = $4, image = $5, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	var updatedAt time.Time
	if err := r.db.QueryRow(ctx, query, place.ID, place.Title, place.Description, place.Address, place.Image).Scan(&updatedAt); err != nil {
		return mapError(err)
	}
	place.UpdatedAt = updatedAt
	return nil
}

// DeletePlace removes a place record.
func (r *Repository) DeletePlace(ctx context.Context, id string) error {
	const query = `DELETE FROM places WHERE id = $1`
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		case "23514", "22P02":
			return fmt.Errorf("%w: %s", repository.ErrInvalidArgument, pgErr.Message)
		}
	}
	return err
}
