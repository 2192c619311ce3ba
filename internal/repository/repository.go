package repository

import (
	"context"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	// CreateUser inserts a user, assigning an id when empty. A duplicate
	// email yields ErrConflict.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// GetUserForUpdate is GetUserByID that also takes the backend's row lock
	// when called inside a transaction.
	GetUserForUpdate(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
}

// PlaceRepository persists places.
type PlaceRepository interface {
	// CreatePlace inserts a place, assigning an id when empty.
	CreatePlace(ctx context.Context, place *domain.Place) error
	GetPlaceByID(ctx context.Context, id string) (*domain.Place, error)
	ListPlacesByCreator(ctx context.Context, userID string) ([]domain.Place, error)
	UpdatePlace(ctx context.Context, place *domain.Place) error
	DeletePlace(ctx context.Context, id string) error
}

// Store groups every repository a backend provides.
type Store interface {
	UserRepository
	PlaceRepository
}

// Transactor is implemented by stores that commit writes to several records
// atomically. fn receives a Store bound to the transaction; returning an
// error rolls every write back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// UserLocker is implemented by stores without transactions. The returned
// function releases the lock.
type UserLocker interface {
	LockUser(userID string) (unlock func())
}

// PlaceRestorer is implemented by stores without transactions. RestorePlace
// puts a deleted place back with its original timestamps and list position.
type PlaceRestorer interface {
	RestorePlace(ctx context.Context, place *domain.Place) error
}
