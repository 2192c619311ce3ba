// Package storetest holds the behavioural suite every repository backend
// must pass, so the memory fallback cannot drift from the SQL stores.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) repository.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, store repository.Store)
	}{
		{"CreateUserAssignsID", testCreateUserAssignsID},
		{"DuplicateEmailConflicts", testDuplicateEmailConflicts},
		{"GetUserByEmail", testGetUserByEmail},
		{"ListUsersKeepsInsertionOrder", testListUsersOrder},
		{"UpdateUserPersistsPlaceList", testUpdateUserPersistsPlaceList},
		{"UpdateMissingUser", testUpdateMissingUser},
		{"CreatePlaceRequiresCreator", testCreatePlaceRequiresCreator},
		{"PlaceLifecycle", testPlaceLifecycle},
		{"ListPlacesByCreator", testListPlacesByCreator},
		{"DuplicatePlaceIDConflicts", testDuplicatePlaceID},
		{"TransactionCommitAndRollback", testTransactions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// SeedUser inserts a user with the given email and returns it.
func SeedUser(t *testing.T, store repository.Store, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:         "User " + email,
		Email:        email,
		PasswordHash: []byte("$2a$10$hash"),
		Image:        "https://example.com/avatar.png",
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func newPlace(creatorID, title string) *domain.Place {
	return &domain.Place{
		Title:       title,
		Description: "A place worth visiting",
		Address:     "1 Main Street",
		Image:       "https://example.com/place.png",
		CreatorID:   creatorID,
	}
}

func testCreateUserAssignsID(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "ada@example.com")
	require.NotEmpty(t, user.ID)

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "User ada@example.com", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)
	assert.Equal(t, user.Image, got.Image)
	assert.NotNil(t, got.PlaceIDs)
	assert.Empty(t, got.PlaceIDs)
	assert.False(t, got.CreatedAt.IsZero())

	forUpdate, err := store.GetUserForUpdate(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, forUpdate.ID)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testDuplicateEmailConflicts(t *testing.T, store repository.Store) {
	ctx := context.Background()
	SeedUser(t, store, "ada@example.com")

	dup := &domain.User{Name: "Other", Email: "ADA@example.com", PasswordHash: []byte("x")}
	err := store.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrConflict)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func testGetUserByEmail(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "grace@example.com")

	got, err := store.GetUserByEmail(ctx, "Grace@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testListUsersOrder(t *testing.T, store repository.Store) {
	ctx := context.Background()
	first := SeedUser(t, store, "a@example.com")
	second := SeedUser(t, store, "b@example.com")
	third := SeedUser(t, store, "c@example.com")

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{users[0].ID, users[1].ID, users[2].ID})
}

func testUpdateUserPersistsPlaceList(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "ada@example.com")
	p1 := newPlace(user.ID, "First")
	p2 := newPlace(user.ID, "Second")
	require.NoError(t, store.CreatePlace(ctx, p1))
	require.NoError(t, store.CreatePlace(ctx, p2))

	user.AddPlace(p2.ID)
	user.AddPlace(p1.ID)
	user.Name = "Ada Lovelace"
	require.NoError(t, store.UpdateUser(ctx, user))

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, []string{p2.ID, p1.ID}, got.PlaceIDs)

	got.RemovePlace(p2.ID)
	require.NoError(t, store.UpdateUser(ctx, got))
	again, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p1.ID}, again.PlaceIDs)
}

func testUpdateMissingUser(t *testing.T, store repository.Store) {
	err := store.UpdateUser(context.Background(), &domain.User{ID: "missing", Email: "x@example.com"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testCreatePlaceRequiresCreator(t *testing.T, store repository.Store) {
	ctx := context.Background()
	err := store.CreatePlace(ctx, newPlace("ghost", "Orphan"))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	user := SeedUser(t, store, "ada@example.com")
	places, err := store.ListPlacesByCreator(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, places)
}

func testPlaceLifecycle(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "ada@example.com")
	place := newPlace(user.ID, "Empire State Building")
	require.NoError(t, store.CreatePlace(ctx, place))
	require.NotEmpty(t, place.ID)

	got, err := store.GetPlaceByID(ctx, place.ID)
	require.NoError(t, err)
	assert.Equal(t, "Empire State Building", got.Title)
	assert.Equal(t, user.ID, got.CreatorID)
	assert.Equal(t, place.Address, got.Address)
	assert.Equal(t, place.Image, got.Image)

	got.Title = "Chrysler Building"
	got.Description = "Art deco skyscraper"
	require.NoError(t, store.UpdatePlace(ctx, got))

	updated, err := store.GetPlaceByID(ctx, place.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chrysler Building", updated.Title)
	assert.Equal(t, "Art deco skyscraper", updated.Description)
	assert.Equal(t, user.ID, updated.CreatorID)

	require.NoError(t, store.DeletePlace(ctx, place.ID))
	_, err = store.GetPlaceByID(ctx, place.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, store.DeletePlace(ctx, place.ID), repository.ErrNotFound)
	assert.ErrorIs(t, store.UpdatePlace(ctx, got), repository.ErrNotFound)
}

func testListPlacesByCreator(t *testing.T, store repository.Store) {
	ctx := context.Background()
	ada := SeedUser(t, store, "ada@example.com")
	grace := SeedUser(t, store, "grace@example.com")

	a1 := newPlace(ada.ID, "A1")
	g1 := newPlace(grace.ID, "G1")
	a2 := newPlace(ada.ID, "A2")
	for _, p := range []*domain.Place{a1, g1, a2} {
		require.NoError(t, store.CreatePlace(ctx, p))
	}

	places, err := store.ListPlacesByCreator(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, a1.ID, places[0].ID)
	assert.Equal(t, a2.ID, places[1].ID)
}

func testDuplicatePlaceID(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := SeedUser(t, store, "ada@example.com")
	place := newPlace(user.ID, "Once")
	place.ID = "3f2c7f36-8d8f-4a53-a8e6-4c47f6f0c1a1"
	require.NoError(t, store.CreatePlace(ctx, place))

	again := newPlace(user.ID, "Twice")
	again.ID = place.ID
	assert.ErrorIs(t, store.CreatePlace(ctx, again), repository.ErrConflict)
}

var errAbort = errors.New("abort")

func testTransactions(t *testing.T, store repository.Store) {
	tx, ok := store.(repository.Transactor)
	if !ok {
		t.Skip("store has no transactions")
	}
	ctx := context.Background()
	user := SeedUser(t, store, "ada@example.com")

	var rolledBack string
	err := tx.WithinTx(ctx, func(s repository.Store) error {
		owner, err := s.GetUserForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		place := newPlace(user.ID, "Rolled back")
		if err := s.CreatePlace(ctx, place); err != nil {
			return err
		}
		rolledBack = place.ID
		owner.AddPlace(place.ID)
		if err := s.UpdateUser(ctx, owner); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	_, err = store.GetPlaceByID(ctx, rolledBack)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	owner, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, owner.PlaceIDs)

	var committed string
	err = tx.WithinTx(ctx, func(s repository.Store) error {
		owner, err := s.GetUserForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		place := newPlace(user.ID, "Committed")
		if err := s.CreatePlace(ctx, place); err != nil {
			return err
		}
		committed = place.ID
		owner.AddPlace(place.ID)
		return s.UpdateUser(ctx, owner)
	})
	require.NoError(t, err)

	owner, err = store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{committed}, owner.PlaceIDs)
}
