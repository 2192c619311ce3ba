package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
	"github.com/nisHanRam/Placify-Backend/internal/repository/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return New() })
}

func TestReturnedUsersDoNotAliasStoredState(t *testing.T) {
	store := New()
	ctx := context.Background()
	user := storetest.SeedUser(t, store, "ada@example.com")
	user.PlaceIDs = append(user.PlaceIDs, "sneaky")

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PlaceIDs)

	got.PlaceIDs = append(got.PlaceIDs, "also-sneaky")
	again, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, again.PlaceIDs)
}

func TestLockUserSerializesSameUser(t *testing.T) {
	store := New()
	unlock := store.LockUser("u1")

	acquired := make(chan struct{})
	go func() {
		release := store.LockUser("u1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	other := store.LockUser("u2")
	other()

	unlock()
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestLockUserReleasesBookkeeping(t *testing.T) {
	store := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.LockUser("u1")
			unlock()
		}()
	}
	wg.Wait()

	store.locksMu.Lock()
	defer store.locksMu.Unlock()
	assert.Empty(t, store.locks)
}

func TestRestorePlaceKeepsPositionAndTimestamps(t *testing.T) {
	store := New()
	ctx := context.Background()
	user := storetest.SeedUser(t, store, "ada@example.com")

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		p := &domain.Place{Title: title, Description: "somewhere nice", Address: "1 Main St", CreatorID: user.ID}
		require.NoError(t, store.CreatePlace(ctx, p))
		ids = append(ids, p.ID)
	}
	removed, err := store.GetPlaceByID(ctx, ids[1])
	require.NoError(t, err)
	require.NoError(t, store.DeletePlace(ctx, ids[1]))

	require.NoError(t, store.RestorePlace(ctx, removed))
	assert.ErrorIs(t, store.RestorePlace(ctx, removed), repository.ErrConflict)

	got, err := store.GetPlaceByID(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, removed.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, removed.UpdatedAt.Equal(got.UpdatedAt))

	listed, err := store.ListPlacesByCreator(ctx, user.ID)
	require.NoError(t, err)
	var order []string
	for _, p := range listed {
		order = append(order, p.ID)
	}
	assert.Equal(t, ids, order)
}

func TestRestorePlaceRequiresCreator(t *testing.T) {
	store := New()
	err := store.RestorePlace(context.Background(), &domain.Place{ID: "p1", CreatorID: "ghost"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.ListUsers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
