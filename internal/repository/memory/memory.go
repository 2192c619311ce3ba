// Package memory implements the repositories on in-process ordered lists.
// It is the development fallback used when no database is configured: data
// lives only as long as the process and is not shared between processes.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
)

// Store keeps users and places in insertion order.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	userOrder  []string
	emails     map[string]string
	places     map[string]domain.Place
	placeOrder []string
	// lastStamp keeps place creation times strictly increasing so
	// placeOrder is also creation order.
	lastStamp time.Time

	locksMu sync.Mutex
	locks   map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		emails: make(map[string]string),
		places: make(map[string]domain.Place),
		locks:  make(map[string]*userLock),
	}
}

var (
	_ repository.Store         = (*Store)(nil)
	_ repository.UserLocker    = (*Store)(nil)
	_ repository.PlaceRestorer = (*Store)(nil)
)

// LockUser serializes callers working on the same user.
func (s *Store) LockUser(userID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, userID)
			}
			s.locksMu.Unlock()
		})
	}
}

func emailKey(email string) string {
	return strings.ToLower(email)
}

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := s.users[user.ID]; ok {
		return repository.ErrConflict
	}
	key := emailKey(user.Email)
	if _, ok := s.emails[key]; ok {
		return repository.ErrConflict
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.PlaceIDs == nil {
		user.PlaceIDs = []string{}
	}
	s.users[user.ID] = user.Clone()
	s.userOrder = append(s.userOrder, user.ID)
	s.emails[key] = user.ID
	return nil
}

// GetUserByID retrieves a user by identifier.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := u.Clone()
	return &cp, nil
}

// GetUserForUpdate behaves like GetUserByID; isolation comes from LockUser.
func (s *Store) GetUserForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return s.GetUserByID(ctx, id)
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[emailKey(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := s.users[id].Clone()
	return &cp, nil
}

// ListUsers returns users in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id].Clone())
	}
	return users, nil
}

// UpdateUser overwrites a stored user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	oldKey, newKey := emailKey(current.Email), emailKey(user.Email)
	if oldKey != newKey {
		if _, taken := s.emails[newKey]; taken {
			return repository.ErrConflict
		}
		delete(s.emails, oldKey)
		s.emails[newKey] = user.ID
	}
	next := user.Clone()
	next.CreatedAt = current.CreatedAt
	s.users[user.ID] = next
	return nil
}

// CreatePlace inserts a place; the creator must exist.
func (s *Store) CreatePlace(ctx context.Context, place *domain.Place) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[place.CreatorID]; !ok {
		return repository.ErrNotFound
	}
	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	if _, ok := s.places[place.ID]; ok {
		return repository.ErrConflict
	}
	now := s.stamp()
	if place.CreatedAt.IsZero() {
		place.CreatedAt = now
	}
	place.UpdatedAt = now
	s.places[place.ID] = *place
	s.placeOrder = append(s.placeOrder, place.ID)
	return nil
}

// RestorePlace re-inserts a deleted place unchanged, ahead of every place
// created after it.
func (s *Store) RestorePlace(ctx context.Context, place *domain.Place) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[place.CreatorID]; !ok {
		return repository.ErrNotFound
	}
	if place.ID == "" {
		return repository.ErrInvalidArgument
	}
	if _, ok := s.places[place.ID]; ok {
		return repository.ErrConflict
	}
	idx := slices.IndexFunc(s.placeOrder, func(id string) bool {
		return s.places[id].CreatedAt.After(place.CreatedAt)
	})
	if idx < 0 {
		idx = len(s.placeOrder)
	}
	s.places[place.ID] = *place
	s.placeOrder = slices.Insert(s.placeOrder, idx, place.ID)
	return nil
}

func (s *Store) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now
}

// GetPlaceByID fetches a place.
func (s *Store) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.places[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// ListPlacesByCreator returns a user's places in insertion order.
func (s *Store) ListPlacesByCreator(ctx context.Context, userID string) ([]domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	places := make([]domain.Place, 0)
	for _, id := range s.placeOrder {
		if p := s.places[id]; p.CreatorID == userID {
			places = append(places, p)
		}
	}
	return places, nil
}

// UpdatePlace overwrites the mutable fields of a place.
func (s *Store) UpdatePlace(ctx context.Context, place *domain.Place) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.places[place.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Title = place.Title
	current.Description = place.Description
	current.Address = place.Address
	current.Image = place.Image
	current.UpdatedAt = time.Now().UTC()
	s.places[place.ID] = current
	place.UpdatedAt = current.UpdatedAt
	return nil
}

// DeletePlace removes a place record.
func (s *Store) DeletePlace(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.places, id)
	if idx := slices.Index(s.placeOrder, id); idx >= 0 {
		s.placeOrder = slices.Delete(s.placeOrder, idx, idx+1)
	}
	return nil
}
