package domain

import (
	"slices"
	"time"
)

// User represents a directory account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Image        string
	PlaceIDs     []string
	CreatedAt    time.Time
}

// HasPlace reports whether placeID is linked to the user.
func (u *User) HasPlace(placeID string) bool {
	return slices.Contains(u.PlaceIDs, placeID)
}

// AddPlace links placeID to the user once, keeping insertion order.
func (u *User) AddPlace(placeID string) {
	if u.HasPlace(placeID) {
		return
	}
	u.PlaceIDs = append(u.PlaceIDs, placeID)
}

// RemovePlace unlinks placeID and reports whether it was present.
func (u *User) RemovePlace(placeID string) bool {
	idx := slices.Index(u.PlaceIDs, placeID)
	if idx < 0 {
		return false
	}
	u.PlaceIDs = slices.Delete(u.PlaceIDs, idx, idx+1)
	return true
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	u.PasswordHash = slices.Clone(u.PasswordHash)
	u.PlaceIDs = slices.Clone(u.PlaceIDs)
	if u.PlaceIDs == nil {
		u.PlaceIDs = []string{}
	}
	return u
}
