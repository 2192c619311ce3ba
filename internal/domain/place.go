package domain

import "time"

// Place is a location record owned by exactly one user.
type Place struct {
	ID          string
	Title       string
	Description string
	Address     string
	Image       string
	CreatorID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
