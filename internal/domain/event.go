package domain

import "time"

// Place event types.
const (
	PlaceCreated = "place.created"
	PlaceUpdated = "place.updated"
	PlaceDeleted = "place.deleted"
)

// PlaceEvent describes a committed change to a place.
type PlaceEvent struct {
	Type       string
	Place      Place
	OccurredAt time.Time
}
