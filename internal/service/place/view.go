package place

import (
	"encoding/json"
	"time"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
)

// View is the JSON representation of a place.
type View struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Image       string    `json:"image"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewView converts a place for responses and event payloads.
func NewView(p domain.Place) View {
	return View{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		Image:       p.Image,
		Creator:     p.CreatorID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewViews converts a list of places.
func NewViews(places []domain.Place) []View {
	views := make([]View, 0, len(places))
	for _, p := range places {
		views = append(views, NewView(p))
	}
	return views
}

// MarshalEvent formats a place event for streaming payloads.
func MarshalEvent(event domain.PlaceEvent) ([]byte, error) {
	return json.Marshal(struct {
		Type       string    `json:"type"`
		Place      View      `json:"place"`
		OccurredAt time.Time `json:"occurredAt"`
	}{
		Type:       event.Type,
		Place:      NewView(event.Place),
		OccurredAt: event.OccurredAt,
	})
}
