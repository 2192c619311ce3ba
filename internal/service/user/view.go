package user

import (
	"time"

	"github.com/nisHanRam/Placify-Backend/internal/domain"
)

// View is the JSON representation of a user. It has no password field.
type View struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	Places    []string  `json:"places"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewView converts a user for responses.
func NewView(u domain.User) View {
	places := u.PlaceIDs
	if places == nil {
		places = []string{}
	}
	return View{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Image:     u.Image,
		Places:    places,
		CreatedAt: u.CreatedAt,
	}
}

// NewViews converts a list of users.
func NewViews(users []domain.User) []View {
	views := make([]View, 0, len(users))
	for _, u := range users {
		views = append(views, NewView(u))
	}
	return views
}
