package httpx

import (
	"net/http"

	"github.com/nisHanRam/Placify-Backend/internal/service/place"
)

const (
	msgInvalidInput = "Please provide valid inputs."
	msgPlaceDeleted = "Place deleted successfully."
)

func (r *Router) handleGetPlace(w http.ResponseWriter, req *http.Request) error {
	p, err := r.places.Get(req.Context(), req.PathValue("pid"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"place": place.NewView(*p)})
	return nil
}

func (r *Router) handleListUserPlaces(w http.ResponseWriter, req *http.Request) error {
	places, err := r.places.ListByUser(req.Context(), req.PathValue("uid"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": place.NewViews(places)})
	return nil
}

func (r *Router) handleCreatePlace(w http.ResponseWriter, req *http.Request) error {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Address     string `json:"address"`
		Creator     string `json:"creator"`
		Image       string `json:"image"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		return err
	}
	p, err := r.places.Create(req.Context(), actorID(req), place.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Address:     payload.Address,
		CreatorID:   payload.Creator,
		Image:       payload.Image,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]any{"place": place.NewView(*p)})
	return nil
}

func (r *Router) handleUpdatePlace(w http.ResponseWriter, req *http.Request) error {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		return err
	}
	p, err := r.places.Update(req.Context(), req.PathValue("pid"), actorID(req), place.UpdateInput{
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"place": place.NewView(*p)})
	return nil
}

func (r *Router) handleDeletePlace(w http.ResponseWriter, req *http.Request) error {
	if err := r.places.Delete(req.Context(), req.PathValue("pid"), actorID(req)); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgPlaceDeleted})
	return nil
}

// actorID returns the authenticated caller, or "" when auth is off.
func actorID(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok {
		return info.UserID
	}
	return ""
}
