package httpx

import (
	"net/http"

	"github.com/nisHanRam/Placify-Backend/internal/service/user"
)

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) error {
	users, err := r.users.List(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": user.NewViews(users)})
	return nil
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) error {
	var payload struct {
		Name     string `json:"name"`
		UserName string `json:"userName"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Image    string `json:"image"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		return err
	}
	name := payload.Name
	if name == "" {
		name = payload.UserName
	}
	u, token, err := r.users.Signup(req.Context(), user.SignupInput{
		Name:     name,
		Email:    payload.Email,
		Password: payload.Password,
		Image:    payload.Image,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  user.NewView(*u),
		"token": token,
	})
	return nil
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		return err
	}
	u, token, err := r.users.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Logged in!",
		"userId":  u.ID,
		"email":   u.Email,
		"token":   token,
	})
	return nil
}
