package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/service"
)

// UserHandler serves the caller's profile and preferences under /api/users.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type profileResponse struct {
	Message string           `json:"message"`
	User    *service.Profile `json:"user"`
}

type preferencesResponse struct {
	Message     string             `json:"message"`
	Preferences *model.Preferences `json:"preferences"`
}

// HTTP: GET /api/users/profile
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.users.Profile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: PUT /api/users/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var upd service.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.users.UpdateProfile(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Message: "Profile updated successfully", User: p})
}

// HTTP: PUT /api/users/preferences
func (h *UserHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var patch model.PreferencesPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	prefs, err := h.users.UpdatePreferences(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesResponse{Message: "Preferences updated successfully", Preferences: prefs})
}
