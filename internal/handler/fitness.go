package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/service"
)

// FitnessHandler serves /api/fitness.
type FitnessHandler struct {
	fitness *service.FitnessService
	logger  *slog.Logger
}

func NewFitnessHandler(fitness *service.FitnessService, logger *slog.Logger) *FitnessHandler {
	return &FitnessHandler{fitness: fitness, logger: logger}
}

// HTTP: GET /api/fitness/activities?startDate=&endDate=&type=
func (h *FitnessHandler) HandleListActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	activities, err := h.fitness.ListActivities(r.Context(), id, q.Get("startDate"), q.Get("endDate"), q.Get("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// HTTP: GET /api/fitness/summaries?startDate=&endDate=
func (h *FitnessHandler) HandleListSummaries(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	summaries, err := h.fitness.ListSummaries(r.Context(), id, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HTTP: POST /api/fitness/activities
func (h *FitnessHandler) HandleCreateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in model.NewActivity
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.fitness.CreateActivity(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HTTP: PUT /api/fitness/activities/{id}
func (h *FitnessHandler) HandleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var patch model.ActivityPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.fitness.UpdateActivity(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HTTP: DELETE /api/fitness/activities/{id}
func (h *FitnessHandler) HandleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.fitness.DeleteActivity(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Fitness activity deleted successfully"})
}
