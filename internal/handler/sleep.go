package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sleepfit-stats/internal/model"
	"github.com/sakif/sleepfit-stats/internal/service"
)

// SleepHandler serves /api/sleep. Date ranges come from the startDate and
// endDate query parameters.
type SleepHandler struct {
	sleep  *service.SleepService
	logger *slog.Logger
}

func NewSleepHandler(sleep *service.SleepService, logger *slog.Logger) *SleepHandler {
	return &SleepHandler{sleep: sleep, logger: logger}
}

// HTTP: GET /api/sleep?startDate=2024-01-01&endDate=2024-01-31
func (h *SleepHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	entries, err := h.sleep.List(r.Context(), id, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HTTP: GET /api/sleep/statistics?startDate=&endDate=
func (h *SleepHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	stats, err := h.sleep.Statistics(r.Context(), id, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HTTP: POST /api/sleep
func (h *SleepHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in model.NewSleepEntry
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.sleep.Create(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HTTP: PUT /api/sleep/{id}
func (h *SleepHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var patch model.SleepPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.sleep.Update(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HTTP: DELETE /api/sleep/{id}
func (h *SleepHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.sleep.Delete(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Sleep entry deleted successfully"})
}
