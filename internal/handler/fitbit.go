package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/sleepfit-stats/internal/service"
)

// FitbitHandler serves the integration routes under /api/fitbit.
type FitbitHandler struct {
	sync   *service.SyncService
	logger *slog.Logger
}

func NewFitbitHandler(sync *service.SyncService, logger *slog.Logger) *FitbitHandler {
	return &FitbitHandler{sync: sync, logger: logger}
}

type syncSleepResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type syncActivityResponse struct {
	Message    string `json:"message"`
	Date       string `json:"date"`
	Activities int    `json:"activities"`
}

type syncPeriod struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type syncAllResponse struct {
	Message      string     `json:"message"`
	Period       syncPeriod `json:"period"`
	SleepEntries int        `json:"sleepEntries"`
	Activities   int        `json:"activities"`
}

// HTTP: GET /api/fitbit/status
func (h *FitbitHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	st, err := h.sync.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HTTP: POST /api/fitbit/sync/sleep?startDate=&endDate=
func (h *FitbitHandler) HandleSyncSleep(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	n, err := h.sync.SyncSleep(r.Context(), id, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncSleepResponse{Message: "Sleep data synchronized successfully", Count: n})
}

// HTTP: POST /api/fitbit/sync/activity?date=
func (h *FitbitHandler) HandleSyncActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	day, n, err := h.sync.SyncActivity(r.Context(), id, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncActivityResponse{
		Message:    "Activity data synchronized successfully",
		Date:       day,
		Activities: n,
	})
}

// HTTP: POST /api/fitbit/sync/all?startDate=
func (h *FitbitHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := h.sync.SyncAll(r.Context(), id, r.URL.Query().Get("startDate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncAllResponse{
		Message:      "All data synchronized successfully",
		Period:       syncPeriod{StartDate: res.StartDate, EndDate: res.EndDate},
		SleepEntries: res.Sleep,
		Activities:   res.Activities,
	})
}

// HTTP: DELETE /api/fitbit/disconnect
func (h *FitbitHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.sync.Disconnect(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Fitbit disconnected successfully"})
}
