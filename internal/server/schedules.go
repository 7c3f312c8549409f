package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/roach88/attest/internal/store"
)

type schedulePayload struct {
	Cron *string `json:"cron"`
}

func (s *Server) handleSchedulesCreate(w http.ResponseWriter, r *http.Request) {
	var payload schedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Cron == nil {
		writeError(w, http.StatusBadRequest, errBadRequest)
		return
	}
	// Reject invalid expressions up front; the scheduler assumes stored
	// cron strings parse.
	if _, err := cron.ParseStandard(*payload.Cron); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest)
		return
	}

	checklist, ok := s.findChecklist(w, r)
	if !ok {
		return
	}

	schedule, err := s.store.CreateSchedule(r.Context(), checklist.ID, *payload.Cron)
	if err != nil {
		s.log.Error("create schedule", "checklist", checklist.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"schedule": schedule},
	})
}

func (s *Server) handleSchedulesDelete(w http.ResponseWriter, r *http.Request) {
	checklist, ok := s.findChecklist(w, r)
	if !ok {
		return
	}

	scheduleID, err := strconv.ParseInt(mux.Vars(r)["scheduleId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}

	err = s.store.DeleteSchedule(r.Context(), scheduleID, checklist.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	if err != nil {
		s.log.Error("delete schedule", "checklist", checklist.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully deleted."})
}
