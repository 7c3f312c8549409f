package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/roach88/attest/internal/model"
	"github.com/roach88/attest/internal/store"
	"github.com/roach88/attest/internal/worker"
)

type checklistPayload struct {
	WorkerOrigin *string `json:"workerOrigin"`
}

// findChecklist resolves the {id} route variable against the caller's key.
// Writes the 404 response itself when the checklist is missing or foreign.
func (s *Server) findChecklist(w http.ResponseWriter, r *http.Request) (model.Checklist, bool) {
	key, _ := apiKeyFrom(r.Context())
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, errNotFound)
		return model.Checklist{}, false
	}

	checklist, err := s.store.Checklist(r.Context(), id, key.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound)
		return model.Checklist{}, false
	}
	if err != nil {
		s.log.Error("find checklist", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return model.Checklist{}, false
	}
	return checklist, true
}

func (s *Server) handleChecklistsList(w http.ResponseWriter, r *http.Request) {
	key, _ := apiKeyFrom(r.Context())
	checklists, err := s.store.Checklists(r.Context(), key.ID)
	if err != nil {
		s.log.Error("list checklists", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"checklists": checklists},
	})
}

func (s *Server) handleChecklistsCreate(w http.ResponseWriter, r *http.Request) {
	var payload checklistPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.WorkerOrigin == nil {
		writeError(w, http.StatusBadRequest, errBadRequest)
		return
	}

	key, _ := apiKeyFrom(r.Context())
	checklist, err := s.store.CreateChecklist(r.Context(), key.ID, *payload.WorkerOrigin)
	if err != nil {
		s.log.Error("create checklist", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"checklist": checklist},
	})
}

func (s *Server) handleChecklistsUpdate(w http.ResponseWriter, r *http.Request) {
	var payload checklistPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.WorkerOrigin == nil {
		writeError(w, http.StatusBadRequest, errBadRequest)
		return
	}

	checklist, ok := s.findChecklist(w, r)
	if !ok {
		return
	}

	checklist.WorkerOrigin = *payload.WorkerOrigin
	if err := s.store.UpdateChecklist(r.Context(), checklist); err != nil {
		s.log.Error("update checklist", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"checklist": checklist},
	})
}

func (s *Server) handleChecklistsDelete(w http.ResponseWriter, r *http.Request) {
	checklist, ok := s.findChecklist(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteChecklist(r.Context(), checklist.ID); err != nil {
		s.log.Error("delete checklist", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully deleted."})
}

func (s *Server) handleChecklistsRun(w http.ResponseWriter, r *http.Request) {
	checklist, ok := s.findChecklist(w, r)
	if !ok {
		return
	}

	flows, err := s.engine.Run(r.Context(), checklist)
	if worker.IsUnavailable(err) {
		s.log.Warn("worker unavailable", "checklist", checklist.ID, "error", err)
		writeError(w, http.StatusBadGateway, errWorkerUnavailable)
		return
	}
	if err != nil {
		s.log.Error("run checklist", "checklist", checklist.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"flows": flows},
	})
}
