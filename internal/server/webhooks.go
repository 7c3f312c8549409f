package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/roach88/attest/internal/store"
)

type webhookPayload struct {
	EventType *string `json:"eventType"`
	URL       *string `json:"url"`
}

func (s *Server) handleWebhooksCreate(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil ||
		payload.EventType == nil || *payload.EventType == "" ||
		payload.URL == nil || *payload.URL == "" {
		writeError(w, http.StatusBadRequest, errBadRequest)
		return
	}

	key, _ := apiKeyFrom(r.Context())
	webhook, err := s.store.CreateWebhook(r.Context(), key.ID, *payload.EventType, *payload.URL)
	if err != nil {
		s.log.Error("create webhook", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"webhook": webhook},
	})
}

func (s *Server) handleWebhooksDelete(w http.ResponseWriter, r *http.Request) {
	key, _ := apiKeyFrom(r.Context())
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}

	err = s.store.DeleteWebhook(r.Context(), id, key.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	if err != nil {
		s.log.Error("delete webhook", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully deleted."})
}
