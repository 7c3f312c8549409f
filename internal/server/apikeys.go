package server

import "net/http"

func (s *Server) handleAPIKeysCreate(w http.ResponseWriter, r *http.Request) {
	key, err := s.store.CreateAPIKey(r.Context())
	if err != nil {
		s.log.Error("create api key", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]string{"api_key": key.Key},
	})
}

func (s *Server) handleAPIKeysDelete(w http.ResponseWriter, r *http.Request) {
	key, _ := apiKeyFrom(r.Context())
	if err := s.store.DeleteAPIKey(r.Context(), key.ID); err != nil {
		s.log.Error("delete api key", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully deleted."})
}
