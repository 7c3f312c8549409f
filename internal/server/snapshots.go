package server

import (
	"encoding/json"
	"net/http"
)

type seedSnapshot struct {
	Name  *string `json:"name"`
	Value *string `json:"value"`
}

type seedFlow struct {
	Name      *string        `json:"name"`
	Snapshots []seedSnapshot `json:"snapshots"`
}

type seedPayload struct {
	Flows []seedFlow `json:"flows"`
}

// validate rejects structurally incomplete payloads before any store write.
func (p seedPayload) validate() bool {
	if p.Flows == nil {
		return false
	}
	for _, f := range p.Flows {
		if f.Name == nil || f.Snapshots == nil {
			return false
		}
		for _, snap := range f.Snapshots {
			if snap.Name == nil || snap.Value == nil {
				return false
			}
		}
	}
	return true
}

// handleSnapshotsSeed fills snapshot gaps out-of-band. Every (flow, name,
// value) tuple is inserted only if absent; existing snapshots are never
// overwritten. The payload is echoed back as confirmation.
func (s *Server) handleSnapshotsSeed(w http.ResponseWriter, r *http.Request) {
	var payload seedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || !payload.validate() {
		writeError(w, http.StatusBadRequest, errBadRequest)
		return
	}

	checklist, ok := s.findChecklist(w, r)
	if !ok {
		return
	}

	for _, flow := range payload.Flows {
		for _, snap := range flow.Snapshots {
			if err := s.store.SeedSnapshot(r.Context(), checklist.ID, *flow.Name, *snap.Name, *snap.Value); err != nil {
				s.log.Error("seed snapshot", "checklist", checklist.ID, "flow", *flow.Name, "error", err)
				writeError(w, http.StatusInternalServerError, errInternal)
				return
			}
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"flows": payload.Flows},
	})
}
