package server

import (
	"encoding/json"
	"net/http"
)

// apiError is the structured error body returned on every failure.
type apiError struct {
	Cause   string `json:"cause"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var (
	errUnauthorized = apiError{
		Cause:   "The API key is either missing, is no longer active, or malformed.",
		Code:    4000,
		Message: "Missing or invalid API key.",
	}
	errBadRequest = apiError{
		Cause:   "The request's payload is either missing or malformed.",
		Code:    4001,
		Message: "Missing or invalid request payload.",
	}
	errNotFound = apiError{
		Cause:   "The request's URI points to a resource which does not exist.",
		Code:    4002,
		Message: "Requested resource not found",
	}
	errInternal = apiError{
		Cause:   "An unknown error occurred while processing this request.",
		Code:    5000,
		Message: "Internal server error.",
	}
	errWorkerUnavailable = apiError{
		Cause:   "The checklist's worker could not be reached or returned an unusable response.",
		Code:    5002,
		Message: "Worker unavailable.",
	}
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, e apiError) {
	writeJSON(w, status, map[string]apiError{"error": e})
}
