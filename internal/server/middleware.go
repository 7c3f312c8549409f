package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/roach88/attest/internal/model"
)

type contextKey struct{}

var apiKeyContextKey contextKey

// apiKeyFrom returns the authenticated API key, if any.
func apiKeyFrom(ctx context.Context) (model.APIKey, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(model.APIKey)
	return key, ok
}

// logRequests logs method and path for every matched route.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return s.withLogging(next)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the caller's API key from Basic auth, where the key
// is the username and the password is empty. An unknown or missing key is
// not an error here; requireAPIKey decides how to respond.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := basicAuthKey(r.Header.Get("Authorization")); raw != "" {
			if key, err := s.store.APIKeyByKey(r.Context(), raw); err == nil {
				ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// basicAuthKey extracts the key from "Basic base64(key:)".
func basicAuthKey(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Basic") {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	key, _, _ := strings.Cut(string(decoded), ":")
	return key
}

// requireAPIKey guards a handler. Unauthenticated requests get 401, except
// when the request addresses a specific resource by id: answering 404 there
// avoids confirming that the id exists at all.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := apiKeyFrom(r.Context()); !ok {
			if mux.Vars(r)["id"] != "" {
				writeError(w, http.StatusNotFound, errNotFound)
				return
			}
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		next(w, r)
	}
}
