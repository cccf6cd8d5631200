package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	crewauth "github.com/DEPthes/crewauth"
	"github.com/DEPthes/crewauth/exempt"
	"github.com/DEPthes/crewauth/metrics/export/prometheus"
	"github.com/DEPthes/crewauth/middleware"
)

// buildRouter assembles the route table, builds the exemption registry from
// its declared metadata, and wraps everything in the authentication gate.
// Only paths under /api are enforced at all; /metrics and /healthz are
// implicitly exempt.
func buildRouter(engine *crewauth.Engine, cfg *Config, logger *zap.Logger) http.Handler {
	table := exempt.Table{Groups: []exempt.Group{
		{
			Prefix: "/api/auth",
			NoAuth: true,
			Routes: []exempt.Route{
				{Method: http.MethodPost, Pattern: "/login"},
				{Method: http.MethodPost, Pattern: "/refresh"},
			},
		},
		{
			Prefix: "/api",
			Routes: []exempt.Route{
				{Method: http.MethodPost, Pattern: "/auth/logout"},
				{Method: http.MethodGet, Pattern: "/me"},
			},
		},
	}}

	registry := exempt.NewRegistry("/api")
	registry.Build(table)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", loginHandler(engine, logger))
	mux.HandleFunc("POST /api/auth/refresh", refreshHandler(engine, logger))
	mux.HandleFunc("POST /api/auth/logout", logoutHandler(engine, logger))
	mux.HandleFunc("GET /api/me", meHandler)
	mux.Handle("GET /metrics", prometheus.NewExporter(engine).Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return middleware.Gate(engine, registry)(mux)
}

// configResolver serves subjects from the static auth.subjects list.
type configResolver struct {
	subjects map[string]crewauth.Subject
}

func newConfigResolver(entries []SubjectConfig) *configResolver {
	subjects := make(map[string]crewauth.Subject, len(entries))
	for _, e := range entries {
		subjects[e.ID] = crewauth.Subject{ID: e.ID, Identifier: e.Identifier}
	}
	return &configResolver{subjects: subjects}
}

func (r *configResolver) ResolveSubject(_ context.Context, subjectID string) (*crewauth.Subject, error) {
	s, ok := r.subjects[subjectID]
	if !ok {
		return nil, crewauth.ErrSubjectNotFound
	}
	return &s, nil
}

type pairResponse struct {
	AccessCredential  string    `json:"access_credential"`
	RefreshCredential string    `json:"refresh_credential"`
	AccessExpiry      time.Time `json:"access_expiry"`
	RefreshExpiry     time.Time `json:"refresh_expiry"`
	RefreshID         string    `json:"refresh_id"`
}

func toPairResponse(pair *crewauth.Pair) pairResponse {
	return pairResponse{
		AccessCredential:  pair.AccessCredential,
		RefreshCredential: pair.RefreshCredential,
		AccessExpiry:      pair.AccessExpiresAt,
		RefreshExpiry:     pair.RefreshExpiresAt,
		RefreshID:         pair.RefreshID,
	}
}

func loginHandler(engine *crewauth.Engine, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		SubjectID string `json:"subject_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SubjectID == "" {
			writeJSONError(w, http.StatusBadRequest, "subject_id required", "BAD_REQUEST")
			return
		}

		pair, err := engine.IssueInitial(r.Context(), req.SubjectID)
		if err != nil {
			logger.Error("issue failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "internal server error", "SERVER_ERROR")
			return
		}

		writeJSON(w, http.StatusOK, toPairResponse(pair))
	}
}

func refreshHandler(engine *crewauth.Engine, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		SubjectID         string `json:"subject_id"`
		RefreshCredential string `json:"refresh_credential"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed body", "BAD_REQUEST")
			return
		}

		pair, err := engine.Rotate(r.Context(), req.SubjectID, req.RefreshCredential)
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, toPairResponse(pair))
	}
}

func logoutHandler(engine *crewauth.Engine, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		RefreshID string `json:"refresh_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)

		credential := bearerCredential(r)
		if err := engine.Revoke(r.Context(), credential, req.RefreshID); err != nil {
			writeEngineError(w, logger, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "principal missing", "SERVER_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"subject_id": principal.Subject.ID,
		"identifier": principal.Subject.Identifier,
	})
}

func bearerCredential(r *http.Request) string {
	const bearer = "Bearer "
	value := r.Header.Get("Authorization")
	if len(value) > len(bearer) && value[:len(bearer)] == bearer {
		return value[len(bearer):]
	}
	return ""
}

func writeEngineError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if te, ok := crewauth.AsTokenError(err); ok {
		writeJSONError(w, te.HTTPStatus(), te.Error(), te.CodeName())
		return
	}
	logger.Error("engine call failed", zap.Error(err))
	writeJSONError(w, http.StatusInternalServerError, "internal server error", "SERVER_ERROR")
}

func writeJSONError(w http.ResponseWriter, status int, message, codeName string) {
	writeJSON(w, status, middleware.ErrorBody{
		StatusCode: status,
		Message:    message,
		CodeName:   codeName,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
