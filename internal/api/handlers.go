package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/examprep/question-api/internal/identity"
	"github.com/examprep/question-api/internal/models"
	"github.com/examprep/question-api/internal/questions"
)

// Public error messages
const (
	msgMissingToken       = "Missing authentication token"
	msgInvalidToken       = "Invalid or expired token"
	msgAuthFailed         = "Authentication failed"
	msgFetchFailed        = "Failed to fetch questions"
	msgUpstreamTimeout    = "Upstream timeout"
	msgTooManyRequests    = "Too many requests"
	msgAdminUnauthorized  = "Invalid admin token"
	msgStatsFailed        = "Failed to count questions"
	msgStoreUnreachable   = "Content store unreachable"
	timestampFormat       = "2006-01-02T15:04:05.000Z07:00"
	adminStatsDescription = "Question counts read with the service role"
)

// Response helpers

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// writeFailure maps an error from the question flow to a status and a fixed
// public message. fallback is used for internal failures of the given stage.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	// the client went away; there is nobody to answer
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		slog.Debug("question request canceled by client",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		return
	}

	status, message := http.StatusInternalServerError, fallback

	switch {
	case errors.Is(err, identity.ErrMissingCredential):
		status, message = http.StatusUnauthorized, msgMissingToken
	case errors.Is(err, identity.ErrInvalidCredential):
		status, message = http.StatusUnauthorized, msgInvalidToken
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, msgUpstreamTimeout
	case errors.Is(err, identity.ErrProfileLookup):
		message = msgAuthFailed
	case errors.Is(err, questions.ErrStoreQueryFailed):
		message = msgFetchFailed
	}

	if status >= http.StatusInternalServerError {
		slog.Error("question request failed",
			"status", status,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	respondError(w, status, message)
}

// Health handlers

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.deps.ProbeTimeout)
	defer cancel()

	if err := s.deps.Store.Probe(ctx); err != nil {
		slog.Error("health probe failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, healthResponse{
			Status:  "error",
			Message: msgStoreUnreachable,
		})
		return
	}

	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Store:     "connected",
		Timestamp: time.Now().UTC().Format(timestampFormat),
	})
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Readiness == nil {
		respondJSON(w, http.StatusOK, readyResponse{Status: "ready", Checks: map[string]string{}})
		return
	}

	results := s.deps.Readiness.HealthCheckAll(r.Context())

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := readyResponse{Status: "ready", Checks: make(map[string]string, len(results))}
	for _, name := range names {
		if err := results[name]; err != nil {
			slog.Warn("dependency not ready", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not_ready"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// Question handlers

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeFailure(w, r, err, msgAuthFailed)
		return
	}

	params := r.URL.Query()
	query := models.QuestionQuery{
		Level:    params.Get("level"),
		Theme:    params.Get("theme"),
		Language: params.Get("language"),
		Limit:    params.Get("limit"),
	}

	result, err := s.deps.Questions.List(r.Context(), user, query)
	if err != nil {
		writeFailure(w, r, err, msgFetchFailed)
		return
	}

	slog.Debug("questions served",
		"user_id", user.ID,
		"tier", user.Tier,
		"count", result.Count,
	)
	respondJSON(w, http.StatusOK, result)
}

// Admin handlers

type adminStatsResponse struct {
	Message string `json:"message"`
	models.LevelBreakdown
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.deps.ProbeTimeout)
	defer cancel()

	breakdown, err := s.deps.Stats.CountByLevel(ctx)
	if err != nil {
		slog.Error("admin stats failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			respondError(w, http.StatusGatewayTimeout, msgUpstreamTimeout)
			return
		}
		respondError(w, http.StatusInternalServerError, msgStatsFailed)
		return
	}

	respondJSON(w, http.StatusOK, adminStatsResponse{
		Message:        adminStatsDescription,
		LevelBreakdown: *breakdown,
	})
}
