// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sanctuary/internal/logging"
	"github.com/tomtom215/sanctuary/internal/recommend"
	"github.com/tomtom215/sanctuary/internal/validation"
)

// Recommender is the engine surface the handlers need.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	Feedback(ctx context.Context, req recommend.FeedbackRequest) (*recommend.FeedbackResult, error)
	Stats() recommend.Stats
}

// Handler serves the HTTP API.
type Handler struct {
	engine    Recommender
	startTime time.Time
}

// NewHandler creates a Handler backed by engine.
func NewHandler(engine Recommender) *Handler {
	return &Handler{engine: engine, startTime: time.Now()}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, HealthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// Recommend handles POST /api/v1/recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = logging.RequestIDFromContext(r.Context())
	}

	resp, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, resp)
}

// Feedback handles POST /api/v1/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req recommend.FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = logging.RequestIDFromContext(r.Context())
	}

	result, err := h.engine.Feedback(r.Context(), req)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, result)
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.engine.Stats())
}

// NotFound answers unknown routes with the JSON envelope.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusNotFound, CodeNotFound, "Route not found", nil)
}

// MethodNotAllowed answers known routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil)
}

// decodeBody decodes a JSON body into v and writes an error response on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, http.StatusRequestEntityTooLarge, CodeValidation, "Request body too large",
				map[string]any{"limit_bytes": maxErr.Limit})
			return false
		}
		respondError(w, r, http.StatusBadRequest, CodeInvalidJSON, "Failed to read request body", nil)
		return false
	}
	if len(body) == 0 {
		respondError(w, r, http.StatusBadRequest, CodeInvalidJSON, "Request body is empty", nil)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON request body", nil)
		return false
	}
	return true
}

// respondEngineError maps engine errors to HTTP status codes.
func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	switch {
	case errors.Is(err, recommend.ErrNoCandidates):
		respondError(w, r, http.StatusBadRequest, CodeNoCandidates, err.Error(), nil)
	case errors.Is(err, recommend.ErrSourceUnavailable):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Candidate source unavailable")
		respondError(w, r, http.StatusBadGateway, CodeSourceUnavailable, "Candidate source unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, r, http.StatusServiceUnavailable, CodeTimeout, "Request timed out", nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
	}
}
