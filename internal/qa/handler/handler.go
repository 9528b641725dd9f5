// Package handler exposes the question-answering service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/logger"
)

const maxBodyBytes = 64 << 10

type Answerer interface {
	Answer(ctx context.Context, question string) (qa.Answer, error)
}

// AnswerCache is the admin surface of the answer cache.
type AnswerCache interface {
	Stats() cache.Stats
	Invalidate(ctx context.Context) (int64, error)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	qa.Answer
	LatencyMs int64 `json:"latency_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

type Handler struct {
	answerer  Answerer
	cache     AnswerCache
	analytics *analytics.Handler
	logger    *slog.Logger
}

// New builds the handler. answerCache and stats may be nil.
func New(answerer Answerer, answerCache AnswerCache, stats *analytics.Handler) *Handler {
	return &Handler{
		answerer:  answerer,
		cache:     answerCache,
		analytics: stats,
		logger:    slog.Default().With("component", "qa-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ask", h.Ask)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	if h.analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", h.analytics.Stats)
	}
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	var req askRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, 0, "invalid request body: %v", err).
			WithHint(`send a JSON body like {"question": "Who is Hamlet?"}`))
		return
	}

	ans, err := h.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		log.Warn("ask failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, askResponse{
		Answer:    ans,
		LatencyMs: time.Since(start).Milliseconds(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "caching is disabled"})
		return
	}
	removed, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "cache invalidation failed",
			Hint:  "check that redis is reachable",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_removed": removed})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status. Client errors carry only the message;
// server errors add the remediation hint.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	resp := errorResponse{Error: message(err)}
	if status >= http.StatusInternalServerError {
		resp.Hint = apperrors.Hint(err)
	}
	h.writeJSON(w, status, resp)
}

func message(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
