// Package handler exposes the HTTP surface: question delivery, score
// submission and per-user history, all wrapped in {code, ...} JSON
// envelopes the browser client expects.
package handler

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ngochuy/onthisu/internal/mixer"
	"github.com/ngochuy/onthisu/internal/model"
	"github.com/ngochuy/onthisu/internal/sheet"
	"github.com/ngochuy/onthisu/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	source sheet.RowSource

	// newRand supplies a fresh random source per mixing request; tests
	// swap in a seeded constructor.
	newRand func() *rand.Rand
}

// New creates a new Handler.
func New(s *store.Store, src sheet.RowSource) *Handler {
	return &Handler{store: s, source: src, newRand: mixer.NewRand}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/sheet/question", h.handleQuestions)
	r.Post("/score/submit", h.handleSubmit)
	r.Get("/score/user/{userID}", h.handleHistory)
	// A history request with no user at all is a validation error, not a 404.
	r.Get("/score/user", h.handleMissingUser)
	r.Get("/score/user/", h.handleMissingUser)
}

func (h *Handler) handleMissingUser(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusBadRequest, "userId is required")
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Hello World!"))
}

// handleQuestions fetches all category rows, mixes a fresh exam and returns
// it. Any category fetch failure fails the whole request; partial exams are
// never served.
func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	rows, err := sheet.FetchAll(r.Context(), h.source)
	if err != nil {
		slog.Error("fetch question rows", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"code":    "error",
			"message": "Failed to send questions",
			"error":   err.Error(),
		})
		return
	}

	questions := mixer.Mix(rows, h.newRand())
	if questions == nil {
		questions = []model.Question{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":    "success",
		"message": "Send questions successfully",
		"data":    questions,
	})
}

// submitRequest mirrors the submission payload. Score and Total are
// pointers so an explicit zero passes validation while a missing field
// does not.
type submitRequest struct {
	SessionID  string                   `json:"sessionId"`
	UserID     string                   `json:"userId"`
	Score      *int                     `json:"score"`
	Total      *int                     `json:"total"`
	StartedAt  time.Time                `json:"startedAt"`
	FinishedAt time.Time                `json:"finishedAt"`
	Meta       model.Meta               `json:"meta"`
	Questions  []model.QuestionSnapshot `json:"questions"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Score == nil || req.Total == nil {
		writeError(w, http.StatusBadRequest, "sessionId, score and total are required")
		return
	}

	saved, err := h.store.SaveResult(model.Result{
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Score:      *req.Score,
		Total:      *req.Total,
		StartedAt:  req.StartedAt,
		FinishedAt: req.FinishedAt,
		Meta:       req.Meta,
		Questions:  req.Questions,
	})
	if err != nil {
		slog.Error("save result", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save result")
		return
	}

	slog.Info("result saved",
		"session_id", saved.SessionID,
		"user_id", saved.UserID,
		"score", saved.Score,
		"total", saved.Total,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"code": "success",
		"data": saved,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	results, err := h.store.ResultsByUser(userID)
	if err != nil {
		slog.Error("load history", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if results == nil {
		results = []model.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":  "success",
		"count": len(results),
		"data":  results,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"code":    "error",
		"message": message,
	})
}
