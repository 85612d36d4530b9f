package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/session"
)

// Session validation constants.
const (
	MaxTitleLength     = 100
	MaxModelNameLength = 100
	DefaultListLimit   = 50
	MaxListLimit       = 1000
)

// SessionStore is the slice of the session store the handler needs.
type SessionStore interface {
	Create(ctx context.Context, title, modelName string) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	List(ctx context.Context, limit int) ([]session.Session, error)
	Delete(ctx context.Context, id string) error
	Messages(ctx context.Context, sessionID string) ([]session.Message, error)
	ClearMessages(ctx context.Context, sessionID string) (int64, error)
	Summary(ctx context.Context, sessionID string) (session.Summary, error)
}

// SessionHandler serves session CRUD and history endpoints.
type SessionHandler struct {
	store  SessionStore
	logger log.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store SessionStore, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions/{id}", h.get)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.messages)
	mux.HandleFunc("DELETE /api/sessions/{id}/messages", h.clearMessages)
	mux.HandleFunc("GET /api/sessions/{id}/summary", h.summary)
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)

	sessions, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
		"limit":    limit,
	})
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if len(req.Title) > MaxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "title too long (max 100 characters)")
		return
	}
	if len(req.ModelName) > MaxModelNameLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "model_name too long (max 100 characters)")
		return
	}

	sess, err := h.store.Create(r.Context(), req.Title, req.ModelName)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Reject unknown sessions explicitly; an empty conversation is a
	// valid state, not a 404.
	if _, err := h.store.Get(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to load session")
		return
	}

	msgs, err := h.store.Messages(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   msgs,
		"total":      len(msgs),
	})
}

func (h *SessionHandler) clearMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.store.Get(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to load session")
		return
	}

	deleted, err := h.store.ClearMessages(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to clear messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"deleted":    deleted,
	})
}

func (h *SessionHandler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "failed to summarize session")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// writeStoreError maps store errors to HTTP status codes.
func (h *SessionHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	h.logger.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", message)
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, minVal, maxVal int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
