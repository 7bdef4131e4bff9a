package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

type chatResponse struct {
	Reply
	RetryAfterMS int64 `json:"retry_after_ms,omitempty"`
}

type quotaResponse struct {
	QuotaSnapshot
	ResetsInMS int64 `json:"resets_in_ms"`
}

// HandleChat — вход от дашборда
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string       `json:"session_id"`
		Message   string       `json:"message"`
		Context   *UserContext `json:"context"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing message")
		return
	}

	reply, err := h.svc.Chat(r.Context(), Request{
		SessionID: payload.SessionID,
		Message:   payload.Message,
		Context:   payload.Context,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "missing message")
		case errors.Is(err, context.Canceled):
			// клиент ушёл, отвечать некому
			h.log.Debug("chat canceled by client", zap.String("request_id", middleware.GetReqID(r.Context())))
		default:
			h.log.Error("chat failed", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "processing error")
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:        reply,
		RetryAfterMS: reply.RetryAfter.Milliseconds(),
	})
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		h.log.Error("history load failed", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if turns == nil {
		turns = []Turn{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

func (h *Handler) HandleResetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.svc.ResetHistory(r.Context(), sessionID); err != nil {
		h.log.Error("history reset failed", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleQuota(w http.ResponseWriter, _ *http.Request) {
	q := h.svc.Quota()
	writeJSON(w, http.StatusOK, quotaResponse{
		QuotaSnapshot: q,
		ResetsInMS:    q.ResetsIn.Milliseconds(),
	})
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	answer, ok := h.svc.Search(q.Get("q"), q.Get("tab"))
	if !ok {
		writeError(w, http.StatusNotFound, "no matching answer")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
