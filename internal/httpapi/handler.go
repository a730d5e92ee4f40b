// Package httpapi exposes a session over JSON HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/petasbytes/toolchat/internal/session"
	"github.com/petasbytes/toolchat/memory"
)

type Handler struct {
	sess *session.Session
	log  *slog.Logger
}

func NewHandler(sess *session.Session, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{sess: sess, log: log}
}

// SendRequest is the body of POST /api/messages.
type SendRequest struct {
	Text string `json:"text"`
}

// NewRouter wires every route on a fresh mux router.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(jsonMiddleware)
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/messages", h.ListMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages", h.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages", h.ClearMessages).Methods(http.MethodDelete)
	api.HandleFunc("/tools", h.Tools).Methods(http.MethodGet)
	api.HandleFunc("/examples", h.Examples).Methods(http.MethodGet)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListMessages(w http.ResponseWriter, _ *http.Request) {
	msgs := h.sess.History()
	if msgs == nil {
		msgs = []memory.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// SendMessage runs a turn and returns the assistant message. A failed turn is
// still 200: the body is the error-kind message recorded in history.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	msg, err := h.sess.Send(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, session.ErrEmptyPrompt) {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		h.log.Error("send failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) ClearMessages(w http.ResponseWriter, _ *http.Request) {
	h.sess.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Tools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Status())
}

func (h *Handler) Examples(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, session.Examples)
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
