// Package handlers exposes the conversational engine over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/glowdesk/concierge/internal/engine"
	"github.com/glowdesk/concierge/pkg/logging"
)

// ChatHandler serves the synchronous chat endpoint used by the web widget
// and local testing.
type ChatHandler struct {
	engine *engine.Engine
	logger *logging.Logger
}

// NewChatHandler builds the chat endpoint.
func NewChatHandler(eng *engine.Engine, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{engine: eng, logger: logger}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
	Channel   string `json:"channel"`
}

// Handle runs one conversation turn and returns the reply inline.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Channel == "" {
		req.Channel = "web"
	}

	reply, err := h.engine.HandleTurn(r.Context(), engine.Message{
		Identity:  req.SessionID,
		Channel:   req.Channel,
		Text:      req.Text,
		MessageID: req.MessageID,
	})
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
