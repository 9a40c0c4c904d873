package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"orderhub-bot/internal/chat"
	"orderhub-bot/pkg/apierror"
	"orderhub-bot/pkg/response"
)

// ChatHandler receives inbound chat messages from the transport webhook
// and feeds them through the conversation engine. Replies travel back
// through the notification sink, not the HTTP response.
type ChatHandler struct {
	gate   *chat.Gate
	engine *chat.Engine
}

// NewChatHandler creates a new chat webhook handler.
func NewChatHandler(gate *chat.Gate, engine *chat.Engine) *ChatHandler {
	return &ChatHandler{gate: gate, engine: engine}
}

// InboundMessage is the transport's inbound payload.
type InboundMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Inbound handles POST /api/v1/chat/inbound
func (h *ChatHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	var msg InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if msg.Sender == "" {
		response.Error(w, apierror.BadRequest("sender is required"))
		return
	}

	account, err := h.gate.Resolve(r.Context(), msg.Sender)
	if err != nil {
		if errors.Is(err, chat.ErrAccessDenied) {
			response.Error(w, apierror.AccessDenied("unknown sender"))
			return
		}
		response.Error(w, err)
		return
	}

	if err := h.engine.HandleMessage(r.Context(), account, msg.Text); err != nil {
		response.Error(w, err)
		return
	}

	response.Accepted(w, map[string]interface{}{
		"status": "accepted",
	})
}
