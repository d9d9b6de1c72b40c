package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/chat-memo/internal/service"
)

// MessageHandler exposes the message procedures. Messages are created under
// their snippet's path and addressed by their own id afterwards.
type MessageHandler struct {
	messages *service.MessageService
	logger   *slog.Logger
}

func NewMessageHandler(messages *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// HTTP: GET /api/snippets/{id}/messages
func (h *MessageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.messages.GetBySnippetID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleCreate appends a message. The snippet id in the path wins over any
// snippetId in the body.
//
// HTTP: POST /api/snippets/{id}/messages
// REQUEST BODY: {"sender": "あなた", "senderType": "user", "content": "hello"}
func (h *MessageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CreateMessageInput
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SnippetID = r.PathValue("id")

	msg, err := h.messages.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// HTTP: PATCH /api/messages/{id}
func (h *MessageHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateMessageInput
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messages.Update(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// HTTP: DELETE /api/messages/{id}
func (h *MessageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.messages.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}
