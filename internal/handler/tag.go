package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/chat-memo/internal/service"
)

// TagHandler exposes the tag procedures, including attaching tags to
// snippets.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

type createTagRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// HTTP: GET /api/tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tags, err := h.tags.GetAll(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HTTP: POST /api/tags
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tag, err := h.tags.Create(r.Context(), userID, req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// HTTP: PATCH /api/tags/{id}
func (h *TagHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateTagInput
	if !decodeJSON(w, r, &req) {
		return
	}

	tag, err := h.tags.Update(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// HTTP: DELETE /api/tags/{id}
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.tags.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

// HandleAttach is PUT because attaching twice is the same as attaching once.
//
// HTTP: PUT /api/snippets/{id}/tags/{tagId}
func (h *TagHandler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.tags.AddToSnippet(r.Context(), userID, r.PathValue("id"), r.PathValue("tagId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HTTP: DELETE /api/snippets/{id}/tags/{tagId}
func (h *TagHandler) HandleDetach(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.tags.RemoveFromSnippet(r.Context(), userID, r.PathValue("id"), r.PathValue("tagId")); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

// HTTP: GET /api/snippets/{id}/tags
func (h *TagHandler) HandleListForSnippet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tags, err := h.tags.GetForSnippet(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
