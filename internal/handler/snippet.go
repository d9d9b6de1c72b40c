package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/chat-memo/internal/service"
)

// SnippetHandler exposes the snippet procedures.
//
// Path parameters come from chi: for DELETE /api/snippets/abc123,
// r.PathValue("id") returns "abc123".
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

type createSnippetRequest struct {
	Title  string   `json:"title"`
	TagIDs []string `json:"tagIds"`
}

// HandleList returns the caller's snippets with tags, newest first.
//
// HTTP: GET /api/snippets
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	snippets, err := h.snippets.GetAll(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippets)
}

// HandleGet returns one snippet with its messages and tags.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	snippet, err := h.snippets.GetByID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate creates a snippet.
//
// HTTP: POST /api/snippets
// REQUEST BODY: {"title": "Standup", "tagIds": ["..."]}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createSnippetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID, req.Title, req.TagIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdate applies a partial update. Omitted fields are left as they are;
// "tagIds": [] clears every tag.
//
// HTTP: PATCH /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateSnippetInput
	if !decodeJSON(w, r, &req) {
		return
	}

	snippet, err := h.snippets.Update(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet with its messages and tag links.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.snippets.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

// HandleSearch matches titles by substring.
//
// HTTP: GET /api/snippets/search?q=standup
func (h *SnippetHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	snippets, err := h.snippets.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippets)
}

// HandleFilter returns snippets carrying any of the given tags.
//
// HTTP: GET /api/snippets/filter?tagId=a&tagId=b
func (h *SnippetHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	snippets, err := h.snippets.FilterByTags(r.Context(), userID, r.URL.Query()["tagId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippets)
}
