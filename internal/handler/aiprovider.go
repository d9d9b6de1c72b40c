package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/chat-memo/internal/service"
)

// AIProviderHandler exposes the AI provider procedures and the per-user
// active toggles.
type AIProviderHandler struct {
	providers *service.AIProviderService
	logger    *slog.Logger
}

func NewAIProviderHandler(providers *service.AIProviderService, logger *slog.Logger) *AIProviderHandler {
	return &AIProviderHandler{providers: providers, logger: logger}
}

type providerRequest struct {
	Name string  `json:"name"`
	Icon *string `json:"icon"`
}

type toggleActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

// HTTP: GET /api/ai-providers
func (h *AIProviderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	providers, err := h.providers.GetAll(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

// HTTP: GET /api/ai-providers/defaults
func (h *AIProviderHandler) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.GetDefaults(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

// HTTP: POST /api/ai-providers/defaults
func (h *AIProviderHandler) HandleEnsureDefaults(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.EnsureDefaults(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

// HTTP: POST /api/ai-providers
func (h *AIProviderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req providerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.providers.CreateCustom(r.Context(), userID, req.Name, req.Icon)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HTTP: PUT /api/ai-providers/{id}
func (h *AIProviderHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req providerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.providers.Update(r.Context(), userID, r.PathValue("id"), req.Name, req.Icon)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: DELETE /api/ai-providers/{id}
func (h *AIProviderHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.providers.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

// HTTP: GET /api/ai-providers/active
func (h *AIProviderHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	active, err := h.providers.GetActiveAIs(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}

// HandleToggleActive requires isActive explicitly; a missing flag would
// otherwise silently deactivate.
//
// HTTP: PUT /api/ai-providers/{id}/active
// REQUEST BODY: {"isActive": true}
func (h *AIProviderHandler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req toggleActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "isActive is required",
		})
		return
	}

	ua, err := h.providers.ToggleActive(r.Context(), userID, r.PathValue("id"), *req.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ua)
}
