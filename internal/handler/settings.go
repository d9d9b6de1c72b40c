package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/service"
)

// SettingsHandler exposes the per-user settings procedures. Every route
// answers with the full settings object after the change.
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

type userNameRequest struct {
	UserName string `json:"userName"`
}

type displayModeRequest struct {
	DisplayMode model.DisplayMode `json:"displayMode"`
}

type customAIRequest struct {
	AIName string `json:"aiName"`
}

// HTTP: GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.respond(w)(h.settings.Get(r.Context(), userID))
}

// HTTP: PATCH /api/settings
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateSettingsInput
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w)(h.settings.Update(r.Context(), userID, req))
}

// HTTP: PUT /api/settings/user-name
func (h *SettingsHandler) HandleUserName(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req userNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w)(h.settings.UpdateUserName(r.Context(), userID, req.UserName))
}

// HTTP: PUT /api/settings/display-mode
func (h *SettingsHandler) HandleDisplayMode(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req displayModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w)(h.settings.UpdateDisplayMode(r.Context(), userID, req.DisplayMode))
}

// HTTP: POST /api/settings/custom-ais
func (h *SettingsHandler) HandleAddCustomAI(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req customAIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w)(h.settings.AddCustomAI(r.Context(), userID, req.AIName))
}

// HTTP: DELETE /api/settings/custom-ais/{name}
func (h *SettingsHandler) HandleRemoveCustomAI(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.respond(w)(h.settings.RemoveCustomAI(r.Context(), userID, r.PathValue("name")))
}

func (h *SettingsHandler) respond(w http.ResponseWriter) func(*model.UserSettings, error) {
	return func(settings *model.UserSettings, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}
