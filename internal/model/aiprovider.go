package model

import "time"

// AIProvider is a named AI sender identity.
//
// System defaults have UserID == nil and IsDefault == true; they are shared by
// every user and cannot be changed through the API. Custom providers belong to
// exactly one user.
type AIProvider struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserActiveAI records whether a provider is offered as a sender choice for a
// user. Once toggled, "inactive" is a stored state, not a missing row.
type UserActiveAI struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	AIProviderID string      `json:"aiProviderId"`
	IsActive     bool        `json:"isActive"`
	AIProvider   *AIProvider `json:"aiProvider,omitempty"`
}
