package model

// DefaultUserName is the sender name used for the user's own messages until
// they pick one.
const DefaultUserName = "あなた"

// UserSettings holds per-user preferences. There is exactly one row per user.
//
// CustomAINames is the legacy list of AI sender names; AIProvider and
// UserActiveAI supersede it but it is still served for older clients.
type UserSettings struct {
	UserID             string      `json:"userId"`
	UserName           string      `json:"userName"`
	DefaultDisplayMode DisplayMode `json:"defaultDisplayMode"`
	CustomAINames      []string    `json:"customAINames"`
}

// NewDefaultSettings returns the settings every new account starts with.
func NewDefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:             userID,
		UserName:           DefaultUserName,
		DefaultDisplayMode: DisplayMarkdown,
		CustomAINames:      []string{},
	}
}
