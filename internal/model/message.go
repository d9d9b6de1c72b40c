package model

import "time"

// SenderType says who wrote a message.
type SenderType string

const (
	SenderUser SenderType = "user"
	SenderAI   SenderType = "ai"
)

// Valid reports whether t is one of the known sender types.
func (t SenderType) Valid() bool {
	return t == SenderUser || t == SenderAI
}

// DisplayMode controls how message content is rendered.
type DisplayMode string

const (
	DisplayMarkdown DisplayMode = "markdown"
	DisplayPlain    DisplayMode = "plain"
)

// Valid reports whether m is one of the known display modes.
func (m DisplayMode) Valid() bool {
	return m == DisplayMarkdown || m == DisplayPlain
}

// Message is one entry of a snippet.
//
// WHY *DisplayMode?
// A nil DisplayMode means "no preference": the message is rendered with the
// owner's default display mode. A pointer lets us tell "not set" apart from
// the zero value "". The column is nullable for the same reason.
//
// Position is assigned by the repository when the message is created and is
// never renumbered. Deleting a message leaves a gap; ordering only relies on
// "position asc".
type Message struct {
	ID          string       `json:"id"`
	SnippetID   string       `json:"snippetId"`
	Sender      string       `json:"sender"`
	SenderType  SenderType   `json:"senderType"`
	Content     string       `json:"content"`
	DisplayMode *DisplayMode `json:"displayMode"`
	Position    int          `json:"position"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// EffectiveDisplayMode resolves the mode used to render the message,
// falling back to the given default when the message has none.
func (m *Message) EffectiveDisplayMode(fallback DisplayMode) DisplayMode {
	if m.DisplayMode != nil && m.DisplayMode.Valid() {
		return *m.DisplayMode
	}
	if fallback.Valid() {
		return fallback
	}
	return DisplayMarkdown
}
