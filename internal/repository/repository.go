// Package repository declares the storage interfaces the service layer depends on.
//
// Every method that reads or writes a user-owned row takes the owner's id and
// filters by it in the query itself. A row that exists but belongs to someone
// else is reported exactly like a missing row (apperror.ErrNotFound).
package repository

import (
	"context"

	"github.com/sakif/chat-memo/internal/model"
)

// SnippetFilter narrows ListSnippets. Zero value lists everything the user owns.
type SnippetFilter struct {
	// TitleQuery keeps snippets whose title contains it, ignoring case.
	TitleQuery string
	// TagIDs keeps snippets carrying at least one of these tags.
	TagIDs []string
}

// SnippetUpdate carries the fields of a partial update. Nil means "leave as is".
type SnippetUpdate struct {
	Title  *string
	TagIDs *[]string
}

type SnippetRepository interface {
	CreateSnippet(ctx context.Context, snippet *model.Snippet, tagIDs []string) error
	GetSnippet(ctx context.Context, userID, id string) (*model.Snippet, error)
	ListSnippets(ctx context.Context, userID string, filter SnippetFilter) ([]model.Snippet, error)
	UpdateSnippet(ctx context.Context, userID, id string, upd SnippetUpdate) (*model.Snippet, error)
	DeleteSnippet(ctx context.Context, userID, id string) error
}

// MessageUpdate carries the fields of a partial message update.
type MessageUpdate struct {
	Content     *string
	DisplayMode *model.DisplayMode
	SenderType  *model.SenderType
	Sender      *string
}

type MessageRepository interface {
	// CreateMessage assigns the id, position and timestamp, inserts the
	// message and bumps the parent snippet's updated_at in one transaction.
	CreateMessage(ctx context.Context, msg *model.Message) error
	// GetMessage returns the message and the id of the user owning its snippet.
	GetMessage(ctx context.Context, id string) (*model.Message, string, error)
	ListMessages(ctx context.Context, snippetID string) ([]model.Message, error)
	UpdateMessage(ctx context.Context, id string, upd MessageUpdate) (*model.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// TagUpdate carries the fields of a partial tag update.
type TagUpdate struct {
	Name  *string
	Color *string
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTag(ctx context.Context, userID, id string) (*model.Tag, error)
	// FindTagByName returns the user's tag with exactly this name, or nil.
	FindTagByName(ctx context.Context, userID, name string) (*model.Tag, error)
	ListTags(ctx context.Context, userID string) ([]model.Tag, error)
	CountTags(ctx context.Context, userID string) (int, error)
	UpdateTag(ctx context.Context, userID, id string, upd TagUpdate) (*model.Tag, error)
	// DeleteTag removes the tag's snippet associations, then the tag.
	DeleteTag(ctx context.Context, userID, id string) error
	AddTagToSnippet(ctx context.Context, snippetID, tagID string) (*model.SnippetTag, error)
	RemoveTagFromSnippet(ctx context.Context, snippetID, tagID string) error
	ListTagsForSnippet(ctx context.Context, snippetID string) ([]model.Tag, error)
}

type AIProviderRepository interface {
	ListDefaultProviders(ctx context.Context) ([]model.AIProvider, error)
	ListCustomProviders(ctx context.Context, userID string) ([]model.AIProvider, error)
	// GetVisibleProvider returns a provider the user may read: a default or
	// one of their own.
	GetVisibleProvider(ctx context.Context, userID, id string) (*model.AIProvider, error)
	FindCustomProviderByName(ctx context.Context, userID, name string) (*model.AIProvider, error)
	CreateProvider(ctx context.Context, p *model.AIProvider) error
	UpdateCustomProvider(ctx context.Context, userID, id, name string, icon *string) (*model.AIProvider, error)
	DeleteCustomProvider(ctx context.Context, userID, id string) error
	// InsertDefaultIfMissing creates a default provider unless one with the
	// same name already exists.
	InsertDefaultIfMissing(ctx context.Context, name, icon string) error
	ListActiveAIs(ctx context.Context, userID string) ([]model.UserActiveAI, error)
	UpsertActiveAI(ctx context.Context, userID, providerID string, active bool) (*model.UserActiveAI, error)
}

type SettingsRepository interface {
	// GetOrCreateSettings returns the user's settings, inserting the defaults
	// first when the row does not exist yet.
	GetOrCreateSettings(ctx context.Context, userID string) (*model.UserSettings, error)
	SaveSettings(ctx context.Context, settings *model.UserSettings) error
}

type UserRepository interface {
	// CreateUserWithSettings inserts the user and its default settings in one
	// transaction. Returns apperror.ErrConflict when the email is taken.
	CreateUserWithSettings(ctx context.Context, user *model.User, settings *model.UserSettings) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}
