package service

import (
	"context"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
	"github.com/samber/lo"
)

// Access gates every operation on the caller's identity. Each method either
// returns the entity the caller may use or an error; it never writes.
//
// INFORMATION HIDING:
// "exists but belongs to someone else" and "does not exist" produce the same
// apperror.NotFound, so a caller cannot probe for other users' ids.
type Access struct {
	snippets  repository.SnippetRepository
	messages  repository.MessageRepository
	tags      repository.TagRepository
	providers repository.AIProviderRepository
}

func NewAccess(
	snippets repository.SnippetRepository,
	messages repository.MessageRepository,
	tags repository.TagRepository,
	providers repository.AIProviderRepository,
) *Access {
	return &Access{
		snippets:  snippets,
		messages:  messages,
		tags:      tags,
		providers: providers,
	}
}

// OwnedSnippet filters by owner inside the query itself.
func (a *Access) OwnedSnippet(ctx context.Context, userID, id string) (*model.Snippet, error) {
	return a.snippets.GetSnippet(ctx, userID, id)
}

// OwnedMessage has no owner column of its own: it is fetched together with
// its snippet's owner and compared here.
func (a *Access) OwnedMessage(ctx context.Context, userID, id string) (*model.Message, error) {
	msg, ownerID, err := a.messages.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, apperror.NotFound("message", id)
	}
	return msg, nil
}

func (a *Access) OwnedTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	return a.tags.GetTag(ctx, userID, id)
}

// OwnedTags checks every id and returns them deduplicated, in input order.
func (a *Access) OwnedTags(ctx context.Context, userID string, ids []string) ([]string, error) {
	ids = lo.Uniq(ids)
	for _, id := range ids {
		if _, err := a.tags.GetTag(ctx, userID, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// OwnedSnippetTag checks both sides of a snippet/tag association.
func (a *Access) OwnedSnippetTag(ctx context.Context, userID, snippetID, tagID string) error {
	if _, err := a.OwnedSnippet(ctx, userID, snippetID); err != nil {
		return err
	}
	_, err := a.OwnedTag(ctx, userID, tagID)
	return err
}

// ReadableProvider accepts the caller's own providers and every default.
func (a *Access) ReadableProvider(ctx context.Context, userID, id string) (*model.AIProvider, error) {
	return a.providers.GetVisibleProvider(ctx, userID, id)
}

// WritableProvider is ReadableProvider minus defaults, which are shared and
// read-only.
func (a *Access) WritableProvider(ctx context.Context, userID, id string) (*model.AIProvider, error) {
	p, err := a.ReadableProvider(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.IsDefault || p.UserID == nil {
		return nil, apperror.Forbidden("default AI providers cannot be modified")
	}
	return p, nil
}
