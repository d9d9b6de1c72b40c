// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, checks ownership, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Every exported method takes the authenticated user id as its first argument
// after the context. Services never see HTTP types, so the same rules apply
// whether the call comes from a handler, a test or a future background job.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

// SnippetService handles snippets: the titled containers of messages.
type SnippetService struct {
	access   *Access
	snippets repository.SnippetRepository
	messages repository.MessageRepository
	logger   *slog.Logger
}

func NewSnippetService(
	access *Access,
	snippets repository.SnippetRepository,
	messages repository.MessageRepository,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		access:   access,
		snippets: snippets,
		messages: messages,
		logger:   logger,
	}
}

// UpdateSnippetInput is a partial update. Nil fields are left untouched;
// a non-nil empty TagIDs clears every tag.
type UpdateSnippetInput struct {
	Title  *string   `json:"title,omitempty"`
	TagIDs *[]string `json:"tagIds,omitempty"`
}

// GetAll returns the user's snippets with tags, most recently updated first.
func (s *SnippetService) GetAll(ctx context.Context, userID string) ([]model.Snippet, error) {
	return s.list(ctx, userID, repository.SnippetFilter{})
}

// GetByID returns the snippet with its tags and its messages in position order.
func (s *SnippetService) GetByID(ctx context.Context, userID, id string) (*model.Snippet, error) {
	id, err := requiredID("id", id)
	if err != nil {
		return nil, err
	}

	snippet, err := s.access.OwnedSnippet(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	snippet.Messages, err = s.messages.ListMessages(ctx, snippet.ID)
	if err != nil {
		return nil, fmt.Errorf("loading messages of snippet %s: %w", id, err)
	}
	return snippet, nil
}

func (s *SnippetService) Create(ctx context.Context, userID, title string, tagIDs []string) (*model.Snippet, error) {
	title, err := requiredText("title", "title", title, MaxTitleLength)
	if err != nil {
		return nil, err
	}
	tagIDs, err = s.access.OwnedTags(ctx, userID, tagIDs)
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{UserID: userID, Title: title}
	if err := s.snippets.CreateSnippet(ctx, snippet, tagIDs); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("userID", userID),
		slog.Int("tags", len(tagIDs)),
	)
	return snippet, nil
}

// Update writes only the fields present in in. updatedAt always advances,
// even when in is empty.
func (s *SnippetService) Update(ctx context.Context, userID, id string, in UpdateSnippetInput) (*model.Snippet, error) {
	id, err := requiredID("id", id)
	if err != nil {
		return nil, err
	}

	upd := repository.SnippetUpdate{}
	if in.Title != nil {
		title, err := requiredText("title", "title", *in.Title, MaxTitleLength)
		if err != nil {
			return nil, err
		}
		upd.Title = &title
	}

	if _, err := s.access.OwnedSnippet(ctx, userID, id); err != nil {
		return nil, err
	}
	if in.TagIDs != nil {
		tagIDs, err := s.access.OwnedTags(ctx, userID, *in.TagIDs)
		if err != nil {
			return nil, err
		}
		upd.TagIDs = &tagIDs
	}

	snippet, err := s.snippets.UpdateSnippet(ctx, userID, id, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("snippet updated", slog.String("id", id))
	return snippet, nil
}

func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	id, err := requiredID("id", id)
	if err != nil {
		return err
	}
	if err := s.snippets.DeleteSnippet(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// Search matches titles by case-insensitive substring. An empty query
// matches everything.
func (s *SnippetService) Search(ctx context.Context, userID, query string) ([]model.Snippet, error) {
	return s.list(ctx, userID, repository.SnippetFilter{TitleQuery: query})
}

// FilterByTags returns snippets carrying at least one of tagIDs (OR). An
// empty set returns all of the user's snippets.
func (s *SnippetService) FilterByTags(ctx context.Context, userID string, tagIDs []string) ([]model.Snippet, error) {
	return s.list(ctx, userID, repository.SnippetFilter{TagIDs: tagIDs})
}

func (s *SnippetService) list(ctx context.Context, userID string, filter repository.SnippetFilter) ([]model.Snippet, error) {
	snippets, err := s.snippets.ListSnippets(ctx, userID, filter)
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}
