package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

// TagService handles user-owned labels and their snippet associations.
type TagService struct {
	access *Access
	tags   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(access *Access, tags repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{access: access, tags: tags, logger: logger}
}

// UpdateTagInput is a partial update; nil fields are left untouched.
type UpdateTagInput struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// GetAll returns the user's tags, newest first.
func (s *TagService) GetAll(ctx context.Context, userID string) ([]model.Tag, error) {
	return s.tags.ListTags(ctx, userID)
}

func (s *TagService) Create(ctx context.Context, userID, name string, color *string) (*model.Tag, error) {
	name, err := requiredText("name", "tag name", name, MaxTagNameLength)
	if err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, userID, name, ""); err != nil {
		return nil, err
	}

	n, err := s.tags.CountTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}
	if n >= MaxTagsPerUser {
		return nil, apperror.LimitExceeded("tags", MaxTagsPerUser)
	}

	tag := &model.Tag{UserID: userID, Name: name, Color: color}
	if err := s.tags.CreateTag(ctx, tag); err != nil {
		// A concurrent create of the same name loses at the UNIQUE index.
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to create tag",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating tag: %w", err)
	}

	s.logger.Info("tag created", slog.String("id", tag.ID), slog.String("name", name))
	return tag, nil
}

// Update renames and/or recolors a tag. A rename to the tag's current name
// is not a duplicate.
func (s *TagService) Update(ctx context.Context, userID, id string, in UpdateTagInput) (*model.Tag, error) {
	id, err := requiredID("id", id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name, err := requiredText("name", "tag name", *in.Name, MaxTagNameLength)
		if err != nil {
			return nil, err
		}
		in.Name = &name
	}

	if _, err := s.access.OwnedTag(ctx, userID, id); err != nil {
		return nil, err
	}
	if in.Name != nil {
		if err := s.checkNameFree(ctx, userID, *in.Name, id); err != nil {
			return nil, err
		}
	}

	tag, err := s.tags.UpdateTag(ctx, userID, id, repository.TagUpdate{Name: in.Name, Color: in.Color})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag updated", slog.String("id", id))
	return tag, nil
}

// Delete detaches the tag from every snippet, then removes it.
func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	id, err := requiredID("id", id)
	if err != nil {
		return err
	}
	if err := s.tags.DeleteTag(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("tag deleted", slog.String("id", id))
	return nil
}

// AddToSnippet is idempotent.
func (s *TagService) AddToSnippet(ctx context.Context, userID, snippetID, tagID string) (*model.SnippetTag, error) {
	if err := s.access.OwnedSnippetTag(ctx, userID, snippetID, tagID); err != nil {
		return nil, err
	}
	return s.tags.AddTagToSnippet(ctx, snippetID, tagID)
}

// RemoveFromSnippet fails with NotFound when the tag is not attached.
func (s *TagService) RemoveFromSnippet(ctx context.Context, userID, snippetID, tagID string) error {
	if err := s.access.OwnedSnippetTag(ctx, userID, snippetID, tagID); err != nil {
		return err
	}
	return s.tags.RemoveTagFromSnippet(ctx, snippetID, tagID)
}

func (s *TagService) GetForSnippet(ctx context.Context, userID, snippetID string) ([]model.Tag, error) {
	if _, err := s.access.OwnedSnippet(ctx, userID, snippetID); err != nil {
		return nil, err
	}
	return s.tags.ListTagsForSnippet(ctx, snippetID)
}

// checkNameFree fails with DuplicateName when another tag of the user (not
// exceptID) already has name. The comparison is case-sensitive.
func (s *TagService) checkNameFree(ctx context.Context, userID, name, exceptID string) error {
	existing, err := s.tags.FindTagByName(ctx, userID, name)
	if err != nil {
		return fmt.Errorf("checking tag name: %w", err)
	}
	if existing != nil && existing.ID != exceptID {
		return apperror.DuplicateName("tag", name)
	}
	return nil
}
