package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
)

// MessageService handles the ordered entries of a snippet.
type MessageService struct {
	access   *Access
	messages repository.MessageRepository
	settings repository.SettingsRepository
	logger   *slog.Logger
}

func NewMessageService(
	access *Access,
	messages repository.MessageRepository,
	settings repository.SettingsRepository,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		access:   access,
		messages: messages,
		settings: settings,
		logger:   logger,
	}
}

// CreateMessageInput mirrors message.create. Position is not an input: the
// store assigns it.
type CreateMessageInput struct {
	SnippetID   string             `json:"snippetId"`
	Sender      string             `json:"sender"`
	SenderType  model.SenderType   `json:"senderType"`
	Content     string             `json:"content"`
	DisplayMode *model.DisplayMode `json:"displayMode,omitempty"`
}

// UpdateMessageInput is a partial update; nil fields are left untouched.
type UpdateMessageInput struct {
	Content     *string            `json:"content,omitempty"`
	DisplayMode *model.DisplayMode `json:"displayMode,omitempty"`
	SenderType  *model.SenderType  `json:"senderType,omitempty"`
	Sender      *string            `json:"sender,omitempty"`
}

// GetBySnippetID lists the snippet's messages in position order.
func (s *MessageService) GetBySnippetID(ctx context.Context, userID, snippetID string) ([]model.Message, error) {
	snippetID, err := requiredID("snippetId", snippetID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.OwnedSnippet(ctx, userID, snippetID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, snippetID)
}

// Create appends a message. A user message without a sender is attributed to
// the user's display name from settings.
func (s *MessageService) Create(ctx context.Context, userID string, in CreateMessageInput) (*model.Message, error) {
	snippetID, err := requiredID("snippetId", in.SnippetID)
	if err != nil {
		return nil, err
	}
	if !in.SenderType.Valid() {
		return nil, apperror.ValidationFailed("senderType", `senderType must be "user" or "ai"`)
	}
	if in.DisplayMode != nil && !in.DisplayMode.Valid() {
		return nil, invalidDisplayMode()
	}

	if _, err := s.access.OwnedSnippet(ctx, userID, snippetID); err != nil {
		return nil, err
	}

	sender := strings.TrimSpace(in.Sender)
	if sender == "" {
		if in.SenderType == model.SenderAI {
			return nil, apperror.ValidationFailed("sender", "sender is required for AI messages")
		}
		settings, err := s.settings.GetOrCreateSettings(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolving default sender: %w", err)
		}
		sender = settings.UserName
	}

	msg := &model.Message{
		SnippetID:   snippetID,
		Sender:      sender,
		SenderType:  in.SenderType,
		Content:     in.Content,
		DisplayMode: in.DisplayMode,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("failed to create message",
			slog.String("snippetID", snippetID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating message: %w", err)
	}

	s.logger.Info("message created",
		slog.String("id", msg.ID),
		slog.String("snippetID", snippetID),
		slog.Int("position", msg.Position),
	)
	return msg, nil
}

func (s *MessageService) Update(ctx context.Context, userID, id string, in UpdateMessageInput) (*model.Message, error) {
	id, err := requiredID("id", id)
	if err != nil {
		return nil, err
	}
	if in.SenderType != nil && !in.SenderType.Valid() {
		return nil, apperror.ValidationFailed("senderType", `senderType must be "user" or "ai"`)
	}
	if in.DisplayMode != nil && !in.DisplayMode.Valid() {
		return nil, invalidDisplayMode()
	}
	if in.Sender != nil {
		sender := strings.TrimSpace(*in.Sender)
		if sender == "" {
			return nil, apperror.ValidationFailed("sender", "sender must not be empty")
		}
		in.Sender = &sender
	}

	if _, err := s.access.OwnedMessage(ctx, userID, id); err != nil {
		return nil, err
	}

	msg, err := s.messages.UpdateMessage(ctx, id, repository.MessageUpdate{
		Content:     in.Content,
		DisplayMode: in.DisplayMode,
		SenderType:  in.SenderType,
		Sender:      in.Sender,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("message updated", slog.String("id", id))
	return msg, nil
}

func (s *MessageService) Delete(ctx context.Context, userID, id string) error {
	id, err := requiredID("id", id)
	if err != nil {
		return err
	}
	if _, err := s.access.OwnedMessage(ctx, userID, id); err != nil {
		return err
	}
	if err := s.messages.DeleteMessage(ctx, id); err != nil {
		return err
	}

	s.logger.Info("message deleted", slog.String("id", id))
	return nil
}
