package client

import (
	"context"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/service"
)

// Session is the cached view of one user's data. Reads go through the
// coordinator; the operations a user repeats the most are applied
// optimistically and every other write invalidates what it affects.
type Session struct {
	api *Client
	co  *Coordinator
}

func NewSession(api *Client, notifier Notifier) *Session {
	return &Session{api: api, co: NewCoordinator(NewCache(), notifier)}
}

func (s *Session) API() *Client { return s.api }

func (s *Session) Cache() *Cache { return s.co.cache }

// =========================================================================
// Reads
// =========================================================================

func (s *Session) Snippets(ctx context.Context) ([]model.Snippet, error) {
	return Fetch(ctx, s.co, KeySnippets, s.api.Snippets)
}

func (s *Session) Snippet(ctx context.Context, id string) (*model.Snippet, error) {
	return Fetch(ctx, s.co, SnippetKey(id), func(ctx context.Context) (*model.Snippet, error) {
		return s.api.Snippet(ctx, id)
	})
}

func (s *Session) Tags(ctx context.Context) ([]model.Tag, error) {
	return Fetch(ctx, s.co, KeyTags, s.api.Tags)
}

func (s *Session) AIProviders(ctx context.Context) ([]model.AIProvider, error) {
	return Fetch(ctx, s.co, KeyAIProviders, s.api.AIProviders)
}

func (s *Session) ActiveAIs(ctx context.Context) ([]model.UserActiveAI, error) {
	return Fetch(ctx, s.co, KeyActiveAIs, s.api.ActiveAIs)
}

func (s *Session) Settings(ctx context.Context) (*model.UserSettings, error) {
	return Fetch(ctx, s.co, KeySettings, s.api.Settings)
}

// =========================================================================
// Optimistic messages
// =========================================================================

// CreateMessage shows the message at the end of the snippet right away,
// under a temporary id.
func (s *Session) CreateMessage(ctx context.Context, in service.CreateMessageInput) (*model.Message, error) {
	key := SnippetKey(in.SnippetID)
	tempID := TempID()

	return Mutate(ctx, s.co, Mutation[*model.Message]{
		Name: "message.create",
		Keys: []string{key, KeySnippets},
		Apply: func(tx *Tx) error {
			sender := in.Sender
			if sender == "" && in.SenderType == model.SenderUser {
				sender = model.DefaultUserName
				var settings model.UserSettings
				if ok, _ := tx.cache.Get(tx.ctx, KeySettings, &settings); ok {
					sender = settings.UserName
				}
			}
			now := time.Now().UTC()
			if err := Modify(tx, key, func(sn *model.Snippet) {
				pos := 0
				if n := len(sn.Messages); n > 0 {
					pos = sn.Messages[n-1].Position + 1
				}
				sn.Messages = append(sn.Messages, model.Message{
					ID:          tempID,
					SnippetID:   in.SnippetID,
					Sender:      sender,
					SenderType:  in.SenderType,
					Content:     in.Content,
					DisplayMode: in.DisplayMode,
					Position:    pos,
					CreatedAt:   now,
				})
				sn.UpdatedAt = now
			}); err != nil {
				return err
			}
			return touchSnippet(tx, in.SnippetID, now)
		},
		Dispatch: func(ctx context.Context) (*model.Message, error) {
			return s.api.CreateMessage(ctx, in)
		},
		Commit: func(tx *Tx, m *model.Message) error {
			return Modify(tx, key, func(sn *model.Snippet) {
				replaceMessage(sn, tempID, *m)
			})
		},
	})
}

// EditMessage patches the message in its snippet before the server answers.
func (s *Session) EditMessage(ctx context.Context, snippetID, id string, in service.UpdateMessageInput) (*model.Message, error) {
	key := SnippetKey(snippetID)

	return Mutate(ctx, s.co, Mutation[*model.Message]{
		Name: "message.update",
		Keys: []string{key},
		Apply: func(tx *Tx) error {
			return Modify(tx, key, func(sn *model.Snippet) {
				for i := range sn.Messages {
					if sn.Messages[i].ID == id {
						applyMessagePatch(&sn.Messages[i], in)
					}
				}
			})
		},
		Dispatch: func(ctx context.Context) (*model.Message, error) {
			return s.api.UpdateMessage(ctx, id, in)
		},
		Commit: func(tx *Tx, m *model.Message) error {
			return Modify(tx, key, func(sn *model.Snippet) {
				replaceMessage(sn, id, *m)
			})
		},
	})
}

// DeleteMessage removes the message from its snippet before the server
// answers. Positions of the remaining messages are not renumbered.
func (s *Session) DeleteMessage(ctx context.Context, snippetID, id string) error {
	key := SnippetKey(snippetID)

	_, err := Mutate(ctx, s.co, Mutation[struct{}]{
		Name: "message.delete",
		Keys: []string{key},
		Apply: func(tx *Tx) error {
			return Modify(tx, key, func(sn *model.Snippet) {
				sn.Messages = lo.Reject(sn.Messages, func(m model.Message, _ int) bool {
					return m.ID == id
				})
			})
		},
		Dispatch: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeleteMessage(ctx, id)
		},
	})
	return err
}

func applyMessagePatch(m *model.Message, in service.UpdateMessageInput) {
	if in.Content != nil {
		m.Content = *in.Content
	}
	if in.DisplayMode != nil {
		mode := *in.DisplayMode
		m.DisplayMode = &mode
	}
	if in.SenderType != nil {
		m.SenderType = *in.SenderType
	}
	if in.Sender != nil {
		m.Sender = *in.Sender
	}
}

func replaceMessage(sn *model.Snippet, id string, m model.Message) {
	for i := range sn.Messages {
		if sn.Messages[i].ID == id {
			sn.Messages[i] = m
			return
		}
	}
}

// touchSnippet moves the snippet to the top of the list, which is sorted by
// most recent update.
func touchSnippet(tx *Tx, id string, at time.Time) error {
	return Modify(tx, KeySnippets, func(list *[]model.Snippet) {
		i := slices.IndexFunc(*list, func(sn model.Snippet) bool { return sn.ID == id })
		if i < 0 {
			return
		}
		sn := (*list)[i]
		sn.UpdatedAt = at
		*list = slices.Insert(slices.Delete(*list, i, i+1), 0, sn)
	})
}

// =========================================================================
// Optimistic AI providers
// =========================================================================

// ToggleActive flips the provider in the active list. A provider never
// toggled before gets a temporary row.
func (s *Session) ToggleActive(ctx context.Context, providerID string, active bool) (*model.UserActiveAI, error) {
	return Mutate(ctx, s.co, Mutation[*model.UserActiveAI]{
		Name: "aiProvider.toggleActive",
		Keys: []string{KeyActiveAIs},
		Apply: func(tx *Tx) error {
			var provider *model.AIProvider
			var providers []model.AIProvider
			if ok, _ := tx.cache.Get(tx.ctx, KeyAIProviders, &providers); ok {
				if p, found := lo.Find(providers, func(p model.AIProvider) bool { return p.ID == providerID }); found {
					provider = &p
				}
			}
			return Modify(tx, KeyActiveAIs, func(rows *[]model.UserActiveAI) {
				for i := range *rows {
					if (*rows)[i].AIProviderID == providerID {
						(*rows)[i].IsActive = active
						return
					}
				}
				*rows = append(*rows, model.UserActiveAI{
					ID:           TempID(),
					AIProviderID: providerID,
					IsActive:     active,
					AIProvider:   provider,
				})
			})
		},
		Dispatch: func(ctx context.Context) (*model.UserActiveAI, error) {
			return s.api.ToggleActiveAI(ctx, providerID, active)
		},
		Commit: func(tx *Tx, ua *model.UserActiveAI) error {
			return Modify(tx, KeyActiveAIs, func(rows *[]model.UserActiveAI) {
				for i := range *rows {
					if (*rows)[i].AIProviderID == providerID {
						if ua.AIProvider == nil {
							ua.AIProvider = (*rows)[i].AIProvider
						}
						(*rows)[i] = *ua
						return
					}
				}
			})
		},
	})
}

// RenameAIProvider renames a custom provider everywhere it is shown.
func (s *Session) RenameAIProvider(ctx context.Context, id, name string, icon *string) (*model.AIProvider, error) {
	rename := func(p *model.AIProvider) {
		p.Name = name
		if icon != nil {
			p.Icon = *icon
		}
	}

	return Mutate(ctx, s.co, Mutation[*model.AIProvider]{
		Name: "aiProvider.update",
		Keys: []string{KeyAIProviders, KeyActiveAIs},
		Apply: func(tx *Tx) error {
			if err := Modify(tx, KeyAIProviders, func(list *[]model.AIProvider) {
				for i := range *list {
					if (*list)[i].ID == id {
						rename(&(*list)[i])
					}
				}
			}); err != nil {
				return err
			}
			return Modify(tx, KeyActiveAIs, func(rows *[]model.UserActiveAI) {
				for i := range *rows {
					if p := (*rows)[i].AIProvider; p != nil && p.ID == id {
						rename(p)
					}
				}
			})
		},
		Dispatch: func(ctx context.Context) (*model.AIProvider, error) {
			return s.api.UpdateAIProvider(ctx, id, name, icon)
		},
		Commit: func(tx *Tx, p *model.AIProvider) error {
			return Modify(tx, KeyAIProviders, func(list *[]model.AIProvider) {
				for i := range *list {
					if (*list)[i].ID == id {
						(*list)[i] = *p
					}
				}
			})
		},
	})
}

// =========================================================================
// Optimistic tags and settings
// =========================================================================

// RenameTag renames the tag in the tag list and on every cached snippet
// carrying it.
func (s *Session) RenameTag(ctx context.Context, id, name string) (*model.Tag, error) {
	snippetKeys := s.co.cache.KeysWithPrefix(snippetPrefix)
	keys := append([]string{KeyTags, KeySnippets}, snippetKeys...)

	renameIn := func(tags []model.Tag) {
		for i := range tags {
			if tags[i].ID == id {
				tags[i].Name = name
			}
		}
	}

	return Mutate(ctx, s.co, Mutation[*model.Tag]{
		Name: "tag.update",
		Keys: keys,
		Apply: func(tx *Tx) error {
			if err := Modify(tx, KeyTags, func(tags *[]model.Tag) { renameIn(*tags) }); err != nil {
				return err
			}
			if err := Modify(tx, KeySnippets, func(list *[]model.Snippet) {
				for i := range *list {
					renameIn((*list)[i].Tags)
				}
			}); err != nil {
				return err
			}
			for _, k := range snippetKeys {
				if err := Modify(tx, k, func(sn *model.Snippet) { renameIn(sn.Tags) }); err != nil {
					return err
				}
			}
			return nil
		},
		Dispatch: func(ctx context.Context) (*model.Tag, error) {
			return s.api.UpdateTag(ctx, id, service.UpdateTagInput{Name: &name})
		},
		Commit: func(tx *Tx, t *model.Tag) error {
			return Modify(tx, KeyTags, func(tags *[]model.Tag) {
				for i := range *tags {
					if (*tags)[i].ID == id {
						(*tags)[i] = *t
					}
				}
			})
		},
	})
}

// SetDisplayMode changes the default display mode before the server answers.
func (s *Session) SetDisplayMode(ctx context.Context, mode model.DisplayMode) (*model.UserSettings, error) {
	return Mutate(ctx, s.co, Mutation[*model.UserSettings]{
		Name: "settings.updateDisplayMode",
		Keys: []string{KeySettings},
		Apply: func(tx *Tx) error {
			return Modify(tx, KeySettings, func(st *model.UserSettings) {
				st.DefaultDisplayMode = mode
			})
		},
		Dispatch: func(ctx context.Context) (*model.UserSettings, error) {
			return s.api.UpdateDisplayMode(ctx, mode)
		},
		Commit: func(tx *Tx, st *model.UserSettings) error {
			return Modify(tx, KeySettings, func(cur *model.UserSettings) { *cur = *st })
		},
	})
}

// =========================================================================
// Plain writes
// =========================================================================

// invalidate marks keys stale once a plain write returned, successful or not.
func (s *Session) invalidate(keys ...string) {
	s.co.Invalidate(keys...)
}

func (s *Session) CreateSnippet(ctx context.Context, title string, tagIDs []string) (*model.Snippet, error) {
	defer s.invalidate(KeySnippets)
	return s.api.CreateSnippet(ctx, title, tagIDs)
}

func (s *Session) UpdateSnippet(ctx context.Context, id string, in service.UpdateSnippetInput) (*model.Snippet, error) {
	defer s.invalidate(KeySnippets, SnippetKey(id))
	return s.api.UpdateSnippet(ctx, id, in)
}

func (s *Session) DeleteSnippet(ctx context.Context, id string) error {
	defer s.invalidate(KeySnippets, SnippetKey(id))
	return s.api.DeleteSnippet(ctx, id)
}

func (s *Session) CreateTag(ctx context.Context, name string, color *string) (*model.Tag, error) {
	defer s.invalidate(KeyTags)
	return s.api.CreateTag(ctx, name, color)
}

// DeleteTag also detaches the tag from every snippet, so every snippet view
// is invalidated.
func (s *Session) DeleteTag(ctx context.Context, id string) error {
	keys := append([]string{KeyTags, KeySnippets}, s.co.cache.KeysWithPrefix(snippetPrefix)...)
	defer s.invalidate(keys...)
	return s.api.DeleteTag(ctx, id)
}

func (s *Session) AddTagToSnippet(ctx context.Context, snippetID, tagID string) (*model.SnippetTag, error) {
	defer s.invalidate(KeySnippets, SnippetKey(snippetID))
	return s.api.AddTagToSnippet(ctx, snippetID, tagID)
}

func (s *Session) RemoveTagFromSnippet(ctx context.Context, snippetID, tagID string) error {
	defer s.invalidate(KeySnippets, SnippetKey(snippetID))
	return s.api.RemoveTagFromSnippet(ctx, snippetID, tagID)
}

func (s *Session) CreateAIProvider(ctx context.Context, name string, icon *string) (*model.AIProvider, error) {
	defer s.invalidate(KeyAIProviders)
	return s.api.CreateAIProvider(ctx, name, icon)
}

func (s *Session) DeleteAIProvider(ctx context.Context, id string) error {
	defer s.invalidate(KeyAIProviders, KeyActiveAIs)
	return s.api.DeleteAIProvider(ctx, id)
}

func (s *Session) EnsureDefaultAIProviders(ctx context.Context) ([]model.AIProvider, error) {
	defer s.invalidate(KeyAIProviders)
	return s.api.EnsureDefaultAIProviders(ctx)
}

func (s *Session) UpdateUserName(ctx context.Context, name string) (*model.UserSettings, error) {
	defer s.invalidate(KeySettings)
	return s.api.UpdateUserName(ctx, name)
}

func (s *Session) AddCustomAI(ctx context.Context, name string) (*model.UserSettings, error) {
	defer s.invalidate(KeySettings)
	return s.api.AddCustomAI(ctx, name)
}

func (s *Session) RemoveCustomAI(ctx context.Context, name string) (*model.UserSettings, error) {
	defer s.invalidate(KeySettings)
	return s.api.RemoveCustomAI(ctx, name)
}
