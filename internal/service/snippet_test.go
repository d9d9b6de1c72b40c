package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/repository"
	"github.com/sakif/chat-memo/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================
//
// Services run against a real in-memory SQLite database. The ownership rules
// live partly in SQL (owner-filtered queries), so a fake store would test
// less than half of them.

type testEnv struct {
	db        *sqlite.DB
	snippets  *SnippetService
	messages  *MessageService
	tags      *TagService
	providers *AIProviderService
	settings  *SettingsService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := discardLogger()
	access := NewAccess(db, db, db, db)
	return &testEnv{
		db:        db,
		snippets:  NewSnippetService(access, db, db, logger),
		messages:  NewMessageService(access, db, db, logger),
		tags:      NewTagService(access, db, logger),
		providers: NewAIProviderService(access, db, logger),
		settings:  NewSettingsService(db, logger),
	}
}

func (e *testEnv) newUser(t *testing.T, email string) string {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, e.db.CreateUserWithSettings(context.Background(), u, model.NewDefaultSettings("")))
	return u.ID
}

func (e *testEnv) newSnippet(t *testing.T, userID, title string, tagIDs ...string) *model.Snippet {
	t.Helper()
	s, err := e.snippets.Create(context.Background(), userID, title, tagIDs)
	require.NoError(t, err)
	return s
}

func (e *testEnv) newTag(t *testing.T, userID, name string) *model.Tag {
	t.Helper()
	tag, err := e.tags.Create(context.Background(), userID, name, nil)
	require.NoError(t, err)
	return tag
}

func ptr[T any](v T) *T { return &v }

func snippetIDs(snippets []model.Snippet) []string {
	ids := make([]string, len(snippets))
	for i, s := range snippets {
		ids[i] = s.ID
	}
	return ids
}

// =========================================================================
// SNIPPETS
// =========================================================================

func TestSnippetCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	work := env.newTag(t, alice, "work")

	s, err := env.snippets.Create(ctx, alice, "  Standup notes  ", []string{work.ID, work.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Standup notes", s.Title)
	require.Len(t, s.Tags, 1)
	assert.Equal(t, "work", s.Tags[0].Name)
}

func TestSnippetCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	bobsTag := env.newTag(t, bob, "bob")

	tests := []struct {
		name    string
		title   string
		tagIDs  []string
		wantErr error
	}{
		{"empty title", "   ", nil, apperror.ErrValidation},
		{"title too long", string(make([]rune, MaxTitleLength+1)), nil, apperror.ErrValidation},
		{"other user's tag", "ok", []string{bobsTag.ID}, apperror.ErrNotFound},
		{"unknown tag", "ok", []string{"nope"}, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.snippets.Create(ctx, alice, tt.title, tt.tagIDs)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSnippetCreate_TitleLimitCountsCharacters(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newUser(t, "alice@example.com")

	// 200 three-byte characters is 600 bytes but still a valid title.
	title := ""
	for range MaxTitleLength {
		title += "あ"
	}
	_, err := env.snippets.Create(context.Background(), alice, title, nil)
	assert.NoError(t, err)
}

func TestSnippetGetByID_OtherUserGetsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	s := env.newSnippet(t, alice, "private")

	_, err := env.snippets.GetByID(ctx, bob, s.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	// Same error as for an id that never existed.
	_, missingErr := env.snippets.GetByID(ctx, bob, "does-not-exist")
	assert.ErrorIs(t, missingErr, apperror.ErrNotFound)
}

func TestSnippetGetByID_IncludesMessagesInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	s := env.newSnippet(t, alice, "chat")

	for _, content := range []string{"one", "two", "three"} {
		_, err := env.messages.Create(ctx, alice, CreateMessageInput{
			SnippetID: s.ID, SenderType: model.SenderUser, Content: content,
		})
		require.NoError(t, err)
	}

	got, err := env.snippets.GetByID(ctx, alice, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	for i, want := range []string{"one", "two", "three"} {
		assert.Equal(t, want, got.Messages[i].Content)
		assert.Equal(t, i, got.Messages[i].Position)
	}
}

func TestSnippetUpdate_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	s := env.newSnippet(t, alice, "before")
	before := s.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	_, err := env.snippets.Update(ctx, alice, s.ID, UpdateSnippetInput{Title: ptr("X")})
	require.NoError(t, err)

	got, err := env.snippets.GetByID(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Title)
	assert.False(t, got.UpdatedAt.Before(before))
}

func TestSnippetUpdate_ReplacesAndClearsTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	a := env.newTag(t, alice, "a")
	b := env.newTag(t, alice, "b")
	s := env.newSnippet(t, alice, "tagged", a.ID)

	got, err := env.snippets.Update(ctx, alice, s.ID, UpdateSnippetInput{TagIDs: &[]string{b.ID}})
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, b.ID, got.Tags[0].ID)
	assert.Equal(t, "tagged", got.Title)

	got, err = env.snippets.Update(ctx, alice, s.ID, UpdateSnippetInput{TagIDs: &[]string{}})
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestSnippetUpdate_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	s := env.newSnippet(t, alice, "mine")

	_, err := env.snippets.Update(ctx, bob, s.ID, UpdateSnippetInput{Title: ptr("stolen")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.snippets.Update(ctx, alice, s.ID, UpdateSnippetInput{Title: ptr("")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	got, err := env.snippets.GetByID(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)
}

func TestSnippetDelete_RemovesMessagesAndTagLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	tag := env.newTag(t, alice, "t")
	s := env.newSnippet(t, alice, "doomed", tag.ID)
	msg, err := env.messages.Create(ctx, alice, CreateMessageInput{
		SnippetID: s.ID, SenderType: model.SenderUser, Content: "x",
	})
	require.NoError(t, err)

	require.NoError(t, env.snippets.Delete(ctx, alice, s.ID))

	_, err = env.snippets.GetByID(ctx, alice, s.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, _, err = env.db.GetMessage(ctx, msg.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The tag itself survives.
	tags, err := env.tags.GetAll(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestSnippetDelete_OtherUserGetsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	s := env.newSnippet(t, alice, "mine")

	assert.ErrorIs(t, env.snippets.Delete(ctx, bob, s.ID), apperror.ErrNotFound)
	_, err := env.snippets.GetByID(ctx, alice, s.ID)
	assert.NoError(t, err)
}

func TestSnippetSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	golang := env.newSnippet(t, alice, "Learning Go")
	env.newSnippet(t, alice, "Rust notes")
	pct := env.newSnippet(t, alice, "100% done")
	env.newSnippet(t, bob, "Go for bob")

	got, err := env.snippets.Search(ctx, alice, "go")
	require.NoError(t, err)
	assert.Equal(t, []string{golang.ID}, snippetIDs(got))

	got, err = env.snippets.Search(ctx, alice, "%")
	require.NoError(t, err)
	assert.Equal(t, []string{pct.ID}, snippetIDs(got))

	got, err = env.snippets.Search(ctx, alice, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSnippetFilterByTags_MatchesAnyTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	a := env.newTag(t, alice, "a")
	b := env.newTag(t, alice, "b")
	c := env.newTag(t, alice, "c")
	sa := env.newSnippet(t, alice, "has a", a.ID)
	sb := env.newSnippet(t, alice, "has b", b.ID)
	env.newSnippet(t, alice, "has c", c.ID)

	got, err := env.snippets.FilterByTags(ctx, alice, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{sa.ID, sb.ID}, snippetIDs(got))

	all, err := env.snippets.FilterByTags(ctx, alice, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// failingSnippetRepo embeds the interface and overrides one method; calling
// anything else panics, which keeps the test honest about what it touches.
type failingSnippetRepo struct {
	repository.SnippetRepository
	err error
}

func (f failingSnippetRepo) ListSnippets(context.Context, string, repository.SnippetFilter) ([]model.Snippet, error) {
	return nil, f.err
}

func TestSnippetGetAll_StoreFailureIsWrapped(t *testing.T) {
	storeErr := errors.New("disk I/O error")
	svc := NewSnippetService(nil, failingSnippetRepo{err: storeErr}, nil, discardLogger())

	_, err := svc.GetAll(context.Background(), "user")
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, "internal_error", apperror.Kind(err))
}
