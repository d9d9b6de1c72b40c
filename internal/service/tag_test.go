package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagCreate_DuplicateNamePerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	_, err := env.tags.Create(ctx, alice, "work", nil)
	require.NoError(t, err)

	_, err = env.tags.Create(ctx, alice, "work", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// Names are case-sensitive.
	_, err = env.tags.Create(ctx, alice, "Work", nil)
	assert.NoError(t, err)

	// Another user may reuse the name.
	_, err = env.tags.Create(ctx, bob, "work", nil)
	assert.NoError(t, err)
}

func TestTagCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	_, err := env.tags.Create(ctx, alice, "", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.tags.Create(ctx, alice, "123456789012345678901", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	tag, err := env.tags.Create(ctx, alice, "12345678901234567890", ptr("#ff0000"))
	require.NoError(t, err)
	require.NotNil(t, tag.Color)
	assert.Equal(t, "#ff0000", *tag.Color)
}

func TestTagCreate_LimitPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	for i := range MaxTagsPerUser {
		_, err := env.tags.Create(ctx, alice, fmt.Sprintf("tag-%d", i), nil)
		require.NoError(t, err)
	}

	_, err := env.tags.Create(ctx, alice, "one-too-many", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestTagUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	work := env.newTag(t, alice, "work")
	env.newTag(t, alice, "home")

	// Renaming to its own name is not a duplicate.
	got, err := env.tags.Update(ctx, alice, work.ID, UpdateTagInput{Name: ptr("work"), Color: ptr("blue")})
	require.NoError(t, err)
	assert.Equal(t, "work", got.Name)
	require.NotNil(t, got.Color)
	assert.Equal(t, "blue", *got.Color)

	_, err = env.tags.Update(ctx, alice, work.ID, UpdateTagInput{Name: ptr("home")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.tags.Update(ctx, bob, work.ID, UpdateTagInput{Name: ptr("mine")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err = env.tags.Update(ctx, alice, work.ID, UpdateTagInput{Name: ptr("office")})
	require.NoError(t, err)
	assert.Equal(t, "office", got.Name)
	assert.Equal(t, "blue", *got.Color)
}

func TestTagAddToSnippet_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	tag := env.newTag(t, alice, "t")
	s := env.newSnippet(t, alice, "s")

	first, err := env.tags.AddToSnippet(ctx, alice, s.ID, tag.ID)
	require.NoError(t, err)
	second, err := env.tags.AddToSnippet(ctx, alice, s.ID, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	tags, err := env.tags.GetForSnippet(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestTagAddToSnippet_Ownership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	alicesTag := env.newTag(t, alice, "a")
	bobsTag := env.newTag(t, bob, "b")
	alicesSnippet := env.newSnippet(t, alice, "s")

	_, err := env.tags.AddToSnippet(ctx, alice, alicesSnippet.ID, bobsTag.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.tags.AddToSnippet(ctx, bob, alicesSnippet.ID, alicesTag.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTagRemoveFromSnippet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	tag := env.newTag(t, alice, "t")
	s := env.newSnippet(t, alice, "s", tag.ID)

	require.NoError(t, env.tags.RemoveFromSnippet(ctx, alice, s.ID, tag.ID))

	err := env.tags.RemoveFromSnippet(ctx, alice, s.ID, tag.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTagDelete_DetachesFromAllSnippets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	tag := env.newTag(t, alice, "shared")
	keep := env.newTag(t, alice, "keep")
	s1 := env.newSnippet(t, alice, "one", tag.ID, keep.ID)
	s2 := env.newSnippet(t, alice, "two", tag.ID)

	require.NoError(t, env.tags.Delete(ctx, alice, tag.ID))

	for _, s := range []string{s1.ID, s2.ID} {
		tags, err := env.tags.GetForSnippet(ctx, alice, s)
		require.NoError(t, err)
		for _, got := range tags {
			assert.NotEqual(t, tag.ID, got.ID)
		}
	}
	all, err := env.tags.GetAll(ctx, alice)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)
}

func TestTagDelete_OtherUserGetsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	tag := env.newTag(t, alice, "mine")

	assert.ErrorIs(t, env.tags.Delete(ctx, bob, tag.ID), apperror.ErrNotFound)

	all, err := env.tags.GetAll(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
