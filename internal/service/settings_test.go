package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsGet_Defaults(t *testing.T) {
	env := newTestEnv(t)
	alice := env.newUser(t, "alice@example.com")

	s, err := env.settings.Get(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUserName, s.UserName)
	assert.Equal(t, model.DisplayMarkdown, s.DefaultDisplayMode)
	assert.Empty(t, s.CustomAINames)
}

func TestSettingsUpdate_Partial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	plain := model.DisplayPlain
	_, err := env.settings.Update(ctx, alice, UpdateSettingsInput{DefaultDisplayMode: &plain})
	require.NoError(t, err)

	s, err := env.settings.Update(ctx, alice, UpdateSettingsInput{UserName: ptr("Alice")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", s.UserName)
	assert.Equal(t, model.DisplayPlain, s.DefaultDisplayMode)

	reloaded, err := env.settings.Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, s, reloaded)
}

func TestSettingsUpdate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	_, err := env.settings.UpdateUserName(ctx, alice, " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.settings.UpdateDisplayMode(ctx, alice, "html")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.settings.Update(ctx, alice, UpdateSettingsInput{CustomAINames: &[]string{"a", "a"}})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// A rejected update writes nothing.
	s, err := env.settings.Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUserName, s.UserName)
}

func TestCustomAINames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	_, err := env.settings.AddCustomAI(ctx, alice, "Perplexity")
	require.NoError(t, err)
	s, err := env.settings.AddCustomAI(ctx, alice, "Llama")
	require.NoError(t, err)
	assert.Equal(t, []string{"Perplexity", "Llama"}, s.CustomAINames)

	_, err = env.settings.AddCustomAI(ctx, alice, "Llama")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	s, err = env.settings.RemoveCustomAI(ctx, alice, "Perplexity")
	require.NoError(t, err)
	assert.Equal(t, []string{"Llama"}, s.CustomAINames)

	s, err = env.settings.RemoveCustomAI(ctx, alice, "never added")
	require.NoError(t, err)
	assert.Equal(t, []string{"Llama"}, s.CustomAINames)
}

func TestCustomAINames_Limit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	for i := range MaxCustomAINames {
		_, err := env.settings.AddCustomAI(ctx, alice, fmt.Sprintf("ai-%d", i))
		require.NoError(t, err)
	}
	_, err := env.settings.AddCustomAI(ctx, alice, "overflow")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
