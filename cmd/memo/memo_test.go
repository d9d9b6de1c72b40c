package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/config"
	"github.com/sakif/chat-memo/internal/server"
)

type cliEnv struct {
	t          *testing.T
	url        string
	configFile string
	tokenFile  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	cfg := &config.Config{
		Listen:   ":0",
		LogLevel: "error",
		Database: config.DatabaseConfig{Path: ":memory:"},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-at-least-16-chars!!",
			TokenTTL:  time.Hour,
		},
	}
	srv, err := server.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "session", "token")
	configFile := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("token_file: "+tokenFile+"\n"), 0o600))

	return &cliEnv{t: t, url: ts.URL, configFile: configFile, tokenFile: tokenFile}
}

// run executes one memo invocation and returns everything it printed.
func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configFile, "--server", e.url}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) must(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, out)
	return out
}

func (e *cliEnv) signIn() {
	e.t.Helper()
	e.must("register", "cli@example.com", "--password", "abcd1234")
	e.must("login", "cli@example.com", "--password", "abcd1234")
}

func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	return fields[len(fields)-1]
}

func TestMemo_LoginStoresSession(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run("abcd1234\n", "register", "cli@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created")

	out, err = e.run("abcd1234\n", "login", "cli@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as cli@example.com")

	info, err := os.Stat(e.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Contains(t, e.must("snippet", "ls"), "No snippets")

	e.must("logout")
	_, err = os.Stat(e.tokenFile)
	assert.True(t, os.IsNotExist(err))

	_, err = e.run("", "snippet", "ls")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestMemo_SnippetsAndMessages(t *testing.T) {
	e := newCLIEnv(t)
	e.signIn()

	tagID := createdID(t, e.must("tag", "new", "go", "--color", "#00add8"))
	snippetID := createdID(t, e.must("snippet", "new", "Generics chat", "--tag", tagID))

	e.must("msg", "add", snippetID, "How do type parameters work?")
	e.must("msg", "add", snippetID, "Like this.", "--ai", "Claude", "--mode", "plain")

	out := e.must("snippet", "show", snippetID)
	assert.Contains(t, out, "Generics chat [go]")
	assert.Contains(t, out, "How do type parameters work?")
	assert.Contains(t, out, "Claude (ai, plain)")

	assert.Contains(t, e.must("snippet", "search", "generics"), "Generics chat")
	assert.Contains(t, e.must("snippet", "filter", tagID), "Generics chat")

	e.must("tag", "rename", tagID, "golang")
	assert.Contains(t, e.must("snippet", "ls"), "[golang]")
}

func TestMemo_DestructiveCommandsAsk(t *testing.T) {
	e := newCLIEnv(t)
	e.signIn()

	id := createdID(t, e.must("snippet", "new", "Keep me"))

	out, err := e.run("n\n", "snippet", "rm", id)
	assert.ErrorIs(t, err, errAborted)
	assert.Contains(t, out, "[y/N]")
	assert.Contains(t, e.must("snippet", "ls"), "Keep me")

	_, err = e.run("", "snippet", "rm", id)
	assert.ErrorIs(t, err, errAborted, "no answer means no")

	out, err = e.run("y\n", "snippet", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted snippet")
	assert.Contains(t, e.must("snippet", "ls"), "No snippets")

	id = createdID(t, e.must("snippet", "new", "Gone"))
	out = e.must("snippet", "rm", id, "--yes")
	assert.NotContains(t, out, "[y/N]")
}

func TestMemo_RolledBackChangeIsReported(t *testing.T) {
	e := newCLIEnv(t)
	e.signIn()

	out, err := e.run("", "settings", "mode", "fancy")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, out, "change rolled back")

	out = e.must("settings", "mode", "plain")
	assert.Contains(t, out, "Display mode:  plain")
}
