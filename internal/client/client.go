// Package client is the Go client of the Chat Memo API.
//
// Client is a thin typed wrapper over the HTTP routes. Session layers a
// local cache and optimistic updates on top of it for interactive front
// ends such as cmd/memo.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/model"
	"github.com/sakif/chat-memo/internal/service"
)

// Client calls the API with a Bearer token.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the session token, set by Login or WithToken.
func (c *Client) Token() string { return c.token }

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends body as JSON and decodes the response into out. API errors come
// back as *apperror.AppError carrying the server's sentinel, so
// errors.Is(err, apperror.ErrNotFound) works on this side too.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error == "" {
			return fmt.Errorf("client: %s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		return apperror.FromKind(eb.Error, eb.Message)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s: %w", method, path, err)
	}
	return nil
}

// =========================================================================
// Auth
// =========================================================================

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", credentials{email, password}, nil)
}

// Login stores the returned token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{email, password}, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	return &u, c.do(ctx, http.MethodGet, "/api/me", nil, &u)
}

// =========================================================================
// Snippets
// =========================================================================

func (c *Client) Snippets(ctx context.Context) ([]model.Snippet, error) {
	var out []model.Snippet
	return out, c.do(ctx, http.MethodGet, "/api/snippets", nil, &out)
}

func (c *Client) Snippet(ctx context.Context, id string) (*model.Snippet, error) {
	var s model.Snippet
	return &s, c.do(ctx, http.MethodGet, "/api/snippets/"+url.PathEscape(id), nil, &s)
}

func (c *Client) CreateSnippet(ctx context.Context, title string, tagIDs []string) (*model.Snippet, error) {
	var s model.Snippet
	body := map[string]any{"title": title, "tagIds": tagIDs}
	return &s, c.do(ctx, http.MethodPost, "/api/snippets", body, &s)
}

func (c *Client) UpdateSnippet(ctx context.Context, id string, in service.UpdateSnippetInput) (*model.Snippet, error) {
	var s model.Snippet
	return &s, c.do(ctx, http.MethodPatch, "/api/snippets/"+url.PathEscape(id), in, &s)
}

func (c *Client) DeleteSnippet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/snippets/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SearchSnippets(ctx context.Context, query string) ([]model.Snippet, error) {
	var out []model.Snippet
	return out, c.do(ctx, http.MethodGet, "/api/snippets/search?q="+url.QueryEscape(query), nil, &out)
}

func (c *Client) FilterSnippets(ctx context.Context, tagIDs []string) ([]model.Snippet, error) {
	q := url.Values{"tagId": tagIDs}
	var out []model.Snippet
	return out, c.do(ctx, http.MethodGet, "/api/snippets/filter?"+q.Encode(), nil, &out)
}

// =========================================================================
// Messages
// =========================================================================

func (c *Client) Messages(ctx context.Context, snippetID string) ([]model.Message, error) {
	var out []model.Message
	return out, c.do(ctx, http.MethodGet, "/api/snippets/"+url.PathEscape(snippetID)+"/messages", nil, &out)
}

func (c *Client) CreateMessage(ctx context.Context, in service.CreateMessageInput) (*model.Message, error) {
	var m model.Message
	return &m, c.do(ctx, http.MethodPost, "/api/snippets/"+url.PathEscape(in.SnippetID)+"/messages", in, &m)
}

func (c *Client) UpdateMessage(ctx context.Context, id string, in service.UpdateMessageInput) (*model.Message, error) {
	var m model.Message
	return &m, c.do(ctx, http.MethodPatch, "/api/messages/"+url.PathEscape(id), in, &m)
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(id), nil, nil)
}

// =========================================================================
// Tags
// =========================================================================

func (c *Client) Tags(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	return out, c.do(ctx, http.MethodGet, "/api/tags", nil, &out)
}

func (c *Client) CreateTag(ctx context.Context, name string, color *string) (*model.Tag, error) {
	var t model.Tag
	body := map[string]any{"name": name, "color": color}
	return &t, c.do(ctx, http.MethodPost, "/api/tags", body, &t)
}

func (c *Client) UpdateTag(ctx context.Context, id string, in service.UpdateTagInput) (*model.Tag, error) {
	var t model.Tag
	return &t, c.do(ctx, http.MethodPatch, "/api/tags/"+url.PathEscape(id), in, &t)
}

func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tags/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AddTagToSnippet(ctx context.Context, snippetID, tagID string) (*model.SnippetTag, error) {
	var st model.SnippetTag
	path := "/api/snippets/" + url.PathEscape(snippetID) + "/tags/" + url.PathEscape(tagID)
	return &st, c.do(ctx, http.MethodPut, path, nil, &st)
}

func (c *Client) RemoveTagFromSnippet(ctx context.Context, snippetID, tagID string) error {
	path := "/api/snippets/" + url.PathEscape(snippetID) + "/tags/" + url.PathEscape(tagID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) SnippetTags(ctx context.Context, snippetID string) ([]model.Tag, error) {
	var out []model.Tag
	return out, c.do(ctx, http.MethodGet, "/api/snippets/"+url.PathEscape(snippetID)+"/tags", nil, &out)
}

// =========================================================================
// AI providers
// =========================================================================

type providerBody struct {
	Name string  `json:"name"`
	Icon *string `json:"icon,omitempty"`
}

func (c *Client) AIProviders(ctx context.Context) ([]model.AIProvider, error) {
	var out []model.AIProvider
	return out, c.do(ctx, http.MethodGet, "/api/ai-providers", nil, &out)
}

func (c *Client) DefaultAIProviders(ctx context.Context) ([]model.AIProvider, error) {
	var out []model.AIProvider
	return out, c.do(ctx, http.MethodGet, "/api/ai-providers/defaults", nil, &out)
}

func (c *Client) EnsureDefaultAIProviders(ctx context.Context) ([]model.AIProvider, error) {
	var out []model.AIProvider
	return out, c.do(ctx, http.MethodPost, "/api/ai-providers/defaults", nil, &out)
}

func (c *Client) CreateAIProvider(ctx context.Context, name string, icon *string) (*model.AIProvider, error) {
	var p model.AIProvider
	return &p, c.do(ctx, http.MethodPost, "/api/ai-providers", providerBody{name, icon}, &p)
}

func (c *Client) UpdateAIProvider(ctx context.Context, id, name string, icon *string) (*model.AIProvider, error) {
	var p model.AIProvider
	return &p, c.do(ctx, http.MethodPut, "/api/ai-providers/"+url.PathEscape(id), providerBody{name, icon}, &p)
}

func (c *Client) DeleteAIProvider(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/ai-providers/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ActiveAIs(ctx context.Context) ([]model.UserActiveAI, error) {
	var out []model.UserActiveAI
	return out, c.do(ctx, http.MethodGet, "/api/ai-providers/active", nil, &out)
}

func (c *Client) ToggleActiveAI(ctx context.Context, providerID string, active bool) (*model.UserActiveAI, error) {
	var ua model.UserActiveAI
	body := map[string]bool{"isActive": active}
	return &ua, c.do(ctx, http.MethodPut, "/api/ai-providers/"+url.PathEscape(providerID)+"/active", body, &ua)
}

// =========================================================================
// Settings
// =========================================================================

func (c *Client) Settings(ctx context.Context) (*model.UserSettings, error) {
	var s model.UserSettings
	return &s, c.do(ctx, http.MethodGet, "/api/settings", nil, &s)
}

func (c *Client) UpdateSettings(ctx context.Context, in service.UpdateSettingsInput) (*model.UserSettings, error) {
	var s model.UserSettings
	return &s, c.do(ctx, http.MethodPatch, "/api/settings", in, &s)
}

func (c *Client) UpdateUserName(ctx context.Context, name string) (*model.UserSettings, error) {
	var s model.UserSettings
	return &s, c.do(ctx, http.MethodPut, "/api/settings/user-name", map[string]string{"userName": name}, &s)
}

func (c *Client) UpdateDisplayMode(ctx context.Context, mode model.DisplayMode) (*model.UserSettings, error) {
	var s model.UserSettings
	body := map[string]model.DisplayMode{"displayMode": mode}
	return &s, c.do(ctx, http.MethodPut, "/api/settings/display-mode", body, &s)
}

func (c *Client) AddCustomAI(ctx context.Context, name string) (*model.UserSettings, error) {
	var s model.UserSettings
	return &s, c.do(ctx, http.MethodPost, "/api/settings/custom-ais", map[string]string{"aiName": name}, &s)
}

func (c *Client) RemoveCustomAI(ctx context.Context, name string) (*model.UserSettings, error) {
	var s model.UserSettings
	return &s, c.do(ctx, http.MethodDelete, "/api/settings/custom-ais/"+url.PathEscape(name), nil, &s)
}
