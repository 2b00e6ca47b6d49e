// Package rest is the HTTP client for the platform's REST API: the OAuth2
// token exchange, application command CRUD, and interaction webhooks.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/interaction"
)

// Defaults for the public API.
const (
	DefaultBaseURL = "https://discord.com/api/v10"
	DefaultTimeout = 30 * time.Second

	// ScopeCommandsUpdate is the client-credentials scope needed to manage commands.
	ScopeCommandsUpdate = "applications.commands.update"
)

const maxResponseBody = 1 << 20 // 1MB cap on error and result bodies

// APIError is a non-2xx response, carried verbatim.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Client performs REST calls. It is safe for concurrent use.
type Client struct {
	baseURL   string
	tokenURL  string
	userAgent string
	client    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (e.g. a test server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTokenURL overrides the OAuth2 token endpoint. Defaults to {baseURL}/oauth2/token.
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client = &http.Client{Timeout: d} }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a REST client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: "DiscordBot (https://github.com/xraph/herald, 1.0)",
		client:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	if c.tokenURL == "" {
		c.tokenURL = c.baseURL + "/oauth2/token"
	}
	return c
}

// ExchangeCredentials trades the application's client id and secret for a
// bearer token scoped to command management.
func (c *Client) ExchangeCredentials(ctx context.Context, clientID, clientSecret string) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenURL,
		Scopes:       []string{ScopeCommandsUpdate},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", &APIError{
				Method:     http.MethodPost,
				Endpoint:   c.tokenURL,
				StatusCode: re.Response.StatusCode,
				Body:       string(re.Body),
			}
		}
		return "", fmt.Errorf("rest: exchange credentials: %w", err)
	}
	return tok.AccessToken, nil
}

// ListCommands returns every command registered in the scope.
func (c *Client) ListCommands(ctx context.Context, appID, token, guildID string) ([]command.Remote, error) {
	var out []command.Remote
	if err := c.do(ctx, http.MethodGet, commandsPath(appID, guildID), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCommand registers a new command in the scope.
func (c *Client) CreateCommand(ctx context.Context, appID, token string, spec command.Spec, guildID string) (command.Remote, error) {
	var out command.Remote
	err := c.do(ctx, http.MethodPost, commandsPath(appID, guildID), token, spec, &out)
	return out, err
}

// PatchCommand updates the given top-level fields of a command.
func (c *Client) PatchCommand(ctx context.Context, appID, token, commandID string, patch map[string]any, guildID string) (command.Remote, error) {
	var out command.Remote
	err := c.do(ctx, http.MethodPatch, commandsPath(appID, guildID)+"/"+url.PathEscape(commandID), token, patch, &out)
	return out, err
}

// DeleteCommand removes a command from the scope.
func (c *Client) DeleteCommand(ctx context.Context, appID, token, commandID, guildID string) error {
	return c.do(ctx, http.MethodDelete, commandsPath(appID, guildID)+"/"+url.PathEscape(commandID), token, nil, nil)
}

// EditOriginalResponse edits the message created by an interaction response.
// The interaction token authorizes the call.
func (c *Client) EditOriginalResponse(ctx context.Context, appID, interactionToken string, msg *interaction.Message) (*interaction.Message, error) {
	var out interaction.Message
	if err := c.do(ctx, http.MethodPatch, webhookPath(appID, interactionToken)+"/messages/@original", "", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendFollowupMessage posts an additional message for an interaction.
func (c *Client) SendFollowupMessage(ctx context.Context, appID, interactionToken string, msg *interaction.Message) (*interaction.Message, error) {
	var out interaction.Message
	if err := c.do(ctx, http.MethodPost, webhookPath(appID, interactionToken), "", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rest: marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("rest: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("rest: %s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Method:     method,
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("rest: %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func commandsPath(appID, guildID string) string {
	if guildID != "" {
		return "/applications/" + url.PathEscape(appID) + "/guilds/" + url.PathEscape(guildID) + "/commands"
	}
	return "/applications/" + url.PathEscape(appID) + "/commands"
}

func webhookPath(appID, token string) string {
	return "/webhooks/" + url.PathEscape(appID) + "/" + url.PathEscape(token)
}
