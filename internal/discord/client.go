// Package discord is a thin REST client for the chat platform's HTTP API
// together with the data models shared with the gateway.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

// DefaultBaseURL is the platform API root.
const DefaultBaseURL = "https://discordapp.com/api"

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d) %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Token             string
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64 // <= 0 disables pacing
	Burst             int
	Timeout           time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records request counts and durations.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// Client issues authenticated REST calls. It is safe for concurrent use.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *logging.Logger
}

// NewClient creates a REST client.
func NewClient(cfg ClientConfig, log *logging.Logger, opts ...ClientOption) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:   base,
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		log:       log.Sub("rest"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gateway returns the websocket URL to connect to.
func (c *Client) Gateway(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/gateway", nil, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("gateway response has no url")
	}
	return out.URL, nil
}

// SendMessage posts a message to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg MessageSend) (*Message, error) {
	var out Message
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendText posts a plain text message to a channel.
func (c *Client) SendText(ctx context.Context, channelID, content string) (*Message, error) {
	return c.SendMessage(ctx, channelID, MessageSend{Content: content})
}

// SendEmbed posts an embed to a channel.
func (c *Client) SendEmbed(ctx context.Context, channelID string, embed Embed) (*Message, error) {
	return c.SendMessage(ctx, channelID, MessageSend{Embed: &embed})
}

// EditMessage replaces the content or embed of an existing message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, edit MessageEdit) (*Message, error) {
	var out Message
	path := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	if err := c.do(ctx, http.MethodPatch, path, edit, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetChannel fetches a channel by ID.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var out Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDM opens (or returns the existing) direct message channel with a user.
func (c *Client) CreateDM(ctx context.Context, recipientID string) (*Channel, error) {
	var out Channel
	body := map[string]string{"recipient_id": recipientID}
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddReaction reacts to a message as the bot.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return c.do(ctx, http.MethodPut, reactionPath(channelID, messageID, emoji)+"/@me", nil, nil)
}

// RemoveOwnReaction removes the bot's reaction from a message.
func (c *Client) RemoveOwnReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return c.do(ctx, http.MethodDelete, reactionPath(channelID, messageID, emoji)+"/@me", nil, nil)
}

// RemoveUserReaction removes another user's reaction from a message.
func (c *Client) RemoveUserReaction(ctx context.Context, channelID, messageID, emoji, userID string) error {
	return c.do(ctx, http.MethodDelete, reactionPath(channelID, messageID, emoji)+"/"+url.PathEscape(userID), nil, nil)
}

// DeleteAllReactions clears every reaction on a message.
func (c *Client) DeleteAllReactions(ctx context.Context, channelID, messageID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID) + "/reactions"
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// TriggerTyping shows the typing indicator in a channel.
func (c *Client) TriggerTyping(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/typing", nil, nil)
}

func reactionPath(channelID, messageID, emoji string) string {
	return "/channels/" + url.PathEscape(channelID) +
		"/messages/" + url.PathEscape(messageID) +
		"/reactions/" + url.PathEscape(emoji)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordREST(method, "error", time.Since(start).Seconds())
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordREST(method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
