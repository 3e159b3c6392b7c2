package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Agent  string
	Body   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Auth:   r.Header.Get("Authorization"),
		Agent:  r.Header.Get("User-Agent"),
		Body:   string(body),
	})
	status, response := f.status, f.response
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, response)
}

func (f *fakeAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		Token:     "secret",
		BaseURL:   srv.URL + "/api/",
		UserAgent: "cpbot-test",
	}, logging.New(nil, "silent"))
}

// --- Request shape tests ---

func TestClient_Gateway(t *testing.T) {
	api := &fakeAPI{response: `{"url":"wss://gateway.example"}`}
	c := newTestClient(t, api)

	got, err := c.Gateway(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://gateway.example", got)

	req := api.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/gateway", req.Path)
	assert.Equal(t, "Bot secret", req.Auth)
	assert.Equal(t, "cpbot-test", req.Agent)
}

func TestClient_Gateway_EmptyURL(t *testing.T) {
	api := &fakeAPI{response: `{}`}
	c := newTestClient(t, api)

	_, err := c.Gateway(context.Background())
	assert.Error(t, err)
}

func TestClient_SendMessage(t *testing.T) {
	api := &fakeAPI{response: `{"id":"99","channel_id":"10","content":"beep"}`}
	c := newTestClient(t, api)

	msg, err := c.SendText(context.Background(), "10", "beep")
	require.NoError(t, err)
	assert.Equal(t, "99", msg.ID)

	req := api.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/channels/10/messages", req.Path)
	assert.JSONEq(t, `{"content":"beep"}`, req.Body)
}

func TestClient_SendEmbed(t *testing.T) {
	api := &fakeAPI{response: `{"id":"1"}`}
	c := newTestClient(t, api)

	_, err := c.SendEmbed(context.Background(), "10", Embed{
		Title:  "Upcoming contests",
		Fields: []EmbedField{{Name: "a", Value: "b"}},
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.last(t).Body), &body))
	embed := body["embed"].(map[string]any)
	assert.Equal(t, "Upcoming contests", embed["title"])
}

func TestClient_EditMessage(t *testing.T) {
	api := &fakeAPI{response: `{"id":"5"}`}
	c := newTestClient(t, api)

	_, err := c.EditMessage(context.Background(), "10", "5", MessageEdit{Embed: &Embed{Title: "page 2"}})
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/channels/10/messages/5", req.Path)
}

func TestClient_Reactions(t *testing.T) {
	api := &fakeAPI{status: http.StatusNoContent}
	c := newTestClient(t, api)
	ctx := context.Background()

	require.NoError(t, c.AddReaction(ctx, "10", "5", "◀"))
	req := api.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/channels/10/messages/5/reactions/%E2%97%80/@me", req.Path)

	require.NoError(t, c.RemoveOwnReaction(ctx, "10", "5", "▶"))
	req = api.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/channels/10/messages/5/reactions/%E2%96%B6/@me", req.Path)

	require.NoError(t, c.RemoveUserReaction(ctx, "10", "5", "▶", "77"))
	assert.Equal(t, "/api/channels/10/messages/5/reactions/%E2%96%B6/77", api.last(t).Path)

	require.NoError(t, c.DeleteAllReactions(ctx, "10", "5"))
	req = api.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/channels/10/messages/5/reactions", req.Path)
}

func TestClient_GetChannel(t *testing.T) {
	api := &fakeAPI{response: `{"id":"10","type":1,"recipients":[{"id":"7","username":"alice"}]}`}
	c := newTestClient(t, api)

	ch, err := c.GetChannel(context.Background(), "10")
	require.NoError(t, err)
	assert.True(t, ch.IsDM())
	assert.Equal(t, "alice", ch.Recipients[0].Username)
	assert.Equal(t, "/api/channels/10", api.last(t).Path)
}

func TestClient_CreateDM(t *testing.T) {
	api := &fakeAPI{response: `{"id":"200","type":1}`}
	c := newTestClient(t, api)

	ch, err := c.CreateDM(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "200", ch.ID)

	req := api.last(t)
	assert.Equal(t, "/api/users/@me/channels", req.Path)
	assert.JSONEq(t, `{"recipient_id":"7"}`, req.Body)
}

func TestClient_TriggerTyping(t *testing.T) {
	api := &fakeAPI{status: http.StatusNoContent}
	c := newTestClient(t, api)

	require.NoError(t, c.TriggerTyping(context.Background(), "10"))
	assert.Equal(t, "/api/channels/10/typing", api.last(t).Path)
}

// --- Error tests ---

func TestClient_APIError(t *testing.T) {
	api := &fakeAPI{status: http.StatusForbidden, response: `{"message":"Missing Access","code":50001}`}
	c := newTestClient(t, api)

	_, err := c.SendText(context.Background(), "10", "hi")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Missing Access")
	assert.False(t, IsNotFound(err))
}

func TestClient_NotFound(t *testing.T) {
	api := &fakeAPI{status: http.StatusNotFound, response: `{"message":"Unknown Channel"}`}
	c := newTestClient(t, api)

	_, err := c.GetChannel(context.Background(), "404")
	assert.True(t, IsNotFound(err))
}

func TestClient_NoRetry(t *testing.T) {
	api := &fakeAPI{status: http.StatusTooManyRequests, response: `{"retry_after":1}`}
	c := newTestClient(t, api)

	_, err := c.SendText(context.Background(), "10", "hi")
	require.Error(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.requests, 1)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(ClientConfig{Token: "t", BaseURL: srv.URL}, logging.New(nil, "silent"))
	_, err := c.Gateway(context.Background())
	assert.Error(t, err)
}

func TestClient_RateLimiterHonorsContext(t *testing.T) {
	api := &fakeAPI{response: `{"url":"wss://x"}`}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := NewClient(ClientConfig{
		Token:             "t",
		BaseURL:           srv.URL,
		RequestsPerSecond: 0.001,
		Burst:             1,
	}, logging.New(nil, "silent"))

	_, err := c.Gateway(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Gateway(ctx)
	assert.Error(t, err, "second call exceeds the bucket and the deadline")
}

// --- Model tests ---

func TestUser_Helpers(t *testing.T) {
	u := User{ID: "42", Username: "cpbot", Discriminator: "1234"}
	assert.Equal(t, "<@42>", u.Mention())
	assert.Equal(t, "cpbot#1234", u.Tag())

	u.Discriminator = "0"
	assert.Equal(t, "cpbot", u.Tag())
}

func TestMessage_FromBot(t *testing.T) {
	assert.False(t, Message{Author: &User{ID: "1"}}.FromBot())
	assert.True(t, Message{Author: &User{ID: "1", Bot: true}}.FromBot())
	assert.True(t, Message{WebhookID: "w"}.FromBot())
}

func TestEmoji_APIName(t *testing.T) {
	assert.Equal(t, "◀", Emoji{Name: "◀"}.APIName())
	assert.Equal(t, "party:123", Emoji{ID: "123", Name: "party"}.APIName())
}

func TestChannelType_String(t *testing.T) {
	assert.Equal(t, "dm", ChannelDM.String())
	assert.Equal(t, "channel_type(9)", ChannelType(9).String())
}
