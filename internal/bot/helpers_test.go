package bot

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/dispatch"
	"github.com/soyeahso/cpbot/internal/domain"
	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	selfID    = "100"
	guildChan = "200"
	dmChan    = "300"
	userID    = "400"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	ChannelID string
	ID        string
	Msg       discord.MessageSend
}

type editedMessage struct {
	ChannelID string
	MessageID string
	Edit      discord.MessageEdit
}

type fakeREST struct {
	mu        sync.Mutex
	nextID    int
	channels  map[string]discord.Channel
	sent      []sentMessage
	edits     []editedMessage
	reactions []string
	cleared   []string
	typing    []string
	dms       []string
	getCalls  int
	sendErr   error
}

func newFakeREST() *fakeREST {
	return &fakeREST{channels: map[string]discord.Channel{
		guildChan: {ID: guildChan, Type: discord.ChannelGuildText, GuildID: "g1"},
		dmChan:    {ID: dmChan, Type: discord.ChannelDM},
	}}
}

func (f *fakeREST) SendMessage(_ context.Context, channelID string, msg discord.MessageSend) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, ID: id, Msg: msg})
	return &discord.Message{ID: id, ChannelID: channelID, Content: msg.Content}, nil
}

func (f *fakeREST) EditMessage(_ context.Context, channelID, messageID string, edit discord.MessageEdit) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{ChannelID: channelID, MessageID: messageID, Edit: edit})
	return &discord.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeREST) GetChannel(_ context.Context, channelID string) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, &discord.APIError{StatusCode: 404, Body: "Unknown Channel"}
	}
	return &ch, nil
}

func (f *fakeREST) CreateDM(_ context.Context, recipientID string) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, recipientID)
	return &discord.Channel{ID: "dm-" + recipientID, Type: discord.ChannelDM}, nil
}

func (f *fakeREST) AddReaction(_ context.Context, _, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, messageID+":"+emoji)
	return nil
}

func (f *fakeREST) DeleteAllReactions(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, messageID)
	return nil
}

func (f *fakeREST) TriggerTyping(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, channelID)
	return nil
}

func (f *fakeREST) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeREST) Edits() []editedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]editedMessage(nil), f.edits...)
}

func (f *fakeREST) Cleared() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleared...)
}

func (f *fakeREST) last(t *testing.T) sentMessage {
	t.Helper()
	sent := f.Sent()
	require.NotEmpty(t, sent, "no message sent")
	return sent[len(sent)-1]
}

type fakeIdentity struct {
	since time.Time
}

func (fakeIdentity) SelfUser() *discord.User {
	return &discord.User{ID: selfID, Username: "cpbot", Bot: true}
}

func (i fakeIdentity) ConnectedSince() time.Time { return i.since }

type fakeSites struct {
	names    map[string]string
	contests []domain.Contest
	fetched  map[string]time.Time
	profiles map[string]*domain.Profile
	fetchErr error

	lastN      int
	lastTags   []string
	lastBefore time.Time
}

func newFakeSites() *fakeSites {
	return &fakeSites{
		names:    map[string]string{"at": "AtCoder", "cc": "CodeChef", "cf": "Codeforces"},
		fetched:  map[string]time.Time{},
		profiles: map[string]*domain.Profile{},
	}
}

func (s *fakeSites) filter(tags []string) []domain.Contest {
	var out []domain.Contest
	for _, c := range s.contests {
		if len(tags) == 0 || slices.Contains(tags, c.SiteTag) {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSites) FutureContests(n int, tags []string) []domain.Contest {
	s.lastN, s.lastTags = n, tags
	out := s.filter(tags)
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func (s *fakeSites) ContestsBefore(t time.Time, tags []string) []domain.Contest {
	s.lastBefore, s.lastTags = t, tags
	var out []domain.Contest
	for _, c := range s.filter(tags) {
		if c.Start.Before(t) {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSites) SiteName(tag string) (string, bool) {
	name, ok := s.names[tag]
	return name, ok
}

func (s *fakeSites) Tags() []string { return []string{"at", "cc", "cf"} }

func (s *fakeSites) LastFetched() map[string]time.Time { return s.fetched }

func (s *fakeSites) FetchProfile(_ context.Context, tag, handle string) (*domain.Profile, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.profiles[tag+"/"+handle], nil
}

type testEnv struct {
	bot      *Bot
	rest     *fakeREST
	sites    *fakeSites
	registry *dispatch.Registry
	entities *Entities
	store    *store.MemoryStore
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	log := logging.New(nil, "silent")
	opts := Options{
		Name:       "cpbot",
		Triggers:   []string{";ai"},
		AuthorID:   "42",
		SourceURL:  "https://github.com/soyeahso/cpbot",
		PageActive: time.Minute,
		PageDelay:  time.Minute,
	}
	for _, m := range mutate {
		m(&opts)
	}

	st := store.NewMemoryStore()
	env := &testEnv{
		rest:     newFakeREST(),
		sites:    newFakeSites(),
		registry: dispatch.NewRegistry(log, nil),
		entities: NewEntities(st),
		store:    st,
	}
	env.bot = New(opts, Deps{
		REST:     env.rest,
		Identity: fakeIdentity{since: baseTime.Add(-90 * time.Minute)},
		Sites:    env.sites,
		Entities: env.entities,
		Registry: env.registry,
		Log:      log,
	})
	env.bot.now = func() time.Time { return baseTime }
	require.NoError(t, env.bot.Register())
	return env
}

func guildMessage(content string) *discord.Message {
	return &discord.Message{
		ID:        "u1",
		ChannelID: guildChan,
		GuildID:   "g1",
		Content:   content,
		Author:    &discord.User{ID: userID, Username: "alice"},
	}
}

func dmMessage(content string) *discord.Message {
	return &discord.Message{
		ID:        "u2",
		ChannelID: dmChan,
		Content:   content,
		Author:    &discord.User{ID: userID, Username: "alice"},
	}
}

// contestFixture describes a contest starting `in` after baseTime.
type contestFixture struct {
	name, tag, site string
	in, length      time.Duration
}

type contestFixtures []contestFixture

func (fs contestFixtures) build() []domain.Contest {
	out := make([]domain.Contest, 0, len(fs))
	for _, f := range fs {
		out = append(out, domain.Contest{
			Name:     f.name,
			SiteTag:  f.tag,
			SiteName: f.site,
			URL:      "https://example.com/" + f.tag,
			Start:    baseTime.Add(f.in),
			Length:   f.length,
		})
	}
	return out
}
