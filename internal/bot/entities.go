package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/domain"
	"github.com/soyeahso/cpbot/internal/store"
)

// Entities caches users and channels in memory and writes every change
// through to the store. Safe for concurrent use.
type Entities struct {
	store store.Store

	mu       sync.RWMutex
	users    map[string]domain.User
	channels map[string]discord.Channel
}

// NewEntities creates an empty cache over s. Call Load to fill it.
func NewEntities(s store.Store) *Entities {
	return &Entities{
		store:    s,
		users:    make(map[string]domain.User),
		channels: make(map[string]discord.Channel),
	}
}

// Load replaces the cache with the store's contents.
func (e *Entities) Load(ctx context.Context) error {
	users, err := e.store.LoadUsers(ctx)
	if err != nil {
		return err
	}
	channels, err := e.store.LoadChannels(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.users = make(map[string]domain.User, len(users))
	for _, u := range users {
		e.users[u.DiscordID] = u
	}
	e.channels = make(map[string]discord.Channel, len(channels))
	for _, ch := range channels {
		e.channels[ch.ID] = ch
	}
	return nil
}

// Users returns a snapshot of all users ordered by DiscordID.
func (e *Entities) Users() []domain.User {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.User, 0, len(e.users))
	for _, u := range e.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscordID < out[j].DiscordID })
	return out
}

// User returns a copy of the user with the given ID.
func (e *Entities) User(id string) (domain.User, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	u, ok := e.users[id]
	if !ok {
		return domain.User{}, false
	}
	return u.Clone(), true
}

// CreateUser registers a user if it is not known yet. An existing user keeps
// its profiles; its DM channel is updated when it differs.
func (e *Entities) CreateUser(ctx context.Context, id, dmChannelID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.users[id]
	if ok && u.DMChannelID == dmChannelID {
		return nil
	}
	u = u.Clone()
	u.DiscordID = id
	u.DMChannelID = dmChannelID
	return e.putLocked(ctx, u)
}

// SetProfile stores p on the user, replacing the profile for the same site.
// It reports whether the name or rating differs from what was stored; a
// profile seen for the first time counts as changed.
func (e *Entities) SetProfile(ctx context.Context, userID string, p domain.Profile) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.users[userID]
	if !ok {
		return false, fmt.Errorf("unknown user %s", userID)
	}
	old, existed := u.Profile(p.SiteTag)
	if existed && old.Equal(p) {
		return false, nil
	}

	u = u.Clone()
	u.SetProfile(p)
	if err := e.putLocked(ctx, u); err != nil {
		return false, err
	}
	return !existed || !old.SameNameAndRating(p), nil
}

// DeleteProfile removes the user's profile for a site and reports whether
// there was one.
func (e *Entities) DeleteProfile(ctx context.Context, userID, siteTag string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.users[userID]
	if !ok {
		return false, nil
	}
	u = u.Clone()
	if !u.DeleteProfile(siteTag) {
		return false, nil
	}
	if err := e.putLocked(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}

// Channel returns a cached channel.
func (e *Entities) Channel(id string) (discord.Channel, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ch, ok := e.channels[id]
	return ch, ok
}

// SaveChannel stores ch.
func (e *Entities) SaveChannel(ctx context.Context, ch discord.Channel) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.PutChannel(ctx, ch); err != nil {
		return err
	}
	ch.Recipients = nil
	e.channels[ch.ID] = ch
	return nil
}

// Counts returns the number of cached users and channels.
func (e *Entities) Counts() (users, channels int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.users), len(e.channels)
}

func (e *Entities) putLocked(ctx context.Context, u domain.User) error {
	if err := e.store.PutUser(ctx, u); err != nil {
		return err
	}
	e.users[u.DiscordID] = u
	return nil
}
