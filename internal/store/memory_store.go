package store

import (
	"context"
	"sort"
	"sync"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/domain"
)

// MemoryStore is a Store that keeps everything in process memory. Data is
// lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]domain.User
	channels map[string]discord.Channel
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		channels: make(map[string]discord.Channel),
	}
}

// LoadUsers returns copies of all users ordered by DiscordID.
func (m *MemoryStore) LoadUsers(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscordID < out[j].DiscordID })
	return out, nil
}

// PutUser stores a copy of u.
func (m *MemoryStore) PutUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.DiscordID] = u.Clone()
	return nil
}

// LoadChannels returns all channels ordered by ID.
func (m *MemoryStore) LoadChannels(context.Context) ([]discord.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]discord.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		ch.Recipients = nil
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutChannel stores ch.
func (m *MemoryStore) PutChannel(_ context.Context, ch discord.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = ch
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
