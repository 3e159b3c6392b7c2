package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/domain"
)

// SQLiteStore implements Store backed by SQLite. Profiles are stored as a
// JSON array on the user row.
type SQLiteStore struct {
	db *DB
}

// NewSQLiteStore creates a store using the given database.
func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// LoadUsers returns every stored user.
func (s *SQLiteStore) LoadUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT discord_id, dm_channel_id, profiles FROM users ORDER BY discord_id`)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var profiles string
		if err := rows.Scan(&u.DiscordID, &u.DMChannelID, &profiles); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		if err := json.Unmarshal([]byte(profiles), &u.Profiles); err != nil {
			return nil, fmt.Errorf("decoding profiles of user %s: %w", u.DiscordID, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// PutUser inserts or replaces a user.
func (s *SQLiteStore) PutUser(ctx context.Context, u domain.User) error {
	profiles := u.Profiles
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("encoding profiles: %w", err)
	}

	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO users (discord_id, dm_channel_id, profiles, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(discord_id) DO UPDATE SET
		   dm_channel_id = excluded.dm_channel_id,
		   profiles = excluded.profiles,
		   updated_at = excluded.updated_at`,
		u.DiscordID, u.DMChannelID, string(data), time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", u.DiscordID, err)
	}
	return nil
}

// LoadChannels returns every stored channel.
func (s *SQLiteStore) LoadChannels(ctx context.Context) ([]discord.Channel, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, type, guild_id, name FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}
	defer rows.Close()

	var channels []discord.Channel
	for rows.Next() {
		var ch discord.Channel
		if err := rows.Scan(&ch.ID, &ch.Type, &ch.GuildID, &ch.Name); err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// PutChannel inserts or replaces a channel.
func (s *SQLiteStore) PutChannel(ctx context.Context, ch discord.Channel) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO channels (id, type, guild_id, name, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   type = excluded.type,
		   guild_id = excluded.guild_id,
		   name = excluded.name,
		   updated_at = excluded.updated_at`,
		ch.ID, int(ch.Type), ch.GuildID, ch.Name, time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("saving channel %s: %w", ch.ID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
