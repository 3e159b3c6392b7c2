// Package store persists users and channels for the bot.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/domain"
	"github.com/soyeahso/cpbot/internal/logging"
)

// Store is the persistence layer behind the bot's entity cache.
type Store interface {
	LoadUsers(ctx context.Context) ([]domain.User, error)
	// PutUser inserts or replaces the user with the same DiscordID.
	PutUser(ctx context.Context, u domain.User) error
	LoadChannels(ctx context.Context) ([]discord.Channel, error)
	// PutChannel inserts or replaces the channel with the same ID.
	PutChannel(ctx context.Context, ch discord.Channel) error
	Close() error
}

// OpenFromConfig opens the store selected by cfg.Driver. defaultPath is used
// for SQLite when cfg.Path is empty.
func OpenFromConfig(ctx context.Context, cfg config.StoreConfig, defaultPath string, log *logging.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = defaultPath
		}
		db, err := Open(path, log)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil
	case "memory":
		return NewMemoryStore(), nil
	case "mongo":
		timeout := time.Duration(cfg.Mongo.TimeoutSeconds) * time.Second
		s, err := OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, timeout, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
