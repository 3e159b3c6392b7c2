package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users",
		SQL: `
			CREATE TABLE users (
				discord_id     TEXT PRIMARY KEY,
				dm_channel_id  TEXT NOT NULL DEFAULT '',
				profiles       TEXT NOT NULL DEFAULT '[]',
				updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "create channels",
		SQL: `
			CREATE TABLE channels (
				id          TEXT PRIMARY KEY,
				type        INTEGER NOT NULL,
				guild_id    TEXT NOT NULL DEFAULT '',
				name        TEXT NOT NULL DEFAULT '',
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_channels_guild ON channels (guild_id);
		`,
	},
}
