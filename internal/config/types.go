package config

import "time"

// Config is the top-level cpbot configuration.
type Config struct {
	Discord DiscordConfig `yaml:"discord" json:"discord"`
	Bot     BotConfig     `yaml:"bot" json:"bot"`
	Sites   SitesConfig   `yaml:"sites" json:"sites"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`
}

// DiscordConfig configures the platform connection.
type DiscordConfig struct {
	Token                 string  `yaml:"token" json:"-"`
	APIURL                string  `yaml:"apiUrl" json:"apiUrl"`
	GatewayVersion        int     `yaml:"gatewayVersion" json:"gatewayVersion"`
	ConnectTimeoutSeconds int     `yaml:"connectTimeoutSeconds" json:"connectTimeoutSeconds"`
	RequireHeartbeatAck   bool    `yaml:"requireHeartbeatAck" json:"requireHeartbeatAck"`
	RequestsPerSecond     float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst                 int     `yaml:"burst" json:"burst"`
	RequestTimeoutSeconds int     `yaml:"requestTimeoutSeconds" json:"requestTimeoutSeconds"`
}

// ConnectTimeout returns the gateway connect timeout.
func (d DiscordConfig) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSeconds) * time.Second
}

// RequestTimeout returns the REST request timeout.
func (d DiscordConfig) RequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeoutSeconds) * time.Second
}

// BotConfig configures the command layer.
type BotConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Activity string   `yaml:"activity,omitempty" json:"activity,omitempty"`
	Triggers []string `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	// Channels restricts guild commands to these channel IDs; empty allows all.
	Channels        []string `yaml:"channels,omitempty" json:"channels,omitempty"`
	TimeZone        string   `yaml:"timeZone" json:"timeZone"`
	AuthorID        string   `yaml:"authorId,omitempty" json:"authorId,omitempty"`
	SourceURL       string   `yaml:"sourceUrl,omitempty" json:"sourceUrl,omitempty"`
	ContestsPerPage int      `yaml:"contestsPerPage" json:"contestsPerPage"`
	HelpPerPage     int      `yaml:"helpPerPage" json:"helpPerPage"`
	// Paginated messages stay interactive for PageActiveMinutes, extended by
	// PageDelaySeconds after each page change.
	PageActiveMinutes int `yaml:"pageActiveMinutes" json:"pageActiveMinutes"`
	PageDelaySeconds  int `yaml:"pageDelaySeconds" json:"pageDelaySeconds"`
}

// PageActive returns how long a paginated message stays interactive.
func (b BotConfig) PageActive() time.Duration {
	return time.Duration(b.PageActiveMinutes) * time.Minute
}

// PageDelay returns the expiry extension after a page change.
func (b BotConfig) PageDelay() time.Duration {
	return time.Duration(b.PageDelaySeconds) * time.Second
}

// SitesConfig configures the contest site fetchers.
type SitesConfig struct {
	AtCoder    SiteConfig `yaml:"atcoder" json:"atcoder"`
	CodeChef   SiteConfig `yaml:"codechef" json:"codechef"`
	Codeforces SiteConfig `yaml:"codeforces" json:"codeforces"`

	FetchTimeoutSeconds    int `yaml:"fetchTimeoutSeconds" json:"fetchTimeoutSeconds"`
	BreakerFailures        int `yaml:"breakerFailures" json:"breakerFailures"`
	BreakerCooldownSeconds int `yaml:"breakerCooldownSeconds" json:"breakerCooldownSeconds"`
}

// SiteConfig configures one site.
type SiteConfig struct {
	Enabled               bool   `yaml:"enabled" json:"enabled"`
	BaseURL               string `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	ContestRefreshSeconds int    `yaml:"contestRefreshSeconds" json:"contestRefreshSeconds"`
	ProfileRefreshSeconds int    `yaml:"profileRefreshSeconds" json:"profileRefreshSeconds"`
	ProfileDelaySeconds   int    `yaml:"profileDelaySeconds" json:"profileDelaySeconds"`
}

// ContestRefresh returns the contest refresh interval.
func (s SiteConfig) ContestRefresh() time.Duration {
	return time.Duration(s.ContestRefreshSeconds) * time.Second
}

// ProfileRefresh returns the profile refresh interval.
func (s SiteConfig) ProfileRefresh() time.Duration {
	return time.Duration(s.ProfileRefreshSeconds) * time.Second
}

// ProfileDelay returns the pause between two profile fetches.
func (s SiteConfig) ProfileDelay() time.Duration {
	return time.Duration(s.ProfileDelaySeconds) * time.Second
}

// StoreConfig selects and configures persistence.
type StoreConfig struct {
	Driver string      `yaml:"driver" json:"driver"` // "sqlite" | "memory" | "mongo"
	Path   string      `yaml:"path,omitempty" json:"path,omitempty"`
	Mongo  MongoConfig `yaml:"mongo" json:"mongo"`
}

// MongoConfig configures the MongoDB store.
type MongoConfig struct {
	URI            string `yaml:"uri,omitempty" json:"-"`
	Database       string `yaml:"database" json:"database"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" json:"timeoutSeconds"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Style string `yaml:"style" json:"style"` // "console" | "json"
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// MonitorConfig configures the health/metrics HTTP server.
type MonitorConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	Bind           string `yaml:"bind" json:"bind"` // "loopback" | "lan" | "custom"
	CustomBindHost string `yaml:"customBindHost,omitempty" json:"customBindHost,omitempty"`
	Port           int    `yaml:"port" json:"port"`
}
