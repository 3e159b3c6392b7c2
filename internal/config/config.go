package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Discord: DiscordConfig{
			APIURL:                "https://discordapp.com/api",
			GatewayVersion:        6,
			ConnectTimeoutSeconds: 30,
			RequireHeartbeatAck:   true,
			RequestsPerSecond:     5,
			Burst:                 5,
			RequestTimeoutSeconds: 30,
		},
		Bot: BotConfig{
			Name:              "cpbot",
			Activity:          "with contests",
			Triggers:          []string{";cp"},
			TimeZone:          "Asia/Kolkata",
			ContestsPerPage:   5,
			HelpPerPage:       4,
			PageActiveMinutes: 15,
			PageDelaySeconds:  120,
		},
		Sites: SitesConfig{
			AtCoder: SiteConfig{
				Enabled:               true,
				ContestRefreshSeconds: 600,
				ProfileRefreshSeconds: 2700,
				ProfileDelaySeconds:   10,
			},
			CodeChef: SiteConfig{
				Enabled:               true,
				ContestRefreshSeconds: 600,
				ProfileRefreshSeconds: 2700,
				ProfileDelaySeconds:   10,
			},
			Codeforces: SiteConfig{
				Enabled:               true,
				ContestRefreshSeconds: 600,
				ProfileRefreshSeconds: 1800,
				ProfileDelaySeconds:   5,
			},
			FetchTimeoutSeconds:    30,
			BreakerFailures:        3,
			BreakerCooldownSeconds: 120,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Mongo: MongoConfig{
				Database:       "cpbot",
				TimeoutSeconds: 10,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "console",
		},
		Monitor: MonitorConfig{
			Bind: "loopback",
			Port: 18790,
		},
	}
}
