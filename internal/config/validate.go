package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Discord validation
	if strings.Contains(cfg.Discord.Token, "${") {
		add("discord.token", "unresolved environment reference %q", cfg.Discord.Token)
	}
	if cfg.Discord.APIURL != "" && !strings.HasPrefix(cfg.Discord.APIURL, "http://") && !strings.HasPrefix(cfg.Discord.APIURL, "https://") {
		add("discord.apiUrl", "must be an http(s) URL, got %q", cfg.Discord.APIURL)
	}
	if cfg.Discord.GatewayVersion < 0 {
		add("discord.gatewayVersion", "must be positive, got %d", cfg.Discord.GatewayVersion)
	}
	if cfg.Discord.ConnectTimeoutSeconds < 0 {
		add("discord.connectTimeoutSeconds", "must not be negative, got %d", cfg.Discord.ConnectTimeoutSeconds)
	}
	if cfg.Discord.RequestsPerSecond < 0 {
		add("discord.requestsPerSecond", "must not be negative, got %v", cfg.Discord.RequestsPerSecond)
	}
	if cfg.Discord.Burst < 0 {
		add("discord.burst", "must not be negative, got %d", cfg.Discord.Burst)
	}

	// Bot validation
	if cfg.Bot.TimeZone != "" {
		if _, err := time.LoadLocation(cfg.Bot.TimeZone); err != nil {
			add("bot.timeZone", "unknown time zone %q", cfg.Bot.TimeZone)
		}
	}
	for i, trigger := range cfg.Bot.Triggers {
		if strings.TrimSpace(trigger) == "" || strings.ContainsAny(trigger, " \t\n") {
			add(fmt.Sprintf("bot.triggers[%d]", i), "must be a single non-empty word, got %q", trigger)
		}
	}
	if cfg.Bot.ContestsPerPage < 0 {
		add("bot.contestsPerPage", "must not be negative, got %d", cfg.Bot.ContestsPerPage)
	}
	if cfg.Bot.ContestsPerPage > 25 {
		add("bot.contestsPerPage", "an embed holds at most 25 fields, got %d", cfg.Bot.ContestsPerPage)
	}

	// Sites validation
	for name, site := range map[string]SiteConfig{
		"atcoder":    cfg.Sites.AtCoder,
		"codechef":   cfg.Sites.CodeChef,
		"codeforces": cfg.Sites.Codeforces,
	} {
		if site.ContestRefreshSeconds < 0 {
			add("sites."+name+".contestRefreshSeconds", "must not be negative, got %d", site.ContestRefreshSeconds)
		}
		if site.ProfileRefreshSeconds < 0 {
			add("sites."+name+".profileRefreshSeconds", "must not be negative, got %d", site.ProfileRefreshSeconds)
		}
		if site.ProfileDelaySeconds < 0 {
			add("sites."+name+".profileDelaySeconds", "must not be negative, got %d", site.ProfileDelaySeconds)
		}
	}

	// Store validation
	validDrivers := []string{"sqlite", "memory", "mongo"}
	if cfg.Store.Driver != "" && !slices.Contains(validDrivers, cfg.Store.Driver) {
		add("store.driver", "must be one of %v, got %q", validDrivers, cfg.Store.Driver)
	}
	if cfg.Store.Driver == "mongo" && cfg.Store.Mongo.URI == "" {
		add("store.mongo.uri", "required when store.driver is mongo")
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validStyles := []string{"console", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		add("logging.style", "must be one of %v, got %q", validStyles, cfg.Logging.Style)
	}

	// Monitor validation
	if cfg.Monitor.Port < 0 || cfg.Monitor.Port > 65535 {
		add("monitor.port", "port must be 0-65535, got %d", cfg.Monitor.Port)
	}
	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Monitor.Bind != "" && !slices.Contains(validBinds, cfg.Monitor.Bind) {
		add("monitor.bind", "must be one of %v, got %q", validBinds, cfg.Monitor.Bind)
	}

	slices.SortStableFunc(issues, func(a, b ValidationIssue) int { return strings.Compare(a.Path, b.Path) })
	return issues
}

// RequireToken reports an issue when no bot token is configured. It is
// separate from Validate because offline commands work without a token.
func RequireToken(cfg *Config) *ValidationIssue {
	if cfg.Discord.Token == "" {
		return &ValidationIssue{Path: "discord.token", Message: "required (set DISCORD_TOKEN or discord.token)"}
	}
	return nil
}
