package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Discord.Token = expandEnvVars(cfg.Discord.Token)
	cfg.Store.Mongo.URI = expandEnvVars(cfg.Store.Mongo.URI)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()

	if cfg.Discord.APIURL == "" {
		cfg.Discord.APIURL = d.Discord.APIURL
	}
	if cfg.Discord.GatewayVersion == 0 {
		cfg.Discord.GatewayVersion = d.Discord.GatewayVersion
	}
	if cfg.Discord.ConnectTimeoutSeconds == 0 {
		cfg.Discord.ConnectTimeoutSeconds = d.Discord.ConnectTimeoutSeconds
	}
	if cfg.Discord.RequestTimeoutSeconds == 0 {
		cfg.Discord.RequestTimeoutSeconds = d.Discord.RequestTimeoutSeconds
	}
	if cfg.Bot.Name == "" {
		cfg.Bot.Name = d.Bot.Name
	}
	if cfg.Bot.TimeZone == "" {
		cfg.Bot.TimeZone = d.Bot.TimeZone
	}
	if cfg.Bot.ContestsPerPage == 0 {
		cfg.Bot.ContestsPerPage = d.Bot.ContestsPerPage
	}
	if cfg.Bot.HelpPerPage == 0 {
		cfg.Bot.HelpPerPage = d.Bot.HelpPerPage
	}
	if cfg.Bot.PageActiveMinutes == 0 {
		cfg.Bot.PageActiveMinutes = d.Bot.PageActiveMinutes
	}
	if cfg.Bot.PageDelaySeconds == 0 {
		cfg.Bot.PageDelaySeconds = d.Bot.PageDelaySeconds
	}
	for i := range cfg.Bot.Triggers {
		cfg.Bot.Triggers[i] = strings.ToLower(cfg.Bot.Triggers[i])
	}
	applySiteDefaults(&cfg.Sites.AtCoder, d.Sites.AtCoder)
	applySiteDefaults(&cfg.Sites.CodeChef, d.Sites.CodeChef)
	applySiteDefaults(&cfg.Sites.Codeforces, d.Sites.Codeforces)
	if cfg.Sites.FetchTimeoutSeconds == 0 {
		cfg.Sites.FetchTimeoutSeconds = d.Sites.FetchTimeoutSeconds
	}
	if cfg.Sites.BreakerFailures == 0 {
		cfg.Sites.BreakerFailures = d.Sites.BreakerFailures
	}
	if cfg.Sites.BreakerCooldownSeconds == 0 {
		cfg.Sites.BreakerCooldownSeconds = d.Sites.BreakerCooldownSeconds
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = d.Store.Driver
	}
	if cfg.Store.Mongo.Database == "" {
		cfg.Store.Mongo.Database = d.Store.Mongo.Database
	}
	if cfg.Store.Mongo.TimeoutSeconds == 0 {
		cfg.Store.Mongo.TimeoutSeconds = d.Store.Mongo.TimeoutSeconds
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = d.Logging.Style
	}
	if cfg.Monitor.Bind == "" {
		cfg.Monitor.Bind = d.Monitor.Bind
	}
	if cfg.Monitor.Port == 0 {
		cfg.Monitor.Port = d.Monitor.Port
	}
}

func applySiteDefaults(s *SiteConfig, d SiteConfig) {
	if s.ContestRefreshSeconds == 0 {
		s.ContestRefreshSeconds = d.ContestRefreshSeconds
	}
	if s.ProfileRefreshSeconds == 0 {
		s.ProfileRefreshSeconds = d.ProfileRefreshSeconds
	}
	if s.ProfileDelaySeconds == 0 {
		s.ProfileDelaySeconds = d.ProfileDelaySeconds
	}
}

// applyEnvOverrides reads DISCORD_TOKEN, MONGODB_SRV and CPBOT_* environment
// variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("CPBOT_DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("MONGODB_SRV"); v != "" {
		cfg.Store.Mongo.URI = v
	}
	if v := os.Getenv("CPBOT_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("CPBOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CPBOT_MONITOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.Port = port
			cfg.Monitor.Enabled = true
		}
	}
}
