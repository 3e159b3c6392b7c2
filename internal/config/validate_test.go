package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuePaths(issues []ValidationIssue) []string {
	paths := make([]string, 0, len(issues))
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	assert.Empty(t, issues)
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{-1, 70000} {
		cfg := Defaults()
		cfg.Monitor.Port = port
		issues := Validate(&cfg)
		require.Len(t, issues, 1)
		assert.Equal(t, "monitor.port", issues[0].Path)
	}
}

func TestValidate_InvalidBind(t *testing.T) {
	cfg := Defaults()
	cfg.Monitor.Bind = "everywhere"
	assert.Equal(t, []string{"monitor.bind"}, issuePaths(Validate(&cfg)))
}

func TestValidate_ValidBinds(t *testing.T) {
	for _, bind := range []string{"loopback", "lan", "custom"} {
		cfg := Defaults()
		cfg.Monitor.Bind = bind
		assert.Empty(t, Validate(&cfg), bind)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	assert.Equal(t, []string{"logging.level"}, issuePaths(Validate(&cfg)))
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"} {
		cfg := Defaults()
		cfg.Logging.Level = level
		assert.Empty(t, Validate(&cfg), level)
	}
}

func TestValidate_InvalidLogStyle(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Style = "pretty"
	assert.Equal(t, []string{"logging.style"}, issuePaths(Validate(&cfg)))
}

func TestValidate_InvalidStoreDriver(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Driver = "postgres"
	assert.Equal(t, []string{"store.driver"}, issuePaths(Validate(&cfg)))
}

func TestValidate_MongoRequiresURI(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Driver = "mongo"
	assert.Equal(t, []string{"store.mongo.uri"}, issuePaths(Validate(&cfg)))

	cfg.Store.Mongo.URI = "mongodb://localhost:27017"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_UnknownTimeZone(t *testing.T) {
	cfg := Defaults()
	cfg.Bot.TimeZone = "Mars/Olympus_Mons"
	assert.Equal(t, []string{"bot.timeZone"}, issuePaths(Validate(&cfg)))
}

func TestValidate_BadTrigger(t *testing.T) {
	cfg := Defaults()
	cfg.Bot.Triggers = []string{";cp", "two words", ""}
	assert.Equal(t, []string{"bot.triggers[1]", "bot.triggers[2]"}, issuePaths(Validate(&cfg)))
}

func TestValidate_ContestsPerPageTooLarge(t *testing.T) {
	cfg := Defaults()
	cfg.Bot.ContestsPerPage = 30
	assert.Equal(t, []string{"bot.contestsPerPage"}, issuePaths(Validate(&cfg)))
}

func TestValidate_NegativeSiteInterval(t *testing.T) {
	cfg := Defaults()
	cfg.Sites.AtCoder.ProfileDelaySeconds = -1
	assert.Equal(t, []string{"sites.atcoder.profileDelaySeconds"}, issuePaths(Validate(&cfg)))
}

func TestValidate_UnresolvedToken(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "${MISSING_TOKEN}"
	assert.Equal(t, []string{"discord.token"}, issuePaths(Validate(&cfg)))
}

func TestValidate_BadAPIURL(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.APIURL = "discordapp.com/api"
	assert.Equal(t, []string{"discord.apiUrl"}, issuePaths(Validate(&cfg)))
}

func TestValidate_MultipleIssuesSorted(t *testing.T) {
	cfg := Defaults()
	cfg.Monitor.Port = -1
	cfg.Logging.Level = "bad"
	cfg.Bot.TimeZone = "Nowhere/City"

	issues := Validate(&cfg)
	assert.Equal(t, []string{"bot.timeZone", "logging.level", "monitor.port"}, issuePaths(issues))
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "monitor.port", Message: "invalid"}
	assert.Equal(t, "monitor.port: invalid", issue.String())
}

func TestRequireToken(t *testing.T) {
	cfg := Defaults()
	issue := RequireToken(&cfg)
	require.NotNil(t, issue)
	assert.Equal(t, "discord.token", issue.Path)

	cfg.Discord.Token = "abc"
	assert.Nil(t, RequireToken(&cfg))
}
