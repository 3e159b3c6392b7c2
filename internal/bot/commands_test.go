package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelp_List(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai help")))
	sent := env.rest.last(t).Msg
	assert.Equal(t, "*@mention me or use my trigger `;ai` to activate me.*", sent.Content)
	require.NotNil(t, sent.Embed)
	assert.Equal(t, "Supported commands:", sent.Embed.Title)
	require.Len(t, sent.Embed.Fields, 4)
	assert.Equal(t, "beep", sent.Embed.Fields[0].Name)
	assert.Equal(t, "help [cmd]", sent.Embed.Fields[1].Name)
	require.NotNil(t, sent.Embed.Footer)
	assert.Equal(t, "Page 1 / 2", sent.Embed.Footer.Text)
}

func TestHelp_NoTriggers(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Triggers = nil })

	require.NoError(t, env.bot.OnMessage(context.Background(), dmMessage("help")))
	assert.Equal(t, "*@mention me to activate me.*", env.rest.last(t).Msg.Content)
}

func TestHelp_Command(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai help NEXT")))
	embed := env.rest.last(t).Msg.Embed
	require.NotNil(t, embed)
	assert.Equal(t, "next", embed.Title)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Usage: next [cnt] [at] [cc] [cf]", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "Displays future contests")
}

func TestHelp_UnknownCommand(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai help dance")))
	assert.Empty(t, env.rest.Sent())
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai info")))
	sent := env.rest.last(t).Msg
	assert.Equal(t, "*Hello, I am **cpbot**!*", sent.Content)
	require.NotNil(t, sent.Embed)
	assert.Contains(t, sent.Embed.Description, "<@42>")
	assert.Contains(t, sent.Embed.Description, "(https://github.com/soyeahso/cpbot)")
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.sites.fetched["cf"] = baseTime.Add(-5 * time.Minute)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai status")))
	sent := env.rest.last(t).Msg
	assert.Equal(t, "*Status info*", sent.Content)
	require.NotNil(t, sent.Embed)
	require.Len(t, sent.Embed.Fields, 3)
	assert.Equal(t, "System", sent.Embed.Fields[0].Name)
	assert.Equal(t, "Online since 1.5 hrs ago", sent.Embed.Fields[1].Value)
	assert.Equal(t, "AtCoder: never\nCodeChef: never\nCodeforces: 5 mins ago", sent.Embed.Fields[2].Value)
}

func seedContests(env *testEnv) {
	env.sites.contests = contestFixtures{
		{"AtCoder Beginner Contest 300", "at", "AtCoder", 2 * time.Hour, 100 * time.Minute},
		{"Codeforces Round 900", "cf", "Codeforces", 5 * time.Hour, 2 * time.Hour},
		{"CodeChef Starters 100", "cc", "CodeChef", 30 * time.Hour, 2 * time.Hour},
		{"Codeforces Global Round", "cf", "Codeforces", 50 * time.Hour, 26*time.Hour + 30*time.Minute},
	}.build()
}

func TestNext_Default(t *testing.T) {
	env := newTestEnv(t)
	seedContests(env)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai next")))
	assert.Equal(t, 1, env.sites.lastN)
	sent := env.rest.last(t).Msg
	assert.Equal(t, "*Upcoming contests*", sent.Content)
	require.Len(t, sent.Embed.Fields, 1)
	assert.Equal(t, "AtCoder Beginner Contest 300", sent.Embed.Fields[0].Name)
	assert.Empty(t, sent.Embed.Description)
	assert.Nil(t, sent.Embed.Footer)
}

func TestNext_Count(t *testing.T) {
	env := newTestEnv(t)
	seedContests(env)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai next 3")))
	assert.Equal(t, 3, env.sites.lastN)
	assert.Len(t, env.rest.last(t).Msg.Embed.Fields, 3)
}

func TestNext_All(t *testing.T) {
	env := newTestEnv(t)
	seedContests(env)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai next ALL")))
	assert.Equal(t, 0, env.sites.lastN)
	assert.Len(t, env.rest.last(t).Msg.Embed.Fields, 4)
}

func TestNext_Day(t *testing.T) {
	env := newTestEnv(t)
	seedContests(env)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai next day")))
	assert.Equal(t, baseTime.Add(24*time.Hour), env.sites.lastBefore)
	sent := env.rest.last(t).Msg
	assert.Equal(t, "*Contests that start under 24 hours from now*", sent.Content)
	assert.Len(t, sent.Embed.Fields, 2)
}

func TestNext_SiteFilter(t *testing.T) {
	env := newTestEnv(t)
	seedContests(env)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai next all cf at cf")))
	assert.Equal(t, []string{"cf", "at"}, env.sites.lastTags)
	sent := env.rest.last(t).Msg
	assert.Equal(t, "Showing only: Codeforces, AtCoder", sent.Embed.Description)
	assert.Len(t, sent.Embed.Fields, 3)
}

func TestNext_NoneFound(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai next day")))
	assert.Equal(t, "*No contest found*", env.rest.last(t).Msg.Content)
}

func TestNext_BadArgs(t *testing.T) {
	for _, content := range []string{";ai next all day", ";ai next soon", ";ai next 0", ";ai next -2"} {
		t.Run(content, func(t *testing.T) {
			env := newTestEnv(t)
			seedContests(env)
			require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(content)))
			assert.Empty(t, env.rest.Sent())
		})
	}
}

func TestNext_Paginates(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.ContestsPerPage = 3 })
	seedContests(env)

	require.NoError(t, env.bot.OnMessage(context.Background(), guildMessage(";ai next all")))
	sent := env.rest.last(t)
	assert.Len(t, sent.Msg.Embed.Fields, 3)
	assert.Equal(t, "Page 1 / 2", sent.Msg.Embed.Footer.Text)
	assert.Equal(t, []string{sent.ID + ":" + emojiPrev, sent.ID + ":" + emojiNext}, env.rest.reactions)
}

func TestContestsMessage_Format(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	contests := contestFixtures{
		{"Round A", "cf", "Codeforces", 2 * time.Hour, 2*time.Hour + 15*time.Minute},
		{"Contest B", "at", "AtCoder", 3 * time.Hour, 50*time.Hour + 5*time.Minute},
	}.build()

	msg := contestsMessage(contests, false, nil, kolkata)
	require.Len(t, msg.Embed.Fields, 2)

	const em = " "
	want := "`Codeforces" + em + "|" + em + "01 Mar 24, 19:30" + em + "|" + em + em + em + "2h 15m" + em + "|" + em + "`" +
		"[`link ◳`](https://example.com/cf \"Link to contest page\")"
	assert.Equal(t, want, msg.Embed.Fields[0].Value)
	assert.True(t, strings.HasPrefix(msg.Embed.Fields[1].Value, "`AtCoder"+em+em+em+em+"|"))
	assert.Contains(t, msg.Embed.Fields[1].Value, "2d 2h 5m")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0h 0m"},
		{90 * time.Minute, "1h 30m"},
		{24 * time.Hour, "1d 0h 0m"},
		{49*time.Hour + 59*time.Minute + 59*time.Second, "2d 1h 59m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}
