package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/version"
)

func builtinCommands() []*Command {
	return []*Command{
		{
			Name: "beep", Usage: "beep", Desc: "Responds with boop",
			AllowGuild: true, AllowDM: true, Run: runBeep,
		},
		{
			Name: "help", Usage: "help [cmd]",
			Desc:       "Displays information about commands. When `cmd` is provided, only displays information about that command",
			AllowGuild: true, AllowDM: true, Run: runHelp,
		},
		{
			Name: "info", Usage: "info", Desc: "Displays bot info",
			AllowGuild: true, AllowDM: true, Run: runInfo,
		},
		{
			Name: "next", Usage: "next [cnt] [at] [cc] [cf]",
			Desc: "Displays future contests. If `cnt` is absent, displays the next contest. " +
				"If a number, displays that many contests. If `all`, displays all upcoming contests. " +
				"If `day`, displays contests which start within the next 24 hours. Optional site filters can be used, " +
				"where `at` = *AtCoder*, `cc` = *CodeChef* and `cf` = *Codeforces*",
			AllowGuild: true, AllowDM: true, Run: runNext,
		},
		{
			Name: "status", Usage: "status", Desc: "Displays bot status",
			AllowGuild: true, AllowDM: true, Run: runStatus,
		},
		{
			Name: "sub", Usage: "sub at|cc|cf handle",
			Desc:    "Subscribe to rating changes. DM only",
			AllowDM: true, Run: runSub,
		},
		{
			Name: "unsub", Usage: "unsub at|cc|cf",
			Desc:    "Unsubscribe from rating changes. DM only",
			AllowDM: true, Run: runUnsub,
		},
	}
}

func runBeep(ctx context.Context, b *Bot, args []string, msg *discord.Message) error {
	if err := assertArgLen(msg, args, 0); err != nil {
		return err
	}
	return b.sendText(ctx, msg.ChannelID, "*boop*")
}

func runHelp(ctx context.Context, b *Bot, args []string, msg *discord.Message) error {
	if len(args) == 0 {
		return b.paginateAndSend(ctx, msg.ChannelID, b.helpMessage(), b.opts.HelpPerPage, 1)
	}
	if err := assertArgLen(msg, args, 1); err != nil {
		return err
	}

	name := strings.ToLower(args[0])
	cmd, ok := b.commands[name]
	if !ok {
		return usageErrorf(msg, "unrecognized command %q", name)
	}
	return b.send(ctx, msg.ChannelID, discord.MessageSend{Embed: &discord.Embed{
		Title:  name,
		Fields: []discord.EmbedField{{Name: "Usage: " + cmd.Usage, Value: cmd.Desc}},
	}})
}

func (b *Bot) helpMessage() discord.MessageSend {
	content := "*@mention me to activate me.*"
	if len(b.opts.Triggers) > 0 {
		content = fmt.Sprintf("*@mention me or use my trigger `%s` to activate me.*", b.opts.Triggers[0])
	}
	var fields []discord.EmbedField
	for _, c := range b.visibleCommands() {
		fields = append(fields, discord.EmbedField{Name: c.Usage, Value: c.Desc})
	}
	return discord.MessageSend{
		Content: content,
		Embed:   &discord.Embed{Title: "Supported commands:", Fields: fields},
	}
}

func runInfo(ctx context.Context, b *Bot, args []string, msg *discord.Message) error {
	if err := assertArgLen(msg, args, 0); err != nil {
		return err
	}

	var lines []string
	if b.opts.AuthorID != "" {
		lines = append(lines, fmt.Sprintf("A contest reminder bot made by <@%s>", b.opts.AuthorID))
	}
	lines = append(lines, "Written in Go, version "+version.Version)
	if b.opts.SourceURL != "" {
		lines = append(lines, fmt.Sprintf("Check me out on [GitHub](%s)!", b.opts.SourceURL))
	}
	return b.send(ctx, msg.ChannelID, discord.MessageSend{
		Content: fmt.Sprintf("*Hello, I am **%s**!*", b.opts.Name),
		Embed:   &discord.Embed{Description: strings.Join(lines, "\n")},
	})
}

func runStatus(ctx context.Context, b *Bot, args []string, msg *discord.Message) error {
	if err := assertArgLen(msg, args, 0); err != nil {
		return err
	}

	now := b.now()
	uptime := "Not connected"
	if since := b.identity.ConnectedSince(); !since.IsZero() {
		uptime = fmt.Sprintf("Online since %.1f hrs ago", now.Sub(since).Hours())
	}

	var updated strings.Builder
	last := b.sites.LastFetched()
	for _, tag := range b.sites.Tags() {
		name, _ := b.sites.SiteName(tag)
		if t, ok := last[tag]; ok {
			fmt.Fprintf(&updated, "%s: %.0f mins ago\n", name, now.Sub(t).Minutes())
		} else {
			fmt.Fprintf(&updated, "%s: never\n", name)
		}
	}
	if updated.Len() == 0 {
		updated.WriteString("No sites enabled")
	}

	return b.send(ctx, msg.ChannelID, discord.MessageSend{
		Content: "*Status info*",
		Embed: &discord.Embed{Fields: []discord.EmbedField{
			{Name: "System", Value: fmt.Sprintf("Go version: %s\nBot version: %s", version.Runtime(), version.Version)},
			{Name: "Bot Uptime", Value: uptime},
			{Name: "Last Updated", Value: strings.TrimRight(updated.String(), "\n")},
		}},
	})
}
