package bot

import (
	"context"
	"fmt"

	"github.com/soyeahso/cpbot/internal/discord"
)

// Command is a chat command.
type Command struct {
	Name  string
	Usage string
	Desc  string
	// Hidden commands are left out of the help listing.
	Hidden     bool
	AllowGuild bool
	AllowDM    bool
	Run        func(ctx context.Context, b *Bot, args []string, msg *discord.Message) error
}

// allowed reports whether the command may run in a DM or guild channel.
func (c *Command) allowed(dm bool) bool {
	if dm {
		return c.AllowDM
	}
	return c.AllowGuild
}

// UsageError reports a command invoked with bad arguments. It is logged,
// never sent back to the user.
type UsageError struct {
	Content string
	Msg     string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("incorrect usage %q: %s", e.Content, e.Msg)
}

func usageErrorf(msg *discord.Message, format string, args ...any) error {
	return &UsageError{Content: msg.Content, Msg: fmt.Sprintf(format, args...)}
}

func assertArgLen(msg *discord.Message, args []string, n int) error {
	if len(args) != n {
		return usageErrorf(msg, "expected %d arguments, found %d", n, len(args))
	}
	return nil
}
