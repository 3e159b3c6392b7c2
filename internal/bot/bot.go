// Package bot turns gateway messages into contest and profile commands.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/dispatch"
	"github.com/soyeahso/cpbot/internal/domain"
	"github.com/soyeahso/cpbot/internal/gateway"
	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

// commandsTag is the dispatch tag of the message handler.
const commandsTag = "commands"

// RESTClient is the subset of the REST API the bot uses.
type RESTClient interface {
	SendMessage(ctx context.Context, channelID string, msg discord.MessageSend) (*discord.Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, edit discord.MessageEdit) (*discord.Message, error)
	GetChannel(ctx context.Context, channelID string) (*discord.Channel, error)
	CreateDM(ctx context.Context, recipientID string) (*discord.Channel, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	DeleteAllReactions(ctx context.Context, channelID, messageID string) error
	TriggerTyping(ctx context.Context, channelID string) error
}

// Identity exposes the connected session's user and uptime.
type Identity interface {
	SelfUser() *discord.User
	ConnectedSince() time.Time
}

// Sites is the contest and profile source.
type Sites interface {
	FutureContests(n int, tags []string) []domain.Contest
	ContestsBefore(t time.Time, tags []string) []domain.Contest
	SiteName(tag string) (string, bool)
	Tags() []string
	LastFetched() map[string]time.Time
	FetchProfile(ctx context.Context, tag, handle string) (*domain.Profile, error)
}

// Registrar registers and removes dispatch handlers.
type Registrar interface {
	Register(event, tag string, h dispatch.Handler) error
	Unregister(event, tag string) bool
}

// Options configure the bot's behaviour.
type Options struct {
	Name            string
	Triggers        []string
	Channels        []string
	Location        *time.Location
	AuthorID        string
	SourceURL       string
	ContestsPerPage int
	HelpPerPage     int
	PageActive      time.Duration
	PageDelay       time.Duration
}

// OptionsFromConfig converts bot configuration into Options.
func OptionsFromConfig(cfg config.BotConfig) (Options, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return Options{}, fmt.Errorf("loading time zone: %w", err)
	}
	triggers := make([]string, 0, len(cfg.Triggers))
	for _, t := range cfg.Triggers {
		triggers = append(triggers, strings.ToLower(t))
	}
	return Options{
		Name:            cfg.Name,
		Triggers:        triggers,
		Channels:        cfg.Channels,
		Location:        loc,
		AuthorID:        cfg.AuthorID,
		SourceURL:       cfg.SourceURL,
		ContestsPerPage: cfg.ContestsPerPage,
		HelpPerPage:     cfg.HelpPerPage,
		PageActive:      cfg.PageActive(),
		PageDelay:       cfg.PageDelay(),
	}, nil
}

// Deps are the collaborators a Bot talks to.
type Deps struct {
	REST     RESTClient
	Identity Identity
	Sites    Sites
	Entities *Entities
	Registry Registrar
	Log      *logging.Logger
	Metrics  *metrics.Metrics
}

// Bot routes chat messages to commands.
type Bot struct {
	opts     Options
	rest     RESTClient
	identity Identity
	sites    Sites
	entities *Entities
	registry Registrar
	log      *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	commands map[string]*Command
}

// New creates a Bot with the built-in commands.
func New(opts Options, deps Deps) *Bot {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ContestsPerPage <= 0 {
		opts.ContestsPerPage = 5
	}
	if opts.HelpPerPage <= 0 {
		opts.HelpPerPage = 4
	}
	b := &Bot{
		opts:     opts,
		rest:     deps.REST,
		identity: deps.Identity,
		sites:    deps.Sites,
		entities: deps.Entities,
		registry: deps.Registry,
		log:      deps.Log.Sub("bot"),
		metrics:  deps.Metrics,
		now:      time.Now,
		commands: make(map[string]*Command),
	}
	for _, c := range builtinCommands() {
		b.commands[c.Name] = c
	}
	return b
}

// Register subscribes the bot to MESSAGE_CREATE.
func (b *Bot) Register() error {
	return b.registry.Register(gateway.EventMessageCreate, commandsTag, b.handleMessageCreate)
}

func (b *Bot) handleMessageCreate(ctx context.Context, payload json.RawMessage) error {
	var msg discord.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}
	return b.OnMessage(ctx, &msg)
}

// OnMessage handles one created message.
func (b *Bot) OnMessage(ctx context.Context, msg *discord.Message) error {
	if msg.FromBot() {
		return nil
	}

	ch, err := b.channel(ctx, msg.ChannelID)
	if err != nil {
		return err
	}

	args := strings.Fields(msg.Content)
	if ch.IsDM() {
		// No trigger in DMs.
		if len(args) == 0 {
			return nil
		}
		return b.runCommand(ctx, args, msg, true)
	}

	if len(b.opts.Channels) > 0 && !slices.Contains(b.opts.Channels, msg.ChannelID) {
		b.log.Debug().Str("channel", msg.ChannelID).Msg("ignoring message from channel")
		return nil
	}
	// Trigger + command
	if len(args) < 2 {
		return nil
	}
	if !b.isTrigger(strings.ToLower(args[0])) {
		return nil
	}
	return b.runCommand(ctx, args[1:], msg, false)
}

func (b *Bot) isTrigger(word string) bool {
	if slices.Contains(b.opts.Triggers, word) {
		return true
	}
	self := b.identity.SelfUser()
	if self == nil {
		return false
	}
	return word == "<@"+self.ID+">" || word == "<@!"+self.ID+">"
}

// channel resolves a channel from the cache, falling back to REST.
func (b *Bot) channel(ctx context.Context, id string) (discord.Channel, error) {
	if ch, ok := b.entities.Channel(id); ok {
		return ch, nil
	}
	ch, err := b.rest.GetChannel(ctx, id)
	if err != nil {
		return discord.Channel{}, fmt.Errorf("resolving channel %s: %w", id, err)
	}
	if err := b.entities.SaveChannel(ctx, *ch); err != nil {
		b.log.Warn().Err(err).Str("channel", id).Msg("caching channel failed")
	}
	return *ch, nil
}

func (b *Bot) runCommand(ctx context.Context, args []string, msg *discord.Message, dm bool) error {
	name := strings.ToLower(args[0])
	cmd, ok := b.commands[name]
	if !ok || !cmd.allowed(dm) {
		b.log.Info().Strs("args", args).Bool("dm", dm).Msg("unsupported command")
		return nil
	}

	err := cmd.Run(ctx, b, args[1:], msg)
	var usage *UsageError
	switch {
	case err == nil:
		b.metrics.RecordCommand(name, "ok")
		return nil
	case errors.As(err, &usage):
		b.metrics.RecordCommand(name, "usage")
		b.log.Info().Str("command", name).Str("reason", usage.Msg).Msg("incorrect usage")
		return nil
	default:
		b.metrics.RecordCommand(name, "error")
		return fmt.Errorf("command %s: %w", name, err)
	}
}

// visibleCommands returns non-hidden commands sorted by usage.
func (b *Bot) visibleCommands() []*Command {
	var out []*Command
	for _, c := range b.commands {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Usage < out[j].Usage })
	return out
}

func (b *Bot) send(ctx context.Context, channelID string, msg discord.MessageSend) error {
	_, err := b.rest.SendMessage(ctx, channelID, msg)
	return err
}

func (b *Bot) sendText(ctx context.Context, channelID, content string) error {
	return b.send(ctx, channelID, discord.MessageSend{Content: content})
}
