package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/domain"
)

func runSub(ctx context.Context, b *Bot, args []string, msg *discord.Message) error {
	if err := assertArgLen(msg, args, 2); err != nil {
		return err
	}
	tag := strings.ToLower(args[0])
	if _, ok := b.sites.SiteName(tag); !ok {
		return usageErrorf(msg, "unrecognized site %q", tag)
	}
	if msg.Author == nil {
		return usageErrorf(msg, "message has no author")
	}

	if err := b.rest.TriggerTyping(ctx, msg.ChannelID); err != nil {
		b.log.Debug().Err(err).Msg("trigger typing failed")
	}
	profile, err := b.sites.FetchProfile(ctx, tag, args[1])
	if err != nil {
		return err
	}
	if profile == nil {
		return b.sendText(ctx, msg.ChannelID, "*No user found with given handle*")
	}

	if err := b.entities.CreateUser(ctx, msg.Author.ID, msg.ChannelID); err != nil {
		return err
	}
	if _, err := b.entities.SetProfile(ctx, msg.Author.ID, *profile); err != nil {
		return err
	}
	b.log.Info().Str("user", msg.Author.ID).Str("site", tag).Str("handle", profile.Handle).Msg("profile registered")
	return b.send(ctx, msg.ChannelID, discord.MessageSend{
		Content: "*Your profile has been registered*",
		Embed:   profileEmbed(*profile),
	})
}

func runUnsub(ctx context.Context, b *Bot, args []string, msg *discord.Message) error {
	if err := assertArgLen(msg, args, 1); err != nil {
		return err
	}
	tag := strings.ToLower(args[0])
	name, ok := b.sites.SiteName(tag)
	if !ok {
		return usageErrorf(msg, "unrecognized site %q", tag)
	}
	if msg.Author == nil {
		return usageErrorf(msg, "message has no author")
	}

	deleted, err := b.entities.DeleteProfile(ctx, msg.Author.ID, tag)
	if err != nil {
		return err
	}
	if !deleted {
		return b.sendText(ctx, msg.ChannelID, fmt.Sprintf("*You are not subscribed to %s*", name))
	}
	return b.sendText(ctx, msg.ChannelID, fmt.Sprintf("*You are now unsubscribed from %s*", name))
}

// OnProfileFetch stores a refreshed profile and tells the user by DM when
// their name or rating changed.
func (b *Bot) OnProfileFetch(ctx context.Context, user domain.User, old, fetched domain.Profile) error {
	changed, err := b.entities.SetProfile(ctx, user.DiscordID, fetched)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	b.log.Info().
		Str("user", user.DiscordID).
		Str("site", fetched.SiteTag).
		Str("rating", fetched.RatingString()).
		Msg("profile changed")

	channelID := user.DMChannelID
	if channelID == "" {
		dm, err := b.rest.CreateDM(ctx, user.DiscordID)
		if err != nil {
			return fmt.Errorf("opening DM: %w", err)
		}
		channelID = dm.ID
		if err := b.entities.CreateUser(ctx, user.DiscordID, channelID); err != nil {
			b.log.Warn().Err(err).Msg("saving DM channel failed")
		}
	}

	embed := &discord.Embed{
		Author: profileAuthor(fetched),
		Fields: []discord.EmbedField{
			{Name: "Previous", Value: nameAndRating(old), Inline: true},
			{Name: "Current", Value: nameAndRating(fetched), Inline: true},
		},
		Footer: &discord.EmbedFooter{Text: fetched.SiteName},
	}
	return b.send(ctx, channelID, discord.MessageSend{
		Content: "*Your profile has been updated*",
		Embed:   embed,
	})
}

func profileEmbed(p domain.Profile) *discord.Embed {
	return &discord.Embed{
		Author:      profileAuthor(p),
		Description: nameAndRating(p),
		Footer:      &discord.EmbedFooter{Text: p.SiteName},
	}
}

func profileAuthor(p domain.Profile) *discord.EmbedAuthor {
	return &discord.EmbedAuthor{Name: p.Handle, URL: p.URL, IconURL: p.Avatar}
}

func nameAndRating(p domain.Profile) string {
	var sb strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&sb, "**Name**: %s\n", p.Name)
	}
	fmt.Fprintf(&sb, "**Rating**: %s", p.RatingString())
	return sb.String()
}
