package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/gateway"
	"github.com/soyeahso/cpbot/internal/logging"
)

// Reaction emoji that flip pages.
const (
	emojiPrev = "◀"
	emojiNext = "▶"
)

// paginator splits the fields of an embed into pages and flips between them
// when users react with emojiPrev or emojiNext. It stops listening once it
// expires.
type paginator struct {
	b       *Bot
	tag     string
	log     *logging.Logger
	content string
	embed   discord.Embed
	fields  []discord.EmbedField
	perPage int
	pages   int
	delay   time.Duration

	mu        sync.Mutex
	page      int
	channelID string
	messageID string
	expiry    time.Time
	timer     *time.Timer
	done      bool
}

func newPaginator(b *Bot, msg discord.MessageSend, perPage int) *paginator {
	var embed discord.Embed
	if msg.Embed != nil {
		embed = *msg.Embed
	}
	fields := embed.Fields
	embed.Fields = nil
	pages := (len(fields) + perPage - 1) / perPage
	tag := "paginator-" + uuid.NewString()
	return &paginator{
		b:       b,
		tag:     tag,
		log:     b.log.With("paginator", tag),
		content: msg.Content,
		embed:   embed,
		fields:  fields,
		perPage: perPage,
		pages:   max(pages, 1),
	}
}

// paginateAndSend sends msg showing perPage embed fields at a time. The
// message reacts to page flips for active, extended by the configured delay
// after each interaction.
func (b *Bot) paginateAndSend(ctx context.Context, channelID string, msg discord.MessageSend, perPage, page int) error {
	p := newPaginator(b, msg, perPage)
	return p.send(ctx, channelID, page, b.opts.PageActive, b.opts.PageDelay)
}

// render returns the embed for the given page, numbered from 1.
func (p *paginator) render(page int) *discord.Embed {
	embed := p.embed
	end := min(page*p.perPage, len(p.fields))
	begin := min((page-1)*p.perPage, end)
	embed.Fields = append([]discord.EmbedField(nil), p.fields[begin:end]...)
	if p.pages > 1 {
		embed.Footer = &discord.EmbedFooter{Text: fmt.Sprintf("Page %d / %d", page, p.pages)}
	}
	return &embed
}

func (p *paginator) send(ctx context.Context, channelID string, page int, active, delay time.Duration) error {
	page = min(max(page, 1), p.pages)
	p.page = page
	sent, err := p.b.rest.SendMessage(ctx, channelID, discord.MessageSend{
		Content: p.content,
		Embed:   p.render(page),
	})
	if err != nil {
		return err
	}
	if p.pages <= 1 {
		return nil
	}

	p.channelID = sent.ChannelID
	if p.channelID == "" {
		p.channelID = channelID
	}
	p.messageID = sent.ID
	p.delay = delay

	for _, emoji := range []string{emojiPrev, emojiNext} {
		if err := p.b.rest.AddReaction(ctx, p.channelID, p.messageID, emoji); err != nil {
			return fmt.Errorf("adding page reaction: %w", err)
		}
	}
	// Handlers block on mu until the expiry timer exists.
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, event := range []string{gateway.EventMessageReactionAdd, gateway.EventMessageReactionRemove} {
		if err := p.b.registry.Register(event, p.tag, p.onReaction); err != nil {
			p.done = true
			p.unregister()
			return err
		}
	}
	p.expiry = time.Now().Add(active)
	p.timer = time.AfterFunc(active, p.expire)
	p.log.Debug().Int("pages", p.pages).Dur("active", active).Msg("paginating")
	return nil
}

func (p *paginator) onReaction(ctx context.Context, payload json.RawMessage) error {
	var r discord.MessageReaction
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("decoding reaction: %w", err)
	}
	if self := p.b.identity.SelfUser(); self != nil && r.UserID == self.ID {
		return nil
	}
	if r.MessageID != p.messageID {
		return nil
	}
	if r.Emoji.Name != emojiPrev && r.Emoji.Name != emojiNext {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}

	next := p.page
	if r.Emoji.Name == emojiPrev && p.page > 1 {
		next--
	} else if r.Emoji.Name == emojiNext && p.page < p.pages {
		next++
	}
	if next != p.page {
		if _, err := p.b.rest.EditMessage(ctx, p.channelID, p.messageID, discord.MessageEdit{Embed: p.render(next)}); err != nil {
			return fmt.Errorf("editing page: %w", err)
		}
		p.page = next
		p.log.Debug().Int("page", next).Msg("updated page")
	}
	p.extendLocked(p.delay)
	return nil
}

// extendLocked pushes expiry to now+d unless it is already later.
func (p *paginator) extendLocked(d time.Duration) {
	expiry := time.Now().Add(d)
	if expiry.Before(p.expiry) {
		return
	}
	p.expiry = expiry
	p.timer.Reset(d)
}

func (p *paginator) expire() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.mu.Unlock()

	p.log.Debug().Msg("removing paginator listeners")
	p.unregister()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.b.rest.DeleteAllReactions(ctx, p.channelID, p.messageID); err != nil {
		p.log.Warn().Err(err).Msg("deleting page reactions failed")
	}
}

func (p *paginator) unregister() {
	p.b.registry.Unregister(gateway.EventMessageReactionAdd, p.tag)
	p.b.registry.Unregister(gateway.EventMessageReactionRemove, p.tag)
}
