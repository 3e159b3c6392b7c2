package discord

import (
	"fmt"
	"time"
)

// User is a platform account.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	Bot           bool   `json:"bot,omitempty"`
}

// Mention returns the mention markup for the user.
func (u User) Mention() string {
	return "<@" + u.ID + ">"
}

// Tag returns "username#discriminator", or the username alone when there is
// no discriminator.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// ChannelType identifies the kind of channel.
type ChannelType int

const (
	ChannelGuildText     ChannelType = 0
	ChannelDM            ChannelType = 1
	ChannelGuildVoice    ChannelType = 2
	ChannelGroupDM       ChannelType = 3
	ChannelGuildCategory ChannelType = 4
)

func (t ChannelType) String() string {
	switch t {
	case ChannelGuildText:
		return "guild_text"
	case ChannelDM:
		return "dm"
	case ChannelGuildVoice:
		return "guild_voice"
	case ChannelGroupDM:
		return "group_dm"
	case ChannelGuildCategory:
		return "guild_category"
	default:
		return fmt.Sprintf("channel_type(%d)", int(t))
	}
}

// Channel is a guild channel or direct-message conversation.
type Channel struct {
	ID         string      `json:"id" bson:"id"`
	Type       ChannelType `json:"type" bson:"type"`
	GuildID    string      `json:"guild_id,omitempty" bson:"guild_id,omitempty"`
	Name       string      `json:"name,omitempty" bson:"name,omitempty"`
	Recipients []User      `json:"recipients,omitempty" bson:"-"`
}

// IsDM reports whether the channel is a one-to-one direct message channel.
func (c Channel) IsDM() bool { return c.Type == ChannelDM }

// Message is a chat message as delivered by MESSAGE_CREATE or returned by REST.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	Author    *User     `json:"author,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	WebhookID string    `json:"webhook_id,omitempty"`
	Embeds    []Embed   `json:"embeds,omitempty"`
	Mentions  []User    `json:"mentions,omitempty"`
}

// FromBot reports whether the message was authored by a bot or webhook.
func (m Message) FromBot() bool {
	return m.WebhookID != "" || (m.Author != nil && m.Author.Bot)
}

// Embed is rich message content.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// EmbedAuthor is the author line of an embed.
type EmbedAuthor struct {
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedImage is a thumbnail or image attachment of an embed.
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedField is a name/value block inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the footer line of an embed.
type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// MessageSend is the body of POST /channels/{id}/messages.
type MessageSend struct {
	Content string `json:"content,omitempty"`
	Embed   *Embed `json:"embed,omitempty"`
}

// MessageEdit is the body of PATCH /channels/{id}/messages/{id}.
type MessageEdit struct {
	Content *string `json:"content,omitempty"`
	Embed   *Embed  `json:"embed,omitempty"`
}

// Emoji identifies a reaction emoji. Unicode emoji have no ID.
type Emoji struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// APIName is the emoji form used in reaction endpoints.
func (e Emoji) APIName() string {
	if e.ID == "" {
		return e.Name
	}
	return e.Name + ":" + e.ID
}

// MessageReaction is the payload of MESSAGE_REACTION_ADD and _REMOVE.
type MessageReaction struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	GuildID   string `json:"guild_id,omitempty"`
	Emoji     Emoji  `json:"emoji"`
}
