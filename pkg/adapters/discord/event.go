package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
)

// MessageEvent carries the fields of a Discord MESSAGE_CREATE
type MessageEvent struct {
	MessageID string
	ChannelID string
	GuildID   string
	AuthorID  string
	Username  string
	Content   string
	Timestamp time.Time
}

func (e *MessageEvent) EventType() string { return adapters.EventTypeMessage }
func (e *MessageEvent) UserID() string { return e.AuthorID }
func (e *MessageEvent) SessionID() string { return e.ChannelID }
func (e *MessageEvent) PlainText() string { return e.Content }

// PrivateMessageEvent is a direct message
type PrivateMessageEvent struct {
	MessageEvent
}

func (e *PrivateMessageEvent) EventName() string { return constants.EventPrivateMessagePrefix }

// GuildMessageEvent is a message in a guild channel
type GuildMessageEvent struct {
	MessageEvent
}

func (e *GuildMessageEvent) EventName() string { return constants.EventGuildMessage }

// newEvent converts a MESSAGE_CREATE; bot authors yield nil
func newEvent(m *discordgo.MessageCreate) adapters.Event {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return nil
	}

	base := MessageEvent{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		AuthorID:  m.Author.ID,
		Username:  m.Author.Username,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.GuildID == "" {
		return &PrivateMessageEvent{MessageEvent: base}
	}
	return &GuildMessageEvent{MessageEvent: base}
}
