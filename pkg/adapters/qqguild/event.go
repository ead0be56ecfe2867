package qqguild

import (
	"strings"

	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
)

// User is a guild member as seen by the gateway
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

// MessageEvent is an AT_MESSAGE_CREATE dispatch: a channel message that
// mentions the bot.
type MessageEvent struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Author    User   `json:"author"`
	Mentions  []User `json:"mentions"`

	selfID string
}

func (e *MessageEvent) EventName() string { return constants.EventQQGuildAtMessage }
func (e *MessageEvent) EventType() string { return adapters.EventTypeMessage }
func (e *MessageEvent) UserID() string { return e.Author.ID }
func (e *MessageEvent) SessionID() string { return e.ChannelID }

// PlainText strips the leading mention of the bot
func (e *MessageEvent) PlainText() string {
	text := e.Content
	if e.selfID != "" {
		text = strings.Replace(text, "<@!"+e.selfID+">", "", 1)
	}
	return strings.TrimSpace(text)
}
