package telegram

import (
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
)

// MessageEvent carries the fields of an incoming Telegram message
type MessageEvent struct {
	MessageID int
	ChatID    int64
	ChatType  string // private, group, supergroup, channel
	FromID    int64
	Username  string
	FirstName string
	Text      string
	Date      time.Time
}

func (e *MessageEvent) EventType() string { return adapters.EventTypeMessage }
func (e *MessageEvent) UserID() string { return strconv.FormatInt(e.FromID, 10) }
func (e *MessageEvent) SessionID() string { return strconv.FormatInt(e.ChatID, 10) }
func (e *MessageEvent) PlainText() string { return e.Text }

// PrivateMessageEvent is a message in a private chat
type PrivateMessageEvent struct {
	MessageEvent
}

func (e *PrivateMessageEvent) EventName() string { return constants.EventPrivateMessagePrefix }

// GroupMessageEvent is a message in a group or supergroup
type GroupMessageEvent struct {
	MessageEvent
}

func (e *GroupMessageEvent) EventName() string { return constants.EventGroupMessage }

// newEvent converts a Bot API message; channel posts and empty messages yield nil
func newEvent(msg *tgbotapi.Message) adapters.Event {
	if msg == nil || msg.Chat == nil {
		return nil
	}

	base := MessageEvent{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		ChatType:  msg.Chat.Type,
		Text:      msg.Text,
		Date:      msg.Time(),
	}
	if base.Text == "" {
		base.Text = msg.Caption
	}
	if msg.From != nil {
		base.FromID = msg.From.ID
		base.Username = msg.From.UserName
		base.FirstName = msg.From.FirstName
	}

	switch {
	case msg.Chat.IsPrivate():
		return &PrivateMessageEvent{MessageEvent: base}
	case msg.Chat.IsGroup(), msg.Chat.IsSuperGroup():
		return &GroupMessageEvent{MessageEvent: base}
	default:
		return nil
	}
}
