package dingtalk

import (
	"strings"

	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
)

// Conversation types reported by the chatbot callback
const (
	conversationPrivate = "1"
	conversationGroup   = "2"
)

// MessageEvent carries the fields of a chatbot callback
type MessageEvent struct {
	MessageID      string
	ConversationID string
	SenderID       string
	SenderStaffID  string
	SenderNick     string
	Text           string
	SessionWebhook string
	CreateAt       int64
}

func (e *MessageEvent) EventType() string { return adapters.EventTypeMessage }
func (e *MessageEvent) SessionID() string { return e.ConversationID }
func (e *MessageEvent) PlainText() string { return e.Text }

// UserID prefers the staff id, which is only set inside the bot's own org
func (e *MessageEvent) UserID() string {
	if e.SenderStaffID != "" {
		return e.SenderStaffID
	}
	return e.SenderID
}

// Webhook returns the session webhook used to reply
func (e *MessageEvent) Webhook() string { return e.SessionWebhook }

// PrivateMessageEvent is a one-to-one chat message
type PrivateMessageEvent struct {
	MessageEvent
}

func (e *PrivateMessageEvent) EventName() string { return constants.EventPrivateMessagePrefix }

// GroupMessageEvent is a group chat message that mentions the bot
type GroupMessageEvent struct {
	MessageEvent
}

func (e *GroupMessageEvent) EventName() string { return constants.EventGroupMessage }

func newEvent(data *chatbot.BotCallbackDataModel) adapters.Event {
	if data == nil {
		return nil
	}

	base := MessageEvent{
		MessageID:      data.MsgId,
		ConversationID: data.ConversationId,
		SenderID:       data.SenderId,
		SenderStaffID:  data.SenderStaffId,
		SenderNick:     data.SenderNick,
		SessionWebhook: data.SessionWebhook,
		CreateAt:       data.CreateAt,
	}
	if data.Msgtype == "text" {
		base.Text = strings.TrimSpace(data.Text.Content)
	}

	switch data.ConversationType {
	case conversationPrivate:
		return &PrivateMessageEvent{MessageEvent: base}
	case conversationGroup:
		return &GroupMessageEvent{MessageEvent: base}
	default:
		return nil
	}
}
