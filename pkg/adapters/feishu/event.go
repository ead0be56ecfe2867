package feishu

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// MessageEvent carries the fields of im.message.receive_v1
type MessageEvent struct {
	MessageID    string
	ChatID       string
	ChatType     string // p2p or group
	MessageType  string // text, image, post, ...
	SenderOpenID string
	SenderUserID string
	Content      string // raw JSON content
	Text         string
	Received     time.Time
}

func (e *MessageEvent) EventType() string { return adapters.EventTypeMessage }
func (e *MessageEvent) SessionID() string { return e.ChatID }
func (e *MessageEvent) PlainText() string { return e.Text }

// UserID prefers the open_id, which is what <at> tags expect
func (e *MessageEvent) UserID() string {
	if e.SenderOpenID != "" {
		return e.SenderOpenID
	}
	return e.SenderUserID
}

// PrivateMessageEvent is a one-to-one chat message
type PrivateMessageEvent struct {
	MessageEvent
}

func (e *PrivateMessageEvent) EventName() string { return constants.EventFeishuP2P }

// GroupMessageEvent is a group chat message
type GroupMessageEvent struct {
	MessageEvent
}

func (e *GroupMessageEvent) EventName() string { return constants.EventGroupMessage }

// newEvent converts an SDK receive event. It returns nil when the payload has
// no message.
func newEvent(event *larkim.P2MessageReceiveV1) adapters.Event {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	ev := event.Event

	base := MessageEvent{
		MessageID:   deref(ev.Message.MessageId),
		ChatID:      deref(ev.Message.ChatId),
		ChatType:    deref(ev.Message.ChatType),
		MessageType: deref(ev.Message.MessageType),
		Content:     deref(ev.Message.Content),
		Received:    time.Now(),
	}
	if base.MessageType == "text" {
		base.Text = stripMentions(extractTextContent(base.Content), ev.Message.Mentions)
	}
	if ev.Sender != nil && ev.Sender.SenderId != nil {
		base.SenderOpenID = deref(ev.Sender.SenderId.OpenId)
		base.SenderUserID = deref(ev.Sender.SenderId.UserId)
	}

	if base.ChatType == "p2p" {
		return &PrivateMessageEvent{MessageEvent: base}
	}
	return &GroupMessageEvent{MessageEvent: base}
}

// extractTextContent extracts the text of a {"text":"..."} content payload.
// Content that is not JSON is returned unchanged.
func extractTextContent(content string) string {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return content
	}
	return payload.Text
}

// stripMentions removes the @_user_N placeholders Feishu puts in the text of
// messages that mention someone. Group messages only reach the bot with such a
// mention in front of the command.
func stripMentions(text string, mentions []*larkim.MentionEvent) string {
	if len(mentions) == 0 {
		return text
	}
	for _, m := range mentions {
		if m == nil || m.Key == nil || *m.Key == "" {
			continue
		}
		text = strings.ReplaceAll(text, *m.Key, "")
	}
	return strings.Join(strings.Fields(text), " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
