package onebot

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/message"
)

// Sender is the sender block of a message event
type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
}

// MessageEvent holds the fields shared by private and group messages
type MessageEvent struct {
	Time        int64           `json:"time"`
	SelfID      int64           `json:"self_id"`
	MessageType string          `json:"message_type"`
	SubType     string          `json:"sub_type"`
	MessageID   int64           `json:"message_id"`
	QQ          int64           `json:"user_id"`
	RawMessage  string          `json:"raw_message"`
	Sender      Sender          `json:"sender"`
	Message     message.Message `json:"-"`
}

func (e *MessageEvent) EventType() string { return adapters.EventTypeMessage }
func (e *MessageEvent) UserID() string { return strconv.FormatInt(e.QQ, 10) }
func (e *MessageEvent) PlainText() string { return e.Message.PlainText() }

// PrivateMessageEvent is a direct message ("message.private.*")
type PrivateMessageEvent struct {
	MessageEvent
}

func (e *PrivateMessageEvent) EventName() string {
	if e.SubType == "" {
		return "message.private"
	}
	return "message.private." + e.SubType
}

func (e *PrivateMessageEvent) SessionID() string {
	return "private:" + e.UserID()
}

// GroupMessageEvent is a group chat message ("message.group.*")
type GroupMessageEvent struct {
	MessageEvent
	GroupID int64 `json:"group_id"`
}

func (e *GroupMessageEvent) EventName() string {
	if e.SubType == "" {
		return "message.group"
	}
	return "message.group." + e.SubType
}

func (e *GroupMessageEvent) SessionID() string {
	return "group:" + strconv.FormatInt(e.GroupID, 10)
}

// NoticeEvent covers notice posts; only the common fields are decoded
type NoticeEvent struct {
	Time       int64  `json:"time"`
	SelfID     int64  `json:"self_id"`
	NoticeType string `json:"notice_type"`
	SubType    string `json:"sub_type"`
	QQ         int64  `json:"user_id"`
	GroupID    int64  `json:"group_id"`
}

func (e *NoticeEvent) EventName() string {
	if e.SubType == "" {
		return "notice." + e.NoticeType
	}
	return "notice." + e.NoticeType + "." + e.SubType
}

func (e *NoticeEvent) EventType() string { return adapters.EventTypeNotice }
func (e *NoticeEvent) UserID() string { return strconv.FormatInt(e.QQ, 10) }
func (e *NoticeEvent) PlainText() string { return "" }

func (e *NoticeEvent) SessionID() string {
	if e.GroupID != 0 {
		return "group:" + strconv.FormatInt(e.GroupID, 10)
	}
	return "private:" + e.UserID()
}

// MetaEvent is a heartbeat or lifecycle post
type MetaEvent struct {
	Time          int64  `json:"time"`
	SelfID        int64  `json:"self_id"`
	MetaEventType string `json:"meta_event_type"`
	SubType       string `json:"sub_type"`
}

type rawEvent struct {
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	Message     json.RawMessage `json:"message"`
}

// ParseEvent decodes one OneBot post. Meta events are returned as *MetaEvent,
// which does not implement adapters.Event.
func ParseEvent(data []byte) (any, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode onebot event: %w", err)
	}

	switch raw.PostType {
	case "message", "message_sent":
		segments, err := parseMessage(raw.Message)
		if err != nil {
			return nil, err
		}
		switch raw.MessageType {
		case "private":
			ev := &PrivateMessageEvent{}
			if err := json.Unmarshal(data, ev); err != nil {
				return nil, fmt.Errorf("failed to decode private message: %w", err)
			}
			ev.Message = segments
			return ev, nil
		case "group":
			ev := &GroupMessageEvent{}
			if err := json.Unmarshal(data, ev); err != nil {
				return nil, fmt.Errorf("failed to decode group message: %w", err)
			}
			ev.Message = segments
			return ev, nil
		default:
			return nil, fmt.Errorf("unknown onebot message type %q", raw.MessageType)
		}
	case "notice":
		ev := &NoticeEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("failed to decode notice: %w", err)
		}
		return ev, nil
	case "meta_event":
		ev := &MetaEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("failed to decode meta event: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown onebot post type %q", raw.PostType)
	}
}

// parseMessage accepts the array format. String (CQ code) payloads are kept as
// a single text segment.
func parseMessage(raw json.RawMessage) (message.Message, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode message string: %w", err)
		}
		return message.NewMessage(Segments.Text(s)), nil
	}
	var segments message.Message
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, fmt.Errorf("failed to decode message segments: %w", err)
	}
	return segments, nil
}
