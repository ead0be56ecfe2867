// Package adapters defines the host contracts every chat platform integration
// implements.
//
// The platform packages under this directory (onebot, feishu, telegram, qqguild,
// discord, dingtalk) each provide an Adapter, a Bot, concrete event types and a
// message.Factory. Command handlers should not branch on those packages directly;
// the params package resolves the live adapter and hands back the right pieces.
//
// # Lifecycle
//
//  1. Create a bot with the platform's New* function
//  2. Call Start() with an EventHandler
//  3. Reply with Send() using the event the handler received
//  4. Call Stop() when shutting down
//
// All bots are safe for concurrent use. The handler may be called from
// several goroutines at once.
package adapters

import (
	"context"

	"github.com/keepmind9/botparams/pkg/message"
)

// Adapter identifies a platform integration.
type Adapter interface {
	// Name returns one of the names in pkg/constants
	Name() string
}

// SegmentProvider is implemented by adapters that expose their own segment
// factory. It is the fallback for adapters without built-in handling.
type SegmentProvider interface {
	MessageSegments() message.Factory
}

// Bot is a connected account on one platform.
type Bot interface {
	// Adapter returns the adapter the bot belongs to
	Adapter() Adapter

	// SelfID returns the bot's own account id, empty before Start
	SelfID() string

	// Start connects and begins delivering events to handler
	Start(handler EventHandler) error

	// Send replies to the conversation event came from
	Send(ctx context.Context, event Event, msg message.Message) error

	// CallAPI invokes a raw platform API. Supported names are platform specific.
	CallAPI(ctx context.Context, api string, params map[string]any) (map[string]any, error)

	// Stop disconnects and releases resources
	Stop() error
}

// Event is an inbound platform event.
type Event interface {
	// EventName is the dotted, platform specific name, e.g. "message.private.friend"
	EventName() string

	// EventType is the coarse kind: "message", "notice", "meta_event"
	EventType() string

	// UserID is the sender id used for mentions and permission checks
	UserID() string

	// SessionID identifies the conversation for replies
	SessionID() string

	// PlainText is the text content of a message event
	PlainText() string
}

// EventHandler receives events from a running bot.
type EventHandler func(bot Bot, event Event)

// Event types
const (
	EventTypeMessage   = "message"
	EventTypeNotice    = "notice"
	EventTypeMetaEvent = "meta_event"
)
