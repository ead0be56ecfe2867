package constants

import "time"

// Adapter names as reported by Adapter.Name(). Only the first four take part in
// the built-in segment lookup; the rest resolve through the generic fallback.
const (
	OneBot   = "OneBot V11"
	Feishu   = "Feishu"
	Telegram = "Telegram"
	QQGuild  = "QQ Guild"

	Discord  = "Discord"
	DingTalk = "DingTalk"
)

// KnownAdapters lists the adapter names with dedicated handling.
var KnownAdapters = []string{OneBot, Feishu, Telegram, QQGuild}

// Event names shared by several adapters
const (
	EventPrivateMessagePrefix = "message.private"
	EventFeishuP2P            = "message.p2p"
	EventGroupMessage         = "message.group"
	EventGuildMessage         = "message.guild"
	EventQQGuildAtMessage     = "at_message_create"
)

// Message length limits for different platforms
const (
	MaxDiscordMessageLength  = 2000
	MaxTelegramMessageLength = 4096
	MaxTelegramCaptionLength = 1024
	MaxFeishuMessageLength   = 20000
	MaxDingTalkMessageLength = 20000
	MaxQQGuildMessageLength  = 2000
)

// Timeouts and delays
const (
	// DefaultConnectionTimeout is the time given to SDK long connections to come up
	DefaultConnectionTimeout = 2 * time.Second
	// DefaultPollTimeout is the timeout for long polling operations
	DefaultPollTimeout = 60 * time.Second
	// DefaultAPITimeout bounds a single OneBot action round trip
	DefaultAPITimeout = 8 * time.Second
	// DefaultHandshakeTimeout bounds WebSocket handshakes
	DefaultHandshakeTimeout = 10 * time.Second
	// MaxReconnectInterval caps the exponential reconnect backoff
	MaxReconnectInterval = time.Minute
)

// Buffer and cache sizes
const (
	// EventChannelBufferSize is the buffer size of the engine event channel
	EventChannelBufferSize = 100
	// SegmentFactoryCacheSize is the number of resolved segment factories kept
	SegmentFactoryCacheSize = 10
)

// Secret masking
const (
	MinSecretLengthForMasking = 10
	SecretMaskPrefixLength    = 4
	SecretMaskSuffixLength    = 4
)
