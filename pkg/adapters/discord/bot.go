package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/sirupsen/logrus"
)

// APISendMessage sends plain content to channel_id
const APISendMessage = "send_message"

// ErrUnsupportedAPI is returned by CallAPI for methods it does not route
var ErrUnsupportedAPI = errors.New("unsupported discord api")

// SessionInterface is the part of *discordgo.Session the bot uses. It lets
// tests run without a gateway connection.
type SessionInterface interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot implements adapters.Bot for Discord
type Bot struct {
	mu      sync.RWMutex
	token   string
	session SessionInterface
	selfID  string
	handler adapters.EventHandler
}

// NewBot creates a new Discord bot instance
func NewBot(token string) *Bot {
	return &Bot{token: token}
}

func (d *Bot) Adapter() adapters.Adapter { return Adapter{} }

func (d *Bot) SelfID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selfID
}

// Start opens the gateway session. A session injected beforehand is used as is.
func (d *Bot) Start(handler adapters.EventHandler) error {
	d.SetMessageHandler(handler)

	logger.WithFields(logrus.Fields{
		"adapter": constants.Discord,
		"token":   adapters.MaskSecret(d.token),
	}).Info("starting-discord-bot")

	d.mu.Lock()
	session := d.session
	if session == nil {
		s, err := discordgo.New("Bot " + d.token)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("failed to create discord session: %w", err)
		}
		s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
		session = s
		d.session = s
	}
	d.mu.Unlock()

	session.AddHandler(d.onReady)
	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

func (d *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r == nil || r.User == nil {
		return
	}
	d.mu.Lock()
	d.selfID = r.User.ID
	d.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"adapter": constants.Discord,
		"self_id": r.User.ID,
	}).Info("discord-session-ready")
}

func (d *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ev := newEvent(m)
	if ev == nil {
		return
	}

	logger.WithFields(logrus.Fields{
		"adapter":    constants.Discord,
		"event_name": ev.EventName(),
		"user_id":    ev.UserID(),
		"channel":    ev.SessionID(),
	}).Info("message-received-from-discord")

	if handler := d.GetMessageHandler(); handler != nil {
		handler(d, ev)
	}
}

// CallAPI routes send_message{channel_id, content}
func (d *Bot) CallAPI(ctx context.Context, api string, params map[string]any) (map[string]any, error) {
	if api != APISendMessage {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAPI, api)
	}
	session, err := d.currentSession()
	if err != nil {
		return nil, err
	}

	channelID, _ := params["channel_id"].(string)
	content, _ := params["content"].(string)
	if channelID == "" {
		return nil, fmt.Errorf("channel_id is required")
	}

	sent, err := session.ChannelMessageSend(channelID, adapters.Truncate(content, constants.MaxDiscordMessageLength),
		discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return map[string]any{"message_id": sent.ID}, nil
}

// Send replies in the event's channel. Text and mentions form the content,
// URL images become embeds and uploaded images become files.
func (d *Bot) Send(ctx context.Context, event adapters.Event, msg message.Message) error {
	session, err := d.currentSession()
	if err != nil {
		return err
	}

	channelID := event.SessionID()
	if channelID == "" {
		return fmt.Errorf("channel ID is required for Discord")
	}

	var content strings.Builder
	data := &discordgo.MessageSend{}
	for _, seg := range msg {
		switch seg.Type {
		case message.TypeText:
			content.WriteString(seg.Str("text"))
		case TypeMention:
			content.WriteString("<@" + seg.Str("user_id") + ">")
		case message.TypeImage:
			data.Embeds = append(data.Embeds, &discordgo.MessageEmbed{
				Image: &discordgo.MessageEmbedImage{URL: seg.Str("url")},
			})
		case TypeAttachment:
			raw, _ := seg.Data["data"].([]byte)
			data.Files = append(data.Files, &discordgo.File{
				Name:   seg.Str("name"),
				Reader: bytes.NewReader(raw),
			})
		default:
			logger.WithFields(logrus.Fields{
				"adapter": constants.Discord,
				"segment": seg.Type,
			}).Warn("discord-segment-type-skipped")
		}
	}

	text := content.String()
	if len(text) > constants.MaxDiscordMessageLength {
		logger.WithFields(logrus.Fields{
			"original_length": len(text),
			"max_length":      constants.MaxDiscordMessageLength,
		}).Info("truncating-message-for-discord-limit")
		text = adapters.Truncate(text, constants.MaxDiscordMessageLength)
	}
	data.Content = text

	if data.Content == "" && len(data.Embeds) == 0 && len(data.Files) == 0 {
		return nil
	}

	if ev, ok := event.(*GuildMessageEvent); ok {
		data.Reference = &discordgo.MessageReference{MessageID: ev.MessageID, ChannelID: ev.ChannelID, GuildID: ev.GuildID}
	}

	if _, err := session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx)); err != nil {
		logger.WithFields(logrus.Fields{
			"channel": channelID,
			"error":   err,
		}).Error("failed-to-send-message-to-discord")
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}

	logger.WithField("channel", channelID).Info("message-sent-to-discord")
	return nil
}

func (d *Bot) currentSession() (SessionInterface, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.session == nil {
		return nil, fmt.Errorf("discord session not initialized")
	}
	return d.session, nil
}

// Stop closes the Discord connection
func (d *Bot) Stop() error {
	d.mu.Lock()
	session := d.session
	d.session = nil
	d.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

// SetMessageHandler sets the event handler in a thread-safe manner
func (d *Bot) SetMessageHandler(handler adapters.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

// GetMessageHandler gets the event handler in a thread-safe manner
func (d *Bot) GetMessageHandler() adapters.EventHandler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handler
}
