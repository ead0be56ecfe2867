package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedAPI is returned by CallAPI for methods it does not route
var ErrUnsupportedAPI = errors.New("unsupported telegram api")

// botAPI is the part of *tgbotapi.BotAPI used after startup
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

// Bot implements adapters.Bot for Telegram using long polling
type Bot struct {
	mu      sync.RWMutex
	token   string
	api     botAPI
	selfID  string
	name    string
	handler adapters.EventHandler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBot creates a new Telegram bot instance
func NewBot(token string) *Bot {
	return &Bot{token: token}
}

func (t *Bot) Adapter() adapters.Adapter { return Adapter{} }

func (t *Bot) SelfID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selfID
}

// Username is the bot's @username, used in group commands like /start@name
func (t *Bot) Username() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// Start initializes the Bot API client and begins long polling
func (t *Bot) Start(handler adapters.EventHandler) error {
	t.SetMessageHandler(handler)

	logger.WithFields(logrus.Fields{
		"adapter": constants.Telegram,
		"token":   adapters.MaskSecret(t.token),
	}).Info("starting-telegram-bot-with-long-polling")

	api, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.Telegram,
			"error":   err,
		}).Error("failed-to-initialize-telegram-bot")
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.api = api
	t.selfID = strconv.FormatInt(api.Self.ID, 10)
	t.name = api.Self.UserName
	t.ctx, t.cancel = ctx, cancel
	t.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"adapter":      constants.Telegram,
		"bot_username": api.Self.UserName,
		"bot_id":       api.Self.ID,
	}).Info("telegram-bot-initialized-successfully")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(constants.DefaultPollTimeout.Seconds())
	updates := api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.WithAdapter(constants.Telegram).Info("telegram-long-polling-stopped")
				return
			case update, ok := <-updates:
				if !ok {
					logger.WithAdapter(constants.Telegram).Info("telegram-updates-channel-closed")
					return
				}
				if update.Message != nil {
					t.handleMessage(update.Message)
				}
			}
		}
	}()

	logger.WithAdapter(constants.Telegram).Info("telegram-long-polling-connection-started")
	return nil
}

func (t *Bot) handleMessage(msg *tgbotapi.Message) {
	ev := newEvent(msg)
	if ev == nil {
		return
	}

	logger.WithFields(logrus.Fields{
		"adapter":     constants.Telegram,
		"event_name":  ev.EventName(),
		"user_id":     ev.UserID(),
		"chat_id":     ev.SessionID(),
		"content_len": len(ev.PlainText()),
	}).Info("received-telegram-message-parsed")

	if handler := t.GetMessageHandler(); handler != nil {
		handler(t, ev)
	}
}

// CallAPI supports "sendChatAction" (params chat_id int64, action string)
func (t *Bot) CallAPI(ctx context.Context, api string, params map[string]any) (map[string]any, error) {
	t.mu.RLock()
	client := t.api
	t.mu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("telegram bot not initialized")
	}

	switch api {
	case "sendChatAction":
		chatID, _ := params["chat_id"].(int64)
		action, _ := params["action"].(string)
		resp, err := client.Request(tgbotapi.NewChatAction(chatID, action))
		if err != nil {
			return nil, fmt.Errorf("telegram %s failed: %w", api, err)
		}
		return map[string]any{"ok": resp.Ok}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAPI, api)
	}
}

// Send delivers msg to the chat of event. Text runs are sent as text
// messages; a text run directly before a photo becomes its caption when short
// enough.
func (t *Bot) Send(ctx context.Context, event adapters.Event, msg message.Message) error {
	t.mu.RLock()
	client := t.api
	t.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(event.SessionID(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID format: %w", err)
	}

	var run textRun
	for _, seg := range msg {
		switch seg.Type {
		case message.TypeText:
			run.write(seg.Str("text"))
		case TypeMention:
			run.mention(seg.Str("user_id"))
		case TypePhoto:
			file, ok := PhotoFile(seg)
			if !ok {
				return fmt.Errorf("photo segment has no file")
			}
			photo := tgbotapi.NewPhoto(chatID, file)
			if !run.empty() && run.len16() <= constants.MaxTelegramCaptionLength {
				photo.Caption = run.text.String()
				photo.CaptionEntities = run.entities
				run = textRun{}
			} else if err := t.sendText(client, chatID, &run); err != nil {
				return t.sendFailed(event, err)
			}
			if _, err := client.Send(photo); err != nil {
				return t.sendFailed(event, err)
			}
		default:
			logger.WithFields(logrus.Fields{
				"adapter": constants.Telegram,
				"segment": seg.Type,
			}).Warn("telegram-segment-type-skipped")
		}
	}
	if err := t.sendText(client, chatID, &run); err != nil {
		return t.sendFailed(event, err)
	}

	logger.WithFields(logrus.Fields{
		"adapter": constants.Telegram,
		"chat_id": chatID,
	}).Info("message-sent-to-telegram")
	return nil
}

func (t *Bot) sendText(client botAPI, chatID int64, run *textRun) error {
	if run.empty() {
		return nil
	}
	text := run.text.String()
	if len(text) > constants.MaxTelegramMessageLength {
		logger.WithFields(logrus.Fields{
			"adapter":         constants.Telegram,
			"original_length": len(text),
			"max_length":      constants.MaxTelegramMessageLength,
		}).Info("truncating-message-for-telegram-limit")
		text = adapters.Truncate(text, constants.MaxTelegramMessageLength)
	}
	out := tgbotapi.NewMessage(chatID, text)
	out.Entities = run.entitiesWithin(text)
	*run = textRun{}
	_, err := client.Send(out)
	return err
}

func (t *Bot) sendFailed(event adapters.Event, err error) error {
	logger.WithFields(logrus.Fields{
		"adapter": constants.Telegram,
		"chat_id": event.SessionID(),
		"error":   err,
	}).Error("failed-to-send-message-to-telegram")
	return fmt.Errorf("failed to send message to chat %s: %w", event.SessionID(), err)
}

// Stop stops long polling and releases the client
func (t *Bot) Stop() error {
	t.mu.Lock()
	cancel := t.cancel
	api := t.api
	t.api = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if api != nil {
		api.StopReceivingUpdates()
	}

	logger.WithAdapter(constants.Telegram).Info("telegram-bot-stopped")
	return nil
}

// SetMessageHandler sets the event handler in a thread-safe manner
func (t *Bot) SetMessageHandler(handler adapters.EventHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// GetMessageHandler gets the event handler in a thread-safe manner
func (t *Bot) GetMessageHandler() adapters.EventHandler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handler
}

// textRun accumulates text and mention entities. Entity offsets are in UTF-16
// code units as the Bot API requires.
type textRun struct {
	text     strings.Builder
	entities []tgbotapi.MessageEntity
}

func (r *textRun) empty() bool { return r.text.Len() == 0 }

func (r *textRun) len16() int { return utf16Len(r.text.String()) }

func (r *textRun) write(s string) { r.text.WriteString(s) }

func (r *textRun) mention(userID string) {
	if strings.HasPrefix(userID, "@") {
		r.text.WriteString(userID)
		return
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		r.text.WriteString("@" + userID)
		return
	}
	label := "@" + userID
	r.entities = append(r.entities, tgbotapi.MessageEntity{
		Type:   "text_mention",
		Offset: r.len16(),
		Length: utf16Len(label),
		User:   &tgbotapi.User{ID: id},
	})
	r.text.WriteString(label)
}

// entitiesWithin drops entities that no longer fit a truncated text
func (r *textRun) entitiesWithin(text string) []tgbotapi.MessageEntity {
	limit := utf16Len(text)
	var out []tgbotapi.MessageEntity
	for _, e := range r.entities {
		if e.Offset+e.Length <= limit {
			out = append(out, e)
		}
	}
	return out
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
