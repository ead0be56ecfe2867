package dingtalk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/client"
	"github.com/sirupsen/logrus"
)

// APIReplyText replies with content through session_webhook
const APIReplyText = "reply_text"

var (
	// ErrUnsupportedAPI is returned by CallAPI for methods it does not route
	ErrUnsupportedAPI = errors.New("unsupported dingtalk api")
	// ErrNoSessionWebhook is returned when an event carries no reply webhook
	ErrNoSessionWebhook = errors.New("dingtalk session webhook missing")
)

// replier is the part of *chatbot.ChatbotReplier the bot uses
type replier interface {
	SimpleReplyText(ctx context.Context, sessionWebhook string, content []byte) error
}

// webhookEvent is implemented by DingTalk message events
type webhookEvent interface {
	Webhook() string
}

// Bot implements adapters.Bot for DingTalk using the stream long connection
type Bot struct {
	mu           sync.RWMutex
	clientID     string
	clientSecret string
	streamClient *client.StreamClient
	replier      replier
	selfID       string
	handler      adapters.EventHandler
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewBot creates a new DingTalk bot instance
func NewBot(clientID, clientSecret string) *Bot {
	return &Bot{
		clientID:     clientID,
		clientSecret: clientSecret,
		replier:      chatbot.NewChatbotReplier(),
	}
}

func (d *Bot) Adapter() adapters.Adapter { return Adapter{} }

func (d *Bot) SelfID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selfID
}

// Start establishes the stream long connection and begins listening for messages
func (d *Bot) Start(handler adapters.EventHandler) error {
	d.SetMessageHandler(handler)

	logger.WithFields(logrus.Fields{
		"adapter":   constants.DingTalk,
		"client_id": adapters.MaskSecret(d.clientID),
	}).Info("starting-dingtalk-bot-with-websocket-long-connection")

	credential := client.NewAppCredentialConfig(d.clientID, d.clientSecret)
	streamClient := client.NewStreamClient(client.WithAppCredential(credential))
	streamClient.RegisterChatBotCallbackRouter(d.handleMessageReceive)

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.streamClient = streamClient
	d.ctx, d.cancel = ctx, cancel
	d.mu.Unlock()

	go func() {
		if err := streamClient.Start(ctx); err != nil {
			logger.WithFields(logrus.Fields{
				"adapter":   constants.DingTalk,
				"client_id": adapters.MaskSecret(d.clientID),
				"error":     err,
			}).Error("dingtalk-websocket-connection-failed")
		}
	}()

	time.Sleep(constants.DefaultConnectionTimeout)

	logger.WithAdapter(constants.DingTalk).Info("dingtalk-websocket-long-connection-started")
	return nil
}

func (d *Bot) handleMessageReceive(ctx context.Context, data *chatbot.BotCallbackDataModel) ([]byte, error) {
	ev := newEvent(data)
	if ev == nil {
		return []byte(""), nil
	}

	if data.ChatbotUserId != "" {
		d.mu.Lock()
		d.selfID = data.ChatbotUserId
		d.mu.Unlock()
	}

	logger.WithFields(logrus.Fields{
		"adapter":           constants.DingTalk,
		"event_name":        ev.EventName(),
		"conversation_id":   data.ConversationId,
		"conversation_type": data.ConversationType,
		"sender_staff_id":   data.SenderStaffId,
		"msg_id":            data.MsgId,
		"msg_type":          data.Msgtype,
	}).Info("received-dingtalk-message-event-parsed")

	if handler := d.GetMessageHandler(); handler != nil {
		handler(d, ev)
	}
	return []byte(""), nil
}

// CallAPI routes reply_text{session_webhook, content}
func (d *Bot) CallAPI(ctx context.Context, api string, params map[string]any) (map[string]any, error) {
	if api != APIReplyText {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAPI, api)
	}
	webhook, _ := params["session_webhook"].(string)
	content, _ := params["content"].(string)
	if err := d.reply(ctx, webhook, content); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

// Send replies to event through its session webhook
func (d *Bot) Send(ctx context.Context, event adapters.Event, msg message.Message) error {
	ev, ok := event.(webhookEvent)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNoSessionWebhook, event)
	}

	var content strings.Builder
	for _, seg := range msg {
		switch seg.Type {
		case message.TypeText:
			content.WriteString(seg.Str("text"))
		case TypeMention:
			content.WriteString("@" + seg.Str("user_id") + " ")
		default:
			logger.WithFields(logrus.Fields{
				"adapter": constants.DingTalk,
				"segment": seg.Type,
			}).Warn("dingtalk-segment-type-skipped")
		}
	}
	if content.Len() == 0 {
		return nil
	}
	return d.reply(ctx, ev.Webhook(), content.String())
}

func (d *Bot) reply(ctx context.Context, webhook, content string) error {
	if webhook == "" {
		return ErrNoSessionWebhook
	}

	if len(content) > constants.MaxDingTalkMessageLength {
		logger.WithFields(logrus.Fields{
			"original_length": len(content),
			"max_length":      constants.MaxDingTalkMessageLength,
		}).Info("truncating-message-for-dingtalk-limit")
		content = adapters.Truncate(content, constants.MaxDingTalkMessageLength)
	}

	if err := d.replier.SimpleReplyText(ctx, webhook, []byte(content)); err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.DingTalk,
			"error":   err,
		}).Error("failed-to-send-message-to-dingtalk")
		return fmt.Errorf("failed to reply through dingtalk session webhook: %w", err)
	}

	logger.WithAdapter(constants.DingTalk).Info("message-sent-to-dingtalk")
	return nil
}

// Stop closes the stream connection
func (d *Bot) Stop() error {
	d.mu.Lock()
	cancel := d.cancel
	streamClient := d.streamClient
	d.streamClient = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if streamClient != nil {
		streamClient.Close()
		logger.WithAdapter(constants.DingTalk).Info("dingtalk-websocket-connection-stopped")
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
