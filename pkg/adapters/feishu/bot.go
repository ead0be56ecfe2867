package feishu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/sirupsen/logrus"
)

// Raw APIs reachable through CallAPI
const (
	APIUploadImage   = "im/v1/images"
	APICreateMessage = "im/v1/messages"
)

// ErrUnsupportedAPI is returned by CallAPI for API names it does not route
var ErrUnsupportedAPI = errors.New("unsupported feishu api")

// imAPI is the subset of the IM service the bot calls
type imAPI interface {
	CreateMessage(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error)
	CreateImage(ctx context.Context, req *larkim.CreateImageReq) (*larkim.CreateImageResp, error)
}

type larkIM struct {
	client *lark.Client
}

func (l larkIM) CreateMessage(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
	return l.client.Im.Message.Create(ctx, req)
}

func (l larkIM) CreateImage(ctx context.Context, req *larkim.CreateImageReq) (*larkim.CreateImageResp, error) {
	return l.client.Im.Image.Create(ctx, req)
}

// Bot implements adapters.Bot for Feishu using the WebSocket long connection
type Bot struct {
	mu                sync.RWMutex
	appID             string
	appSecret         string
	EncryptKey        string // Optional, for encrypted events
	VerificationToken string // Optional, for event verification
	im                imAPI
	wsClient          *ws.Client
	handler           adapters.EventHandler
	ctx               context.Context
	cancel            context.CancelFunc
}

// NewBot creates a new Feishu bot instance
func NewBot(appID, appSecret string) *Bot {
	return &Bot{
		appID:     appID,
		appSecret: appSecret,
		im:        larkIM{client: lark.NewClient(appID, appSecret)},
		ctx:       context.Background(),
	}
}

func (f *Bot) Adapter() adapters.Adapter { return Adapter{} }

// SelfID returns the app id; Feishu bots are addressed by their app
func (f *Bot) SelfID() string { return f.appID }

// Start establishes the WebSocket long connection and begins listening for messages
func (f *Bot) Start(handler adapters.EventHandler) error {
	f.mu.Lock()
	f.handler = handler
	f.ctx, f.cancel = context.WithCancel(context.Background())
	ctx := f.ctx
	f.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"adapter": constants.Feishu,
		"app_id":  adapters.MaskSecret(f.appID),
	}).Info("starting-feishu-bot-with-websocket-long-connection")

	eventDispatcher := dispatcher.NewEventDispatcher(f.VerificationToken, f.EncryptKey)
	eventDispatcher.OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
		return f.handleMessageReceive(ctx, event)
	})

	f.wsClient = ws.NewClient(f.appID, f.appSecret,
		ws.WithEventHandler(eventDispatcher),
		ws.WithLogLevel(larkcore.LogLevelInfo),
		ws.WithAutoReconnect(true),
	)

	// Start blocks for the lifetime of the connection
	go func() {
		if err := f.wsClient.Start(ctx); err != nil {
			logger.WithFields(logrus.Fields{
				"adapter": constants.Feishu,
				"error":   err,
			}).Error("feishu-websocket-connection-failed")
		}
	}()

	time.Sleep(constants.DefaultConnectionTimeout)

	logger.WithAdapter(constants.Feishu).Info("feishu-websocket-long-connection-started")
	return nil
}

func (f *Bot) handleMessageReceive(_ context.Context, event *larkim.P2MessageReceiveV1) error {
	ev := newEvent(event)
	if ev == nil {
		return nil
	}

	logger.WithFields(logrus.Fields{
		"adapter":     constants.Feishu,
		"event_name":  ev.EventName(),
		"user_id":     ev.UserID(),
		"chat_id":     ev.SessionID(),
		"content_len": len(ev.PlainText()),
	}).Info("received-feishu-message-event-parsed")

	if handler := f.getHandler(); handler != nil {
		handler(f, ev)
	}
	return nil
}

// CallAPI routes the raw APIs the shim needs:
//
//   - "im/v1/images": params image ([]byte or io.Reader), image_type (default
//     "message"); returns image_key
//   - "im/v1/messages": params receive_id, msg_type, content; returns message_id
func (f *Bot) CallAPI(ctx context.Context, api string, params map[string]any) (map[string]any, error) {
	switch api {
	case APIUploadImage:
		return f.uploadImage(ctx, params)
	case APICreateMessage:
		receiveID, _ := params["receive_id"].(string)
		msgType, _ := params["msg_type"].(string)
		content, _ := params["content"].(string)
		id, err := f.createMessage(ctx, receiveID, msgType, content)
		if err != nil {
			return nil, err
		}
		return map[string]any{"message_id": id}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAPI, api)
	}
}

func (f *Bot) uploadImage(ctx context.Context, params map[string]any) (map[string]any, error) {
	var image io.Reader
	switch v := params["image"].(type) {
	case []byte:
		image = bytes.NewReader(v)
	case io.Reader:
		image = v
	default:
		return nil, fmt.Errorf("%w: image must be []byte or io.Reader, got %T", message.ErrUnsupportedFile, params["image"])
	}

	imageType, _ := params["image_type"].(string)
	if imageType == "" {
		imageType = larkim.ImageTypeMessage
	}

	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType(imageType).
			Image(image).
			Build()).
		Build()

	resp, err := f.im.CreateImage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image to feishu: %w", err)
	}
	if !resp.Success() {
		logger.WithFields(logrus.Fields{
			"adapter": constants.Feishu,
			"code":    resp.Code,
			"msg":     resp.Msg,
		}).Error("failed-to-upload-image-to-feishu-api-error")
		return nil, fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return nil, fmt.Errorf("feishu image upload returned no image_key")
	}

	logger.WithField("adapter", constants.Feishu).Info("image-uploaded-to-feishu")
	return map[string]any{"image_key": *resp.Data.ImageKey}, nil
}

func (f *Bot) createMessage(ctx context.Context, chatID, msgType, content string) (string, error) {
	if chatID == "" {
		return "", fmt.Errorf("chat ID is required for Feishu")
	}

	body := larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(chatID).
		MsgType(msgType).
		Content(content).
		Build()

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(body).
		Build()

	resp, err := f.im.CreateMessage(ctx, req)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.Feishu,
			"chat_id": chatID,
			"error":   err,
		}).Error("failed-to-send-message-to-feishu")
		return "", fmt.Errorf("failed to send message to chat %s: %w", chatID, err)
	}
	if !resp.Success() {
		logger.WithFields(logrus.Fields{
			"adapter": constants.Feishu,
			"chat_id": chatID,
			"code":    resp.Code,
			"msg":     resp.Msg,
		}).Error("failed-to-send-message-to-feishu-api-error")
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	var messageID string
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	return messageID, nil
}

// Send posts msg to the chat of event. Text and mentions are merged into text
// messages; every image segment becomes its own image message, in order.
func (f *Bot) Send(ctx context.Context, event adapters.Event, msg message.Message) error {
	chatID := event.SessionID()
	if chatID == "" {
		return fmt.Errorf("chat ID is required for Feishu")
	}

	var text strings.Builder
	flush := func() error {
		if text.Len() == 0 {
			return nil
		}
		content := adapters.Truncate(text.String(), constants.MaxFeishuMessageLength)
		text.Reset()
		payload, err := json.Marshal(map[string]string{"text": content})
		if err != nil {
			return fmt.Errorf("failed to encode feishu text: %w", err)
		}
		_, err = f.createMessage(ctx, chatID, larkim.MsgTypeText, string(payload))
		return err
	}

	for _, seg := range msg {
		switch seg.Type {
		case message.TypeText:
			text.WriteString(seg.Str("text"))
		case message.TypeAt:
			fmt.Fprintf(&text, `<at user_id="%s"></at>`, seg.Str("user_id"))
		case message.TypeImage:
			if err := flush(); err != nil {
				return err
			}
			payload, err := json.Marshal(map[string]string{"image_key": seg.Str("image_key")})
			if err != nil {
				return fmt.Errorf("failed to encode feishu image: %w", err)
			}
			if _, err := f.createMessage(ctx, chatID, larkim.MsgTypeImage, string(payload)); err != nil {
				return err
			}
		default:
			logger.WithFields(logrus.Fields{
				"adapter": constants.Feishu,
				"segment": seg.Type,
			}).Warn("feishu-segment-type-skipped")
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"adapter": constants.Feishu,
		"chat_id": chatID,
	}).Info("message-sent-to-feishu")
	return nil
}

// Stop closes the long connection by cancelling its context
func (f *Bot) Stop() error {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	logger.WithAdapter(constants.Feishu).Info("feishu-bot-stopped")
	return nil
}

// SetMessageHandler sets the event handler in a thread-safe manner
func (f *Bot) SetMessageHandler(handler adapters.EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *Bot) getHandler() adapters.EventHandler {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.handler
}
