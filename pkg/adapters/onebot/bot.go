package onebot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by API calls while the WebSocket is down
var ErrNotConnected = errors.New("onebot websocket not connected")

// Config configures a forward WebSocket connection to a OneBot implementation
type Config struct {
	WSURL       string
	AccessToken string
	APITimeout  time.Duration
}

type apiRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
	Echo   string         `json:"echo"`
}

type apiResponse struct {
	Status  string          `json:"status"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Wording string          `json:"wording"`
	Echo    string          `json:"echo"`
}

type frameHeader struct {
	PostType string          `json:"post_type"`
	Echo     json.RawMessage `json:"echo"`
}

// Bot implements adapters.Bot for OneBot v11
type Bot struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	waitMu  sync.Mutex

	cfg     Config
	dialer  *websocket.Dialer
	conn    *websocket.Conn
	selfID  string
	handler adapters.EventHandler
	waiters map[string]chan apiResponse
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBot creates a new OneBot bot instance
func NewBot(cfg Config) *Bot {
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = constants.DefaultAPITimeout
	}
	return &Bot{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: constants.DefaultHandshakeTimeout},
		waiters: make(map[string]chan apiResponse),
	}
}

func (b *Bot) Adapter() adapters.Adapter { return Adapter{} }

func (b *Bot) SelfID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selfID
}

// Start dials the OneBot implementation and begins reading events. Lost
// connections are re-established with exponential backoff until Stop.
func (b *Bot) Start(handler adapters.EventHandler) error {
	if b.cfg.WSURL == "" {
		return fmt.Errorf("onebot ws_url not configured")
	}

	b.mu.Lock()
	b.handler = handler
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"adapter": constants.OneBot,
		"ws_url":  b.cfg.WSURL,
	}).Info("starting-onebot-bot")

	if err := b.connect(); err != nil {
		b.cancel()
		return fmt.Errorf("failed to connect to onebot: %w", err)
	}

	go b.run()
	return nil
}

func (b *Bot) connect() error {
	header := http.Header{}
	if b.cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+b.cfg.AccessToken)
	}

	conn, _, err := b.dialer.DialContext(b.ctx, b.cfg.WSURL, header)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.OneBot,
			"error":   err,
		}).Warn("onebot-dial-failed")
		return err
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	logger.WithAdapter(constants.OneBot).Info("onebot-websocket-connected")
	return nil
}

func (b *Bot) run() {
	for {
		b.listen()
		if b.ctx.Err() != nil {
			return
		}

		policy := backoff.NewExponentialBackOff()
		policy.MaxInterval = constants.MaxReconnectInterval
		policy.MaxElapsedTime = 0
		if err := backoff.Retry(b.connect, backoff.WithContext(policy, b.ctx)); err != nil {
			logger.WithAdapter(constants.OneBot).Info("onebot-reconnect-stopped")
			return
		}
	}
}

func (b *Bot) listen() {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if b.ctx.Err() == nil {
				logger.WithFields(logrus.Fields{
					"adapter": constants.OneBot,
					"error":   err,
				}).Error("onebot-websocket-read-failed")
			}
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
			}
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.handleFrame(data)
	}
}

func (b *Bot) handleFrame(data []byte) {
	var header frameHeader
	if err := json.Unmarshal(data, &header); err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.OneBot,
			"error":   err,
		}).Warn("onebot-frame-undecodable")
		return
	}

	if header.PostType == "" && len(header.Echo) > 0 {
		b.dispatchResponse(data)
		return
	}

	parsed, err := ParseEvent(data)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.OneBot,
			"error":   err,
		}).Warn("onebot-event-undecodable")
		return
	}

	if meta, ok := parsed.(*MetaEvent); ok {
		if meta.MetaEventType == "lifecycle" && meta.SelfID != 0 {
			b.mu.Lock()
			b.selfID = strconv.FormatInt(meta.SelfID, 10)
			b.mu.Unlock()
		}
		logger.WithFields(logrus.Fields{
			"adapter":         constants.OneBot,
			"meta_event_type": meta.MetaEventType,
		}).Debug("onebot-meta-event")
		return
	}

	event, ok := parsed.(adapters.Event)
	if !ok {
		return
	}

	logger.WithFields(logrus.Fields{
		"adapter":    constants.OneBot,
		"event_name": event.EventName(),
		"user_id":    event.UserID(),
		"session":    event.SessionID(),
	}).Info("received-onebot-event")

	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler != nil {
		handler(b, event)
	}
}

func (b *Bot) dispatchResponse(data []byte) {
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.OneBot,
			"error":   err,
		}).Warn("onebot-response-undecodable")
		return
	}

	b.waitMu.Lock()
	waiter, ok := b.waiters[resp.Echo]
	b.waitMu.Unlock()
	if !ok {
		logger.WithField("echo", resp.Echo).Debug("onebot-response-without-waiter")
		return
	}
	select {
	case waiter <- resp:
	default:
	}
}

// CallAPI sends an action and waits for the response with the same echo
func (b *Bot) CallAPI(ctx context.Context, action string, params map[string]any) (map[string]any, error) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	echo := uuid.NewString()
	waiter := make(chan apiResponse, 1)

	b.waitMu.Lock()
	b.waiters[echo] = waiter
	b.waitMu.Unlock()
	defer func() {
		b.waitMu.Lock()
		delete(b.waiters, echo)
		b.waitMu.Unlock()
	}()

	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(apiRequest{Action: action, Params: params, Echo: echo})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal onebot request: %w", err)
	}

	b.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	b.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to write onebot request: %w", err)
	}

	timer := time.NewTimer(b.cfg.APITimeout)
	defer timer.Stop()

	select {
	case resp := <-waiter:
		return decodeResponse(action, resp)
	case <-timer.C:
		return nil, fmt.Errorf("onebot action %s timed out", action)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func decodeResponse(action string, resp apiResponse) (map[string]any, error) {
	if resp.Status == "failed" || resp.RetCode != 0 {
		return nil, fmt.Errorf("onebot action %s failed: retcode=%d, msg=%s", action, resp.RetCode, resp.Message+resp.Wording)
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		// list results such as get_friend_list
		var list []any
		if lerr := json.Unmarshal(resp.Data, &list); lerr != nil {
			return nil, fmt.Errorf("failed to decode onebot %s response: %w", action, err)
		}
		return map[string]any{"list": list}, nil
	}
	return data, nil
}

// Send replies to the private chat or group the event came from
func (b *Bot) Send(ctx context.Context, event adapters.Event, msg message.Message) error {
	var (
		action string
		params map[string]any
	)
	switch ev := event.(type) {
	case *PrivateMessageEvent:
		action = "send_private_msg"
		params = map[string]any{"user_id": ev.QQ, "message": msg}
	case *GroupMessageEvent:
		action = "send_group_msg"
		params = map[string]any{"group_id": ev.GroupID, "message": msg}
	default:
		return fmt.Errorf("onebot cannot reply to %T", event)
	}

	if _, err := b.CallAPI(ctx, action, params); err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.OneBot,
			"session": event.SessionID(),
			"error":   err,
		}).Error("failed-to-send-message-to-onebot")
		return fmt.Errorf("failed to send message to %s: %w", event.SessionID(), err)
	}

	logger.WithFields(logrus.Fields{
		"adapter": constants.OneBot,
		"session": event.SessionID(),
	}).Info("message-sent-to-onebot")
	return nil
}

// Stop closes the WebSocket and stops reconnecting
func (b *Bot) Stop() error {
	b.mu.Lock()
	cancel := b.cancel
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	logger.WithAdapter(constants.OneBot).Info("onebot-bot-stopped")
	return nil
}
