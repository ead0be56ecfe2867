package qqguild

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/sirupsen/logrus"
)

// API hosts
const (
	DefaultAPIBase = "https://api.sgroup.qq.com"
	SandboxAPIBase = "https://sandbox.api.sgroup.qq.com"
)

// IntentPublicGuildMessages subscribes to AT_MESSAGE_CREATE
const IntentPublicGuildMessages = 1 << 30

// Gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Config configures a QQ guild bot
type Config struct {
	AppID   string
	Token   string
	Sandbox bool
	Intents int
	APIBase string // overrides the host chosen by Sandbox
}

type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type outbound struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

// Bot implements adapters.Bot for QQ guilds
type Bot struct {
	mu      sync.RWMutex
	writeMu sync.Mutex

	cfg     Config
	client  *http.Client
	dialer  *websocket.Dialer
	conn    *websocket.Conn
	seq     atomic.Int64
	selfID  string
	handler adapters.EventHandler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBot creates a new QQ guild bot instance
func NewBot(cfg Config) *Bot {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
		if cfg.Sandbox {
			cfg.APIBase = SandboxAPIBase
		}
	}
	if cfg.Intents == 0 {
		cfg.Intents = IntentPublicGuildMessages
	}
	return &Bot{
		cfg:    cfg,
		client: &http.Client{Timeout: constants.DefaultAPITimeout},
		dialer: &websocket.Dialer{HandshakeTimeout: constants.DefaultHandshakeTimeout},
		ctx:    context.Background(),
	}
}

func (q *Bot) Adapter() adapters.Adapter { return Adapter{} }

func (q *Bot) SelfID() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.selfID
}

func (q *Bot) authorization() string {
	return "Bot " + q.cfg.AppID + "." + q.cfg.Token
}

// Start resolves the gateway, connects and keeps the session alive
func (q *Bot) Start(handler adapters.EventHandler) error {
	ctx, cancel := context.WithCancel(context.Background())
	q.mu.Lock()
	q.handler = handler
	q.ctx, q.cancel = ctx, cancel
	q.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"adapter": constants.QQGuild,
		"app_id":  q.cfg.AppID,
		"token":   adapters.MaskSecret(q.cfg.Token),
		"sandbox": q.cfg.Sandbox,
	}).Info("starting-qqguild-bot")

	if err := q.connect(); err != nil {
		cancel()
		return fmt.Errorf("failed to connect to qq guild gateway: %w", err)
	}

	go q.run()
	return nil
}

func (q *Bot) connect() error {
	resp, err := q.CallAPI(q.ctx, "GET /gateway", nil)
	if err != nil {
		return err
	}
	url, _ := resp["url"].(string)
	if url == "" {
		return backoff.Permanent(fmt.Errorf("gateway url missing in response"))
	}

	conn, _, err := q.dialer.DialContext(q.ctx, url, nil)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"adapter": constants.QQGuild,
			"error":   err,
		}).Warn("qqguild-dial-failed")
		return err
	}

	// a new connection identifies a new session, so sequence numbers restart
	q.seq.Store(0)
	q.mu.Lock()
	q.conn = conn
	q.mu.Unlock()

	logger.WithAdapter(constants.QQGuild).Info("qqguild-gateway-connected")
	return nil
}

func (q *Bot) run() {
	for {
		q.serve()
		if q.ctx.Err() != nil {
			return
		}

		policy := backoff.NewExponentialBackOff()
		policy.MaxInterval = constants.MaxReconnectInterval
		policy.MaxElapsedTime = 0
		if err := backoff.Retry(q.connect, backoff.WithContext(policy, q.ctx)); err != nil {
			logger.WithFields(logrus.Fields{
				"adapter": constants.QQGuild,
				"error":   err,
			}).Info("qqguild-reconnect-stopped")
			return
		}
	}
}

// serve runs one gateway session until the connection drops
func (q *Bot) serve() {
	q.mu.RLock()
	conn := q.conn
	q.mu.RUnlock()
	if conn == nil {
		return
	}

	sessionCtx, stopHeartbeat := context.WithCancel(q.ctx)
	defer func() {
		stopHeartbeat()
		q.mu.Lock()
		if q.conn == conn {
			q.conn = nil
		}
		q.mu.Unlock()
		conn.Close()
	}()

	for {
		var frame payload
		_, data, err := conn.ReadMessage()
		if err != nil {
			if q.ctx.Err() == nil {
				logger.WithFields(logrus.Fields{
					"adapter": constants.QQGuild,
					"error":   err,
				}).Error("qqguild-gateway-read-failed")
			}
			return
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.WithFields(logrus.Fields{
				"adapter": constants.QQGuild,
				"error":   err,
			}).Warn("qqguild-frame-undecodable")
			continue
		}
		if frame.S > 0 {
			q.seq.Store(frame.S)
		}

		switch frame.Op {
		case opHello:
			var hello struct {
				HeartbeatInterval int64 `json:"heartbeat_interval"`
			}
			if err := json.Unmarshal(frame.D, &hello); err != nil {
				return
			}
			if err := q.write(conn, outbound{Op: opIdentify, D: map[string]any{
				"token":   q.authorization(),
				"intents": q.cfg.Intents,
				"shard":   []int{0, 1},
			}}); err != nil {
				return
			}
			go q.heartbeat(sessionCtx, conn, time.Duration(hello.HeartbeatInterval)*time.Millisecond)
		case opDispatch:
			q.dispatch(frame)
		case opHeartbeatAck:
		case opReconnect, opInvalidSession:
			logger.WithFields(logrus.Fields{
				"adapter": constants.QQGuild,
				"op":      frame.Op,
			}).Warn("qqguild-session-reset-requested")
			return
		}
	}
}

func (q *Bot) heartbeat(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var seq any
			if s := q.seq.Load(); s > 0 {
				seq = s
			}
			if err := q.write(conn, outbound{Op: opHeartbeat, D: seq}); err != nil {
				return
			}
		}
	}
}

func (q *Bot) write(conn *websocket.Conn, v outbound) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	q.writeMu.Lock()
	defer q.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (q *Bot) dispatch(frame payload) {
	switch frame.T {
	case "READY":
		var ready struct {
			User User `json:"user"`
		}
		if err := json.Unmarshal(frame.D, &ready); err == nil {
			q.mu.Lock()
			q.selfID = ready.User.ID
			q.mu.Unlock()
		}
		logger.WithFields(logrus.Fields{
			"adapter": constants.QQGuild,
			"self_id": ready.User.ID,
		}).Info("qqguild-session-ready")
	case "AT_MESSAGE_CREATE":
		ev := &MessageEvent{}
		if err := json.Unmarshal(frame.D, ev); err != nil {
			logger.WithFields(logrus.Fields{
				"adapter": constants.QQGuild,
				"error":   err,
			}).Warn("qqguild-message-undecodable")
			return
		}
		ev.selfID = q.SelfID()

		logger.WithFields(logrus.Fields{
			"adapter":    constants.QQGuild,
			"event_name": ev.EventName(),
			"user_id":    ev.UserID(),
			"channel_id": ev.ChannelID,
		}).Info("received-qqguild-message")

		q.mu.RLock()
		handler := q.handler
		q.mu.RUnlock()
		if handler != nil {
			handler(q, ev)
		}
	default:
		logger.WithFields(logrus.Fields{
			"adapter": constants.QQGuild,
			"type":    frame.T,
		}).Debug("qqguild-dispatch-ignored")
	}
}

// CallAPI performs a REST call. api is "<METHOD> <path>", e.g.
// "POST /channels/123/messages"; params are sent as the JSON body.
func (q *Bot) CallAPI(ctx context.Context, api string, params map[string]any) (map[string]any, error) {
	method, path, ok := strings.Cut(api, " ")
	if !ok || !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("invalid qq guild api %q, want \"METHOD /path\"", api)
	}

	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode qq guild request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.cfg.APIBase+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", q.authorization())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qq guild %s failed: %w", api, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read qq guild response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("qq guild %s failed: status=%d, body=%s", api, resp.StatusCode, string(raw))
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode qq guild response: %w", err)
		}
	}
	return out, nil
}

// Send replies in the channel of event. The API carries one image per
// message, so extra images go out as follow-up messages.
func (q *Bot) Send(ctx context.Context, event adapters.Event, msg message.Message) error {
	channelID := event.SessionID()
	if channelID == "" {
		return fmt.Errorf("channel ID is required for QQ Guild")
	}
	replyTo := ""
	if ev, ok := event.(*MessageEvent); ok {
		replyTo = ev.ID
	}

	var content strings.Builder
	var images []string
	for _, seg := range msg {
		switch seg.Type {
		case message.TypeText:
			content.WriteString(seg.Str("text"))
		case TypeMentionUser:
			content.WriteString("<@!" + seg.Str("user_id") + ">")
		case message.TypeImage:
			images = append(images, seg.Str("url"))
		default:
			logger.WithFields(logrus.Fields{
				"adapter": constants.QQGuild,
				"segment": seg.Type,
			}).Warn("qqguild-segment-type-skipped")
		}
	}

	bodies := []map[string]any{{}}
	if content.Len() > 0 {
		bodies[0]["content"] = adapters.Truncate(content.String(), constants.MaxQQGuildMessageLength)
	}
	for i, image := range images {
		if i == 0 {
			bodies[0]["image"] = image
			continue
		}
		bodies = append(bodies, map[string]any{"image": image})
	}
	if len(bodies[0]) == 0 {
		return nil
	}

	for _, body := range bodies {
		if replyTo != "" {
			body["msg_id"] = replyTo
		}
		if _, err := q.CallAPI(ctx, "POST /channels/"+channelID+"/messages", body); err != nil {
			logger.WithFields(logrus.Fields{
				"adapter":    constants.QQGuild,
				"channel_id": channelID,
				"error":      err,
			}).Error("failed-to-send-message-to-qqguild")
			return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"adapter":    constants.QQGuild,
		"channel_id": channelID,
	}).Info("message-sent-to-qqguild")
	return nil
}

// Stop closes the gateway connection
func (q *Bot) Stop() error {
	q.mu.Lock()
	cancel := q.cancel
	conn := q.conn
	q.conn = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	logger.WithAdapter(constants.QQGuild).Info("qqguild-bot-stopped")
	return nil
}
