package onebot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOneBotServer starts a fake OneBot implementation. serve runs once per
// connection and owns it until it returns.
func newOneBotServer(t *testing.T, serve func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(r, conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// drain keeps reading until the client goes away
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestBot_Adapter(t *testing.T) {
	bot := NewBot(Config{})
	assert.Equal(t, constants.OneBot, bot.Adapter().Name())
	assert.Equal(t, constants.DefaultAPITimeout, bot.cfg.APITimeout)
	assert.Empty(t, bot.SelfID())
}

func TestBot_StartWithoutURL(t *testing.T) {
	err := NewBot(Config{}).Start(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ws_url not configured")
}

func TestBot_CallAPIRoundTrip(t *testing.T) {
	url := newOneBotServer(t, func(r *http.Request, conn *websocket.Conn) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req apiRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		assert.Equal(t, "get_login_info", req.Action)
		conn.WriteJSON(map[string]any{
			"status":  "ok",
			"retcode": 0,
			"data":    map[string]any{"user_id": 10001, "nickname": "botparams"},
			"echo":    req.Echo,
		})
		drain(conn)
	})

	bot := NewBot(Config{WSURL: url, AccessToken: "secret"})
	require.NoError(t, bot.Start(func(adapters.Bot, adapters.Event) {}))
	defer bot.Stop()

	data, err := bot.CallAPI(context.Background(), "get_login_info", nil)
	require.NoError(t, err)
	assert.Equal(t, "botparams", data["nickname"])
	assert.EqualValues(t, 10001, data["user_id"])
}

func TestBot_CallAPIFailure(t *testing.T) {
	url := newOneBotServer(t, func(r *http.Request, conn *websocket.Conn) {
		var req apiRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		conn.WriteJSON(map[string]any{
			"status":  "failed",
			"retcode": 100,
			"message": "bad params",
			"echo":    req.Echo,
		})
		drain(conn)
	})

	bot := NewBot(Config{WSURL: url})
	require.NoError(t, bot.Start(nil))
	defer bot.Stop()

	_, err := bot.CallAPI(context.Background(), "send_private_msg", map[string]any{"user_id": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retcode=100")
}

func TestBot_CallAPIContextCancelled(t *testing.T) {
	url := newOneBotServer(t, func(r *http.Request, conn *websocket.Conn) {
		drain(conn)
	})

	bot := NewBot(Config{WSURL: url})
	require.NoError(t, bot.Start(nil))
	defer bot.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := bot.CallAPI(ctx, "get_status", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBot_CallAPINotConnected(t *testing.T) {
	_, err := NewBot(Config{WSURL: "ws://127.0.0.1:1"}).CallAPI(context.Background(), "get_status", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBot_DeliversEventsAndReplies(t *testing.T) {
	requests := make(chan apiRequest, 1)
	url := newOneBotServer(t, func(r *http.Request, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"post_type":"meta_event","meta_event_type":"lifecycle","sub_type":"connect","self_id":10001}`))
		conn.WriteMessage(websocket.TextMessage, []byte(privateFrame))

		var req apiRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		requests <- req
		conn.WriteJSON(map[string]any{"status": "ok", "retcode": 0, "data": map[string]any{"message_id": 7}, "echo": req.Echo})
		drain(conn)
	})

	events := make(chan adapters.Event, 1)
	bot := NewBot(Config{WSURL: url})
	require.NoError(t, bot.Start(func(b adapters.Bot, ev adapters.Event) {
		events <- ev
	}))
	defer bot.Stop()

	var ev adapters.Event
	select {
	case ev = <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	require.IsType(t, &PrivateMessageEvent{}, ev)
	assert.Equal(t, "10001", bot.SelfID())

	msg := message.NewMessage(Segments.At(ev.UserID()), Segments.Text("mua~"))
	require.NoError(t, bot.Send(context.Background(), ev, msg))

	req := <-requests
	assert.Equal(t, "send_private_msg", req.Action)
	assert.EqualValues(t, 1748272409, req.Params["user_id"])

	raw, err := json.Marshal(req.Params["message"])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"at","data":{"qq":"1748272409"}},{"type":"text","data":{"text":"mua~"}}]`, string(raw))
}

func TestBot_SendUnsupportedEvent(t *testing.T) {
	err := NewBot(Config{}).Send(context.Background(), &NoticeEvent{}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reply")
}

func TestBot_StopIsIdempotent(t *testing.T) {
	bot := NewBot(Config{})
	assert.NoError(t, bot.Stop())
	assert.NoError(t, bot.Stop())
}
