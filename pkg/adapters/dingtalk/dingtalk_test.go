package dingtalk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplier struct {
	err      error
	webhooks []string
	contents []string
}

func (f *fakeReplier) SimpleReplyText(ctx context.Context, sessionWebhook string, content []byte) error {
	if f.err != nil {
		return f.err
	}
	f.webhooks = append(f.webhooks, sessionWebhook)
	f.contents = append(f.contents, string(content))
	return nil
}

func newTestBot() (*Bot, *fakeReplier) {
	r := &fakeReplier{}
	bot := NewBot("ding-client-id-0001", "secret")
	bot.replier = r
	return bot, r
}

func callback(conversationType string) *chatbot.BotCallbackDataModel {
	return &chatbot.BotCallbackDataModel{
		ConversationId:   "cid-1",
		ConversationType: conversationType,
		ChatbotUserId:    "bot-1",
		MsgId:            "msg-1",
		SenderId:         "sender-1",
		SenderStaffId:    "staff-1",
		SessionWebhook:   "https://oapi.dingtalk.com/robot/sendBySession?session=x",
		Msgtype:          "text",
		Text:             chatbot.BotCallbackDataTextModel{Content: " /wordle "},
	}
}

func TestAdapter(t *testing.T) {
	assert.Equal(t, constants.DingTalk, Adapter{}.Name())
	_, hasImage := Adapter{}.MessageSegments().(message.ImageFactory)
	assert.False(t, hasImage)
}

func TestNewEvent(t *testing.T) {
	tests := []struct {
		name     string
		convType string
		wantName string
	}{
		{"private", "1", constants.EventPrivateMessagePrefix},
		{"group", "2", constants.EventGroupMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := newEvent(callback(tt.convType))
			require.NotNil(t, ev)
			assert.Equal(t, tt.wantName, ev.EventName())
			assert.Equal(t, "staff-1", ev.UserID())
			assert.Equal(t, "cid-1", ev.SessionID())
			assert.Equal(t, "/wordle", ev.PlainText())
		})
	}

	assert.Nil(t, newEvent(nil))
	assert.Nil(t, newEvent(callback("3")))

	data := callback("1")
	data.SenderStaffId = ""
	data.Msgtype = "picture"
	ev := newEvent(data)
	assert.Equal(t, "sender-1", ev.UserID())
	assert.Empty(t, ev.PlainText())
}

func TestBot_HandleMessageReceive(t *testing.T) {
	bot, _ := newTestBot()
	var got adapters.Event
	bot.SetMessageHandler(func(b adapters.Bot, ev adapters.Event) { got = ev })

	resp, err := bot.handleMessageReceive(context.Background(), callback("1"))
	require.NoError(t, err)
	assert.Empty(t, resp)
	require.IsType(t, &PrivateMessageEvent{}, got)
	assert.Equal(t, "bot-1", bot.SelfID())

	got = nil
	_, err = bot.handleMessageReceive(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBot_Send(t *testing.T) {
	bot, r := newTestBot()
	ev := newEvent(callback("2"))

	msg := message.NewMessage(Segments.At("staff-1"), Segments.Text("mua~"))
	require.NoError(t, bot.Send(context.Background(), ev, msg))
	assert.Equal(t, []string{"@staff-1 mua~"}, r.contents)
	assert.Equal(t, "https://oapi.dingtalk.com/robot/sendBySession?session=x", r.webhooks[0])

	require.NoError(t, bot.Send(context.Background(), ev, nil))
	assert.Len(t, r.contents, 1)
}

func TestBot_SendTruncates(t *testing.T) {
	bot, r := newTestBot()
	long := strings.Repeat("x", constants.MaxDingTalkMessageLength+1)
	require.NoError(t, bot.Send(context.Background(), newEvent(callback("1")), message.NewMessage(Segments.Text(long))))
	assert.Len(t, r.contents[0], constants.MaxDingTalkMessageLength)
}

func TestBot_SendErrors(t *testing.T) {
	bot, r := newTestBot()

	err := bot.Send(context.Background(), nil, message.NewMessage(Segments.Text("x")))
	assert.ErrorIs(t, err, ErrNoSessionWebhook)

	data := callback("1")
	data.SessionWebhook = ""
	err = bot.Send(context.Background(), newEvent(data), message.NewMessage(Segments.Text("x")))
	assert.ErrorIs(t, err, ErrNoSessionWebhook)

	r.err = errors.New("webhook expired")
	err = bot.Send(context.Background(), newEvent(callback("1")), message.NewMessage(Segments.Text("x")))
	assert.Contains(t, err.Error(), "webhook expired")
}

func TestBot_CallAPI(t *testing.T) {
	bot, r := newTestBot()

	_, err := bot.CallAPI(context.Background(), APIReplyText, map[string]any{
		"session_webhook": "https://hook",
		"content":         "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, r.contents)

	_, err = bot.CallAPI(context.Background(), "recall", nil)
	assert.ErrorIs(t, err, ErrUnsupportedAPI)
}

func TestBot_Stop(t *testing.T) {
	bot, _ := newTestBot()
	assert.NoError(t, bot.Stop())
	assert.NoError(t, bot.Stop())
}
