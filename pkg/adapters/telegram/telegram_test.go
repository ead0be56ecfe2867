package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent    []tgbotapi.Chattable
	sendErr error
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped = true }

func privateEvent() *PrivateMessageEvent {
	return &PrivateMessageEvent{MessageEvent{ChatID: 42, FromID: 7, ChatType: "private"}}
}

func TestNewEvent(t *testing.T) {
	private := newEvent(&tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 7, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: 7, Type: "private"},
		Text:      "/wordle",
	})
	require.IsType(t, &PrivateMessageEvent{}, private)
	assert.Equal(t, constants.EventPrivateMessagePrefix, private.EventName())
	assert.Equal(t, "7", private.UserID())
	assert.Equal(t, "7", private.SessionID())
	assert.Equal(t, "/wordle", private.PlainText())

	group := newEvent(&tgbotapi.Message{
		From:    &tgbotapi.User{ID: 7},
		Chat:    &tgbotapi.Chat{ID: -1001, Type: "supergroup"},
		Caption: "photo caption",
	})
	require.IsType(t, &GroupMessageEvent{}, group)
	assert.Equal(t, "message.group", group.EventName())
	assert.Equal(t, "-1001", group.SessionID())
	assert.Equal(t, "photo caption", group.PlainText())

	assert.Nil(t, newEvent(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1, Type: "channel"}}))
	assert.Nil(t, newEvent(nil))
}

func TestHandleMessage_CallsHandler(t *testing.T) {
	bot := NewBot("test-token")
	var got adapters.Event
	bot.SetMessageHandler(func(b adapters.Bot, ev adapters.Event) { got = ev })

	bot.handleMessage(&tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		Text: "hi",
	})
	require.NotNil(t, got)
	assert.Equal(t, "hi", got.PlainText())
}

func TestFilePhoto(t *testing.T) {
	tests := []struct {
		name     string
		file     any
		expected tgbotapi.RequestFileData
	}{
		{name: "url", file: "https://example.com/cat.png", expected: tgbotapi.FileURL("https://example.com/cat.png")},
		{name: "file id", file: "AgACAgIAAxkBAAIB", expected: tgbotapi.FileID("AgACAgIAAxkBAAIB")},
		{name: "path", file: message.Path("/tmp/cat.png"), expected: tgbotapi.FilePath("/tmp/cat.png")},
		{name: "bytes", file: []byte("png"), expected: tgbotapi.FileBytes{Name: "photo", Bytes: []byte("png")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := File.Photo(tt.file)
			require.NoError(t, err)
			data, ok := PhotoFile(seg)
			require.True(t, ok)
			assert.Equal(t, tt.expected, data)
		})
	}

	_, err := File.Photo(1)
	assert.ErrorIs(t, err, message.ErrUnsupportedFile)

	_, ok := PhotoFile(Segments.Text("x"))
	assert.False(t, ok)
}

func TestAdapter_ExposesSegments(t *testing.T) {
	var provider adapters.SegmentProvider = Adapter{}
	assert.Equal(t, Segments, provider.MessageSegments())

	_, isImageFactory := provider.MessageSegments().(message.ImageFactory)
	assert.True(t, isImageFactory)
}

func TestSend_NotInitialized(t *testing.T) {
	err := NewBot("test-token").Send(context.Background(), privateEvent(), message.NewMessage(Segments.Text("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestSend_TextWithMention(t *testing.T) {
	api := &fakeAPI{}
	bot := NewBot("test-token")
	bot.api = api

	msg := message.NewMessage(Segments.Text("欢迎 "), Segments.At("7"), Segments.Text(" mua~"))
	require.NoError(t, bot.Send(context.Background(), privateEvent(), msg))
	require.Len(t, api.sent, 1)

	out, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), out.ChatID)
	assert.Equal(t, "欢迎 @7 mua~", out.Text)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "text_mention", out.Entities[0].Type)
	assert.Equal(t, 3, out.Entities[0].Offset)
	assert.Equal(t, 2, out.Entities[0].Length)
	assert.Equal(t, int64(7), out.Entities[0].User.ID)
}

func TestSend_PhotoTakesCaption(t *testing.T) {
	api := &fakeAPI{}
	bot := NewBot("test-token")
	bot.api = api

	photo, err := File.Photo("https://example.com/cat.png")
	require.NoError(t, err)
	msg := message.NewMessage(Segments.Text("look"), photo, Segments.Text("after"))

	require.NoError(t, bot.Send(context.Background(), privateEvent(), msg))
	require.Len(t, api.sent, 2)

	sentPhoto, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "look", sentPhoto.Caption)

	text, ok := api.sent[1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "after", text.Text)
}

func TestSend_Errors(t *testing.T) {
	bot := NewBot("test-token")
	bot.api = &fakeAPI{sendErr: errors.New("Bad Request: chat not found")}

	err := bot.Send(context.Background(), privateEvent(), message.NewMessage(Segments.Text("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	bot.api = &fakeAPI{}
	err = bot.Send(context.Background(), &GroupMessageEvent{MessageEvent{ChatID: 0}}, nil)
	assert.NoError(t, err, "empty message sends nothing")
}

func TestCallAPI(t *testing.T) {
	bot := NewBot("test-token")
	_, err := bot.CallAPI(context.Background(), "sendChatAction", nil)
	assert.Error(t, err)

	bot.api = &fakeAPI{}
	resp, err := bot.CallAPI(context.Background(), "sendChatAction", map[string]any{"chat_id": int64(42), "action": tgbotapi.ChatTyping})
	require.NoError(t, err)
	assert.Equal(t, true, resp["ok"])

	_, err = bot.CallAPI(context.Background(), "getMe", nil)
	assert.ErrorIs(t, err, ErrUnsupportedAPI)
}

func TestStop(t *testing.T) {
	api := &fakeAPI{}
	bot := NewBot("test-token")
	bot.api = api

	assert.NoError(t, bot.Stop())
	assert.True(t, api.stopped)
	assert.NoError(t, bot.Stop())
}
