package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/botparams/pkg/message"
)

// Segment types specific to Telegram
const (
	TypeMention = "mention"
	TypePhoto   = "photo"
)

// MessageSegment builds Telegram segments
type MessageSegment struct{}

// Segments is the Telegram segment factory
var Segments MessageSegment

func (MessageSegment) Text(text string) message.Segment {
	return message.Segment{Type: message.TypeText, Data: map[string]any{"text": text}}
}

// At mentions a user. "@username" is sent as plain text; a numeric id becomes
// a text mention entity.
func (MessageSegment) At(userID string) message.Segment {
	return message.Segment{Type: TypeMention, Data: map[string]any{"user_id": userID}}
}

// Image is File.Photo, so the factory also satisfies message.ImageFactory
func (MessageSegment) Image(file any) (message.Segment, error) {
	return File.Photo(file)
}

// FileSegment builds file-carrying segments
type FileSegment struct{}

// File is the Telegram file segment builder
var File FileSegment

// Photo wraps file as a Bot API file value: http(s) URLs are fetched by
// Telegram, other strings are file ids, Paths and bytes are uploaded.
func (FileSegment) Photo(file any) (message.Segment, error) {
	norm, err := message.Normalize(file)
	if err != nil {
		return message.Segment{}, err
	}

	var data tgbotapi.RequestFileData
	switch f := norm.(type) {
	case string:
		if strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			data = tgbotapi.FileURL(f)
		} else {
			data = tgbotapi.FileID(f)
		}
	case message.Path:
		data = tgbotapi.FilePath(string(f))
	case []byte:
		data = tgbotapi.FileBytes{Name: "photo", Bytes: f}
	default:
		return message.Segment{}, fmt.Errorf("%w: %T", message.ErrUnsupportedFile, file)
	}

	return message.Segment{Type: TypePhoto, Data: map[string]any{"file": data}}, nil
}

// PhotoFile returns the file value stored in a photo segment
func PhotoFile(seg message.Segment) (tgbotapi.RequestFileData, bool) {
	if seg.Type != TypePhoto || seg.Data == nil {
		return nil, false
	}
	data, ok := seg.Data["file"].(tgbotapi.RequestFileData)
	return data, ok
}
