package discord

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/keepmind9/botparams/pkg/message"
)

// Discord segment types
const (
	TypeMention    = "mention"
	TypeAttachment = "attachment"
)

// defaultAttachmentName names in-memory uploads
const defaultAttachmentName = "image.png"

// MessageSegment builds Discord segments
type MessageSegment struct{}

// Segments is the Discord segment factory
var Segments MessageSegment

func (MessageSegment) Text(text string) message.Segment {
	return message.Segment{Type: message.TypeText, Data: map[string]any{"text": text}}
}

func (MessageSegment) At(userID string) message.Segment {
	return message.Segment{Type: TypeMention, Data: map[string]any{"user_id": userID}}
}

// Image embeds URLs and uploads everything else as an attachment
func (MessageSegment) Image(file any) (message.Segment, error) {
	norm, err := message.Normalize(file)
	if err != nil {
		return message.Segment{}, err
	}

	switch f := norm.(type) {
	case string:
		if !strings.HasPrefix(f, "http://") && !strings.HasPrefix(f, "https://") {
			return message.Segment{}, fmt.Errorf("%w: discord image string must be a URL, use message.Path for local files",
				message.ErrUnsupportedFile)
		}
		return message.Segment{Type: message.TypeImage, Data: map[string]any{"url": f}}, nil
	case message.Path:
		data, err := message.ReadAll(f)
		if err != nil {
			return message.Segment{}, err
		}
		return attachment(filepath.Base(string(f)), data), nil
	case []byte:
		return attachment(defaultAttachmentName, f), nil
	}
	return message.Segment{}, fmt.Errorf("%w: %T", message.ErrUnsupportedFile, file)
}

func attachment(name string, data []byte) message.Segment {
	return message.Segment{Type: TypeAttachment, Data: map[string]any{"name": name, "data": data}}
}
