package feishu

import (
	"fmt"

	"github.com/keepmind9/botparams/pkg/message"
)

// MessageSegment builds Feishu segments
type MessageSegment struct{}

// Segments is the Feishu segment factory
var Segments MessageSegment

func (MessageSegment) Text(text string) message.Segment {
	return message.Segment{Type: message.TypeText, Data: map[string]any{"text": text}}
}

// At mentions a user by open_id; "all" mentions everyone
func (MessageSegment) At(userID string) message.Segment {
	return message.Segment{Type: message.TypeAt, Data: map[string]any{"user_id": userID}}
}

// Image references an already uploaded image by its image_key. Raw files must
// be uploaded first (Bot.CallAPI "im/v1/images").
func (MessageSegment) Image(file any) (message.Segment, error) {
	key, ok := file.(string)
	if !ok || key == "" {
		return message.Segment{}, fmt.Errorf("%w: feishu image needs an image_key, got %T", message.ErrUnsupportedFile, file)
	}
	return message.Segment{Type: message.TypeImage, Data: map[string]any{"image_key": key}}, nil
}
