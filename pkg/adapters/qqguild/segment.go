package qqguild

import (
	"fmt"

	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
)

// TypeMentionUser is the QQ guild mention segment type
const TypeMentionUser = "mention_user"

// MessageSegment builds QQ guild segments
type MessageSegment struct{}

// Segments is the QQ guild segment factory
var Segments MessageSegment

func (MessageSegment) Text(text string) message.Segment {
	return message.Segment{Type: message.TypeText, Data: map[string]any{"text": text}}
}

func (MessageSegment) At(userID string) message.Segment {
	return message.Segment{Type: TypeMentionUser, Data: map[string]any{"user_id": userID}}
}

// Image only takes a publicly reachable URL; the guild API has no upload.
func (MessageSegment) Image(file any) (message.Segment, error) {
	url, ok := file.(string)
	if !ok {
		return message.Segment{}, fmt.Errorf("%w: %q not support image type %T, only URL strings are accepted",
			message.ErrUnsupportedFile, constants.QQGuild, file)
	}
	return message.Segment{Type: message.TypeImage, Data: map[string]any{"url": url}}, nil
}
