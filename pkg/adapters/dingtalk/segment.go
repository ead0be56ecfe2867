package dingtalk

import "github.com/keepmind9/botparams/pkg/message"

// TypeMention is the DingTalk mention segment type
const TypeMention = "mention"

// MessageSegment builds DingTalk segments
type MessageSegment struct{}

// Segments is the DingTalk segment factory
var Segments MessageSegment

func (MessageSegment) Text(text string) message.Segment {
	return message.Segment{Type: message.TypeText, Data: map[string]any{"text": text}}
}

func (MessageSegment) At(userID string) message.Segment {
	return message.Segment{Type: TypeMention, Data: map[string]any{"user_id": userID}}
}
