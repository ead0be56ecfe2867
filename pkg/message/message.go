// Package message holds the platform-neutral segment model shared by all adapters.
//
// A Message is an ordered list of Segments. Every adapter package ships a Factory
// that builds segments in its own wire shape; handlers obtain the right Factory for
// the live adapter through the params package instead of importing a platform.
package message

import (
	"fmt"
	"strings"
)

// Segment types understood by more than one adapter
const (
	TypeText  = "text"
	TypeAt    = "at"
	TypeImage = "image"
)

// Segment is one unit of chat content. Data is platform specific.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Str returns Data[key] when it is a string
func (s Segment) Str(key string) string {
	if s.Data == nil {
		return ""
	}
	v, _ := s.Data[key].(string)
	return v
}

func (s Segment) String() string {
	if s.Type == TypeText {
		return s.Str("text")
	}
	return fmt.Sprintf("[%s:%v]", s.Type, s.Data)
}

// Message is an ordered sequence of segments
type Message []Segment

// NewMessage builds a message from segments
func NewMessage(segments ...Segment) Message {
	return Message(segments)
}

// Append returns m with segments added at the end
func (m Message) Append(segments ...Segment) Message {
	return append(m, segments...)
}

// Concat joins two messages
func (m Message) Concat(other Message) Message {
	out := make(Message, 0, len(m)+len(other))
	out = append(out, m...)
	return append(out, other...)
}

// PlainText concatenates the text segments
func (m Message) PlainText() string {
	var b strings.Builder
	for _, seg := range m {
		if seg.Type == TypeText {
			b.WriteString(seg.Str("text"))
		}
	}
	return b.String()
}

// Filter returns the segments of the given type
func (m Message) Filter(segType string) Message {
	var out Message
	for _, seg := range m {
		if seg.Type == segType {
			out = append(out, seg)
		}
	}
	return out
}

func (m Message) String() string {
	var b strings.Builder
	for _, seg := range m {
		b.WriteString(seg.String())
	}
	return b.String()
}

// Factory builds the segments every adapter supports.
type Factory interface {
	Text(text string) Segment
	At(userID string) Segment
}

// ImageFactory is implemented by factories that can build an image segment
// directly from a file value.
type ImageFactory interface {
	Image(file any) (Segment, error)
}
