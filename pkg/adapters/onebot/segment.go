package onebot

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/keepmind9/botparams/pkg/message"
)

// MessageSegment builds OneBot v11 array-format segments
type MessageSegment struct{}

// Segments is the OneBot segment factory
var Segments MessageSegment

func (MessageSegment) Text(text string) message.Segment {
	return message.Segment{Type: message.TypeText, Data: map[string]any{"text": text}}
}

// At mentions a QQ user; "all" mentions everyone in a group
func (MessageSegment) At(userID string) message.Segment {
	return message.Segment{Type: message.TypeAt, Data: map[string]any{"qq": userID}}
}

func (MessageSegment) Reply(messageID string) message.Segment {
	return message.Segment{Type: "reply", Data: map[string]any{"id": messageID}}
}

// Image builds an image segment. Strings are passed through untouched (URLs,
// file:// URIs, base64:// payloads), Paths become file URIs, and raw bytes or
// buffers are inlined as base64.
func (MessageSegment) Image(file any) (message.Segment, error) {
	norm, err := message.Normalize(file)
	if err != nil {
		return message.Segment{}, err
	}

	var ref string
	switch f := norm.(type) {
	case string:
		ref = f
	case message.Path:
		ref, err = fileURI(string(f))
		if err != nil {
			return message.Segment{}, err
		}
	case []byte:
		ref = "base64://" + base64.StdEncoding.EncodeToString(f)
	default:
		return message.Segment{}, fmt.Errorf("%w: %T", message.ErrUnsupportedFile, file)
	}

	return message.Segment{Type: message.TypeImage, Data: map[string]any{"file": ref}}, nil
}

func fileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve image path %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
