package onebot

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/keepmind9/botparams/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSegment_TextAndAt(t *testing.T) {
	msg := message.NewMessage(Segments.At("1748272409"), Segments.Text("mua~"))

	assert.Equal(t, "at", msg[0].Type)
	assert.Equal(t, "1748272409", msg[0].Str("qq"))
	assert.Equal(t, "mua~", msg.PlainText())
}

func TestMessageSegment_Image(t *testing.T) {
	abs, err := filepath.Abs("testdata/cat.png")
	require.NoError(t, err)

	tests := []struct {
		name     string
		file     any
		expected string
	}{
		{name: "url", file: "https://example.com/cat.png", expected: "https://example.com/cat.png"},
		{name: "path", file: message.Path("testdata/cat.png"), expected: "file://" + filepath.ToSlash(abs)},
		{name: "bytes", file: []byte("png"), expected: "base64://cG5n"},
		{name: "buffer", file: bytes.NewBufferString("png"), expected: "base64://cG5n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := Segments.Image(tt.file)
			require.NoError(t, err)
			assert.Equal(t, message.TypeImage, seg.Type)
			assert.Equal(t, tt.expected, seg.Str("file"))
		})
	}
}

func TestMessageSegment_ImageUnsupported(t *testing.T) {
	_, err := Segments.Image(struct{}{})
	assert.ErrorIs(t, err, message.ErrUnsupportedFile)
}
