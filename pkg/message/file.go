package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupportedFile is returned when a platform cannot take a file value.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Path marks a string as a local filesystem path. Plain strings are left to the
// platform to interpret (URL, file id, upload key).
type Path string

// Normalize applies the automatic conversions: in-memory buffers become []byte.
// Strings, Paths and []byte pass through. Any other value is rejected.
func Normalize(file any) (any, error) {
	switch f := file.(type) {
	case string, Path, []byte:
		return f, nil
	case *bytes.Buffer:
		return bytes.Clone(f.Bytes()), nil
	case *bytes.Reader:
		return drain(f)
	case io.Reader:
		return drain(f)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedFile, file)
	}
}

// ReadAll returns the raw bytes of file. Strings and Paths are read from disk.
func ReadAll(file any) ([]byte, error) {
	norm, err := Normalize(file)
	if err != nil {
		return nil, err
	}
	switch f := norm.(type) {
	case []byte:
		return f, nil
	case string:
		return readFile(f)
	case Path:
		return readFile(string(f))
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedFile, file)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

func drain(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return data, nil
}
