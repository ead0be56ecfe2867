package params

import (
	"errors"
	"fmt"
)

// ErrNotSupported is returned when the live adapter cannot serve a request,
// e.g. an image method for an adapter without images.
var ErrNotSupported = errors.New("not supported")

// ValidationError reports a malformed argument
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func notSupported(adapter, feature string) error {
	return fmt.Errorf("%w: %s on adapter %q", ErrNotSupported, feature, adapter)
}
