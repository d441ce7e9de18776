package codec

import (
	"errors"
	"fmt"
)

// DecodeError reports a blob that could not be decoded.
type DecodeError struct {
	// Kind is "record" or "index".
	Kind string
	// ID is the record id, empty for the index.
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("decode %s %s: %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
