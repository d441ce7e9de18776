package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when a probe reports the store unreachable.
var ErrUnavailable = errors.New("remote store unavailable")

// Cause categorizes a failed write.
type Cause string

const (
	// CauseRejected means the signer refused to authorize the write.
	CauseRejected Cause = "REJECTED"

	// CauseNetwork means the write could not reach the store.
	CauseNetwork Cause = "NETWORK"

	// CauseRemote means the store received the write and refused it.
	CauseRemote Cause = "REMOTE"

	// CauseTimeout means confirmation did not arrive in time.
	CauseTimeout Cause = "TIMEOUT"
)

// WriteError reports a write that was rejected, lost or timed out.
type WriteError struct {
	Key   string
	Cause Cause
	Err   error
}

func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("write %s: %s: %v", e.Key, e.Cause, e.Err)
	}
	return fmt.Sprintf("write %s: %s", e.Key, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewWriteError creates a WriteError.
func NewWriteError(key string, cause Cause, err error) *WriteError {
	return &WriteError{Key: key, Cause: cause, Err: err}
}

// IsWriteError returns true if err is or wraps a WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// IsRejected returns true if err is a WriteError caused by the signer.
func IsRejected(err error) bool {
	var we *WriteError
	if errors.As(err, &we) {
		return we.Cause == CauseRejected
	}
	return false
}

// AsWriteError wraps err as a WriteError for key, preserving an existing
// WriteError and classifying context expiry as a timeout.
func AsWriteError(key string, err error) error {
	if err == nil {
		return nil
	}
	var we *WriteError
	if errors.As(err, &we) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewWriteError(key, CauseTimeout, err)
	case strings.Contains(err.Error(), "user rejected"):
		return NewWriteError(key, CauseRejected, err)
	default:
		return NewWriteError(key, CauseRemote, err)
	}
}
