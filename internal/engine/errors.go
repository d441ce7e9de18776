package engine

import (
	"errors"

	"github.com/roach88/notevault/internal/repository"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("engine closed")

// IsClosed reports whether err came from a closed engine.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// orphaned extracts an OrphanedRecordError from err.
func orphaned(err error) *repository.OrphanedRecordError {
	var oe *repository.OrphanedRecordError
	if errors.As(err, &oe) {
		return oe
	}
	return nil
}
