package repository

import (
	"errors"
	"fmt"

	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/remote"
)

var (
	// ErrNotFound is returned when the target record blob is absent.
	ErrNotFound = errors.New("record not found")

	// ErrRemoteUnavailable is returned when the availability probe fails.
	ErrRemoteUnavailable = remote.ErrUnavailable
)

// OrphanedRecordError reports a record blob that was written but could not
// be added to the key index. The record exists remotely but is invisible to
// LoadAll until RetryIndex succeeds.
type OrphanedRecordError struct {
	ID     string
	Record record.Record
	Err    error
}

func (e *OrphanedRecordError) Error() string {
	return fmt.Sprintf("record %s orphaned: stored but not indexed: %v", e.ID, e.Err)
}

func (e *OrphanedRecordError) Unwrap() error {
	return e.Err
}

// IsOrphaned returns true if err is or wraps an OrphanedRecordError.
func IsOrphaned(err error) bool {
	var oe *OrphanedRecordError
	return errors.As(err, &oe)
}

// OrphanedID returns the id carried by an OrphanedRecordError in err.
func OrphanedID(err error) (string, bool) {
	var oe *OrphanedRecordError
	if errors.As(err, &oe) {
		return oe.ID, true
	}
	return "", false
}
