package record

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError reports a rejected patch.
type TransitionError struct {
	ID     string
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("invalid transition %s -> %s (record=%s): %s", e.From, e.To, e.ID, e.Reason)
	}
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsInvalidTransition returns true if err is or wraps a TransitionError.
func IsInvalidTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// CanTransition reports whether a record may move from one status to another.
// Staying put is allowed; Archived accepts nothing but itself.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return to >= from
}

// Apply returns r with p applied, or a TransitionError.
// r is never modified.
func Apply(r Record, p Patch) (Record, error) {
	out := r
	target := r.Status
	if p.Status != nil {
		target = *p.Status
	}

	if !CanTransition(r.Status, target) {
		reason := "status may not move backward"
		if r.Status == StatusArchived {
			reason = "archived is terminal"
		}
		return r, &TransitionError{ID: r.ID, From: r.Status, To: target, Reason: reason}
	}

	if p.Annotation != nil {
		annotation := norm.NFC.String(*p.Annotation)
		switch {
		case r.Status != StatusPending && annotation != r.Annotation:
			return r, &TransitionError{ID: r.ID, From: r.Status, To: target, Reason: "annotation is immutable once analyzed"}
		case r.Status == StatusPending && target != StatusAnalyzed && annotation != "":
			return r, &TransitionError{ID: r.ID, From: r.Status, To: target, Reason: "annotation is only set when entering analyzed"}
		}
		out.Annotation = annotation
	}

	out.Status = target
	return out, nil
}
