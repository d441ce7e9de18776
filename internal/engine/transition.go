package engine

import (
	"context"
	"fmt"

	"github.com/roach88/notevault/internal/remote"
)

// State is the position of the mutation state machine.
type State int

const (
	// StateIdle means no mutation result is being shown.
	StateIdle State = iota
	// StatePending means a mutation is awaiting remote confirmation.
	StatePending
	// StateConfirmed means the last mutation succeeded.
	StateConfirmed
	// StateFailed means the last mutation failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s ends a mutation attempt.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Op names the mutation a transition belongs to.
type Op string

const (
	OpCreate     Op = "create"
	OpAnalyze    Op = "analyze"
	OpArchive    Op = "archive"
	OpUpdate     Op = "update"
	OpRetryIndex Op = "retry_index"
)

// Transition is one state change published to subscribers.
type Transition struct {
	// Seq orders transitions within a session.
	Seq      int64
	Op       Op
	RecordID string
	State    State
	// Message is the user-facing status line.
	Message string
	// Err is set on StateFailed.
	Err error
}

// opMessages are the status lines shown for each op.
type opMessages struct {
	pending   string
	confirmed string
	failed    string
}

var messages = map[Op]opMessages{
	OpCreate: {
		pending:   "Encrypting therapy note with FHE...",
		confirmed: "Encrypted therapy note submitted securely!",
		failed:    "Submission failed: ",
	},
	OpAnalyze: {
		pending:   "Processing encrypted data with FHE AI...",
		confirmed: "FHE analysis completed successfully!",
		failed:    "Analysis failed: ",
	},
	OpArchive: {
		pending:   "Archiving encrypted note...",
		confirmed: "Note archived securely!",
		failed:    "Archiving failed: ",
	},
	OpUpdate: {
		pending:   "Updating encrypted note...",
		confirmed: "Note updated securely!",
		failed:    "Update failed: ",
	},
	OpRetryIndex: {
		pending:   "Re-indexing stored note...",
		confirmed: "Note re-indexed!",
		failed:    "Re-indexing failed: ",
	},
}

// failureMessage renders the status line for a failed op.
// Signer rejections get a dedicated line.
func failureMessage(op Op, err error) string {
	if remote.IsRejected(err) {
		return "Transaction rejected by user"
	}
	return messages[op].failed + err.Error()
}

// Subscription receives every transition published after it was created.
type Subscription struct {
	id     int
	queue  *transitionQueue
	engine *Engine
}

// Next blocks until a transition is available, the subscription is closed,
// or ctx is done. ok is false once the subscription is closed and drained.
func (s *Subscription) Next(ctx context.Context) (t Transition, ok bool, err error) {
	for {
		if t, ok := s.queue.TryDequeue(); ok {
			return t, true, nil
		}
		if s.queue.Closed() {
			return Transition{}, false, nil
		}

		select {
		case <-ctx.Done():
			return Transition{}, false, ctx.Err()
		case <-s.queue.Wait():
		}
	}
}

// Pending returns the number of undelivered transitions.
func (s *Subscription) Pending() int {
	return s.queue.Len()
}

// Close stops delivery. Already queued transitions can still be drained.
func (s *Subscription) Close() {
	s.engine.unsubscribe(s.id)
	s.queue.Close()
}
