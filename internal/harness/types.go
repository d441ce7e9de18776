package harness

import (
	"errors"
	"strings"

	"github.com/roach88/notevault/internal/codec"
	"github.com/roach88/notevault/internal/engine"
	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/remote"
	"github.com/roach88/notevault/internal/repository"
)

// TraceEvent is one published engine transition, reduced to its
// deterministic fields.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Op       string `json:"op"`
	RecordID string `json:"record_id,omitempty"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RecordSnapshot is the deterministic view of a cached record.
// Content is omitted since sealing may vary.
type RecordSnapshot struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Annotation string `json:"annotation,omitempty"`
	Owner      string `json:"owner"`
	CreatedAt  int64  `json:"created_at"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every transition in publication order.
	Trace []TraceEvent `json:"trace"`

	// Records is the engine cache after the flow, newest first.
	Records []RecordSnapshot `json:"records"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Records: []RecordSnapshot{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTransition appends t to the trace.
//
// Failure messages embed the full error chain, which names internal keys;
// the trace keeps the user-facing prefix and classifies the error instead.
func (r *Result) AddTransition(t engine.Transition) {
	ev := TraceEvent{
		Seq:      t.Seq,
		Op:       string(t.Op),
		RecordID: t.RecordID,
		State:    t.State.String(),
		Message:  t.Message,
	}
	if t.Err != nil {
		ev.Error = ErrorKind(t.Err)
		if suffix := t.Err.Error(); strings.HasSuffix(ev.Message, suffix) {
			ev.Message = strings.TrimSpace(strings.TrimSuffix(ev.Message, suffix))
		}
	}
	r.Trace = append(r.Trace, ev)
}

// SetRecords replaces the record snapshot.
func (r *Result) SetRecords(records []record.Record) {
	r.Records = make([]RecordSnapshot, len(records))
	for i, rec := range records {
		r.Records[i] = snapshotRecord(rec)
	}
}

func snapshotRecord(rec record.Record) RecordSnapshot {
	return RecordSnapshot{
		ID:         rec.ID,
		Status:     rec.Status.String(),
		Annotation: rec.Annotation,
		Owner:      rec.Owner,
		CreatedAt:  rec.CreatedAt,
	}
}

// Error kinds reported by ErrorKind.
const (
	KindOrphaned          = "orphaned"
	KindRejected          = "rejected"
	KindWrite             = "write"
	KindInvalidTransition = "invalid_transition"
	KindNotFound          = "not_found"
	KindMalformed         = "malformed"
	KindUnavailable       = "unavailable"
	KindClosed            = "closed"
	KindOther             = "other"
)

var errorKinds = []string{
	KindOrphaned, KindRejected, KindWrite, KindInvalidTransition, KindNotFound,
	KindMalformed, KindUnavailable, KindClosed, KindOther,
}

// ErrorKind classifies an engine error. Orphans are checked first since
// they wrap the failed index write.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case repository.IsOrphaned(err):
		return KindOrphaned
	case remote.IsRejected(err):
		return KindRejected
	case remote.IsWriteError(err):
		return KindWrite
	case record.IsInvalidTransition(err):
		return KindInvalidTransition
	case errors.Is(err, repository.ErrNotFound):
		return KindNotFound
	case codec.IsDecodeError(err):
		return KindMalformed
	case errors.Is(err, remote.ErrUnavailable):
		return KindUnavailable
	case engine.IsClosed(err):
		return KindClosed
	default:
		return KindOther
	}
}
