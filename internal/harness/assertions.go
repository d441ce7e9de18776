package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/notevault/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s", ev.Seq, ev.Op, ev.RecordID, ev.State)
		if ev.Error != "" {
			fmt.Fprintf(&buf, " (%s)", ev.Error)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// evaluate dispatches one assertion.
func (h *Harness) evaluate(ctx context.Context, result *Result, a Assertion) error {
	switch a.Type {
	case AssertRecords:
		return assertRecords(result, a)
	case AssertRecord:
		return assertRecord(result, a)
	case AssertIndex:
		ids, err := h.repo.Index().List(ctx)
		if err != nil {
			return fmt.Errorf("index assertion: %w", err)
		}
		return assertIDs(AssertIndex, ids, a.IDs, result.Trace)
	case AssertOrphans:
		return assertIDs(AssertOrphans, recordIDs(h.engine.Orphans()), a.IDs, result.Trace)
	case AssertStateCount:
		return assertStateCount(result.Trace, a)
	case AssertFinalState:
		if got := h.engine.State().String(); got != a.State {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: a.State,
				Actual:   got,
				Trace:    result.Trace,
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertRecords checks the ordered ids of the final cache.
func assertRecords(result *Result, a Assertion) error {
	ids := make([]string, len(result.Records))
	for i, r := range result.Records {
		ids[i] = r.ID
	}
	return assertIDs(AssertRecords, ids, a.IDs, result.Trace)
}

// assertRecord checks one cached record. Only specified fields are compared.
func assertRecord(result *Result, a Assertion) error {
	i := slices.IndexFunc(result.Records, func(r RecordSnapshot) bool {
		return r.ID == a.ID
	})
	if i < 0 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %s in cache", a.ID),
			Actual:   "not found",
			Trace:    result.Trace,
		}
	}

	got := result.Records[i]
	if a.Status != "" && got.Status != a.Status {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %s status %s", a.ID, a.Status),
			Actual:   got.Status,
			Trace:    result.Trace,
		}
	}
	if a.Annotation != nil && got.Annotation != *a.Annotation {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %s annotation %q", a.ID, *a.Annotation),
			Actual:   fmt.Sprintf("%q", got.Annotation),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertIDs compares two ordered id lists. A nil expectation means empty.
func assertIDs(kind string, got, want []string, trace []TraceEvent) error {
	if len(got) == 0 && len(want) == 0 {
		return nil
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

// assertStateCount checks that exactly Count transitions reached State.
func assertStateCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.State == a.State {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertStateCount,
			Expected: fmt.Sprintf("%d %s transitions", a.Count, a.State),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

func recordIDs(records []record.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
