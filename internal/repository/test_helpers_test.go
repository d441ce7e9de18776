package repository

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/roach88/notevault/internal/remote"
	"github.com/roach88/notevault/internal/testutil"
)

// newTestRepository creates a repository over a fresh memory store with
// sequential ids and a clock that advances one second per record.
func newTestRepository(t *testing.T, opts ...Option) (*Repository, *remote.Memory) {
	t.Helper()
	m := remote.NewMemory()
	clock := testutil.NewDeterministicClock(time.Time{}, time.Second)
	base := []Option{
		WithIDGenerator(testutil.NewSequentialIDs("note")),
		WithClock(clock.Now),
	}
	return New(m, append(base, opts...)...), m
}

func draft(content string) NewRecord {
	return NewRecord{Content: content, Owner: "0xTherapist", Subject: "0xPatientAddress"}
}

// sliceIndex is an in-process index that records the context state of
// each append.
type sliceIndex struct {
	ids        []string
	appendErrs []error
}

func (x *sliceIndex) List(context.Context) ([]string, error) {
	return slices.Clone(x.ids), nil
}

func (x *sliceIndex) Append(ctx context.Context, id string) error {
	x.appendErrs = append(x.appendErrs, ctx.Err())
	if !slices.Contains(x.ids, id) {
		x.ids = append(x.ids, id)
	}
	return nil
}
