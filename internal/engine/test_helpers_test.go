package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/remote"
	"github.com/roach88/notevault/internal/repository"
	"github.com/roach88/notevault/internal/testutil"
	"github.com/roach88/notevault/internal/transform"
)

const testOwner = "0xTherapist"

// newTestEngine creates an engine over m with sequential ids, a fixed
// analyzer and observation windows of zero, so every terminal transition
// is immediately followed by Idle.
func newTestEngine(t *testing.T, m *remote.Memory, opts ...Option) *Engine {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewDeterministicClock(time.Time{}, time.Second)
	repo := repository.New(m,
		repository.WithIDGenerator(testutil.NewSequentialIDs("note")),
		repository.WithClock(clock.Now),
		repository.WithLogger(logger),
	)

	session, err := NewSession(testOwner, "")
	require.NoError(t, err)

	base := []Option{
		WithAnalyzer(transform.Fixed("Calm")),
		WithObservationWindows(0, 0),
		WithLogger(logger),
	}
	e := New(repo, session, append(base, opts...)...)
	t.Cleanup(e.Close)
	return e
}

func subscribe(t *testing.T, e *Engine) *Subscription {
	t.Helper()
	sub, err := e.Subscribe()
	require.NoError(t, err)
	return sub
}

// drain returns every transition queued on sub without blocking.
func drain(sub *Subscription) []Transition {
	var out []Transition
	for {
		tr, ok := sub.queue.TryDequeue()
		if !ok {
			return out
		}
		out = append(out, tr)
	}
}

func states(ts []Transition) []State {
	out := make([]State, len(ts))
	for i, tr := range ts {
		out[i] = tr.State
	}
	return out
}

func note(content string) record.Draft {
	return record.Draft{Content: content, Emotion: "Calm"}
}
