package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/notevault/internal/engine"
	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/remote"
	"github.com/roach88/notevault/internal/repository"
	"github.com/roach88/notevault/internal/testutil"
	"github.com/roach88/notevault/internal/transform"
)

const (
	// DefaultOwner is the session owner when a scenario names none.
	DefaultOwner = "0xTherapist"

	// DefaultAnalysis is the fixed analyzer result when a scenario names none.
	DefaultAnalysis = "Calm"
)

// Harness is the execution environment of one scenario.
type Harness struct {
	memory *remote.Memory
	repo   *repository.Repository
	engine *engine.Engine
	sub    *engine.Subscription
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh memory store and write the setup entries
//  2. Load the collection into a new engine
//  3. Run each flow step with its faults injected, checking expectations
//  4. Snapshot the cache and evaluate assertions
//
// The returned error reports harness failures; scenario failures are
// recorded in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	ctx := context.Background()
	result := NewResult()

	if _, err := h.engine.Reload(ctx); err != nil {
		return nil, fmt.Errorf("initial load: %w", err)
	}

	for i, step := range scenario.Flow {
		if err := h.inject(step.Faults); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}

		rec, err := h.execute(ctx, step)
		h.memory.ClearFaults()

		if err := h.collect(ctx, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		checkExpect(result, i, step, rec, err)
	}

	result.SetRecords(h.engine.Records())

	for _, assertion := range scenario.Assertions {
		if err := h.evaluate(ctx, result, assertion); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	owner := scenario.Owner
	if owner == "" {
		owner = DefaultOwner
	}
	analysis := scenario.Analysis
	if analysis == "" {
		analysis = DefaultAnalysis
	}

	session, err := engine.NewSession(owner, scenario.Subject)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewDeterministicClock(time.Time{}, time.Second)

	memory := remote.NewMemory()
	for _, seed := range scenario.Setup {
		memory.Put(seed.Key, []byte(seed.Value))
	}

	repo := repository.New(memory,
		repository.WithIDGenerator(testutil.NewSequentialIDs("note")),
		repository.WithClock(clock.Now),
		repository.WithLoadConcurrency(1),
		repository.WithLogger(logger),
	)

	eng := engine.New(repo, session,
		engine.WithAnalyzer(transform.Fixed(analysis)),
		engine.WithObservationWindows(0, 0),
		engine.WithLogger(logger),
	)

	sub, err := eng.Subscribe()
	if err != nil {
		eng.Close()
		return nil, err
	}

	return &Harness{
		memory: memory,
		repo:   repo,
		engine: eng,
		sub:    sub,
	}, nil
}

func (h *Harness) close() {
	h.sub.Close()
	h.engine.Close()
}

// inject arms the step's faults on the memory store.
func (h *Harness) inject(faults []FaultSpec) error {
	for _, f := range faults {
		cause, err := parseCause(f.Cause)
		if err != nil {
			return err
		}
		stage, err := parseStage(f.Stage)
		if err != nil {
			return err
		}

		switch f.Kind {
		case "set":
			h.memory.FailNextSet(f.Key, remote.Fault{Cause: cause, Stage: stage})
		case "prefix":
			h.memory.FailSetsWithPrefix(f.Key, remote.Fault{Cause: cause, Stage: stage})
		case "get":
			h.memory.FailNextGet(f.Key, remote.ErrUnavailable)
		default:
			return fmt.Errorf("unknown fault kind %q", f.Kind)
		}
	}
	return nil
}

// execute runs one step against the engine.
func (h *Harness) execute(ctx context.Context, step Step) (record.Record, error) {
	switch step.Op {
	case OpCreate:
		return h.engine.Create(ctx, record.Draft{Content: step.Content, Emotion: step.Emotion})
	case OpAnalyze:
		return h.engine.Analyze(ctx, step.ID)
	case OpArchive:
		return h.engine.Archive(ctx, step.ID)
	case OpUpdate:
		patch, err := stepPatch(step)
		if err != nil {
			return record.Record{}, err
		}
		return h.engine.Update(ctx, step.ID, patch)
	case OpRetryIndex:
		return h.engine.RetryIndex(ctx, step.ID)
	case OpReload:
		_, err := h.engine.Reload(ctx)
		return record.Record{}, err
	case OpSetAvailable:
		h.memory.SetAvailable(*step.Available)
		return record.Record{}, nil
	default:
		return record.Record{}, fmt.Errorf("unknown op %q", step.Op)
	}
}

func stepPatch(step Step) (record.Patch, error) {
	var patch record.Patch
	if step.Status != "" {
		status, err := record.ParseStatus(step.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	patch.Annotation = step.Annotation
	return patch, nil
}

// collect drains every transition published so far into the trace.
// With zero observation windows all transitions of a step, including the
// return to Idle, are queued before the step returns.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	for h.sub.Pending() > 0 {
		t, ok, err := h.sub.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		result.AddTransition(t)
	}
	return nil
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(result *Result, i int, step Step, rec record.Record, err error) {
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}

	got := ErrorKind(err)
	switch {
	case want == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i+1, step.Op, err))
		return
	case want != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s error, got success", i+1, step.Op, want))
		return
	case want != got:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s error, got %s: %v", i+1, step.Op, want, got, err))
		return
	}

	if step.Expect != nil && step.Expect.Status != "" && err == nil && rec.Status.String() != step.Expect.Status {
		result.AddError(fmt.Sprintf("step %d (%s): expected status %s, got %s",
			i+1, step.Op, step.Expect.Status, rec.Status))
	}
}
