package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/repository"
	"github.com/roach88/notevault/internal/transform"
)

// Default observation windows: how long a terminal state is shown before
// the engine returns to Idle.
const (
	DefaultSuccessWindow = 2 * time.Second
	DefaultFailureWindow = 3 * time.Second
)

// Repository is the subset of *repository.Repository the engine drives.
type Repository interface {
	LoadAll(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id string) (record.Record, error)
	Prepare(n repository.NewRecord) record.Record
	Commit(ctx context.Context, rec record.Record) (record.Record, error)
	Update(ctx context.Context, id string, patch record.Patch) (record.Record, error)
	RetryIndex(ctx context.Context, id string) error
}

// EntryState tags a cached record with its confirmation status.
type EntryState int

const (
	// EntryConfirmed entries came from the last successful reconciliation.
	EntryConfirmed EntryState = iota
	// EntryOptimistic entries were inserted locally and await confirmation.
	EntryOptimistic
)

func (s EntryState) String() string {
	if s == EntryOptimistic {
		return "optimistic"
	}
	return "confirmed"
}

// Entry is one cached record.
type Entry struct {
	Record record.Record
	State  EntryState
}

// Stats summarizes the cached collection.
type Stats struct {
	Total      int
	Pending    int
	Analyzed   int
	Archived   int
	Optimistic int
	Owned      int
}

// Engine is the optimistic mutation engine for one session.
//
// Thread-safety model:
//   - All methods are safe for concurrent use
//   - Mutations of the same record id are serialized by a per-id lock
//   - Mutations of different ids may overlap; each still reconciles only
//     after its own write completed
type Engine struct {
	repo        Repository
	session     Session
	transformer transform.Transformer
	analyzer    transform.Analyzer
	clock       *Clock
	logger      *slog.Logger

	successWindow time.Duration
	failureWindow time.Duration

	locks *xsync.MapOf[string, *sync.Mutex]

	mu        sync.Mutex
	entries   []Entry
	inflight  map[string]struct{}      // ids of optimistic creates still awaiting Commit
	orphans   map[string]record.Record // stored but unindexed, awaiting RetryIndex
	state     State
	idleGen   uint64
	idleTimer *time.Timer
	subs      map[int]*transitionQueue
	nextSub   int
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTransformer sets the sealing transform. Default: transform.Envelope.
func WithTransformer(t transform.Transformer) Option {
	return func(e *Engine) {
		e.transformer = t
	}
}

// WithAnalyzer sets the analyzer. Default: transform.Lexicon.
func WithAnalyzer(a transform.Analyzer) Option {
	return func(e *Engine) {
		e.analyzer = a
	}
}

// WithObservationWindows sets how long Confirmed and Failed are held before
// returning to Idle. A window <= 0 returns to Idle immediately, which makes
// transition sequences deterministic for tests.
func WithObservationWindows(success, failure time.Duration) Option {
	return func(e *Engine) {
		e.successWindow = success
		e.failureWindow = failure
	}
}

// WithClock sets the logical clock stamping transitions.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine for session over repo. The cache starts empty;
// call Reload to populate it.
func New(repo Repository, session Session, opts ...Option) *Engine {
	e := &Engine{
		repo:          repo,
		session:       session,
		transformer:   transform.Envelope{},
		analyzer:      transform.Lexicon{},
		clock:         NewClock(),
		logger:        slog.Default(),
		successWindow: DefaultSuccessWindow,
		failureWindow: DefaultFailureWindow,
		locks:         xsync.NewMapOf[string, *sync.Mutex](),
		entries:       []Entry{},
		inflight:      make(map[string]struct{}),
		orphans:       make(map[string]record.Record),
		subs:          make(map[int]*transitionQueue),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns the session this engine serves.
func (e *Engine) Session() Session {
	return e.session
}

// State returns the current state machine position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Records returns a snapshot of the cached records, head first.
func (e *Engine) Records() []record.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]record.Record, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.Record
	}
	return out
}

// Entries returns a snapshot of the cache with confirmation tags.
func (e *Engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Orphans returns records whose blob was written but whose index append
// failed during this session, awaiting RetryIndex.
func (e *Engine) Orphans() []record.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]record.Record, 0, len(e.orphans))
	for _, r := range e.orphans {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b record.Record) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Stats counts cached records by status.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var s Stats
	for _, en := range e.entries {
		s.Total++
		switch en.Record.Status {
		case record.StatusPending:
			s.Pending++
		case record.StatusAnalyzed:
			s.Analyzed++
		case record.StatusArchived:
			s.Archived++
		}
		if en.State == EntryOptimistic {
			s.Optimistic++
		}
		if e.session.Owns(en.Record.Owner) {
			s.Owned++
		}
	}
	return s
}

// Subscribe registers for every transition published from now on.
func (e *Engine) Subscribe() (*Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	e.nextSub++
	q := newTransitionQueue()
	e.subs[e.nextSub] = q
	return &Subscription{id: e.nextSub, queue: q, engine: e}, nil
}

func (e *Engine) unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, id)
}

// Close tears the session down: pending idle timers are stopped and every
// subscription is closed. In-flight mutations still finish their
// bookkeeping but publish to nobody.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
	for id, q := range e.subs {
		q.Close()
		delete(e.subs, id)
	}
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// Reload replaces the cache with a fresh read of the remote store.
// On failure (including remote unavailability) the cache is left as is.
func (e *Engine) Reload(ctx context.Context) ([]record.Record, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.reconcile(ctx)
}

// Create seals d, inserts an optimistic entry at the head of the cache and
// commits the record remotely.
//
// On success the cache is reconciled and the stored record returned. On
// failure the optimistic entry is removed and the error returned; a
// *repository.OrphanedRecordError means the blob exists but is unindexed.
func (e *Engine) Create(ctx context.Context, d record.Draft) (record.Record, error) {
	if err := e.checkOpen(); err != nil {
		return record.Record{}, err
	}

	sealed, err := e.transformer.Seal(ctx, d)
	if err != nil {
		e.publish(OpCreate, "", StatePending, messages[OpCreate].pending, nil)
		err = fmt.Errorf("create: %w", err)
		e.finish(OpCreate, "", err)
		return record.Record{}, err
	}

	rec := e.repo.Prepare(repository.NewRecord{
		Content: sealed,
		Owner:   e.session.Owner,
		Subject: e.session.Subject,
	})

	unlock := e.lock(rec.ID)
	defer unlock()

	e.mu.Lock()
	e.entries = append([]Entry{{Record: rec, State: EntryOptimistic}}, e.entries...)
	e.inflight[rec.ID] = struct{}{}
	e.publishLocked(OpCreate, rec.ID, StatePending, messages[OpCreate].pending, nil)
	e.mu.Unlock()

	created, err := e.repo.Commit(ctx, rec)

	e.mu.Lock()
	delete(e.inflight, rec.ID)
	if err != nil {
		e.removeOptimisticLocked(rec.ID)
		if oe := orphaned(err); oe != nil {
			e.orphans[oe.ID] = oe.Record
		}
	}
	e.mu.Unlock()

	if err != nil {
		rollbackTotal.Inc()
		e.finish(OpCreate, rec.ID, err)
		return record.Record{}, err
	}

	e.finish(OpCreate, rec.ID, nil)
	e.settle(context.WithoutCancel(ctx), created)
	return created, nil
}

// Analyze computes the record's annotation and moves it to Analyzed.
func (e *Engine) Analyze(ctx context.Context, id string) (record.Record, error) {
	return e.mutate(ctx, OpAnalyze, id, func(ctx context.Context) (record.Record, error) {
		current, err := e.repo.Get(ctx, id)
		if err != nil {
			return record.Record{}, err
		}
		annotation, err := e.analyzer.Analyze(ctx, current)
		if err != nil {
			return record.Record{}, fmt.Errorf("analyze %s: %w", id, err)
		}
		return e.repo.Update(ctx, id, record.AnalyzePatch(annotation))
	})
}

// Archive moves the record to the terminal Archived status.
func (e *Engine) Archive(ctx context.Context, id string) (record.Record, error) {
	return e.mutate(ctx, OpArchive, id, func(ctx context.Context) (record.Record, error) {
		return e.repo.Update(ctx, id, record.StatusPatch(record.StatusArchived))
	})
}

// Update applies an arbitrary patch. Status regressions fail with
// record.ErrInvalidTransition.
func (e *Engine) Update(ctx context.Context, id string, patch record.Patch) (record.Record, error) {
	return e.mutate(ctx, OpUpdate, id, func(ctx context.Context) (record.Record, error) {
		return e.repo.Update(ctx, id, patch)
	})
}

// RetryIndex re-runs only the index step for an orphaned record.
func (e *Engine) RetryIndex(ctx context.Context, id string) (record.Record, error) {
	rec, err := e.mutate(ctx, OpRetryIndex, id, func(ctx context.Context) (record.Record, error) {
		if err := e.repo.RetryIndex(ctx, id); err != nil {
			return record.Record{}, err
		}
		return e.repo.Get(ctx, id)
	})
	if err == nil {
		e.mu.Lock()
		delete(e.orphans, id)
		e.mu.Unlock()
	}
	return rec, err
}

// mutate runs an update-style operation: no optimistic change, publish
// the outcome, reconcile after success.
func (e *Engine) mutate(ctx context.Context, op Op, id string, fn func(context.Context) (record.Record, error)) (record.Record, error) {
	if err := e.checkOpen(); err != nil {
		return record.Record{}, err
	}

	unlock := e.lock(id)
	defer unlock()

	e.publish(op, id, StatePending, messages[op].pending, nil)

	rec, err := fn(ctx)
	e.finish(op, id, err)
	if err != nil {
		return record.Record{}, err
	}

	e.settle(context.WithoutCancel(ctx), rec)
	return rec, nil
}

// settle reconciles after a confirmed write. If the reload fails, the
// confirmed record returned by the write replaces its cache entry so the
// cache never keeps an optimistic or stale copy past the mutation.
func (e *Engine) settle(ctx context.Context, confirmed record.Record) {
	if _, err := e.reconcile(ctx); err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.entries {
		if e.entries[i].Record.ID == confirmed.ID {
			e.entries[i] = Entry{Record: confirmed, State: EntryConfirmed}
			return
		}
	}
	e.entries = append([]Entry{{Record: confirmed, State: EntryConfirmed}}, e.entries...)
}

// reconcile reloads the collection and swaps it into the cache.
// Optimistic entries whose create is still in flight stay at the head.
func (e *Engine) reconcile(ctx context.Context) ([]record.Record, error) {
	start := time.Now()
	records, err := e.repo.LoadAll(ctx)
	reconcileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		reconcileErrors.Inc()
		e.logger.Warn("reconciliation failed, keeping cache", "error", err)
		return nil, fmt.Errorf("reload: %w", err)
	}

	loaded := make(map[string]struct{}, len(records))
	for _, r := range records {
		loaded[r.ID] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := make([]Entry, 0, len(records)+len(e.inflight))
	for _, en := range e.entries {
		if en.State != EntryOptimistic {
			continue
		}
		if _, ok := e.inflight[en.Record.ID]; !ok {
			continue
		}
		if _, ok := loaded[en.Record.ID]; ok {
			continue
		}
		next = append(next, en)
	}
	for _, r := range records {
		next = append(next, Entry{Record: r, State: EntryConfirmed})
	}
	e.entries = next

	e.logger.Debug("cache reconciled", "records", len(records), "optimistic", len(next)-len(records))
	return records, nil
}

// removeOptimisticLocked removes the first optimistic entry with id.
// Never removes more than one entry. Callers must hold e.mu.
func (e *Engine) removeOptimisticLocked(id string) {
	for i, en := range e.entries {
		if en.State == EntryOptimistic && en.Record.ID == id {
			e.entries = append(e.entries[:i], e.entries[i+1:]...)
			return
		}
	}
}

// lock acquires the per-record mutex for id and returns its release.
func (e *Engine) lock(id string) func() {
	mu, _ := e.locks.LoadOrCompute(id, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}

// finish publishes the terminal transition of an attempt. Exactly one call
// per attempt.
func (e *Engine) finish(op Op, id string, err error) {
	if err != nil {
		mutationTotal.WithLabelValues(string(op), "failed").Inc()
		e.logger.Error("mutation failed", "op", op, "id", id, "error", err)
		e.publish(op, id, StateFailed, failureMessage(op, err), err)
		return
	}
	mutationTotal.WithLabelValues(string(op), "confirmed").Inc()
	e.logger.Info("mutation confirmed", "op", op, "id", id)
	e.publish(op, id, StateConfirmed, messages[op].confirmed, nil)
}

func (e *Engine) publish(op Op, id string, state State, msg string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publishLocked(op, id, state, msg, err)
}

// publishLocked moves the state machine and fans the transition out.
// Terminal states schedule the return to Idle. Callers must hold e.mu.
func (e *Engine) publishLocked(op Op, id string, state State, msg string, err error) {
	t := Transition{
		Seq:      e.clock.Next(),
		Op:       op,
		RecordID: id,
		State:    state,
		Message:  msg,
		Err:      err,
	}

	e.state = state
	e.idleGen++
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}

	for _, q := range e.subs {
		q.Enqueue(t)
	}

	if !state.Terminal() {
		return
	}

	window := e.successWindow
	if state == StateFailed {
		window = e.failureWindow
	}
	if window <= 0 {
		e.publishLocked(op, id, StateIdle, "", nil)
		return
	}

	gen := e.idleGen
	e.idleTimer = time.AfterFunc(window, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || e.idleGen != gen {
			return
		}
		e.idleTimer = nil
		e.publishLocked(op, id, StateIdle, "", nil)
	})
}
