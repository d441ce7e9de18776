package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/notevault/internal/codec"
	"github.com/roach88/notevault/internal/index"
	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/remote"
)

// DefaultLoadConcurrency bounds parallel record fetches in LoadAll.
const DefaultLoadConcurrency = 8

// Repository provides collection and record operations over a remote store.
//
// Thread-safety: methods may be called concurrently, but concurrent updates
// of the same id race on the read-modify-write. The engine serializes them.
type Repository struct {
	store       remote.Store
	index       index.Index
	ids         IDGenerator
	now         func() time.Time
	concurrency int
	logger      *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithIndex replaces the default BlobIndex.
func WithIndex(idx index.Index) Option {
	return func(r *Repository) {
		r.index = idx
	}
}

// WithIDGenerator sets the id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Repository) {
		r.ids = g
	}
}

// WithClock sets the wall clock used for CreatedAt. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithLoadConcurrency bounds parallel fetches in LoadAll.
// Values below 1 are ignored.
func WithLoadConcurrency(n int) Option {
	return func(r *Repository) {
		if n >= 1 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger for skipped records and index decode failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// New creates a Repository over s.
func New(s remote.Store, opts ...Option) *Repository {
	r := &Repository{
		store:       s,
		ids:         UUIDv7Generator{},
		now:         time.Now,
		concurrency: DefaultLoadConcurrency,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.index == nil {
		r.index = index.NewBlobIndex(s, index.WithLogger(r.logger))
	}
	return r
}

// NewRecord is the sealed input of Create.
type NewRecord struct {
	Content string
	Owner   string
	Subject string
}

// SkippedRecord is an indexed id that LoadAll could not return.
type SkippedRecord struct {
	ID  string
	Err error
}

// LoadReport is the detailed result of a collection load.
type LoadReport struct {
	Records []record.Record
	Skipped []SkippedRecord

	// Err aggregates the skip reasons; nil when nothing was skipped.
	Err error
}

// LoadAll returns every indexed record, newest first.
// Records that are missing or malformed are skipped and logged.
func (r *Repository) LoadAll(ctx context.Context) ([]record.Record, error) {
	report, err := r.LoadAllWithReport(ctx)
	if err != nil {
		return nil, err
	}
	return report.Records, nil
}

// LoadAllWithReport is LoadAll with the list of skipped ids.
//
// Order: CreatedAt descending; ties keep index order.
func (r *Repository) LoadAllWithReport(ctx context.Context) (*LoadReport, error) {
	ok, err := r.store.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("load all: %w: %v", ErrRemoteUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("load all: %w", ErrRemoteUnavailable)
	}

	ids, err := r.index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load all: %w", err)
	}
	ids = dedupe(ids)

	slots := make([]*record.Record, len(ids))
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := r.fetch(gctx, id)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = &rec
			return nil
		})
	}
	_ = g.Wait() // fetches never return errors; failures land in errs

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load all: %w", err)
	}

	report := &LoadReport{Records: make([]record.Record, 0, len(ids))}
	var merr *multierror.Error
	for i, id := range ids {
		if errs[i] != nil {
			if errNotFoundOrDecode(errs[i]) {
				r.logger.Warn("skipping record", "id", id, "error", errs[i])
			} else {
				r.logger.Error("skipping unreadable record", "id", id, "error", errs[i])
			}
			report.Skipped = append(report.Skipped, SkippedRecord{ID: id, Err: errs[i]})
			merr = multierror.Append(merr, errs[i])
			continue
		}
		report.Records = append(report.Records, *slots[i])
	}
	report.Err = merr.ErrorOrNil()

	slices.SortStableFunc(report.Records, func(a, b record.Record) int {
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})

	r.logger.Debug("collection loaded",
		"indexed", len(ids),
		"loaded", len(report.Records),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// Get returns one record by id, indexed or not.
func (r *Repository) Get(ctx context.Context, id string) (record.Record, error) {
	rec, err := r.fetch(ctx, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// fetch reads and decodes one record blob.
func (r *Repository) fetch(ctx context.Context, id string) (record.Record, error) {
	data, err := r.store.Get(ctx, remote.RecordKey(id))
	if err != nil {
		return record.Record{}, err
	}
	if len(data) == 0 {
		return record.Record{}, ErrNotFound
	}
	return codec.DecodeRecord(id, data)
}

// Prepare builds the record Create would write, with a fresh id and
// CreatedAt, without touching the store.
func (r *Repository) Prepare(n NewRecord) record.Record {
	return record.Record{
		ID:        r.ids.Generate(),
		Content:   n.Content,
		CreatedAt: r.now().Unix(),
		Owner:     n.Owner,
		Subject:   n.Subject,
		Status:    record.StatusPending,
	}
}

// Create prepares and commits a new Pending record.
func (r *Repository) Create(ctx context.Context, n NewRecord) (record.Record, error) {
	return r.Commit(ctx, r.Prepare(n))
}

// Commit writes a prepared record blob, then appends its id to the index.
// Cancelling ctx stops the commit only before the blob write is submitted.
//
// Returns *remote.WriteError if the blob write fails (nothing indexed), or
// *OrphanedRecordError if the blob landed but the index append failed.
func (r *Repository) Commit(ctx context.Context, rec record.Record) (record.Record, error) {
	if rec.Status != record.StatusPending {
		return record.Record{}, fmt.Errorf("create %s: new records must be pending, got %s", rec.ID, rec.Status)
	}

	data, err := codec.EncodeRecord(rec)
	if err != nil {
		return record.Record{}, fmt.Errorf("create %s: %w", rec.ID, err)
	}

	if err := remote.SetAndWait(ctx, r.store, remote.RecordKey(rec.ID), data); err != nil {
		return record.Record{}, fmt.Errorf("create %s: %w", rec.ID, err)
	}

	// The blob is stored. Abandoning now would leave it unindexed.
	if err := r.index.Append(context.WithoutCancel(ctx), rec.ID); err != nil {
		r.logger.Error("record orphaned: blob written, index append failed",
			"id", rec.ID,
			"error", err,
		)
		return record.Record{}, &OrphanedRecordError{ID: rec.ID, Record: rec, Err: err}
	}

	r.logger.Info("record created", "id", rec.ID)
	return rec, nil
}

// Update applies patch to the stored record and writes it back.
//
// Returns ErrNotFound if the blob is absent, a *codec.DecodeError if it is
// malformed, and a *record.TransitionError for status regressions. Nothing
// is written in those cases. Once the write is submitted, cancelling ctx no
// longer changes the outcome.
func (r *Repository) Update(ctx context.Context, id string, patch record.Patch) (record.Record, error) {
	current, err := r.fetch(ctx, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("update %s: %w", id, err)
	}

	next, err := record.Apply(current, patch)
	if err != nil {
		return record.Record{}, fmt.Errorf("update %s: %w", id, err)
	}
	if next == current {
		return current, nil
	}

	data, err := codec.EncodeRecord(next)
	if err != nil {
		return record.Record{}, fmt.Errorf("update %s: %w", id, err)
	}
	if err := remote.SetAndWait(ctx, r.store, remote.RecordKey(id), data); err != nil {
		return record.Record{}, fmt.Errorf("update %s: %w", id, err)
	}

	r.logger.Info("record updated", "id", id, "status", next.Status.String())
	return next, nil
}

// RetryIndex appends an orphaned record's id to the index.
// The blob must exist; retrying an already-indexed id is a no-op.
func (r *Repository) RetryIndex(ctx context.Context, id string) error {
	data, err := r.store.Get(ctx, remote.RecordKey(id))
	if err != nil {
		return fmt.Errorf("retry index %s: %w", id, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("retry index %s: %w", id, ErrNotFound)
	}
	if err := r.index.Append(ctx, id); err != nil {
		return fmt.Errorf("retry index %s: %w", id, err)
	}
	return nil
}

// Index exposes the key index, for diagnostics.
func (r *Repository) Index() index.Index {
	return r.index
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// errNotFoundOrDecode reports whether err is an expected per-record
// condition rather than a store failure.
func errNotFoundOrDecode(err error) bool {
	return errors.Is(err, ErrNotFound) || codec.IsDecodeError(err)
}
