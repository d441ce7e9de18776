package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/notevault/internal/remote"
)

// writeRequest is one submitted write awaiting the writer goroutine.
type writeRequest struct {
	key     string
	value   []byte
	pending *remote.Pending
}

// Set implements remote.Store. The write is queued for the writer
// goroutine; the returned confirmation resolves once it has committed.
func (s *Store) Set(ctx context.Context, key string, value []byte) (remote.Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, remote.NewWriteError(key, remote.CauseNetwork, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, remote.NewWriteError(key, remote.CauseNetwork, ErrClosed)
	}

	// Never nil: a nil blob would bind as NULL.
	v := make([]byte, len(value))
	copy(v, value)

	req := writeRequest{
		key:     key,
		value:   v,
		pending: remote.NewPending(key),
	}

	select {
	case s.writes <- req:
		return req.pending, nil
	case <-ctx.Done():
		return nil, remote.NewWriteError(key, remote.CauseNetwork, ctx.Err())
	}
}

// run is the single writer. Requests are applied in submission order.
func (s *Store) run() {
	defer s.wg.Done()

	for req := range s.writes {
		if s.latency > 0 {
			time.Sleep(s.latency)
		}

		seq, err := s.apply(context.Background(), req.key, req.value)
		if err != nil {
			s.logger.Error("ledger write failed", "key", req.key, "error", err)
			req.pending.Resolve(remote.NewWriteError(req.key, remote.CauseRemote, err))
			continue
		}

		s.logger.Debug("ledger write confirmed", "key", req.key, "seq", seq)
		req.pending.Resolve(nil)
	}
}

// apply journals the write and updates the key's current value in one
// transaction. Returns the journal seq.
func (s *Store) apply(ctx context.Context, key string, value []byte) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("apply %s: begin: %w", key, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO writes (key, value, written_at)
		VALUES (?, ?, ?)
	`, key, value, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("apply %s: journal: %w", key, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("apply %s: journal seq: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (key, value, version, updated_seq)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = entries.version + 1,
			updated_seq = excluded.updated_seq
	`, key, value, seq)
	if err != nil {
		return 0, fmt.Errorf("apply %s: entry: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("apply %s: commit: %w", key, err)
	}
	return seq, nil
}
