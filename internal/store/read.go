package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/notevault/internal/remote"
)

// Entry is the current state of one key.
type Entry struct {
	Key        string
	Value      []byte
	Version    int64
	UpdatedSeq int64
}

// Write is one journal row.
type Write struct {
	Seq       int64
	Key       string
	Value     []byte
	WrittenAt time.Time
}

// Get implements remote.Store. An absent key yields an empty value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok, err := s.Entry(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte{}, nil
	}
	return entry.Value, nil
}

// Entry returns the current state of key, or false if it was never written.
func (s *Store) Entry(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Entry{}, false, remote.ErrUnavailable
	}

	e := Entry{Key: key}
	err := s.db.QueryRowContext(ctx, `
		SELECT value, version, updated_seq
		FROM entries
		WHERE key = ?
	`, key).Scan(&e.Value, &e.Version, &e.UpdatedSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read entry %s: %w", key, err)
	}
	if e.Value == nil {
		e.Value = []byte{}
	}
	return e, true, nil
}

// History returns every confirmed write of key, oldest first.
//
// Returns an empty slice (not nil) if the key was never written.
func (s *Store) History(ctx context.Context, key string) ([]Write, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, remote.ErrUnavailable
	}

	// Deterministic ordering: seq is the logical clock
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, key, value, written_at
		FROM writes
		WHERE key = ?
		ORDER BY seq ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query history %s: %w", key, err)
	}
	defer rows.Close()

	writes := []Write{}
	for rows.Next() {
		var (
			w  Write
			at int64
		)
		if err := rows.Scan(&w.Seq, &w.Key, &w.Value, &at); err != nil {
			return nil, fmt.Errorf("scan history %s: %w", key, err)
		}
		w.WrittenAt = time.Unix(0, at).UTC()
		writes = append(writes, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history %s: %w", key, err)
	}

	return writes, nil
}
