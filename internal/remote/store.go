package remote

import "context"

// IndexKey is the well-known key holding the key index blob.
const IndexKey = "note_keys"

// recordKeyPrefix prefixes every record blob key.
const recordKeyPrefix = "note_"

// RecordKey returns the storage key of the record with the given id.
func RecordKey(id string) string {
	return recordKeyPrefix + id
}

// Store is the single-key remote store.
//
// Implementations: Memory (tests and demos), store.Store (SQLite),
// badgerstore.Store (BadgerDB).
type Store interface {
	// Probe reports whether the store is reachable and accepting requests.
	Probe(ctx context.Context) (bool, error)

	// Get returns the value stored under key.
	// Returns a zero-length slice and nil error when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set submits a write. A non-nil error means the write was never
	// submitted (for example the signer rejected it). Otherwise the returned
	// Confirmation resolves once the write is durably applied or has failed.
	Set(ctx context.Context, key string, value []byte) (Confirmation, error)
}

// Confirmation is the handle of a submitted write.
type Confirmation interface {
	// Wait blocks until the write is applied or has failed.
	// Failures, including ctx expiring, are reported as *WriteError.
	Wait(ctx context.Context) error
}

// SetAndWait submits a write and waits for its confirmation.
//
// ctx only bounds the submission. Once Set has returned, the write cannot
// be withdrawn, so the wait ignores cancellation and reports the real
// outcome.
func SetAndWait(ctx context.Context, s Store, key string, value []byte) error {
	conf, err := s.Set(ctx, key, value)
	if err != nil {
		return AsWriteError(key, err)
	}
	return conf.Wait(context.WithoutCancel(ctx))
}
