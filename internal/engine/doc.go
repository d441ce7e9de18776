// Package engine implements the optimistic mutation engine: the local,
// session-scoped view of the note collection and the state machine that
// drives every mutation against the remote store.
//
// ARCHITECTURE:
//
// Cache Ownership:
// The engine exclusively owns the in-memory collection for one Session.
// The cache is never the source of truth; the remote store is. Every entry
// is tagged Optimistic (inserted locally, not yet confirmed) or Confirmed
// (read back from the store by the last reconciliation).
//
// Mutation Flow:
//  1. Lock the record id (mutations of one id never overlap)
//  2. Publish Pending
//  3. Create only: insert an Optimistic entry at the head of the cache
//  4. Await the repository operation and its remote confirmation
//  5. Success: publish Confirmed, then reconcile (full reload)
//  6. Failure: remove the Optimistic entry if any, publish Failed
//  7. After an observation window, publish Idle
//
// Updates (analyze, archive) never touch the cache before confirmation.
// A premature local status change could show a terminal state such as
// Archived that the store never accepted.
//
// ORDERING:
// Reconciliation starts only after the mutation's write has completed, so a
// reload always reflects every write this session finished.
//
// CANCELLATION:
// A cancelled caller context stops a mutation only before its remote write
// is submitted. After that the write, the index append and the following
// rollback or reconciliation all run to completion, and the caller gets the
// real outcome.
//
// KNOWN GAP:
// Sessions in different processes race on the key index. See index.BlobIndex.
package engine
