// Package remote defines the contract of the single-key remote store that
// holds note records and their key index.
//
// The store offers exactly three operations:
//   - Probe: availability check
//   - Get: read one key (absent keys read as zero-length, not an error)
//   - Set: submit a write and receive a Confirmation to await
//
// No operation is atomic across keys, and there is no compare-and-swap.
// Callers that read-modify-write a key must accept last-writer-wins.
//
// Reserved keys:
//
//	note_keys      the key index blob (IndexKey)
//	note_{id}      one blob per record (RecordKey)
package remote
