// Package repository composes the codec, the key index and a remote store
// into whole-collection and single-record operations.
//
// Every operation is a sequence of single-key remote calls. The partial
// failure behavior of each sequence:
//
//   - LoadAll: a missing, unreadable or undecodable record is skipped and
//     logged; the load never fails because of one record.
//   - Create: record blob first, then the index append. A failed blob write
//     indexes nothing. A failed index append after a successful blob write
//     returns *OrphanedRecordError; RetryIndex repairs it.
//   - Update: read, validate the status transition, write back. A rejected
//     transition writes nothing.
package repository
