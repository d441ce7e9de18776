// Package codec converts records and the key index to and from the bytes
// held by the remote store.
//
// Both encodings are UTF-8 JSON. Record blobs are objects whose keys match
// the original contract data:
//
//	{"content":..., "emotionAnalysis":..., "patient":..., "status":...,
//	 "therapist":..., "timestamp":..., "v":1}
//
// The id is not stored in the blob; it is the suffix of the blob's key.
// Index blobs are arrays of id strings.
//
// Decoding tolerates missing optional fields (status, emotionAnalysis, v).
// Anything else malformed yields a *DecodeError, which callers recover from
// per item.
package codec
