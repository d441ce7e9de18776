package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/notevault/internal/record"
)

// SchemaVersion is written into every record blob.
// Blobs without a version are treated as version 1.
const SchemaVersion = 1

// wireRecord is the blob layout. Field order is the encoded key order and
// is kept sorted so encoding is deterministic.
type wireRecord struct {
	Content         string `json:"content"`
	EmotionAnalysis string `json:"emotionAnalysis"`
	Patient         string `json:"patient"`
	Status          string `json:"status"`
	Therapist       string `json:"therapist"`
	Timestamp       int64  `json:"timestamp"`
	V               int    `json:"v"`
}

// decodeRecord mirrors wireRecord with optional fields as pointers.
type decodeRecord struct {
	Content         *string      `json:"content"`
	EmotionAnalysis *string      `json:"emotionAnalysis"`
	Patient         string       `json:"patient"`
	Status          *string      `json:"status"`
	Therapist       string       `json:"therapist"`
	Timestamp       *json.Number `json:"timestamp"`
	V               *int         `json:"v"`
}

// EncodeRecord serializes r. The id is not part of the blob.
func EncodeRecord(r record.Record) ([]byte, error) {
	if !r.Status.Valid() {
		return nil, fmt.Errorf("encode record %s: invalid status %d", r.ID, int(r.Status))
	}
	return marshal(wireRecord{
		Content:         r.Content,
		EmotionAnalysis: r.Annotation,
		Patient:         r.Subject,
		Status:          r.Status.String(),
		Therapist:       r.Owner,
		Timestamp:       r.CreatedAt,
		V:               SchemaVersion,
	})
}

// DecodeRecord parses a record blob stored under id.
//
// Defaults: status "pending", emotionAnalysis "", v 1.
// content and timestamp are required.
func DecodeRecord(id string, data []byte) (record.Record, error) {
	fail := func(err error) (record.Record, error) {
		return record.Record{}, &DecodeError{Kind: "record", ID: id, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return fail(errors.New("empty blob"))
	}

	var w decodeRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return fail(err)
	}
	if dec.More() {
		return fail(errors.New("trailing data after record"))
	}

	version := 1
	if w.V != nil {
		version = *w.V
	}
	if version < 1 || version > SchemaVersion {
		return fail(fmt.Errorf("unsupported schema version %d", version))
	}

	if w.Content == nil {
		return fail(errors.New("missing content"))
	}
	if w.Timestamp == nil {
		return fail(errors.New("missing timestamp"))
	}
	ts, err := w.Timestamp.Int64()
	if err != nil {
		return fail(fmt.Errorf("timestamp: %w", err))
	}

	status := record.StatusPending
	if w.Status != nil && *w.Status != "" {
		status, err = record.ParseStatus(*w.Status)
		if err != nil {
			return fail(err)
		}
	}

	r := record.Record{
		ID:        id,
		Content:   *w.Content,
		CreatedAt: ts,
		Owner:     w.Therapist,
		Subject:   w.Patient,
		Status:    status,
	}
	if w.EmotionAnalysis != nil {
		r.Annotation = *w.EmotionAnalysis
	}
	return r, nil
}

// marshal encodes v as JSON without HTML escaping or a trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
