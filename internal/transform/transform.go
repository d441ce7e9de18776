// Package transform holds the injected content capabilities: sealing note
// plaintext into opaque ciphertext, and analyzing a sealed record.
//
// The implementations here are simulations. A real homomorphic or
// enclave-backed implementation replaces them without changing the engine.
package transform

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/notevault/internal/record"
)

// Transformer seals a draft into the opaque content stored remotely.
type Transformer interface {
	Seal(ctx context.Context, d record.Draft) (string, error)
}

// Analyzer derives an annotation from a sealed record.
type Analyzer interface {
	Analyze(ctx context.Context, r record.Record) (string, error)
}

// EnvelopePrefix marks content produced by Envelope.
const EnvelopePrefix = "FHE-"

// Envelope is the simulated sealing transform: "FHE-" followed by the
// base64 of the draft's JSON.
type Envelope struct{}

// Seal implements Transformer.
func (Envelope) Seal(_ context.Context, d record.Draft) (string, error) {
	if strings.TrimSpace(d.Content) == "" {
		return "", errors.New("seal: content is empty")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Content string `json:"content"`
		Emotion string `json:"emotion"`
	}{d.Content, d.Emotion}); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	payload := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return EnvelopePrefix + base64.StdEncoding.EncodeToString(payload), nil
}

// Open reverses Envelope.Seal. Used by diagnostics and tests only.
func (Envelope) Open(content string) (record.Draft, error) {
	raw, ok := strings.CutPrefix(content, EnvelopePrefix)
	if !ok {
		return record.Draft{}, fmt.Errorf("open: missing %q prefix", EnvelopePrefix)
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return record.Draft{}, fmt.Errorf("open: %w", err)
	}
	var d record.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return record.Draft{}, fmt.Errorf("open: %w", err)
	}
	return d, nil
}

// Emotions is the annotation vocabulary of Lexicon.
var Emotions = []string{"Calm", "Anxious", "Hopeful", "Depressed", "Angry"}

// Lexicon is the simulated analyzer. It picks an emotion from Emotions by
// hashing the sealed content, so the same record always yields the same
// annotation.
type Lexicon struct{}

// Analyze implements Analyzer.
func (Lexicon) Analyze(_ context.Context, r record.Record) (string, error) {
	if r.Content == "" {
		return "", fmt.Errorf("analyze %s: content is empty", r.ID)
	}
	sum := sha256.Sum256([]byte(r.Content))
	n := binary.BigEndian.Uint64(sum[:8])
	return Emotions[n%uint64(len(Emotions))], nil
}

// Fixed always returns the same annotation.
type Fixed string

// Analyze implements Analyzer.
func (f Fixed) Analyze(context.Context, record.Record) (string, error) {
	return string(f), nil
}
