package transform

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notevault/internal/record"
)

func TestEnvelope_Seal(t *testing.T) {
	got, err := Envelope{}.Seal(context.Background(), record.Draft{Content: "session notes"})
	require.NoError(t, err)

	want := "FHE-" + base64.StdEncoding.EncodeToString([]byte(`{"content":"session notes","emotion":""}`))
	assert.Equal(t, want, got)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	d := record.Draft{Content: "<felt better & slept>", Emotion: "Hopeful"}
	sealed, err := Envelope{}.Seal(context.Background(), d)
	require.NoError(t, err)

	opened, err := Envelope{}.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, d, opened)
}

func TestEnvelope_EmptyContent(t *testing.T) {
	_, err := Envelope{}.Seal(context.Background(), record.Draft{Content: "   "})
	assert.Error(t, err)
}

func TestEnvelope_OpenErrors(t *testing.T) {
	for _, in := range []string{"plain", "FHE-!!!", "FHE-" + base64.StdEncoding.EncodeToString([]byte("nope"))} {
		_, err := Envelope{}.Open(in)
		assert.Error(t, err, in)
	}
}

func TestLexicon_Deterministic(t *testing.T) {
	r := record.Record{ID: "a", Content: "FHE-abc"}

	first, err := Lexicon{}.Analyze(context.Background(), r)
	require.NoError(t, err)
	assert.Contains(t, Emotions, first)

	for i := 0; i < 5; i++ {
		again, err := Lexicon{}.Analyze(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLexicon_EmptyContent(t *testing.T) {
	_, err := Lexicon{}.Analyze(context.Background(), record.Record{ID: "a"})
	assert.Error(t, err)
}

func TestFixed(t *testing.T) {
	got, err := Fixed("Calm").Analyze(context.Background(), record.Record{})
	require.NoError(t, err)
	assert.Equal(t, "Calm", got)
}
