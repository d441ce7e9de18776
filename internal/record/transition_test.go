package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAnalyzed, StatusArchived} {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("deleted")
	assert.Error(t, err)
	_, err = ParseStatus("Pending")
	assert.Error(t, err, "wire names are lower case")
}

func TestStatus_StringUnknown(t *testing.T) {
	assert.Equal(t, "status(7)", Status(7).String())
	assert.False(t, Status(7).Valid())
	assert.False(t, Status(-1).Valid())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusAnalyzed, true},
		{StatusPending, StatusArchived, true},
		{StatusAnalyzed, StatusArchived, true},
		{StatusAnalyzed, StatusPending, false},
		{StatusArchived, StatusPending, false},
		{StatusArchived, StatusAnalyzed, false},
		{StatusArchived, StatusArchived, true},
		{StatusPending, Status(9), false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestApply_Analyze(t *testing.T) {
	r := Record{ID: "a", Status: StatusPending}

	got, err := Apply(r, AnalyzePatch("Calm"))
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzed, got.Status)
	assert.Equal(t, "Calm", got.Annotation)

	// Input untouched.
	assert.Equal(t, StatusPending, r.Status)
	assert.Empty(t, r.Annotation)
}

func TestApply_ArchiveKeepsAnnotation(t *testing.T) {
	r := Record{ID: "a", Status: StatusAnalyzed, Annotation: "Calm"}

	got, err := Apply(r, StatusPatch(StatusArchived))
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, got.Status)
	assert.Equal(t, "Calm", got.Annotation)
}

func TestApply_Regression(t *testing.T) {
	for _, from := range []Status{StatusAnalyzed, StatusArchived} {
		r := Record{ID: "a", Status: from}
		_, err := Apply(r, StatusPatch(StatusPending))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.True(t, IsInvalidTransition(err))

		var te *TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, from, te.From)
		assert.Equal(t, StatusPending, te.To)
	}
}

func TestApply_AnnotationImmutable(t *testing.T) {
	r := Record{ID: "a", Status: StatusAnalyzed, Annotation: "Calm"}

	_, err := Apply(r, AnalyzePatch("Angry"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Re-applying the same annotation is a no-op.
	got, err := Apply(r, AnalyzePatch("Calm"))
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestApply_AnnotationOnlyWithAnalyze(t *testing.T) {
	r := Record{ID: "a", Status: StatusPending}
	note := "Calm"
	s := StatusArchived

	_, err := Apply(r, Patch{Status: &s, Annotation: &note})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_AnnotationNFC(t *testing.T) {
	r := Record{ID: "a", Status: StatusPending}

	// "e" + combining acute accent normalizes to a single code point.
	got, err := Apply(r, AnalyzePatch("Seren\u0065\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "Seren\u00e9", got.Annotation)
}
