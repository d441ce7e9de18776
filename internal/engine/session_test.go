package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notevault/internal/remote"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession("  0xAbC  ", "")
	require.NoError(t, err)
	assert.Equal(t, "0xAbC", s.Owner)
	assert.Equal(t, DefaultSubject, s.Subject)

	s, err = NewSession("0xAbC", "0xPatient")
	require.NoError(t, err)
	assert.Equal(t, "0xPatient", s.Subject)

	_, err = NewSession("  ", "")
	assert.Error(t, err)
}

func TestSession_Owns(t *testing.T) {
	s, err := NewSession("0xAbC", "")
	require.NoError(t, err)

	assert.True(t, s.Owns("0xabc"))
	assert.True(t, s.Owns("0xABC"))
	assert.False(t, s.Owns("0xdef"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "confirmed", StateConfirmed.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())

	assert.True(t, StateConfirmed.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateIdle.Terminal())
}

func TestFailureMessage(t *testing.T) {
	rejected := remote.NewWriteError("note_1", remote.CauseRejected, errors.New("user rejected"))
	assert.Equal(t, "Transaction rejected by user", failureMessage(OpCreate, rejected))

	other := errors.New("boom")
	assert.Equal(t, "Archiving failed: boom", failureMessage(OpArchive, other))
}
