package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notevault/internal/remote"
)

func TestGet_AbsentKey(t *testing.T) {
	s := createTestStore(t)

	got, err := s.Get(context.Background(), "note_missing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSet_ConfirmedWriteIsReadable(t *testing.T) {
	s := createTestStore(t)
	setAndWait(t, s, "note_1", `{"content":"x"}`)

	got, err := s.Get(context.Background(), "note_1")
	require.NoError(t, err)
	assert.Equal(t, `{"content":"x"}`, string(got))
}

func TestSet_EmptyValue(t *testing.T) {
	s := createTestStore(t)
	setAndWait(t, s, "note_keys", "")

	entry, ok, err := s.Entry(context.Background(), "note_keys")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, entry.Value)
}

func TestSet_OverwriteBumpsVersion(t *testing.T) {
	s := createTestStore(t)
	setAndWait(t, s, "note_keys", `["a"]`)
	setAndWait(t, s, "note_keys", `["a","b"]`)

	entry, ok, err := s.Entry(context.Background(), "note_keys")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), entry.Version)
	assert.Equal(t, `["a","b"]`, string(entry.Value))

	history, err := s.History(context.Background(), "note_keys")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, `["a"]`, string(history[0].Value))
	assert.Equal(t, `["a","b"]`, string(history[1].Value))
	assert.Less(t, history[0].Seq, history[1].Seq)
	assert.Equal(t, history[1].Seq, entry.UpdatedSeq)
}

func TestSet_ConfirmationLatency(t *testing.T) {
	s := createTestStore(t, WithConfirmLatency(50*time.Millisecond))
	ctx := context.Background()

	conf, err := s.Set(ctx, "note_1", []byte("v"))
	require.NoError(t, err)

	// Not yet confirmed: the value is not visible.
	got, err := s.Get(ctx, "note_1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, conf.Wait(ctx))
	got, err = s.Get(ctx, "note_1")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestSet_WaitTimeout(t *testing.T) {
	s := createTestStore(t, WithConfirmLatency(200*time.Millisecond))

	conf, err := s.Set(context.Background(), "note_1", []byte("v"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = conf.Wait(ctx)
	require.Error(t, err)
	var we *remote.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, remote.CauseTimeout, we.Cause)
}

func TestSet_CanceledContext(t *testing.T) {
	s := createTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Set(ctx, "note_1", []byte("v"))
	require.Error(t, err)
	assert.True(t, remote.IsWriteError(err))
}

func TestSet_AfterClose(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Set(context.Background(), "note_1", []byte("v"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Get(context.Background(), "note_1")
	assert.ErrorIs(t, err, remote.ErrUnavailable)
}

func TestClose_DrainsQueuedWrites(t *testing.T) {
	path := t.TempDir() + "/test.db"
	s, err := Open(path, WithConfirmLatency(5*time.Millisecond))
	require.NoError(t, err)

	var confs []remote.Confirmation
	for i := 0; i < 5; i++ {
		conf, err := s.Set(context.Background(), fmt.Sprintf("note_%d", i), []byte("v"))
		require.NoError(t, err)
		confs = append(confs, conf)
	}
	require.NoError(t, s.Close())

	for _, conf := range confs {
		assert.NoError(t, conf.Wait(context.Background()))
	}

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	for i := 0; i < 5; i++ {
		got, err := reopened.Get(context.Background(), fmt.Sprintf("note_%d", i))
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))
	}
}

func TestSet_AppliedInSubmissionOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var confs []remote.Confirmation
	for i := 1; i <= 10; i++ {
		conf, err := s.Set(ctx, "note_keys", []byte(fmt.Sprint(i)))
		require.NoError(t, err)
		confs = append(confs, conf)
	}
	for _, conf := range confs {
		require.NoError(t, conf.Wait(ctx))
	}

	got, err := s.Get(ctx, "note_keys")
	require.NoError(t, err)
	assert.Equal(t, "10", string(got), "last submitted write wins")

	history, err := s.History(ctx, "note_keys")
	require.NoError(t, err)
	require.Len(t, history, 10)
	for i, w := range history {
		assert.Equal(t, fmt.Sprint(i+1), string(w.Value))
	}
}

func TestSet_ConcurrentKeys(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, remote.SetAndWait(ctx, s, fmt.Sprintf("note_%d", i), []byte("v")))
		}()
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		got, err := s.Get(ctx, fmt.Sprintf("note_%d", i))
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))
	}
}

func TestHistory_WrittenAtFromClock(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := createTestStore(t, WithClock(func() time.Time { return at }))
	setAndWait(t, s, "note_1", "v")

	history, err := s.History(context.Background(), "note_1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, at, history[0].WrittenAt)
	assert.Equal(t, "note_1", history[0].Key)
}

func TestHistory_Empty(t *testing.T) {
	s := createTestStore(t)

	history, err := s.History(context.Background(), "note_1")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}
