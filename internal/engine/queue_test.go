package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionQueue_EnqueueDequeue(t *testing.T) {
	q := newTransitionQueue()

	ok := q.Enqueue(Transition{Seq: 1, RecordID: "note-1"})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "note-1", got.RecordID)
}

func TestTransitionQueue_FIFO(t *testing.T) {
	q := newTransitionQueue()

	for i := int64(1); i <= 3; i++ {
		q.Enqueue(Transition{Seq: i})
	}

	for i := int64(1); i <= 3; i++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, got.Seq)
	}
}

func TestTransitionQueue_TryDequeue_Empty(t *testing.T) {
	q := newTransitionQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestTransitionQueue_WaitSignals(t *testing.T) {
	q := newTransitionQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Transition{Seq: 1})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait was not signaled")
	}

	_, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestTransitionQueue_Close(t *testing.T) {
	q := newTransitionQueue()
	q.Enqueue(Transition{Seq: 1})

	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(Transition{Seq: 2}), "enqueue after close should fail")

	// Queued items survive Close.
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Seq)

	select {
	case <-q.Wait():
	default:
		t.Fatal("Wait channel should be closed")
	}
}

func TestTransitionQueue_ConcurrentEnqueue(t *testing.T) {
	q := newTransitionQueue()

	const goroutines, each = 8, 100
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Enqueue(Transition{})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*each, q.Len())
}
