package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/remote"
	"github.com/roach88/notevault/internal/repository"
)

// The ledger serves as the remote store of a record repository.
func TestLedger_BacksRepository(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	repo := repository.New(s, repository.WithIDGenerator(repository.NewFixedGenerator("a", "b")))

	for _, content := range []string{"FHE-one", "FHE-two"} {
		_, err := repo.Create(ctx, repository.NewRecord{Content: content, Owner: "0xT", Subject: "0xP"})
		require.NoError(t, err)
	}

	_, err := repo.Update(ctx, "a", record.StatusPatch(record.StatusArchived))
	require.NoError(t, err)

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byID := map[string]record.Record{}
	for _, r := range records {
		byID[r.ID] = r
	}
	assert.Equal(t, record.StatusArchived, byID["a"].Status)
	assert.Equal(t, record.StatusPending, byID["b"].Status)

	index, err := s.Get(ctx, remote.IndexKey)
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(index))

	history, err := s.History(ctx, remote.RecordKey("a"))
	require.NoError(t, err)
	assert.Len(t, history, 2, "create and archive")
}
