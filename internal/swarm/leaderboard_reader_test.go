package swarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsflow/swarm/internal/domain"
)

func TestLeaderboardReaderCachesWithinTTL(t *testing.T) {
	store := &fakeLeaderboardStore{board: map[string]domain.LeaderboardEntry{
		"a": entryWithRecord("a", 3, 1),
	}}
	reader := NewLeaderboardReader(store, time.Hour)

	for i := 0; i < 5; i++ {
		board, err := reader.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Contains(t, board, "a")
	}

	assert.Equal(t, 1, store.reads)
}

func TestLeaderboardReaderInvalidate(t *testing.T) {
	store := &fakeLeaderboardStore{}
	reader := NewLeaderboardReader(store, time.Hour)

	_, err := reader.Snapshot(context.Background())
	require.NoError(t, err)
	reader.Invalidate()
	_, err = reader.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.reads)
}

func TestLeaderboardReaderSnapshotIsACopy(t *testing.T) {
	store := &fakeLeaderboardStore{board: map[string]domain.LeaderboardEntry{
		"a": entryWithRecord("a", 3, 1),
	}}
	reader := NewLeaderboardReader(store, time.Hour)

	first, err := reader.Snapshot(context.Background())
	require.NoError(t, err)
	delete(first, "a")

	second, err := reader.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Contains(t, second, "a")
}
