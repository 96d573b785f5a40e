package swarm

import (
	"context"
	"sync"
	"time"

	"github.com/oddsflow/swarm/internal/domain"
	"github.com/oddsflow/swarm/internal/ports"
)

// LeaderboardReader caches leaderboard snapshots for a short TTL so every
// consensus computation does not hammer the backing store. Snapshots are
// copies; callers may not mutate shared state through them.
type LeaderboardReader struct {
	store ports.LeaderboardStore
	ttl   time.Duration

	mu        sync.Mutex
	snapshot  map[string]domain.LeaderboardEntry
	fetchedAt time.Time
}

// NewLeaderboardReader wraps a store with snapshot caching. A non-positive
// ttl falls back to DefaultLeaderboardTTL.
func NewLeaderboardReader(store ports.LeaderboardStore, ttl time.Duration) *LeaderboardReader {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	return &LeaderboardReader{store: store, ttl: ttl}
}

// Snapshot returns the current leaderboard, served from cache while fresh.
// The returned map is a copy owned by the caller.
func (r *LeaderboardReader) Snapshot(ctx context.Context) (map[string]domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot != nil && time.Since(r.fetchedAt) < r.ttl {
		return copyBoard(r.snapshot), nil
	}

	board, err := r.store.GetLeaderboard(ctx)
	if err != nil {
		return nil, err
	}

	r.snapshot = board
	r.fetchedAt = time.Now()
	return copyBoard(board), nil
}

// Invalidate drops the cached snapshot so the next read hits the store.
// Called after settlements so fresh weights apply to the next consensus.
func (r *LeaderboardReader) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
}

func copyBoard(board map[string]domain.LeaderboardEntry) map[string]domain.LeaderboardEntry {
	out := make(map[string]domain.LeaderboardEntry, len(board))
	for id, entry := range board {
		out[id] = entry
	}
	return out
}
