// Package stats provides StatsStore implementations for the games-played and
// games-won counters shared across sessions.
package stats

import (
	"context"
	"sync"

	"github.com/wricardo/klondike/game/engine"
)

// MemoryStore keeps the counters in process memory
type MemoryStore struct {
	mu    sync.Mutex
	stats engine.Stats
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current counters
func (m *MemoryStore) Load(ctx context.Context) (engine.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}

// Record adds the deltas to the counters
func (m *MemoryStore) Record(ctx context.Context, playedDelta, wonDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.GamesPlayed += playedDelta
	m.stats.GamesWon += wonDelta
	return nil
}

// Reset zeroes the counters
func (m *MemoryStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = engine.Stats{}
	return nil
}
