package data

import (
	"context"
	"log"
	"sync"
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// MemoryStore serves bars held in memory, keyed by symbol and timeframe.
// Useful for tests and for pre-loaded datasets.
type MemoryStore struct {
	mu   sync.RWMutex
	bars map[string][]types.Bar
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bars: make(map[string][]types.Bar)}
}

func (s *MemoryStore) Name() string { return "memory" }

func key(symbol string, tf types.Timeframe) string {
	return symbol + "|" + string(tf)
}

// Put stores a copy of the bars for the symbol and timeframe.
func (s *MemoryStore) Put(symbol string, tf types.Timeframe, bars []types.Bar) {
	cp := make([]types.Bar, len(bars))
	copy(cp, bars)
	s.mu.Lock()
	s.bars[key(symbol, tf)] = cp
	s.mu.Unlock()
}

func (s *MemoryStore) GetBars(ctx context.Context, symbol string, tf types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	s.mu.RLock()
	bars, ok := s.bars[key(symbol, tf)]
	s.mu.RUnlock()
	if !ok {
		return nil, simerrors.NewDataError("data", "MemoryStore.GetBars",
			"no bars loaded for "+symbol+" "+string(tf))
	}
	clipped := ClipRange(bars, start, end)
	out := make([]types.Bar, len(clipped))
	copy(out, clipped)
	return out, nil
}

// CachedStore wraps another BarStore and memoizes full-range loads, so
// repeated runs over the same dataset hit the source once.
type CachedStore struct {
	source BarStore

	mu    sync.RWMutex
	cache map[string][]types.Bar
}

func NewCachedStore(source BarStore) *CachedStore {
	return &CachedStore{source: source, cache: make(map[string][]types.Bar)}
}

func (s *CachedStore) Name() string { return "cached " + s.source.Name() }

func (s *CachedStore) GetBars(ctx context.Context, symbol string, tf types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	k := key(symbol, tf)
	s.mu.RLock()
	bars, ok := s.cache[k]
	s.mu.RUnlock()
	if !ok {
		var err error
		bars, err = s.source.GetBars(ctx, symbol, tf, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		log.Printf("🔄 cached %d bars for %s %s from %s", len(bars), symbol, tf, s.source.Name())
		s.mu.Lock()
		s.cache[k] = bars
		s.mu.Unlock()
	}
	clipped := ClipRange(bars, start, end)
	out := make([]types.Bar, len(clipped))
	copy(out, clipped)
	return out, nil
}

// Clear drops all cached entries.
func (s *CachedStore) Clear() {
	s.mu.Lock()
	s.cache = make(map[string][]types.Bar)
	s.mu.Unlock()
}

// Size reports the number of cached symbol/timeframe entries.
func (s *CachedStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
