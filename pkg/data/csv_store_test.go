package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// writeCandles places a candles.csv for the symbol under the store layout.
func writeCandles(t *testing.T, root, symbol string, tf types.Timeframe, content string) {
	t.Helper()
	dir := filepath.Join(root, symbol, string(tf))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "candles.csv"), []byte(content), 0o644))
}

func TestCSVStore_LoadsAndClips(t *testing.T) {
	root := t.TempDir()
	writeCandles(t, root, "BTCUSDT", types.Timeframe1h,
		"timestamp,open,high,low,close,volume\n"+
			"2024-01-01 00:00:00,100,101,99,100.5,1000\n"+
			"2024-01-01 01:00:00,100.5,102,100,101.5,1100\n"+
			"2024-01-01 02:00:00,101.5,103,101,102.5,900\n")

	store := NewCSVStore(root)
	bars, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, types.Timeframe1h, bars[0].Timeframe)

	start := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	clipped, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, start, time.Time{})
	require.NoError(t, err)
	require.Len(t, clipped, 2)
	assert.Equal(t, 101.5, clipped[0].Close)
}

// TestCSVStore_HeaderlessAccepted: a file whose first row is already a
// record keeps that row.
func TestCSVStore_HeaderlessAccepted(t *testing.T) {
	root := t.TempDir()
	writeCandles(t, root, "ETHUSDT", types.Timeframe1h,
		"2024-01-01 00:00:00,100,101,99,100.5,1000\n"+
			"2024-01-01 01:00:00,100.5,102,100,101.5,1100\n")

	store := NewCSVStore(root)
	bars, err := store.GetBars(context.Background(), "ETHUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

// TestCSVStore_UnixMillisTimestamps: the alternate timestamp encoding.
func TestCSVStore_UnixMillisTimestamps(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	root := t.TempDir()
	writeCandles(t, root, "BTCUSDT", types.Timeframe1h,
		"1704067200000,100,101,99,100.5,1000\n"+
			"1704070800000,100.5,102,100,101.5,1100\n")

	store := NewCSVStore(root)
	bars, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, ts.Equal(bars[0].Timestamp))
}

// TestCSVStore_MissingFileIsDataError: no synthetic fallback.
func TestCSVStore_MissingFileIsDataError(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	_, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, simerrors.IsData(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestCSVStore_MalformedRecord(t *testing.T) {
	root := t.TempDir()
	writeCandles(t, root, "BTCUSDT", types.Timeframe1h,
		"timestamp,open,high,low,close,volume\n"+
			"2024-01-01 00:00:00,100,101,99,100.5,1000\n"+
			"2024-01-01 01:00:00,not-a-number,102,100,101.5,1100\n")

	store := NewCSVStore(root)
	_, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, simerrors.IsData(err))
	assert.Contains(t, err.Error(), "malformed record")
}

// TestCSVStore_UnsortedInputSorted: out-of-order rows are sorted before
// validation, so the result is ascending.
func TestCSVStore_UnsortedInputSorted(t *testing.T) {
	root := t.TempDir()
	writeCandles(t, root, "BTCUSDT", types.Timeframe1h,
		"timestamp,open,high,low,close,volume\n"+
			"2024-01-01 02:00:00,101.5,103,101,102.5,900\n"+
			"2024-01-01 00:00:00,100,101,99,100.5,1000\n"+
			"2024-01-01 01:00:00,100.5,102,100,101.5,1100\n")

	store := NewCSVStore(root)
	bars, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
	assert.True(t, bars[1].Timestamp.Before(bars[2].Timestamp))
}

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore()
	bars := generateBars(10)
	store.Put("BTCUSDT", types.Timeframe1h, bars)

	got, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, bars[2].Timestamp, bars[5].Timestamp)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// mutating the result must not touch the stored copy
	got[0].Close = -1
	again, err := store.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, bars[2].Timestamp, bars[5].Timestamp)
	require.NoError(t, err)
	assert.Equal(t, bars[2].Close, again[0].Close)

	_, err = store.GetBars(context.Background(), "ETHUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, simerrors.IsData(err))
}

// countingStore wraps a MemoryStore and counts source hits.
type countingStore struct {
	*MemoryStore
	hits int
}

func (s *countingStore) GetBars(ctx context.Context, symbol string, tf types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	s.hits++
	return s.MemoryStore.GetBars(ctx, symbol, tf, start, end)
}

func TestCachedStore_HitsSourceOnce(t *testing.T) {
	source := &countingStore{MemoryStore: NewMemoryStore()}
	bars := generateBars(24)
	source.Put("BTCUSDT", types.Timeframe1h, bars)

	cached := NewCachedStore(source)
	for i := 0; i < 3; i++ {
		got, err := cached.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, bars[0].Timestamp, bars[12].Timestamp)
		require.NoError(t, err)
		assert.Len(t, got, 12)
	}
	assert.Equal(t, 1, source.hits)
	assert.Equal(t, 1, cached.Size())

	cached.Clear()
	assert.Equal(t, 0, cached.Size())

	_, err := cached.GetBars(context.Background(), "BTCUSDT", types.Timeframe1h, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, source.hits)
}
