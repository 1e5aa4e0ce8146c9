package walkforward

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
)

// hourlyTimeline builds n hourly timestamps starting 2024-01-01.
func hourlyTimeline(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// TestSplit_ChronologicalFolds: every fold trains strictly before it tests,
// and folds advance monotonically.
func TestSplit_ChronologicalFolds(t *testing.T) {
	timeline := hourlyTimeline(24 * 10) // ten days
	cfg := SplitConfig{Train: 5 * 24 * time.Hour, Test: 2 * 24 * time.Hour}

	windows, err := Split(timeline, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, windows)

	for i, w := range windows {
		assert.Equal(t, i+1, w.Fold)
		assert.True(t, w.TrainEnd.Before(w.TestStart), "fold %d trains into its test window", w.Fold)
		assert.True(t, w.TrainFrom < w.TrainTo && w.TrainTo == w.TestFrom && w.TestFrom < w.TestTo)
		if i > 0 {
			assert.True(t, windows[i-1].TestStart.Before(w.TestStart))
		}
	}
}

// TestSplit_TestWindowsNeverOverlap with the default step (= test length).
func TestSplit_TestWindowsNeverOverlap(t *testing.T) {
	timeline := hourlyTimeline(24 * 30)
	cfg := SplitConfig{Train: 10 * 24 * time.Hour, Test: 5 * 24 * time.Hour}

	windows, err := Split(timeline, cfg)
	require.NoError(t, err)
	require.Greater(t, len(windows), 1)

	for i := 1; i < len(windows); i++ {
		assert.GreaterOrEqual(t, windows[i].TestFrom, windows[i-1].TestTo,
			"fold %d test bars overlap fold %d", windows[i].Fold, windows[i-1].Fold)
	}
}

// TestSplit_OverlappingStepRejected: step < test is a config error.
func TestSplit_OverlappingStepRejected(t *testing.T) {
	timeline := hourlyTimeline(24 * 30)
	cfg := SplitConfig{
		Train: 10 * 24 * time.Hour,
		Test:  5 * 24 * time.Hour,
		Step:  1 * 24 * time.Hour,
	}

	_, err := Split(timeline, cfg)
	require.Error(t, err)
	assert.True(t, simerrors.IsConfig(err))
}

// TestSplit_InsufficientData: a range shorter than train+test is reported
// with the dedicated sentinel, so batch callers can exclude rather than abort.
func TestSplit_InsufficientData(t *testing.T) {
	timeline := hourlyTimeline(24) // one day
	cfg := SplitConfig{Train: 5 * 24 * time.Hour, Test: 2 * 24 * time.Hour}

	_, err := Split(timeline, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, simerrors.ErrInsufficientData))
}

// TestSplit_PartialFinalWindowKept: a remainder shorter than Test still
// becomes a fold when it has at least MinTestBars bars.
func TestSplit_PartialFinalWindowKept(t *testing.T) {
	// 12 days: folds at test days [5,7), [7,9), [9,11) and a 1-day remainder.
	timeline := hourlyTimeline(24 * 12)
	cfg := SplitConfig{Train: 5 * 24 * time.Hour, Test: 2 * 24 * time.Hour, MinTestBars: 12}

	windows, err := Split(timeline, cfg)
	require.NoError(t, err)

	last := windows[len(windows)-1]
	lastBars := last.TestTo - last.TestFrom
	assert.GreaterOrEqual(t, lastBars, 12)
	// Full folds carry 48 test bars; the tail may carry fewer.
	for _, w := range windows[:len(windows)-1] {
		assert.Equal(t, 48, w.TestTo-w.TestFrom)
	}
}

// TestSplitConfig_Validate covers the basic geometry checks.
func TestSplitConfig_Validate(t *testing.T) {
	assert.Error(t, SplitConfig{Train: 0, Test: time.Hour}.Validate())
	assert.Error(t, SplitConfig{Train: time.Hour, Test: 0}.Validate())
	assert.NoError(t, SplitConfig{Train: 48 * time.Hour, Test: 24 * time.Hour}.Validate())
}
