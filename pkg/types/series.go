package types

import (
	"sort"
	"time"
)

// BarSeries is an ordered, timestamp-unique sequence of bars.
//
// Access contracts: At is O(1) random access by index, IndexAtOrAfter is
// O(log n) access by timestamp. The underlying slice is shared, not copied;
// callers must treat the series as read-only once constructed.
type BarSeries struct {
	bars []Bar
}

// NewBarSeries wraps bars in a series. The bars must already be sorted by
// timestamp with no duplicates; use data.ValidateBars to enforce that before
// construction.
func NewBarSeries(bars []Bar) BarSeries {
	return BarSeries{bars: bars}
}

// Len returns the number of bars.
func (s BarSeries) Len() int { return len(s.bars) }

// At returns the bar at index i.
func (s BarSeries) At(i int) Bar { return s.bars[i] }

// Bars returns the underlying slice. Read-only by convention.
func (s BarSeries) Bars() []Bar { return s.bars }

// Slice returns the sub-series [from, to).
func (s BarSeries) Slice(from, to int) BarSeries {
	return BarSeries{bars: s.bars[from:to]}
}

// IndexAtOrAfter returns the index of the first bar whose timestamp is not
// before ts, or Len() if every bar precedes ts.
func (s BarSeries) IndexAtOrAfter(ts time.Time) int {
	return sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Timestamp.Before(ts)
	})
}

// Closes returns the close prices in order.
func (s BarSeries) Closes() []float64 {
	closes := make([]float64, len(s.bars))
	for i, b := range s.bars {
		closes[i] = b.Close
	}
	return closes
}

// Returns computes simple close-to-close returns. The result has Len()-1
// elements; an empty or single-bar series yields nil.
func (s BarSeries) Returns() []float64 {
	if len(s.bars) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(s.bars)-1)
	for i := 1; i < len(s.bars); i++ {
		prev := s.bars[i-1].Close
		if prev == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, s.bars[i].Close/prev-1)
	}
	return rets
}

// Start returns the first bar timestamp, or the zero time for an empty series.
func (s BarSeries) Start() time.Time {
	if len(s.bars) == 0 {
		return time.Time{}
	}
	return s.bars[0].Timestamp
}

// End returns the last bar timestamp, or the zero time for an empty series.
func (s BarSeries) End() time.Time {
	if len(s.bars) == 0 {
		return time.Time{}
	}
	return s.bars[len(s.bars)-1].Timestamp
}
