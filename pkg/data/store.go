// Package data loads historical market bars from CSV files, memory, or the
// Bybit REST API, and validates them before they reach the simulator.
package data

import (
	"context"
	"fmt"
	"time"

	simerrors "github.com/ducminhle1904/strategy-sandbox/internal/errors"
	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// BarStore loads historical bars for a symbol. Implementations must return
// bars sorted ascending by timestamp with no duplicates; callers may still
// run ValidateBars on untrusted sources.
type BarStore interface {
	// GetBars returns bars for the symbol in [start, end). A zero end means
	// no upper bound.
	GetBars(ctx context.Context, symbol string, tf types.Timeframe, start, end time.Time) ([]types.Bar, error)

	// Name identifies the store in logs and error messages.
	Name() string
}

// ValidateBars checks bar integrity: positive prices, high/low envelope
// containing open and close, and strictly ascending timestamps. Any
// violation is a data error, named with the offending index.
func ValidateBars(symbol string, bars []types.Bar) error {
	if len(bars) == 0 {
		return simerrors.NewDataError("data", "ValidateBars", fmt.Sprintf("%s: no bars", symbol))
	}
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return simerrors.NewDataError("data", "ValidateBars",
				fmt.Sprintf("%s: non-positive price at index %d", symbol, i))
		}
		if b.High < b.Low {
			return simerrors.NewDataError("data", "ValidateBars",
				fmt.Sprintf("%s: high %.8f below low %.8f at index %d", symbol, b.High, b.Low, i))
		}
		if b.High < b.Open || b.High < b.Close {
			return simerrors.NewDataError("data", "ValidateBars",
				fmt.Sprintf("%s: high below open/close at index %d", symbol, i))
		}
		if b.Low > b.Open || b.Low > b.Close {
			return simerrors.NewDataError("data", "ValidateBars",
				fmt.Sprintf("%s: low above open/close at index %d", symbol, i))
		}
		if b.Volume < 0 {
			return simerrors.NewDataError("data", "ValidateBars",
				fmt.Sprintf("%s: negative volume at index %d", symbol, i))
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return simerrors.NewDataError("data", "ValidateBars",
				fmt.Sprintf("%s: timestamps not strictly ascending at index %d", symbol, i))
		}
	}
	return nil
}

// ClipRange returns the bars falling in [start, end). A zero start or end
// leaves that side unbounded. The returned slice shares the backing array.
func ClipRange(bars []types.Bar, start, end time.Time) []types.Bar {
	lo := 0
	if !start.IsZero() {
		for lo < len(bars) && bars[lo].Timestamp.Before(start) {
			lo++
		}
	}
	hi := len(bars)
	if !end.IsZero() {
		for hi > lo && !bars[hi-1].Timestamp.Before(end) {
			hi--
		}
	}
	return bars[lo:hi]
}
