package strategy

import (
	"sort"
	"time"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// Strategy produces trading signals from bar history. It is called once per
// bar in chronological order and must be pure with respect to the engine:
// it never touches the ledger, only emits signals.
type Strategy interface {
	// Next returns the signals for the bar at ts. history holds, per
	// symbol, all bars up to and including ts. Returning no signals holds.
	Next(ts time.Time, history map[string][]types.Bar) ([]types.Signal, error)

	// Name returns the strategy name for reports.
	Name() string

	// Reset clears all internal state so the strategy can be reused on a
	// fresh period, e.g. between walk-forward folds.
	Reset()
}

// symbolsOf returns the history's symbols in sorted order. Strategies
// iterate this instead of the map so signal order, and therefore fill order
// and sizing, is identical across runs.
func symbolsOf(history map[string][]types.Bar) []string {
	symbols := make([]string, 0, len(history))
	for sym := range history {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
