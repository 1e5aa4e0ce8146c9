package strategy

import (
	"time"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// BuyAndHold buys each symbol once on the first bar and holds for the rest
// of the run. Useful as a benchmark and for deterministic accounting tests.
type BuyAndHold struct {
	// Fraction of equity committed per symbol. Zero selects 1.0 split
	// evenly across symbols.
	Fraction float64

	bought map[string]bool
}

// NewBuyAndHold creates a buy-and-hold strategy committing fraction of
// equity per symbol.
func NewBuyAndHold(fraction float64) *BuyAndHold {
	return &BuyAndHold{Fraction: fraction, bought: make(map[string]bool)}
}

func (s *BuyAndHold) Name() string { return "buy_and_hold" }

func (s *BuyAndHold) Reset() {
	s.bought = make(map[string]bool)
}

func (s *BuyAndHold) Next(_ time.Time, history map[string][]types.Bar) ([]types.Signal, error) {
	fraction := s.Fraction
	if fraction <= 0 {
		fraction = 1.0 / float64(len(history))
	}

	var signals []types.Signal
	for _, symbol := range symbolsOf(history) {
		if s.bought[symbol] {
			continue
		}
		s.bought[symbol] = true
		signals = append(signals, types.Signal{
			Symbol:       symbol,
			Side:         types.SideBuy,
			SizeFraction: fraction,
		})
	}
	return signals, nil
}
