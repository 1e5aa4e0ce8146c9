// Package indicators provides the technical indicators strategies compute
// signals from. All functions operate on the trailing bars of a series and
// return an error when the window does not hold enough data.
package indicators

import (
	"errors"
	"math"

	"github.com/ducminhle1904/strategy-sandbox/pkg/types"
)

// ErrInsufficientBars is returned when a window is larger than the series.
var ErrInsufficientBars = errors.New("indicators: insufficient bars")

// SMA returns the simple moving average of the trailing period closes.
func SMA(bars []types.Bar, period int) (float64, error) {
	if period <= 0 || len(bars) < period {
		return 0, ErrInsufficientBars
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period), nil
}

// EMA returns the exponential moving average over the whole series, seeded
// with the SMA of the first period closes.
func EMA(bars []types.Bar, period int) (float64, error) {
	if period <= 0 || len(bars) < period {
		return 0, ErrInsufficientBars
	}
	seed := 0.0
	for _, b := range bars[:period] {
		seed += b.Close
	}
	ema := seed / float64(period)

	alpha := 2.0 / float64(period+1)
	for _, b := range bars[period:] {
		ema = b.Close*alpha + ema*(1-alpha)
	}
	return ema, nil
}

// RSI returns the Relative Strength Index of the trailing period price
// changes, in [0, 100]. A window with no losses reads 100, no gains reads 0.
func RSI(bars []types.Bar, period int) (float64, error) {
	if period <= 0 || len(bars) < period+1 {
		return 0, ErrInsufficientBars
	}
	var gains, losses float64
	recent := bars[len(bars)-period-1:]
	for i := 1; i < len(recent); i++ {
		change := recent[i].Close - recent[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += math.Abs(change)
		}
	}
	if losses == 0 {
		return 100, nil
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs), nil
}
