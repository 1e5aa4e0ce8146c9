package types

import "time"

// Timeframe identifies the bar period of a series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Duration returns the wall-clock length of one bar.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// BarsPerYear returns the annualization factor for the timeframe.
func (tf Timeframe) BarsPerYear() float64 {
	d := tf.Duration()
	if d <= 0 {
		return 0
	}
	return 365.25 * 24 * float64(time.Hour) / float64(d)
}

// Valid reports whether the timeframe is one of the recognized intervals.
func (tf Timeframe) Valid() bool {
	return tf.Duration() > 0
}

// Bar is one OHLCV period for a symbol.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timeframe Timeframe
}

// Side is the direction of a trading signal.
type Side int

const (
	SideHold Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideHold:
		return "HOLD"
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Signal is a single trading instruction emitted by a strategy for one bar.
// At most one of SizeFraction and Quantity should be set: SizeFraction sizes
// the order as a fraction of current equity, Quantity is an absolute amount
// of the base asset. A hold signal carries neither; a sell signal carrying
// neither closes the full position.
type Signal struct {
	Symbol       string
	Side         Side
	SizeFraction float64
	Quantity     float64
}
