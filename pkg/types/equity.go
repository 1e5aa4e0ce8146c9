package types

import "time"

// EquityPoint is one sample of the equity curve: total portfolio value
// (cash plus mark-to-market positions) at a bar close.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	Cash      float64   `json:"cash"`
}
