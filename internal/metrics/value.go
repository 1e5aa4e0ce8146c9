package metrics

import (
	"fmt"
	"math"
)

// Value is a metric that may be undefined. Ratios with a degenerate
// denominator (zero variance, zero trades, zero drawdown) are undefined
// rather than zero; an undefined value marshals as JSON null and prints as
// "n/a" so it can never be mistaken for a real zero.
type Value struct {
	val     float64
	defined bool
}

// Def returns a defined Value. NaN and infinities are treated as undefined
// so they never leak into reports.
func Def(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{val: v, defined: true}
}

// Undef returns the undefined Value.
func Undef() Value { return Value{} }

// Defined reports whether the value carries a number.
func (v Value) Defined() bool { return v.defined }

// Float returns the numeric value and whether it is defined.
func (v Value) Float() (float64, bool) { return v.val, v.defined }

// Or returns the numeric value, or fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if v.defined {
		return v.val
	}
	return fallback
}

func (v Value) String() string {
	if !v.defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v.val)
}

// MarshalJSON emits the number, or null when undefined.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.defined {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%g", v.val)), nil
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if _, err := fmt.Sscanf(string(data), "%g", &f); err != nil {
		return fmt.Errorf("metrics: invalid value %q: %w", data, err)
	}
	*v = Def(f)
	return nil
}
