package errors

import (
	"errors"
	"fmt"
)

// Category classifies simulator errors by how they propagate.
//
// DATA and CONFIG errors are structural: they are raised before a run starts
// and stop it. Per-fill problems (insufficient funds, oversized sells) are
// never errors at all; they are recorded in the trade log as rejections.
// Degenerate statistics (zero variance, zero trades) are likewise not errors;
// they surface as undefined metric values.
type Category string

const (
	CategoryData   Category = "DATA"
	CategoryConfig Category = "CONFIG"
)

// SimError is a categorized error with the component and operation that
// produced it.
type SimError struct {
	Category   Category
	Component  string
	Op         string
	Message    string
	Underlying error
}

func (e *SimError) Error() string {
	switch {
	case e.Underlying != nil && e.Message != "":
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Op, e.Message, e.Underlying)
	case e.Underlying != nil:
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Component, e.Op, e.Underlying)
	default:
		return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Op, e.Message)
	}
}

func (e *SimError) Unwrap() error {
	return e.Underlying
}

// NewDataError reports missing, short, unsorted or otherwise unusable input
// data.
func NewDataError(component, op, format string, args ...interface{}) *SimError {
	return &SimError{
		Category:  CategoryData,
		Component: component,
		Op:        op,
		Message:   fmt.Sprintf(format, args...),
	}
}

// NewConfigError reports an invalid parameter detected before a run starts.
func NewConfigError(component, op, format string, args ...interface{}) *SimError {
	return &SimError{
		Category:  CategoryConfig,
		Component: component,
		Op:        op,
		Message:   fmt.Sprintf(format, args...),
	}
}

// WrapData wraps an underlying error as a DATA error.
func WrapData(component, op string, err error) *SimError {
	if err == nil {
		return nil
	}
	return &SimError{
		Category:   CategoryData,
		Component:  component,
		Op:         op,
		Underlying: err,
	}
}

// ErrInsufficientData marks configurations whose window lengths exceed the
// available history. Detected with errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

// NewInsufficientData reports a window configuration that cannot be satisfied
// by the available history. The returned error matches both CategoryConfig
// and ErrInsufficientData.
func NewInsufficientData(component, op, format string, args ...interface{}) *SimError {
	return &SimError{
		Category:   CategoryConfig,
		Component:  component,
		Op:         op,
		Message:    fmt.Sprintf(format, args...),
		Underlying: ErrInsufficientData,
	}
}

// IsCategory reports whether err is a SimError of the given category.
func IsCategory(err error, cat Category) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Category == cat
	}
	return false
}

// IsData reports whether err is a DATA error.
func IsData(err error) bool { return IsCategory(err, CategoryData) }

// IsConfig reports whether err is a CONFIG error.
func IsConfig(err error) bool { return IsCategory(err, CategoryConfig) }
