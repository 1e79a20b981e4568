package handler

import (
	"errors"
	"fmt"
)

// ErrConversion is matched by every *ConversionError.
var ErrConversion = errors.New("conversion failed")

// ConversionError reports that a sub-module does not fit the assumptions of
// the handler it was routed to.
type ConversionError struct {
	Handler string
	Kind    string
	Reason  string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s with %s: %s", e.Kind, e.Handler, e.Reason)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, handler.ErrConversion)
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func conversionErrorf(handler string, m *Module, format string, args ...any) error {
	return &ConversionError{
		Handler: handler,
		Kind:    m.Kind,
		Reason:  fmt.Sprintf(format, args...),
	}
}
