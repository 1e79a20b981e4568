package plan

import (
	"errors"
	"fmt"
)

// ErrNotEligible is matched when a model's architecture cannot take the
// fused path.
var ErrNotEligible = errors.New("model not eligible for fused conversion")

// NotEligibleError carries the architecture and why it was turned away.
type NotEligibleError struct {
	Arch   string
	Reason string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("architecture %q is not eligible for fused conversion: %s", e.Arch, e.Reason)
}

// Is implements error matching for errors.Is() checks.
func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}
