// Package fastpath gates models before fused conversion and wraps their
// save path.
package fastpath

import (
	"context"
	"errors"
	"fmt"

	"github.com/reglet-dev/fastpath/plan"
	"github.com/reglet-dev/fastpath/registry"
	"github.com/reglet-dev/fastpath/version"
)

var (
	// ErrUnknownArchitecture is returned for architectures the registry
	// has never heard of.
	ErrUnknownArchitecture = errors.New("unknown architecture")

	// ErrUnsupported is matched by UnsupportedError.
	ErrUnsupported = errors.New("architecture not supported")

	// ErrRuntimeUnknown is returned when an architecture needs a minimum
	// runtime and none was given.
	ErrRuntimeUnknown = errors.New("runtime version unknown")
)

// UnsupportedError carries the recorded reason an architecture cannot be
// converted.
type UnsupportedError struct {
	Arch   string
	Reason string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported yet: %s", e.Arch, e.Reason)
}

// Is implements error matching for errors.Is() checks.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// DenialHandler is called when a model is turned away.
// It allows custom logging or auditing.
type DenialHandler func(ctx context.Context, arch, kind, message string)

// Checker gates conversion requests on the registry's answers.
type Checker struct {
	caps          plan.Capabilities
	denialHandler DenialHandler
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithDenialHandler sets the handler for denied checks.
func WithDenialHandler(h DenialHandler) CheckerOption {
	return func(c *Checker) {
		c.denialHandler = h
	}
}

// NewChecker creates a Checker. A nil caps uses registry.Default().
func NewChecker(caps plan.Capabilities, opts ...CheckerOption) *Checker {
	if caps == nil {
		caps = registry.Default()
	}
	c := &Checker{caps: caps}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check returns nil when arch may be converted on runtime. An empty
// runtime is accepted for architectures without a minimum runtime.
func (c *Checker) Check(ctx context.Context, arch, runtime string) error {
	if c.caps.CannotSupport(arch) {
		reason, err := c.caps.Reason(arch)
		if err != nil {
			return err
		}
		return c.handleDeny(ctx, arch, "unsupported", &UnsupportedError{Arch: arch, Reason: reason})
	}

	if !c.caps.Supports(arch) {
		return c.handleDeny(ctx, arch, "unknown",
			fmt.Errorf("%w: %q, supported architectures are listed by Architectures()", ErrUnknownArchitecture, arch))
	}

	if !c.caps.RequiresMinimumRuntime(arch) {
		return nil
	}

	minimum := c.caps.MinimumRuntimeVersion()
	if runtime == "" {
		return c.handleDeny(ctx, arch, "runtime",
			fmt.Errorf("%w: %s requires runtime %s or newer", ErrRuntimeUnknown, arch, minimum))
	}
	if err := version.Check(runtime, minimum); err != nil {
		return c.handleDeny(ctx, arch, "runtime", err)
	}
	return nil
}

func (c *Checker) handleDeny(ctx context.Context, arch, kind string, err error) error {
	if c.denialHandler != nil {
		c.denialHandler(ctx, arch, kind, err.Error())
	}
	return err
}
