// Package version checks runtime versions against the minimum required by
// fused kernels.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ErrRuntimeTooOld is matched by RuntimeTooOldError.
var ErrRuntimeTooOld = errors.New("runtime too old")

// RuntimeTooOldError reports a runtime below the required minimum.
type RuntimeTooOldError struct {
	Current string
	Minimum string
}

func (e *RuntimeTooOldError) Error() string {
	return fmt.Sprintf("runtime %s is older than the required %s", e.Current, e.Minimum)
}

// Is implements error matching for errors.Is() checks.
func (e *RuntimeTooOldError) Is(target error) bool {
	return target == ErrRuntimeTooOld
}

// Runtime builds carry local suffixes ("2.1.0+cu118") and nightly or alpha
// tags ("2.0.0a0", "2.2.0.dev20231010") that are not semver. Only the
// leading numeric release is compared.
var releasePrefix = regexp.MustCompile(`^v?(\d+)(\.\d+)?(\.\d+)?`)

// Parse extracts the release number from a runtime version string.
func Parse(v string) (*semver.Version, error) {
	m := releasePrefix.FindString(v)
	if m == "" {
		return nil, fmt.Errorf("invalid runtime version %q", v)
	}
	parsed, err := semver.NewVersion(m)
	if err != nil {
		return nil, fmt.Errorf("invalid runtime version %q: %w", v, err)
	}
	return parsed, nil
}

// Check returns a *RuntimeTooOldError if current is below minimum.
func Check(current, minimum string) error {
	cur, err := Parse(current)
	if err != nil {
		return err
	}
	minVer, err := Parse(minimum)
	if err != nil {
		return fmt.Errorf("minimum: %w", err)
	}

	if cur.LessThan(minVer) {
		return &RuntimeTooOldError{Current: current, Minimum: minimum}
	}
	return nil
}

// Resolve returns the highest version in available that satisfies
// constraint. "latest" accepts any version.
func Resolve(constraint string, available []string) (string, error) {
	if constraint == "latest" {
		constraint = ">= 0"
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	var valid []*semver.Version
	for _, s := range available {
		v, err := semver.NewVersion(s)
		if err != nil {
			continue
		}
		if c.Check(v) {
			valid = append(valid, v)
		}
	}

	if len(valid) == 0 {
		return "", fmt.Errorf("no version satisfies constraint %q from available options", constraint)
	}

	sort.Sort(semver.Collection(valid))
	return valid[len(valid)-1].Original(), nil
}
