package policy

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher matches dotted module paths against exclusion entries.
//
// An entry excludes a path when it names the path or one of its ancestors
// ("text_model" excludes "text_model.encoder.layers.0"), or when it is a
// glob pattern over path segments that matches the path or an ancestor
// ("vision_model.encoder.layers.1*").
type Matcher struct {
	source  ExclusionSource
	handler SkipHandler
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithSkipHandler sets the handler notified by Check.
func WithSkipHandler(h SkipHandler) Option {
	return func(m *Matcher) {
		m.handler = h
	}
}

// NewMatcher creates a Matcher over the exclusions of source.
func NewMatcher(source ExclusionSource, opts ...Option) *Matcher {
	m := &Matcher{
		source:  source,
		handler: &LogSkipHandler{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Excluded reports whether path is excluded for arch without notifying the
// skip handler.
func (m *Matcher) Excluded(arch, path string) bool {
	_, ok := m.match(arch, path)
	return ok
}

// Check reports whether path may be converted. Excluded paths are reported
// to the skip handler.
func (m *Matcher) Check(arch, path string) bool {
	entry, excluded := m.match(arch, path)
	if excluded {
		m.handler.OnSkip(arch, path, entry)
		return false
	}
	return true
}

func (m *Matcher) match(arch, path string) (string, bool) {
	for _, entry := range m.source.Exclusions(arch) {
		if MatchEntry(entry, path) {
			return entry, true
		}
	}
	return "", false
}

// MatchEntry reports whether a single exclusion entry excludes path.
func MatchEntry(entry, path string) bool {
	if entry == "" || path == "" {
		return false
	}
	if path == entry || strings.HasPrefix(path, entry+".") {
		return true
	}
	if !isPattern(entry) {
		return false
	}

	pattern, name := toSlash(entry), toSlash(path)
	if ok, err := doublestar.Match(pattern, name); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match(pattern+"/**", name)
	return err == nil && ok
}

// ValidateEntries returns an error for the first entry that is not a valid
// glob pattern.
func ValidateEntries(entries []string) error {
	for _, e := range entries {
		if e == "" {
			return fmt.Errorf("empty exclusion entry")
		}
		if !doublestar.ValidatePattern(toSlash(e)) {
			return fmt.Errorf("invalid exclusion pattern %q", e)
		}
	}
	return nil
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func toSlash(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}
