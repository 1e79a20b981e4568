// Package policy decides which sub-modules of a model are kept out of the
// fused conversion.
package policy

// ExclusionSource provides the excluded sub-module entries of an
// architecture. *registry.Registry satisfies it.
type ExclusionSource interface {
	Exclusions(arch string) []string
}

// SkipHandler is called when a sub-module is kept out of conversion.
type SkipHandler interface {
	// OnSkip is called with the architecture, the dotted module path and
	// the entry that matched it.
	OnSkip(arch, path, reason string)
}
