// Package registry answers, per model architecture, whether and how its
// attention and encoder sub-modules can be swapped for fused equivalents.
//
// All tables are written once in New and only read afterwards, so a
// *Registry is safe for concurrent use without locking.
package registry

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/reglet-dev/fastpath/handler"
)

var _ Capabilities = (*Registry)(nil)

// Registry is an immutable set of capability tables.
type Registry struct {
	support     map[string]map[string]handler.Handler
	unsupported map[string]string
	exclusions  map[string][]string

	nestedExempt map[string]struct{}
	strictExempt map[string]struct{}
	minRuntime   map[string]struct{}

	runtimeVersion string
	overrides      *Overrides
	logger         *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithOverrides amends the built-in tables. See Overrides for the merge
// rules.
func WithOverrides(o *Overrides) Option {
	return func(r *Registry) {
		r.overrides = o
	}
}

// WithMinimumRuntimeVersion replaces the runtime version reported by
// MinimumRuntimeVersion.
func WithMinimumRuntimeVersion(v string) Option {
	return func(r *Registry) {
		r.runtimeVersion = v
	}
}

// WithLogger sets the logger used while applying overrides.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New builds a Registry from the built-in tables and applies options.
// It returns an error matching ErrInvalidTable if the result violates a
// table invariant.
func New(opts ...Option) (*Registry, error) {
	r := &Registry{
		support:        supportTable(),
		unsupported:    unsupportedTable(),
		exclusions:     exclusionTable(),
		nestedExempt:   setOf(nestedTensorExemptTable()),
		strictExempt:   setOf(strictValidationExemptTable()),
		minRuntime:     setOf(minimumRuntimeTable()),
		runtimeVersion: minimumRuntimeVersion,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.apply(r.overrides); err != nil {
		return nil, err
	}
	if err := r.validate(); err != nil {
		return nil, err
	}

	r.overrides = nil
	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := New()
	if err != nil {
		panic("registry: built-in tables are invalid: " + err.Error())
	}
	return r
})

// Default returns the process-wide registry built from the built-in tables.
func Default() *Registry {
	return defaultRegistry()
}

func (r *Registry) apply(o *Overrides) error {
	if o.IsZero() {
		return nil
	}

	for arch, reason := range o.Unsupported {
		if reason == "" {
			return &TableError{Arch: arch, Reason: "unsupported override has an empty reason"}
		}
		if _, ok := r.support[arch]; ok {
			r.logger.Warn("override marks supported architecture as unsupported", "arch", arch)
			delete(r.support, arch)
			delete(r.exclusions, arch)
		}
		r.unsupported[arch] = reason
	}

	for arch, names := range o.Exclude {
		if _, ok := r.support[arch]; !ok {
			return &TableError{Arch: arch, Reason: "exclusions given for an architecture that is not supported"}
		}
		r.exclusions[arch] = slices.Clone(names)
	}

	if o.NestedTensorExempt != nil {
		r.nestedExempt = setOf(*o.NestedTensorExempt)
	}
	if o.StrictValidationExempt != nil {
		r.strictExempt = setOf(*o.StrictValidationExempt)
	}
	if o.MinimumRuntime != nil {
		r.minRuntime = setOf(*o.MinimumRuntime)
	}

	return nil
}

func (r *Registry) validate() error {
	for arch := range r.unsupported {
		if _, ok := r.support[arch]; ok {
			return &TableError{Arch: arch, Reason: "listed as both supported and unsupported"}
		}
	}
	for arch := range r.exclusions {
		if _, ok := r.support[arch]; !ok {
			return &TableError{Arch: arch, Reason: "exclusions given for an architecture that is not supported"}
		}
	}
	for arch, subs := range r.support {
		if len(subs) == 0 {
			return &TableError{Arch: arch, Reason: "no sub-module handlers registered"}
		}
		for name, h := range subs {
			if h == nil {
				return &TableError{Arch: arch, Reason: "nil handler for " + name}
			}
		}
	}
	return nil
}

// Supports reports whether arch has at least one registered handler.
func (r *Registry) Supports(arch string) bool {
	_, ok := r.support[arch]
	return ok
}

// CannotSupport reports whether arch is known to be unsupportable.
func (r *Registry) CannotSupport(arch string) bool {
	_, ok := r.unsupported[arch]
	return ok
}

// Reason returns why arch cannot be supported. It returns an error matching
// ErrNotFound when no reason is recorded, including for supported and
// unregistered architectures.
func (r *Registry) Reason(arch string) (string, error) {
	reason, ok := r.unsupported[arch]
	if !ok {
		return "", &ReasonNotFoundError{Arch: arch}
	}
	return reason, nil
}

// RequiresNestedTensor reports whether the fused path for arch relies on
// nested tensors. Architectures the registry has never heard of get true.
func (r *Registry) RequiresNestedTensor(arch string) bool {
	_, exempt := r.nestedExempt[arch]
	return !exempt
}

// RequiresStrictValidation reports whether every conversion precondition
// must be checked for arch. Unregistered architectures get true.
func (r *Registry) RequiresStrictValidation(arch string) bool {
	_, exempt := r.strictExempt[arch]
	return !exempt
}

// RequiresMinimumRuntime reports whether arch needs MinimumRuntimeVersion.
func (r *Registry) RequiresMinimumRuntime(arch string) bool {
	_, ok := r.minRuntime[arch]
	return ok
}

// MinimumRuntimeVersion is the version callers must check against when
// RequiresMinimumRuntime is true.
func (r *Registry) MinimumRuntimeVersion() string {
	return r.runtimeVersion
}

// Exclusions returns a copy of the ordered sub-module paths never to
// transform for arch.
func (r *Registry) Exclusions(arch string) []string {
	return slices.Clone(r.exclusions[arch])
}

// IsExcluded reports whether name is listed verbatim in the exclusions of
// arch. Use policy.Matcher for path and glob matching.
func (r *Registry) IsExcluded(arch, name string) bool {
	return slices.Contains(r.exclusions[arch], name)
}

// Handler returns the handler registered for the sub-module class of arch.
func (r *Registry) Handler(arch, subModule string) (handler.Handler, bool) {
	h, ok := r.support[arch][subModule]
	return h, ok
}

// SubModules returns the sorted sub-module class names registered for arch.
func (r *Registry) SubModules(arch string) []string {
	return slices.Sorted(maps.Keys(r.support[arch]))
}

// Architectures returns every supported architecture, sorted.
func (r *Registry) Architectures() []string {
	return slices.Sorted(maps.Keys(r.support))
}

// UnsupportedArchitectures returns every unsupportable architecture, sorted.
func (r *Registry) UnsupportedArchitectures() []string {
	return slices.Sorted(maps.Keys(r.unsupported))
}

func setOf(archs []string) map[string]struct{} {
	s := make(map[string]struct{}, len(archs))
	for _, a := range archs {
		s[a] = struct{}{}
	}
	return s
}
