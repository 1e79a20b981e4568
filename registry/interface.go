package registry

import "github.com/reglet-dev/fastpath/handler"

// Capabilities answers per-architecture fusion queries.
//
// Every method is total: unregistered architectures resolve to the
// documented default of each predicate and never produce an error, except
// Reason, which reports ErrNotFound.
type Capabilities interface {
	// Supports reports whether the architecture has registered handlers.
	Supports(arch string) bool

	// CannotSupport reports whether the architecture is known to be
	// unsupportable. Use Reason for the explanation.
	CannotSupport(arch string) bool

	// Reason returns the explanation for an unsupportable architecture.
	Reason(arch string) (string, error)

	// RequiresNestedTensor reports whether the fused path for the
	// architecture relies on nested (ragged) tensors. Defaults to true.
	RequiresNestedTensor(arch string) bool

	// RequiresStrictValidation reports whether every conversion
	// precondition must be checked before converting. Defaults to true.
	RequiresStrictValidation(arch string) bool

	// RequiresMinimumRuntime reports whether the fused kernels for the
	// architecture need MinimumRuntimeVersion. Defaults to false.
	RequiresMinimumRuntime(arch string) bool

	// Exclusions returns the sub-modules never to transform, in order.
	Exclusions(arch string) []string

	// Handler returns the handler registered for a sub-module class.
	Handler(arch, subModule string) (handler.Handler, bool)
}
