package registry

// Overrides amends the built-in tables at construction time.
//
// A nil list field leaves the matching built-in table untouched. A non-nil
// list, empty included, replaces it. Unsupported and Exclude entries are
// merged over the built-in maps.
type Overrides struct {
	NestedTensorExempt     *[]string           `json:"nested_tensor_exempt,omitempty" yaml:"nested_tensor_exempt,omitempty" jsonschema:"description=Architectures that do not need nested tensor handling"`
	StrictValidationExempt *[]string           `json:"strict_validation_exempt,omitempty" yaml:"strict_validation_exempt,omitempty" jsonschema:"description=Architectures that skip strict validation"`
	MinimumRuntime         *[]string           `json:"minimum_runtime,omitempty" yaml:"minimum_runtime,omitempty" jsonschema:"description=Architectures whose fused kernels need the minimum runtime version"`
	Unsupported            map[string]string   `json:"unsupported,omitempty" yaml:"unsupported,omitempty" jsonschema:"description=Architectures that cannot be supported with the reason why"`
	Exclude                map[string][]string `json:"exclude,omitempty" yaml:"exclude,omitempty" jsonschema:"description=Sub-module paths never to transform per architecture"`
}

// List returns a pointer to archs, for filling the optional list fields.
func List(archs ...string) *[]string {
	if archs == nil {
		archs = []string{}
	}
	return &archs
}

// IsZero reports whether the overrides change nothing.
func (o *Overrides) IsZero() bool {
	return o == nil ||
		(o.NestedTensorExempt == nil &&
			o.StrictValidationExempt == nil &&
			o.MinimumRuntime == nil &&
			len(o.Unsupported) == 0 &&
			len(o.Exclude) == 0)
}
