package overrides

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/fastpath/policy"
	"github.com/reglet-dev/fastpath/registry"
)

// ErrInvalid is matched by InvalidError.
var ErrInvalid = errors.New("invalid overrides document")

// InvalidError lists every problem found in a document.
type InvalidError struct {
	Source   string
	Problems []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid overrides document %s: %s", e.Source, strings.Join(e.Problems, "; "))
}

// Is implements error matching for errors.Is() checks.
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

// Load validates data against the schema, decodes it and checks the
// entries. source names the document in errors.
func Load(data []byte, format Format, source string) (*registry.Overrides, error) {
	return NewValidator().Load(data, format, source)
}

// Load is the package-level Load using v.
func (v *Validator) Load(data []byte, format Format, source string) (*registry.Overrides, error) {
	if err := CheckSize(int64(len(data))); err != nil {
		return nil, err
	}

	res, err := v.Validate(data, format)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, &InvalidError{Source: source, Problems: res.Errors}
	}

	p, err := NewParser(format)
	if err != nil {
		return nil, err
	}
	o, err := p.Parse(data)
	if err != nil {
		return nil, err
	}

	if problems := Check(o); len(problems) > 0 {
		return nil, &InvalidError{Source: source, Problems: problems}
	}
	return o, nil
}

// Check returns the problems the schema cannot express: empty names and
// reasons, and exclusion entries that are not valid patterns.
func Check(o *registry.Overrides) []string {
	var problems []string

	lists := []struct {
		key  string
		list *[]string
	}{
		{"nested_tensor_exempt", o.NestedTensorExempt},
		{"strict_validation_exempt", o.StrictValidationExempt},
		{"minimum_runtime", o.MinimumRuntime},
	}
	for _, l := range lists {
		if l.list == nil {
			continue
		}
		for i, arch := range *l.list {
			if arch == "" {
				problems = append(problems, fmt.Sprintf("%s[%d]: empty architecture", l.key, i))
			}
		}
	}

	for arch, reason := range o.Unsupported {
		if strings.TrimSpace(reason) == "" {
			problems = append(problems, fmt.Sprintf("unsupported.%s: empty reason", arch))
		}
	}

	for arch, entries := range o.Exclude {
		if err := policy.ValidateEntries(entries); err != nil {
			problems = append(problems, fmt.Sprintf("exclude.%s: %v", arch, err))
		}
	}

	return problems
}
