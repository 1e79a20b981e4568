package overrides

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/reglet-dev/fastpath/registry"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "overrides.schema.json"

// Schema returns the JSON schema of an overrides document, generated from
// registry.Overrides.
func Schema() ([]byte, error) {
	r := new(invopop.Reflector)
	r.ExpandedStruct = true

	s := r.Reflect(&registry.Overrides{})
	s.Title = "fastpath overrides"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal overrides schema: %w", err)
	}
	return data, nil
}

// ValidationResult holds the outcome of validating a document.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validator checks documents against Schema.
type Validator struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

// NewValidator creates a Validator. The schema is compiled on first use.
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) compile() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		raw, err := Schema()
		if err != nil {
			v.err = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
			v.err = fmt.Errorf("failed to load overrides schema: %w", err)
			return
		}
		v.schema, v.err = c.Compile(schemaURL)
		if v.err != nil {
			v.err = fmt.Errorf("failed to compile overrides schema: %w", v.err)
		}
	})
	return v.schema, v.err
}

// Validate checks data in the given format. Schema violations are reported
// in the result; the error is reserved for documents that cannot be read.
func (v *Validator) Validate(data []byte, format Format) (*ValidationResult, error) {
	schema, err := v.compile()
	if err != nil {
		return nil, err
	}

	doc, err := toJSONValue(data, format)
	if err != nil {
		return nil, err
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("failed to validate overrides: %w", err)
		}
		return &ValidationResult{Valid: false, Errors: flatten(ve)}, nil
	}
	return &ValidationResult{Valid: true}, nil
}

func flatten(ve *jsonschema.ValidationError) []string {
	var out []string
	for _, e := range ve.BasicOutput().Errors {
		if e.Error == "" {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		out = append(out, fmt.Sprintf("%s: %s", loc, e.Error))
	}
	if len(out) == 0 {
		out = append(out, ve.Error())
	}
	return out
}

// toJSONValue decodes data into the generic shape the schema validator
// expects. YAML is converted through JSON so numbers and maps come out the
// same way for both formats.
func toJSONValue(data []byte, format Format) (any, error) {
	raw := data
	if format == FormatYAML {
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse overrides YAML: %w", err)
		}
		if v == nil {
			v = map[string]any{}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("overrides YAML is not representable as JSON: %w", err)
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to parse overrides JSON: %w", err)
	}
	return v, nil
}
