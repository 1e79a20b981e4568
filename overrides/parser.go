// Package overrides loads operator-supplied amendments to the capability
// tables.
//
// A document is YAML or JSON:
//
//	nested_tensor_exempt: [gpt2, opt]
//	minimum_runtime: []
//	unsupported:
//	  clip: vision towers only
//	exclude:
//	  bert: [encoder.layer.0]
package overrides

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/fastpath/registry"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of an overrides document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the format from a file extension. Anything that is not
// .json is YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parser decodes an overrides document. Unknown keys are rejected.
type Parser interface {
	Parse(data []byte) (*registry.Overrides, error)
	Format() Format
}

var (
	_ Parser = (*YAMLParser)(nil)
	_ Parser = (*JSONParser)(nil)
)

// NewParser returns the parser for format.
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatYAML:
		return &YAMLParser{}, nil
	case FormatJSON:
		return &JSONParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported overrides format %q", format)
	}
}

// YAMLParser decodes YAML documents.
type YAMLParser struct{}

func (p *YAMLParser) Format() Format { return FormatYAML }

func (p *YAMLParser) Parse(data []byte) (*registry.Overrides, error) {
	var o registry.Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse overrides YAML: %w", err)
	}
	return &o, nil
}

// JSONParser decodes JSON documents.
type JSONParser struct{}

func (p *JSONParser) Format() Format { return FormatJSON }

func (p *JSONParser) Parse(data []byte) (*registry.Overrides, error) {
	var o registry.Overrides
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides JSON: %w", err)
	}
	return &o, nil
}
