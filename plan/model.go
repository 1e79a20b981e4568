package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model describes a loaded model by its architecture and the sub-modules
// that may be replaced.
type Model struct {
	Architecture string      `json:"architecture" yaml:"architecture"`
	Runtime      string      `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Modules      []ModuleRef `json:"modules" yaml:"modules"`
}

// ModuleRef names one sub-module instance: its dotted path inside the model
// and its class name.
type ModuleRef struct {
	Path  string `json:"path" yaml:"path"`
	Class string `json:"class" yaml:"class"`
}

// LoadModel reads a model description. Files ending in .json are decoded as
// JSON, everything else as YAML. Unknown keys are rejected.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model description: %w", err)
	}

	var m Model
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&m)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse model description %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model description %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks that the description names an architecture and that
// every module has a unique path and a class.
func (m *Model) Validate() error {
	if m.Architecture == "" {
		return errors.New("architecture is required")
	}
	seen := make(map[string]struct{}, len(m.Modules))
	for i, ref := range m.Modules {
		if ref.Path == "" {
			return fmt.Errorf("module %d: path is required", i)
		}
		if ref.Class == "" {
			return fmt.Errorf("module %s: class is required", ref.Path)
		}
		if _, dup := seen[ref.Path]; dup {
			return fmt.Errorf("module %s: duplicate path", ref.Path)
		}
		seen[ref.Path] = struct{}{}
	}
	return nil
}
