package overrides

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/fastpath/registry"
)

type fileStoreConfig struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     filepath.Join(os.Getenv("HOME"), ".fastpath", "overrides.yaml"),
		dirPerm:  0o750,
		filePerm: 0o600,
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the overrides file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		if path != "" {
			c.path = path
		}
	}
}

// WithFilePermissions sets the permissions of a saved overrides file.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions of a created parent directory.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// FileStore keeps an overrides document on the local filesystem.
type FileStore struct {
	config    fileStoreConfig
	validator *Validator
}

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg, validator: NewValidator()}
}

// Load reads and validates the document. A missing file yields nil
// overrides and no error.
func (s *FileStore) Load(ctx context.Context) (*registry.Overrides, error) {
	data, err := s.read()
	if err != nil || data == nil {
		return nil, err
	}

	format := FormatFor(s.config.path)
	res, err := s.validator.Validate(data, format)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, &InvalidError{Source: s.config.path, Problems: res.Errors}
	}

	// JSON is valid YAML, so one strict decoder covers both formats.
	var o registry.Overrides
	if err := yaml.UnmarshalWithOptions(data, &o, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("decoding overrides %q: %w", s.config.path, err)
	}
	if problems := Check(&o); len(problems) > 0 {
		return nil, &InvalidError{Source: s.config.path, Problems: problems}
	}
	return &o, nil
}

func (s *FileStore) read() ([]byte, error) {
	dir := filepath.Dir(s.config.path)
	base := filepath.Base(s.config.path)

	root, err := os.OpenRoot(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open directory %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	file, err := root.Open(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open overrides %q: %w", base, err)
	}
	defer func() { _ = file.Close() }()

	data, err := ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides %q: %w", base, err)
	}
	return data, nil
}

func encode(o *registry.Overrides, format Format) ([]byte, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(o, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding overrides: %w", err)
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(o); err != nil {
		return nil, fmt.Errorf("encoding overrides: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding overrides: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes o in the format of the configured path. A nil o writes an empty document.
func (s *FileStore) Save(ctx context.Context, o *registry.Overrides) error {
	if o == nil {
		o = &registry.Overrides{}
	}
	if problems := Check(o); len(problems) > 0 {
		return &InvalidError{Source: s.config.path, Problems: problems}
	}

	data, err := encode(o, FormatFor(s.config.path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening directory for write %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	base := filepath.Base(s.config.path)
	file, err := root.OpenFile(base, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.config.filePerm)
	if err != nil {
		return fmt.Errorf("creating overrides %q: %w", base, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("writing overrides %q: %w", base, err)
	}
	return nil
}

// ConfigPath returns the path to the backing store.
func (s *FileStore) ConfigPath() string {
	return s.config.path
}
