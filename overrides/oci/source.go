// Package oci fetches overrides documents published as OCI artifacts.
//
// An overrides artifact is an image manifest with a single layer of media
// type MediaTypeYAML or MediaTypeJSON holding the document.
package oci

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/reglet-dev/fastpath/overrides"
	"github.com/reglet-dev/fastpath/registry"
)

const (
	// ArtifactType identifies overrides manifests.
	ArtifactType = "application/vnd.fastpath.overrides.v1"

	MediaTypeYAML = "application/vnd.fastpath.overrides.v1+yaml"
	MediaTypeJSON = "application/vnd.fastpath.overrides.v1+json"

	// Scheme prefixes references accepted by IsReference.
	Scheme = "oci://"

	defaultTag = "latest"
)

// ErrNoOverridesLayer is returned when a manifest has no layer of a known
// overrides media type.
var ErrNoOverridesLayer = errors.New("no overrides layer in artifact")

// IsReference reports whether s names an OCI artifact rather than a file.
func IsReference(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

type sourceConfig struct {
	auth      AuthProvider
	plainHTTP bool
	client    *http.Client
}

// Option configures a Source.
type Option func(*sourceConfig)

// WithAuthProvider sets where registry credentials come from.
func WithAuthProvider(p AuthProvider) Option {
	return func(c *sourceConfig) {
		c.auth = p
	}
}

// WithPlainHTTP talks to the registry over HTTP instead of HTTPS.
func WithPlainHTTP(enabled bool) Option {
	return func(c *sourceConfig) {
		c.plainHTTP = enabled
	}
}

// WithHTTPClient replaces the retrying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *sourceConfig) {
		c.client = client
	}
}

// Source fetches an overrides document from an oras target.
type Source struct {
	target    oras.ReadOnlyTarget
	tag       string
	validator *overrides.Validator
}

// NewSource reads the artifact tagged tag from target.
func NewSource(target oras.ReadOnlyTarget, tag string) *Source {
	if tag == "" {
		tag = defaultTag
	}
	return &Source{target: target, tag: tag, validator: overrides.NewValidator()}
}

// NewRemoteSource reads from a registry reference such as
// "ghcr.io/acme/fastpath-overrides:v1". The oci:// prefix is optional.
func NewRemoteSource(ctx context.Context, ref string, opts ...Option) (*Source, error) {
	cfg := &sourceConfig{
		auth:   NewEnvAuthProvider(),
		client: &http.Client{Transport: retry.NewTransport(nil)},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	repo, err := remote.NewRepository(strings.TrimPrefix(ref, Scheme))
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}
	repo.PlainHTTP = cfg.plainHTTP

	client := &auth.Client{
		Client: cfg.client,
		Cache:  auth.NewCache(),
	}
	client.SetUserAgent("fastpath")

	host := repo.Reference.Registry
	username, password, err := cfg.auth.GetCredentials(ctx, host)
	if err == nil && username != "" {
		client.Credential = auth.StaticCredential(host, auth.Credential{
			Username: username,
			Password: password,
		})
	}
	repo.Client = client

	return NewSource(repo, repo.Reference.Reference), nil
}

// Fetch pulls the artifact, validates the document and decodes it.
func (s *Source) Fetch(ctx context.Context) (*registry.Overrides, error) {
	store := memory.New()
	manifestDesc, err := oras.Copy(ctx, s.target, s.tag, store, s.tag, oras.CopyOptions{})
	if err != nil {
		return nil, fmt.Errorf("pull artifact %s: %w", s.tag, err)
	}

	manifestBytes, err := content.FetchAll(ctx, store, manifestDesc)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest JSON: %w", err)
	}

	layer, format, err := findLayer(&manifest)
	if err != nil {
		return nil, err
	}

	if err := overrides.CheckSize(layer.Size); err != nil {
		return nil, err
	}

	data, err := content.FetchAll(ctx, store, layer)
	if err != nil {
		return nil, fmt.Errorf("fetch overrides layer: %w", err)
	}

	return s.validator.Load(data, format, Scheme+s.tag)
}

func findLayer(m *ocispec.Manifest) (ocispec.Descriptor, overrides.Format, error) {
	for _, layer := range m.Layers {
		switch layer.MediaType {
		case MediaTypeYAML:
			return layer, overrides.FormatYAML, nil
		case MediaTypeJSON:
			return layer, overrides.FormatJSON, nil
		}
	}
	return ocispec.Descriptor{}, "", ErrNoOverridesLayer
}

// Push publishes data as an overrides artifact in target under tag.
func Push(ctx context.Context, target oras.Target, tag string, data []byte, format overrides.Format) (ocispec.Descriptor, error) {
	mediaType := MediaTypeYAML
	if format == overrides.FormatJSON {
		mediaType = MediaTypeJSON
	}

	layer, err := oras.PushBytes(ctx, target, mediaType, data)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push overrides layer: %w", err)
	}

	manifest, err := oras.PackManifest(ctx, target, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layer},
	})
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("pack manifest: %w", err)
	}

	if err := target.Tag(ctx, manifest, tag); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("tag manifest: %w", err)
	}
	return manifest, nil
}
