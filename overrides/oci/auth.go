package oci

import (
	"context"
	"os"
)

// AuthProvider supplies registry credentials.
type AuthProvider interface {
	GetCredentials(ctx context.Context, registry string) (username, password string, err error)
}

// EnvAuthProvider retrieves credentials from environment variables.
type EnvAuthProvider struct{}

// NewEnvAuthProvider creates a new environment-based auth provider.
func NewEnvAuthProvider() *EnvAuthProvider {
	return &EnvAuthProvider{}
}

// GetCredentials returns FASTPATH_REGISTRY_USERNAME and
// FASTPATH_REGISTRY_PASSWORD for every registry.
func (p *EnvAuthProvider) GetCredentials(ctx context.Context, registry string) (username, password string, err error) {
	username = os.Getenv("FASTPATH_REGISTRY_USERNAME")
	password = os.Getenv("FASTPATH_REGISTRY_PASSWORD")
	return username, password, nil
}
