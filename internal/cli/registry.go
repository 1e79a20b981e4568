package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/fastpath/overrides"
	"github.com/reglet-dev/fastpath/overrides/oci"
	"github.com/reglet-dev/fastpath/registry"
)

// loadRegistry returns the default registry, or one built with the
// overrides named by --overrides.
func (a *app) loadRegistry(ctx context.Context) (*registry.Registry, error) {
	if a.overrides == "" {
		return registry.Default(), nil
	}

	var (
		o   *registry.Overrides
		err error
	)
	if oci.IsReference(a.overrides) {
		src, srcErr := oci.NewRemoteSource(ctx, a.overrides, oci.WithPlainHTTP(a.plainHTTP))
		if srcErr != nil {
			return nil, srcErr
		}
		o, err = src.Fetch(ctx)
	} else {
		o, err = overrides.NewFileStore(overrides.WithPath(a.overrides)).Load(ctx)
	}
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("overrides file %s not found", a.overrides)
	}

	loggerFromContext(ctx).Debug("loaded overrides", "source", a.overrides)
	return registry.New(registry.WithOverrides(o), registry.WithLogger(slog.Default()))
}
