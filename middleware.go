package fastpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultSaveWarning is logged by WarnIncompatibleSave unless replaced with
// WithSaveWarning.
const DefaultSaveWarning = "saving a model with fused layers may produce a checkpoint the original " +
	"architecture cannot load; reverse the conversion before saving to keep the standard layout"

// ErrSavePanic is matched by errors returned from RecoverSave when the
// wrapped save panicked.
var ErrSavePanic = errors.New("save panicked")

// SaveFunc persists model to path.
type SaveFunc[M any] func(ctx context.Context, model M, path string) error

// SaveMiddleware wraps a SaveFunc to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type SaveMiddleware[M any] func(next SaveFunc[M]) SaveFunc[M]

// SaveOption configures the save middlewares.
type SaveOption func(*saveConfig)

type saveConfig struct {
	logger  *slog.Logger
	message string
}

// WithSaveLogger sets the logger the middleware writes to.
func WithSaveLogger(l *slog.Logger) SaveOption {
	return func(c *saveConfig) {
		c.logger = l
	}
}

// WithSaveWarning replaces DefaultSaveWarning.
func WithSaveWarning(msg string) SaveOption {
	return func(c *saveConfig) {
		c.message = msg
	}
}

func newSaveConfig(opts []SaveOption) *saveConfig {
	c := &saveConfig{logger: slog.Default(), message: DefaultSaveWarning}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WarnIncompatibleSave wraps next so that every call first logs a warning
// and then delegates unconditionally, returning whatever next returns.
func WarnIncompatibleSave[M any](next SaveFunc[M], opts ...SaveOption) SaveFunc[M] {
	cfg := newSaveConfig(opts)
	return func(ctx context.Context, model M, path string) error {
		cfg.logger.WarnContext(ctx, cfg.message, "path", path)
		return next(ctx, model, path)
	}
}

// WarnIncompatibleSaveMiddleware is WarnIncompatibleSave as a middleware.
func WarnIncompatibleSaveMiddleware[M any](opts ...SaveOption) SaveMiddleware[M] {
	return func(next SaveFunc[M]) SaveFunc[M] {
		return WarnIncompatibleSave(next, opts...)
	}
}

// RecoverSave returns a middleware that turns a panic in the wrapped save
// into an error matching ErrSavePanic.
func RecoverSave[M any]() SaveMiddleware[M] {
	return func(next SaveFunc[M]) SaveFunc[M] {
		return func(ctx context.Context, model M, path string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrSavePanic, r)
				}
			}()
			return next(ctx, model, path)
		}
	}
}

// LogSave returns a middleware that logs save start and outcome at debug
// level.
func LogSave[M any](opts ...SaveOption) SaveMiddleware[M] {
	cfg := newSaveConfig(opts)
	return func(next SaveFunc[M]) SaveFunc[M] {
		return func(ctx context.Context, model M, path string) error {
			cfg.logger.DebugContext(ctx, "saving model", "path", path)
			err := next(ctx, model, path)
			if err != nil {
				cfg.logger.DebugContext(ctx, "save failed", "path", path, "error", err)
			} else {
				cfg.logger.DebugContext(ctx, "save completed", "path", path)
			}
			return err
		}
	}
}

// Chain composes middlewares so the first one is outermost.
func Chain[M any](mws ...SaveMiddleware[M]) SaveMiddleware[M] {
	return func(next SaveFunc[M]) SaveFunc[M] {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
