package fastpath

import (
	"context"
	"fmt"
	"log/slog"
)

// Guard runs fn and suppresses anything it raises. Errors and panics are
// logged at debug level and never reach the caller.
//
// Use it only around optional steps whose failure must not abort the
// surrounding work.
func Guard(ctx context.Context, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			slog.DebugContext(ctx, "guarded block panicked", "panic", fmt.Sprint(r))
		}
	}()

	if err := fn(ctx); err != nil {
		slog.DebugContext(ctx, "guarded block failed", "error", err)
	}
}
