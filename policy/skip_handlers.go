package policy

import "log/slog"

var (
	_ SkipHandler = (*LogSkipHandler)(nil)
	_ SkipHandler = (*NopSkipHandler)(nil)
)

// LogSkipHandler logs skipped modules at info level. A nil Logger uses
// slog.Default().
type LogSkipHandler struct {
	Logger *slog.Logger
}

func (h *LogSkipHandler) OnSkip(arch, path, reason string) {
	l := h.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("module excluded from conversion", "arch", arch, "path", path, "matched", reason)
}

// NopSkipHandler does nothing.
type NopSkipHandler struct{}

func (h *NopSkipHandler) OnSkip(arch, path, reason string) {}
