// Package plan turns registry answers into a per-module conversion plan
// and routes the planned modules to their handlers.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/fastpath/handler"
	"github.com/reglet-dev/fastpath/policy"
	"github.com/reglet-dev/fastpath/registry"
	"github.com/reglet-dev/fastpath/version"
)

// Action is what happens to one sub-module.
type Action string

const (
	ActionConvert      Action = "convert"
	ActionSkipExcluded Action = "skip-excluded"
	ActionIgnore       Action = "ignore"
)

// Capabilities is the registry surface the planner needs.
type Capabilities interface {
	registry.Capabilities
	MinimumRuntimeVersion() string
}

// Step is the planned action for one sub-module.
type Step struct {
	Path    string `json:"path" yaml:"path"`
	Class   string `json:"class" yaml:"class"`
	Action  Action `json:"action" yaml:"action"`
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`
}

// Plan is the outcome of planning a model.
type Plan struct {
	Architecture     string `json:"architecture" yaml:"architecture"`
	Eligible         bool   `json:"eligible" yaml:"eligible"`
	Reason           string `json:"reason,omitempty" yaml:"reason,omitempty"`
	NestedTensor     bool   `json:"nested_tensor" yaml:"nested_tensor"`
	StrictValidation bool   `json:"strict_validation" yaml:"strict_validation"`
	MinimumRuntime   string `json:"minimum_runtime,omitempty" yaml:"minimum_runtime,omitempty"`
	Steps            []Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Count returns the number of steps with the given action.
func (p *Plan) Count(a Action) int {
	n := 0
	for _, s := range p.Steps {
		if s.Action == a {
			n++
		}
	}
	return n
}

// Lookup returns the sub-module instance at a dotted path.
type Lookup func(path string) (*handler.Module, error)

// Planner builds and applies plans against one registry.
type Planner struct {
	caps    Capabilities
	matcher *policy.Matcher
	runtime string
	logger  *slog.Logger
}

// Option configures a Planner.
type Option func(*plannerConfig)

type plannerConfig struct {
	skip    policy.SkipHandler
	runtime string
	logger  *slog.Logger
}

// WithSkipHandler sets the handler notified of excluded modules.
func WithSkipHandler(h policy.SkipHandler) Option {
	return func(c *plannerConfig) {
		c.skip = h
	}
}

// WithRuntime sets the runtime version used when a model does not carry
// one.
func WithRuntime(v string) Option {
	return func(c *plannerConfig) {
		c.runtime = v
	}
}

// WithLogger sets the planner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *plannerConfig) {
		c.logger = l
	}
}

// NewPlanner creates a Planner over caps.
func NewPlanner(caps Capabilities, opts ...Option) *Planner {
	cfg := &plannerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.skip == nil {
		cfg.skip = &policy.LogSkipHandler{Logger: cfg.logger}
	}

	return &Planner{
		caps:    caps,
		matcher: policy.NewMatcher(caps, policy.WithSkipHandler(cfg.skip)),
		runtime: cfg.runtime,
		logger:  cfg.logger,
	}
}

// Plan decides what happens to every module of m.
//
// Ineligible architectures return the partially filled plan together with
// an error matching ErrNotEligible, or version.ErrRuntimeTooOld when only
// the runtime is at fault.
func (p *Planner) Plan(ctx context.Context, m *Model) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("model is nil")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	arch := m.Architecture
	out := &Plan{
		Architecture:     arch,
		NestedTensor:     p.caps.RequiresNestedTensor(arch),
		StrictValidation: p.caps.RequiresStrictValidation(arch),
	}

	if p.caps.CannotSupport(arch) {
		reason, err := p.caps.Reason(arch)
		if err != nil {
			return nil, err
		}
		out.Reason = reason
		return out, &NotEligibleError{Arch: arch, Reason: reason}
	}
	if !p.caps.Supports(arch) {
		out.Reason = "architecture is not registered"
		return out, &NotEligibleError{Arch: arch, Reason: out.Reason}
	}

	if p.caps.RequiresMinimumRuntime(arch) {
		out.MinimumRuntime = p.caps.MinimumRuntimeVersion()

		runtime := m.Runtime
		if runtime == "" {
			runtime = p.runtime
		}
		if runtime == "" {
			p.logger.Warn("runtime version unknown, skipping minimum runtime check",
				"arch", arch, "minimum", out.MinimumRuntime)
		} else if err := version.Check(runtime, out.MinimumRuntime); err != nil {
			out.Reason = err.Error()
			return out, err
		}
	}

	out.Eligible = true
	out.Steps = make([]Step, 0, len(m.Modules))
	for _, ref := range m.Modules {
		step := Step{Path: ref.Path, Class: ref.Class, Action: ActionIgnore}
		switch h, ok := p.caps.Handler(arch, ref.Class); {
		case !p.matcher.Check(arch, ref.Path):
			step.Action = ActionSkipExcluded
		case ok:
			step.Action = ActionConvert
			step.Handler = h.Name()
		}
		out.Steps = append(out.Steps, step)
	}

	p.logger.Debug("planned conversion",
		"arch", arch,
		"convert", out.Count(ActionConvert),
		"skipped", out.Count(ActionSkipExcluded),
		"ignored", out.Count(ActionIgnore))

	return out, nil
}

// Apply converts every module planned for conversion. Handler errors are
// returned wrapped with the module path and still match
// handler.ErrConversion.
func (p *Planner) Apply(ctx context.Context, pl *Plan, lookup Lookup) (map[string]*handler.Fused, error) {
	if pl == nil || !pl.Eligible {
		arch, reason := "", "plan is not eligible"
		if pl != nil {
			arch = pl.Architecture
			if pl.Reason != "" {
				reason = pl.Reason
			}
		}
		return nil, &NotEligibleError{Arch: arch, Reason: reason}
	}

	out := make(map[string]*handler.Fused, pl.Count(ActionConvert))
	for _, step := range pl.Steps {
		if step.Action != ActionConvert {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		h, ok := p.caps.Handler(pl.Architecture, step.Class)
		if !ok {
			return nil, fmt.Errorf("%s: no handler for %s", step.Path, step.Class)
		}

		mod, err := lookup(step.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: lookup failed: %w", step.Path, err)
		}
		if mod == nil {
			return nil, fmt.Errorf("%s: lookup returned no module", step.Path)
		}
		if pl.StrictValidation && mod.Kind != step.Class {
			return nil, fmt.Errorf("%s: %w", step.Path, &handler.ConversionError{
				Handler: h.Name(),
				Kind:    mod.Kind,
				Reason:  fmt.Sprintf("module class does not match planned class %s", step.Class),
			})
		}

		fused, err := h.Convert(mod)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Path, err)
		}
		out[step.Path] = fused
	}

	return out, nil
}
