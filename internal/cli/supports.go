package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/fastpath"
	"github.com/reglet-dev/fastpath/registry"
	fpversion "github.com/reglet-dev/fastpath/version"
)

type supportsReport struct {
	Architecture     string            `json:"architecture"`
	Supported        bool              `json:"supported"`
	CannotSupport    bool              `json:"cannot_support"`
	Reason           string            `json:"reason,omitempty"`
	NestedTensor     bool              `json:"nested_tensor"`
	StrictValidation bool              `json:"strict_validation"`
	MinimumRuntime   string            `json:"minimum_runtime,omitempty"`
	Runtime          string            `json:"runtime,omitempty"`
	Handlers         map[string]string `json:"handlers,omitempty"`
	Exclusions       []string          `json:"exclusions,omitempty"`
	Eligible         *bool             `json:"eligible,omitempty"`
	Problem          string            `json:"problem,omitempty"`
}

func newSupportsCmd(a *app) *cobra.Command {
	var (
		runtime   string
		installed []string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "supports [architecture]",
		Short: "Show what the registry knows about an architecture",
		Long: `Answer every capability query for one architecture. Without an argument
an interactive picker lists the supported architectures.

With --runtime the architecture is also checked for eligibility on that
runtime version. With --installed, --runtime is a constraint ("~2.1",
">= 2.0", "latest") resolved to the highest installed version.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := a.loadRegistry(ctx)
			if err != nil {
				return err
			}

			arch, err := a.pickArchitecture(args, reg.Architectures())
			if err != nil {
				return err
			}

			if len(installed) > 0 {
				constraint := runtime
				if constraint == "" {
					constraint = "latest"
				}
				runtime, err = fpversion.Resolve(constraint, installed)
				if err != nil {
					return err
				}
			}

			report := buildReport(reg, arch)
			if cmd.Flags().Changed("runtime") || len(installed) > 0 {
				report.Runtime = runtime
				err := fastpath.NewChecker(reg).Check(ctx, arch, runtime)
				eligible := err == nil
				report.Eligible = &eligible
				if err != nil {
					report.Problem = err.Error()
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&runtime, "runtime", "", "runtime version to check eligibility against")
	cmd.Flags().StringSliceVar(&installed, "installed", nil, "installed runtime versions; --runtime then selects one by constraint")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func buildReport(reg *registry.Registry, arch string) *supportsReport {
	r := &supportsReport{
		Architecture:     arch,
		Supported:        reg.Supports(arch),
		CannotSupport:    reg.CannotSupport(arch),
		NestedTensor:     reg.RequiresNestedTensor(arch),
		StrictValidation: reg.RequiresStrictValidation(arch),
		Exclusions:       reg.Exclusions(arch),
	}
	if reason, err := reg.Reason(arch); err == nil {
		r.Reason = reason
	}
	if reg.RequiresMinimumRuntime(arch) {
		r.MinimumRuntime = reg.MinimumRuntimeVersion()
	}
	for _, sub := range reg.SubModules(arch) {
		if r.Handlers == nil {
			r.Handlers = make(map[string]string)
		}
		h, _ := reg.Handler(arch, sub)
		r.Handlers[sub] = h.Name()
	}
	return r
}

func writeReport(w io.Writer, r *supportsReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	row := func(k string, v any) { fmt.Fprintf(tw, "%s:\t%v\n", k, v) }
	row("architecture", r.Architecture)
	row("supported", r.Supported)
	row("cannot support", r.CannotSupport)
	if r.Reason != "" {
		row("reason", r.Reason)
	}
	row("nested tensor", r.NestedTensor)
	row("strict validation", r.StrictValidation)
	if r.MinimumRuntime != "" {
		row("minimum runtime", r.MinimumRuntime)
	} else {
		row("minimum runtime", "-")
	}

	subs := make([]string, 0, len(r.Handlers))
	for sub := range r.Handlers {
		subs = append(subs, sub)
	}
	slices.Sort(subs)
	for _, sub := range subs {
		row("handler", sub+" -> "+r.Handlers[sub])
	}
	if len(r.Exclusions) > 0 {
		row("exclusions", strings.Join(r.Exclusions, ", "))
	}
	if r.Eligible != nil {
		row("runtime", r.Runtime)
		row("eligible", *r.Eligible)
		if r.Problem != "" {
			row("problem", r.Problem)
		}
	}

	return tw.Flush()
}
