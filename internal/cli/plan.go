package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/fastpath/plan"
	"github.com/reglet-dev/fastpath/policy"
)

func newPlanCmd(a *app) *cobra.Command {
	var (
		file    string
		runtime string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "plan -f model.yaml",
		Short: "Plan the fused conversion of a described model",
		Long: `Read a model description (architecture, optional runtime and the dotted
paths and classes of its sub-modules) and print what would happen to each
sub-module: convert, skip-excluded or ignore.

The plan is printed even when the model is not eligible; the command then
exits with an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if output != "yaml" && output != "json" {
				return fmt.Errorf("unknown output format %q, want yaml or json", output)
			}

			reg, err := a.loadRegistry(ctx)
			if err != nil {
				return err
			}
			model, err := plan.LoadModel(file)
			if err != nil {
				return err
			}

			planner := plan.NewPlanner(reg,
				plan.WithRuntime(runtime),
				plan.WithSkipHandler(&policy.LogSkipHandler{}))

			p, planErr := planner.Plan(ctx, model)
			if p == nil {
				return planErr
			}
			if err := writePlan(cmd.OutOrStdout(), p, output); err != nil {
				return err
			}
			if planErr != nil {
				if errors.Is(planErr, plan.ErrNotEligible) {
					logger.Warn("model is not eligible", "arch", p.Architecture)
				}
				return planErr
			}

			logger.Info("planned conversion",
				"convert", p.Count(plan.ActionConvert),
				"skipped", p.Count(plan.ActionSkipExcluded))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "model description (YAML or JSON)")
	cmd.Flags().StringVar(&runtime, "runtime", "", "runtime version, used when the description has none")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml or json")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func writePlan(w io.Writer, p *plan.Plan, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
