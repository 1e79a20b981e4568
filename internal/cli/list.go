package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var unsupported bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported architectures and their sub-modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if unsupported {
				for _, arch := range reg.UnsupportedArchitectures() {
					reason, _ := reg.Reason(arch)
					fmt.Fprintf(tw, "%s\t%s\n", arch, reason)
				}
				return tw.Flush()
			}

			for _, arch := range reg.Architectures() {
				fmt.Fprintf(tw, "%s\t%s\n", arch, strings.Join(reg.SubModules(arch), ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&unsupported, "unsupported", false, "list unsupportable architectures with their reasons")
	return cmd
}
