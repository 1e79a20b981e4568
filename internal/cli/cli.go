// Package cli implements the fastpath command-line interface.
//
// # Commands
//
//   - supports: answer every capability query for one architecture
//   - list: list supported and unsupportable architectures
//   - plan: plan the conversion of a described model
//   - schema: print the JSON schema of overrides documents
//
// All commands accept --overrides with a file path or an oci:// reference,
// and --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

type app struct {
	overrides string
	plainHTTP bool
	picker    picker
}

// Execute runs the fastpath CLI.
func Execute(ctx context.Context) error {
	return newRootCmd(&app{picker: newTerminalPicker()}).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "fastpath",
		Short:         "fastpath answers which model architectures can use fused attention",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(os.Stderr, level)
			slog.SetDefault(slog.New(logger))
			cmd.SetContext(withLogger(cmd.Context(), logger))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("fastpath %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&a.overrides, "overrides", "", "overrides document: file path or oci:// reference")
	root.PersistentFlags().BoolVar(&a.plainHTTP, "plain-http", false, "fetch oci:// overrides over HTTP")

	root.AddCommand(newSupportsCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newPlanCmd(a))
	root.AddCommand(newSchemaCmd())

	return root
}
