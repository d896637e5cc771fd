// Package cli implements the eats command.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand returns the eats command tree.
func NewRootCommand() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "eats",
		Short: "EATS entity graph and EATSML import/export",
		Long: `eats manages an entity graph built from property assertions made by
authority records, and moves it in and out of EATSML documents.

Configuration comes from defaults, an optional YAML file (--config) and
EATS_* environment variables, in increasing order of precedence.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML)")

	// withApp opens the configured stores for the duration of run.
	withApp := func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.logger.Warn("close store", "error", err)
				}
			}()
			return run(cmd, args, a)
		}
	}

	root.AddCommand(
		newImportCommand(withApp),
		newExportCommand(withApp),
		newExportInfrastructureCommand(withApp),
		newImportsCommand(withApp),
		newUsersCommand(withApp),
		newServeCommand(withApp),
	)
	return root
}

type appRunner func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	root.SetArgs(os.Args[1:])
	return root.ExecuteContext(ctx)
}
