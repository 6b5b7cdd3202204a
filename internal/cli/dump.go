package cli

import (
	"github.com/spf13/cobra"

	"moche.dev/moche/internal/actions"
)

// newDumpCmd creates the dump command
func newDumpCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		order  bool
	)

	cmd := &cobra.Command{
		Use:   "dump [action...]",
		Short: "Print the merged configuration",
		Long: `Print moche.config and every *.moche document as merged for this build
directory. With --order, print the order in which the given actions and their
dependencies would run instead.

Nothing is written to the build directory.

Examples:
  moche dump
  moche dump --format yaml
  moche dump --order configure`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.close()

			opts := actions.DumpOptions{Workspace: flags.workspace(), Format: format}
			if order {
				opts.Actions = args
				if len(opts.Actions) == 0 {
					opts.Actions = actions.DefaultActions()
				}
			}
			return actions.DumpAction(s.rc, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", actions.FormatMoche, "Output format: moche or yaml")
	cmd.Flags().BoolVar(&order, "order", false, "Print the execution order of the given actions")

	return cmd
}
