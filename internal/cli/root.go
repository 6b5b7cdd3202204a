package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"moche.dev/moche/internal/actions"
	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/tui"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	flags := &globalFlags{}
	var (
		requested  []string
		clean      bool
		regenerate bool
	)

	rootCmd := &cobra.Command{
		Use:   "moche",
		Short: "Moche retrieves and builds the tools a project needs before its own build",
		Long: `Moche retrieves and builds the tools a project needs before its own build.

Tools, repos and commands are declared in *.moche documents next to a
moche.config file. Running moche in a build directory merges every document,
retrieves each mandatory tool with the first retrieval method that works
(an installed executable, a prebuilt binary or a source checkout) and runs the
requested actions in dependency order.

Examples:
  moche --src ../project --build .
  moche -a configure
  moche --regenerate --retrieval-type Binary,Source`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := requested
			switch {
			case regenerate:
				list = append([]string{config.ActionCleanTools, config.ActionRetrieveTools}, list...)
			case clean:
				list = append([]string{config.ActionCleanTools}, list...)
			}
			return runActions(cmd, flags, list)
		},
	}
	flags.register(rootCmd)
	rootCmd.Flags().StringSliceVarP(&requested, "action", "a", nil, "Actions to run, with their dependencies (default: retrieve-tools)")
	rootCmd.Flags().BoolVarP(&clean, "clean", "c", false, "Remove every retrieved tool first")
	rootCmd.Flags().BoolVarP(&regenerate, "regenerate", "r", false, "Remove every retrieved tool, then retrieve them again")

	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newCleanCmd(flags))
	rootCmd.AddCommand(newRegenerateCmd(flags))
	rootCmd.AddCommand(newDumpCmd(flags))
	rootCmd.AddCommand(newHistoryCmd(flags))
	rootCmd.AddCommand(newWatchCmd(flags))
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}

// runActions runs requested in a new session.
func runActions(cmd *cobra.Command, flags *globalFlags, requested []string) error {
	s, err := flags.open(cmd, true)
	if err != nil {
		return err
	}
	defer s.close()

	err = actions.RunAction(cmd.Context(), s.rc, s.runOptions(flags, requested))
	if flags.fromScript {
		// The launcher may run in a window that closes on exit.
		if _, perr := s.rc.Prompter.Confirm(tui.InputExit, "Exit?", true); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

// newRunCmd creates the run command
func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [action...]",
		Short: "Run actions and their dependencies",
		Long: `Run actions declared in moche.config, after their dependencies.
With no action, retrieve-tools is run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActions(cmd, flags, args)
		},
	}
}

// newCleanCmd creates the clean command
func newCleanCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove every retrieved tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runActions(cmd, flags, []string{config.ActionCleanTools})
		},
	}
}

// newRegenerateCmd creates the regenerate command
func newRegenerateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate [action...]",
		Short: "Remove every retrieved tool, retrieve them again, then run actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := append([]string{config.ActionCleanTools, config.ActionRetrieveTools}, args...)
			return runActions(cmd, flags, list)
		},
	}
}

// newVersionCmd creates the version command
func newVersionCmd(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of moche",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moche %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		},
	}
}
