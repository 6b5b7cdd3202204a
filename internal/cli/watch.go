package cli

import (
	"github.com/spf13/cobra"

	"moche.dev/moche/internal/actions"
	"moche.dev/moche/internal/watch"
)

// newWatchCmd creates the watch command
func newWatchCmd(flags *globalFlags) *cobra.Command {
	var debounce = watch.DefaultDebounce

	cmd := &cobra.Command{
		Use:   "watch [action...]",
		Short: "Run actions again whenever moche.config or a *.moche document changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd, true)
			if err != nil {
				return err
			}
			defer s.close()

			return actions.WatchAction(cmd.Context(), s.rc, actions.WatchOptions{
				Run:      s.runOptions(flags, args),
				Debounce: debounce,
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", debounce, "How long changes must settle before running again")

	return cmd
}
