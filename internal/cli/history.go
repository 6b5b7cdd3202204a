package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"moche.dev/moche/internal/actions"
)

// newHistoryCmd creates the history command
func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit int
		prune string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs",
		Long: `List past runs, most recent first, or show what one run retrieved, updated,
built and cleaned. A run may be named by a unique prefix of its id.

Examples:
  moche history
  moche history 3f2a
  moche history --prune 720h`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd, true)
			if err != nil {
				return err
			}
			defer s.close()
			if s.history == nil {
				return errors.New("run history is disabled in settings")
			}

			opts := actions.HistoryOptions{Store: s.history, Limit: limit}
			if len(args) == 1 {
				opts.Run = args[0]
			}
			if prune != "" {
				if opts.PruneBefore, err = parseAge(prune); err != nil {
					return err
				}
			}
			return actions.HistoryAction(s.rc, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list, 0 for all")
	cmd.Flags().StringVar(&prune, "prune", "", "Delete runs older than this age, such as 720h or 30d")

	return cmd
}

// parseAge reads a duration, also accepting a whole number of days such as 30d.
func parseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}
	return d, nil
}
