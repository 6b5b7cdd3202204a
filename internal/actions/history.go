package actions

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"moche.dev/moche/internal/history"
	"moche.dev/moche/internal/runtime"
	"moche.dev/moche/internal/tui"
)

// HistoryOptions configures HistoryAction.
type HistoryOptions struct {
	Store *history.Store
	// Limit is the number of runs listed. Zero lists every run.
	Limit int
	// Run shows the events of the run with this id or id prefix.
	Run string
	// PruneBefore deletes runs older than this duration when positive.
	PruneBefore time.Duration
	Now         func() time.Time
}

// HistoryAction lists past runs, shows the events of one run, or prunes
// old runs.
func HistoryAction(rc *runtime.Context, opts HistoryOptions, out io.Writer) error {
	if opts.Store == nil {
		return fmt.Errorf("run history is disabled")
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if opts.PruneBefore > 0 {
		n, err := opts.Store.Prune(now().Add(-opts.PruneBefore))
		if err != nil {
			return err
		}
		rc.Splog.Info("Pruned %d %s.", n, plural(int(n), "run"))
		return nil
	}

	if opts.Run != "" {
		id, events, err := opts.Store.Events(opts.Run)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", tui.ColorCyan(id))
		if len(events) == 0 {
			fmt.Fprintln(out, tui.ColorDim("  no events"))
			return nil
		}
		width := 0
		for _, e := range events {
			width = max(width, runewidth.StringWidth(e.Kind))
		}
		for _, e := range events {
			line := fmt.Sprintf("  %s  %s %s", e.At.Format(time.TimeOnly), runewidth.FillRight(e.Kind, width), e.Subject)
			if e.Detail != "" {
				line += " " + tui.ColorDim(e.Detail)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	}

	runs, err := opts.Store.Runs(opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		rc.Splog.Info("No runs recorded yet.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			humanize.RelTime(r.StartedAt, now(), "ago", "from now"),
			runStatus(r),
			strings.Join(r.Actions, ","),
			r.BuildDir,
		})
	}
	writeTable(out, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runStatus(r *history.Run) string {
	status := r.Status
	if r.DryRun {
		status += " (noop)"
	}
	switch r.Status {
	case history.StatusSucceeded:
		return tui.ColorGreen(status) + " " + tui.ColorDim(r.Duration().Round(time.Millisecond).String())
	case history.StatusFailed:
		return tui.ColorRed(status)
	}
	return tui.ColorYellow(status)
}

// writeTable left-aligns columns by their rendered width.
func writeTable(out io.Writer, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		fmt.Fprintln(out, b.String())
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
