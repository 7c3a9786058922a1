package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/record"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show monthly totals",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, release, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	timers, err := b.ListTimers(ctx)
	if err != nil {
		return fmt.Errorf("list timers: %w", err)
	}
	writeStats(cmd.OutOrStdout(), timers, time.Now())
	return nil
}

// writeStats prints per-month totals, newest first, then overall totals.
func writeStats(w io.Writer, timers []record.Timer, now time.Time) {
	months := record.MonthlyStats(timers)
	if len(months) == 0 {
		fmt.Fprintln(w, "No records yet.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Month", "Duration", "Hours")
	for _, m := range months {
		t.Row(fmt.Sprintf("%s %d", m.MonthName(), m.Year), record.Clock(m.TotalSeconds), record.Hours(m.TotalSeconds))
	}
	fmt.Fprintln(w, t.Render())

	totals := record.Summarize(record.Display(timers))
	today, _ := record.Today(now)
	var todaySecs int64
	for _, tm := range timers {
		if tm.Date == today {
			todaySecs += tm.Duration
		}
	}
	fmt.Fprintf(w, "Days worked: %d\n", totals.Days)
	fmt.Fprintf(w, "Total:       %s\n", record.Clock(totals.Seconds))
	fmt.Fprintf(w, "Today:       %s\n", record.Clock(todaySecs))
	fmt.Fprintf(w, "You have worked for %s in total.\n", record.Humanize(totals.Seconds))
}
