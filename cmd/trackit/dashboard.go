package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the overview: counters, overdue tasks, habits, and the weekly chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthed(cmd, opts, "dashboard", func(ctx context.Context, rt *cliRuntime) error {
				data, err := rt.dashboard.Load(ctx, rt.now())
				if err != nil {
					return err
				}
				writeDashboard(cmd.OutOrStdout(), data)
				return nil
			})
		},
	}
}

func writeDashboard(w io.Writer, d app.DashboardData) {
	s := d.Stats
	_, _ = fmt.Fprintln(w, renderTable(
		[]string{"Tasks", "Done", "Pending", "Overdue", "Habits", "Best streak", "Completion"},
		[][]string{{
			strconv.Itoa(s.TotalTasks),
			strconv.Itoa(s.CompletedTasks),
			strconv.Itoa(s.PendingTasks),
			strconv.Itoa(s.OverdueTasks),
			strconv.Itoa(s.TotalHabits),
			strconv.Itoa(s.MaxStreak),
			formatPercent(s.CompletionRate),
		}},
	))

	if len(d.OverdueTasks) > 0 {
		_, _ = fmt.Fprintln(w, labelStyle.Render("Overdue"))
		writeTasks(w, d.OverdueTasks, d.LoadedAt)
	}
	_, _ = fmt.Fprintln(w, labelStyle.Render("Today"))
	writeTasks(w, d.RecentTasks, d.LoadedAt)
	_, _ = fmt.Fprintln(w, labelStyle.Render("Habits"))
	writeHabits(w, d.RecentHabits)

	if len(d.Weekly) > 0 {
		rows := make([][]string, 0, len(d.Weekly))
		for _, bar := range d.Weekly {
			rows = append(rows, []string{
				bar.Label,
				strconv.Itoa(bar.TasksCompleted),
				strconv.Itoa(bar.HabitsLogged),
				strings.Repeat("█", bar.TasksCompleted) + strings.Repeat("░", bar.HabitsLogged),
			})
		}
		_, _ = fmt.Fprintln(w, renderTable([]string{"Day", "Tasks", "Habits", ""}, rows))
	}
	if d.Partial() {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("unavailable: "+strings.Join(d.Failed, ", ")))
	}
}

func newAnalyticsCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show completion and consistency analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			return runAuthed(cmd, opts, "analytics", func(ctx context.Context, rt *cliRuntime) error {
				now := rt.now()
				end := domain.StartOfDay(now).AddDate(0, 0, 1)
				start := end.AddDate(0, 0, -days)
				summary, err := rt.analytics.Summary(ctx, start, end)
				if err != nil {
					return err
				}
				completion, err := rt.analytics.TaskCompletion(ctx, days)
				if err != nil {
					return err
				}
				consistency, err := rt.analytics.HabitConsistency(ctx, days)
				if err != nil {
					return err
				}
				bestWorst, err := rt.analytics.BestWorstDays(ctx, days, now)
				if err != nil {
					return err
				}
				writeAnalytics(cmd.OutOrStdout(), days, summary, completion, consistency, bestWorst)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days to analyze")
	return cmd
}

func writeAnalytics(w io.Writer, days int, s domain.Summary, completion, consistency domain.Series, bw domain.BestWorstDays) {
	_, _ = fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("Last %d days", days)))
	_, _ = fmt.Fprintln(w, renderTable(
		[]string{"Tasks", "Completed", "Active habits", "Consistency"},
		[][]string{{
			strconv.Itoa(s.TotalTasks),
			strconv.Itoa(s.CompletedTasks),
			strconv.Itoa(s.ActiveHabits),
			formatPercent(s.ConsistencyScore),
		}},
	))

	bars := domain.MergeWeekly(completion, consistency)
	rows := make([][]string, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, []string{bar.Date.Format(dateLayout), strconv.Itoa(bar.TasksCompleted), strconv.Itoa(bar.HabitsLogged)})
	}
	if len(rows) > 0 {
		_, _ = fmt.Fprintln(w, renderTable([]string{"Date", "Tasks done", "Habit logs"}, rows))
	}
	if bw.BestDay != "" || bw.WorstDay != "" {
		_, _ = fmt.Fprintf(w, "%s %s (%d logs)\n", labelStyle.Render("best day: "), valueOr(bw.BestDay, "-"), bw.BestDayLogs)
		_, _ = fmt.Fprintf(w, "%s %s (%d logs)\n", labelStyle.Render("worst day:"), valueOr(bw.WorstDay, "-"), bw.WorstDayLogs)
	}
}
