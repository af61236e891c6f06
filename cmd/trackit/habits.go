package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

func newHabitsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "habits",
		Aliases: []string{"habit", "h"},
		Short:   "List, log, and manage habits",
	}
	cmd.AddCommand(
		newHabitsListCmd(opts),
		newHabitsAddCmd(opts),
		newHabitsEditCmd(opts),
		newHabitsLogCmd(opts),
		newHabitsRemoveCmd(opts),
		newHabitsLogsCmd(opts),
	)
	return cmd
}

func newHabitsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List habits with their streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthed(cmd, opts, "habits list", func(ctx context.Context, rt *cliRuntime) error {
				if err := rt.habits.FetchAll(ctx); err != nil {
					return err
				}
				writeHabits(cmd.OutOrStdout(), rt.habits.Items())
				if best := rt.habits.MaxStreak(); best > 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("best current streak: "+strconv.Itoa(best)))
				}
				return nil
			})
		},
	}
}

func newHabitsAddCmd(opts *rootOptions) *cobra.Command {
	var name, description, frequency string
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a habit",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = strings.Join(args, " ")
			}
			in := domain.HabitInput{Name: name, Description: description}
			if frequency != "" {
				f, err := domain.ParseFrequency(frequency)
				if err != nil {
					return err
				}
				in.Frequency = f
			}
			if err := in.Validate(); err != nil {
				return err
			}
			return runAuthed(cmd, opts, "habits add", func(ctx context.Context, rt *cliRuntime) error {
				habit, err := rt.habits.Create(ctx, in)
				if err != nil {
					return err
				}
				writeHabits(cmd.OutOrStdout(), []domain.Habit{habit})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "habit name")
	cmd.Flags().StringVar(&description, "description", "", "habit description")
	cmd.Flags().StringVar(&frequency, "frequency", "", "frequency: daily|weekly")
	return cmd
}

func newHabitsEditCmd(opts *rootOptions) *cobra.Command {
	var name, description, frequency string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change habit fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			var patch domain.HabitPatch
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("frequency") {
				f, err := domain.ParseFrequency(frequency)
				if err != nil {
					return err
				}
				patch.Frequency = &f
			}
			if patch == (domain.HabitPatch{}) {
				return app.ErrEmptyPatch
			}
			if err := patch.Validate(); err != nil {
				return err
			}
			return runAuthed(cmd, opts, "habits edit", func(ctx context.Context, rt *cliRuntime) error {
				if _, err := heldHabit(ctx, rt, id); err != nil {
					return err
				}
				habit, err := rt.habits.Edit(ctx, id, patch)
				if err != nil {
					return err
				}
				writeHabits(cmd.OutOrStdout(), []domain.Habit{habit})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "habit name")
	cmd.Flags().StringVar(&description, "description", "", "habit description")
	cmd.Flags().StringVar(&frequency, "frequency", "", "frequency: daily|weekly")
	return cmd
}

func newHabitsLogCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log <id>",
		Short: "Record an occurrence of a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "habits log", func(ctx context.Context, rt *cliRuntime) error {
				if _, err := heldHabit(ctx, rt, id); err != nil {
					return err
				}
				habit, _, err := rt.habits.LogOccurrence(ctx, id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged %s: streak %d (best %d)\n", habit.Name, habit.Streak, habit.LongestStreak)
				return nil
			})
		},
	}
}

func newHabitsRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a habit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "habits rm", func(ctx context.Context, rt *cliRuntime) error {
				if _, err := heldHabit(ctx, rt, id); err != nil {
					return err
				}
				if err := rt.habits.Delete(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted habit %d\n", id)
				return nil
			})
		},
	}
}

func newHabitsLogsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <id>",
		Short: "Show the log history and weekly progress of a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "habits logs", func(ctx context.Context, rt *cliRuntime) error {
				logs, err := rt.habitSvc.Logs(ctx, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(logs) == 0 {
					_, _ = fmt.Fprintln(out, mutedStyle.Render("no logs"))
				} else {
					rows := make([][]string, 0, len(logs))
					for _, l := range logs {
						rows = append(rows, []string{strconv.FormatInt(l.ID, 10), l.LogDate.Format(dateLayout)})
					}
					_, _ = fmt.Fprintln(out, renderTable([]string{"Log", "Date"}, rows))
				}

				progress, err := rt.habitSvc.WeeklyProgress(ctx, id)
				if err != nil {
					rt.logger.Warn("weekly progress unavailable", "habit_id", id, "err", err)
					return nil
				}
				_, _ = fmt.Fprintf(out, "%s %d\n", labelStyle.Render("this week:"), progress.Total())
				return nil
			})
		},
	}
}

// heldHabit loads the habit collection and returns id from it.
func heldHabit(ctx context.Context, rt *cliRuntime, id int64) (domain.Habit, error) {
	if err := rt.habits.FetchAll(ctx); err != nil {
		return domain.Habit{}, err
	}
	habit, ok := rt.habits.Get(id)
	if !ok {
		return domain.Habit{}, fmt.Errorf("habit %d: %w", id, app.ErrNotFound)
	}
	return habit, nil
}
