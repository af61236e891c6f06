package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/adapters/server/common"
	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

// Task list views.
const (
	viewAll      = "all"
	viewToday    = "today"
	viewOverdue  = "overdue"
	viewUpcoming = "upcoming"
)

func newTasksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "List and manage tasks",
	}
	cmd.AddCommand(
		newTasksListCmd(opts),
		newTasksAddCmd(opts),
		newTasksEditCmd(opts),
		newTaskToggleCmd(opts, "done", "Mark a task complete", true),
		newTaskToggleCmd(opts, "undo", "Mark a task incomplete", false),
		newTasksArchiveCmd(opts),
		newTasksRemoveCmd(opts),
		newTasksShowCmd(opts),
		newTasksCategoriesCmd(opts),
	)
	return cmd
}

func newTasksListCmd(opts *rootOptions) *cobra.Command {
	var (
		view     string
		category string
		priority string
		days     int
		archived bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthed(cmd, opts, "tasks list", func(ctx context.Context, rt *cliRuntime) error {
				if !cmd.Flags().Changed("days") {
					days = rt.cfg.Tasks.UpcomingDays
				}
				if !cmd.Flags().Changed("archived") {
					archived = rt.cfg.Tasks.ShowArchived
				}
				tasks, err := listTasks(ctx, rt, view, category, priority, days, archived)
				if err != nil {
					return err
				}
				writeTasks(cmd.OutOrStdout(), tasks, rt.now())
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&view, "view", viewAll, "view: all|today|overdue|upcoming")
	flags.StringVar(&category, "category", "", "only tasks in this category")
	flags.StringVar(&priority, "priority", "", "only tasks with this priority: low|medium|high")
	flags.IntVar(&days, "days", 7, "window for the upcoming view")
	flags.BoolVar(&archived, "archived", false, "include archived tasks in the all view")
	return cmd
}

// listTasks resolves one list request. Category and priority filters use their
// server endpoints; the all view goes through the task store.
func listTasks(ctx context.Context, rt *cliRuntime, view, category, priority string, days int, archived bool) ([]domain.Task, error) {
	var (
		tasks []domain.Task
		err   error
	)
	switch {
	case strings.TrimSpace(category) != "":
		tasks, err = rt.taskSvc.ByCategory(ctx, category)
	case strings.TrimSpace(priority) != "":
		p, perr := domain.ParsePriority(priority)
		if perr != nil {
			return nil, perr
		}
		tasks, err = rt.taskSvc.ByPriority(ctx, p)
	default:
		switch strings.ToLower(strings.TrimSpace(view)) {
		case "", viewAll:
			if err = rt.tasks.FetchAll(ctx); err != nil {
				return nil, err
			}
			tasks = rt.tasks.Active()
			if archived {
				tasks = rt.tasks.Items()
			}
		case viewToday:
			tasks, err = rt.taskSvc.Today(ctx)
		case viewOverdue:
			tasks, err = rt.taskSvc.Overdue(ctx)
		case viewUpcoming:
			tasks, err = rt.taskSvc.Upcoming(ctx, days)
		default:
			return nil, fmt.Errorf("unknown view %q: want all, today, overdue, or upcoming", view)
		}
	}
	if err != nil {
		return nil, err
	}
	domain.SortTasksByDue(tasks)
	return tasks, nil
}

// taskFlags are the editable task fields shared by add and edit.
type taskFlags struct {
	title       string
	description string
	due         string
	priority    string
	repeat      string
	category    string
	estimate    float64
	actual      float64
}

func (f *taskFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "task title")
	flags.StringVar(&f.description, "description", "", "task description (markdown)")
	flags.StringVar(&f.due, "due", "", "due date: today|tomorrow|+Nd|YYYY-MM-DD|RFC3339")
	flags.StringVar(&f.priority, "priority", "", "priority: low|medium|high")
	flags.StringVar(&f.repeat, "repeat", "", "repeat: none|daily|weekly")
	flags.StringVar(&f.category, "category", "", "category name")
	flags.Float64Var(&f.estimate, "estimate", 0, "estimated hours")
	flags.Float64Var(&f.actual, "actual", 0, "actual hours")
}

// input builds a full create payload.
func (f *taskFlags) input(cmd *cobra.Command, now time.Time) (domain.TaskInput, error) {
	in := domain.TaskInput{
		Title:       f.title,
		Description: f.description,
		Category:    f.category,
	}
	if strings.TrimSpace(f.due) == "" {
		return domain.TaskInput{}, domain.ErrInvalidDueDate
	}
	due, err := parseDue(f.due, now)
	if err != nil {
		return domain.TaskInput{}, err
	}
	in.DueDate = due
	if f.priority != "" {
		if in.Priority, err = domain.ParsePriority(f.priority); err != nil {
			return domain.TaskInput{}, err
		}
	}
	if f.repeat != "" {
		if in.RepeatType, err = domain.ParseRepeatType(f.repeat); err != nil {
			return domain.TaskInput{}, err
		}
	}
	if cmd.Flags().Changed("estimate") {
		in.EstimatedHours = &f.estimate
	}
	if cmd.Flags().Changed("actual") {
		in.ActualHours = &f.actual
	}
	return in, in.Validate()
}

// patch builds a partial update from the flags that were set.
func (f *taskFlags) patch(cmd *cobra.Command, now time.Time) (domain.TaskPatch, error) {
	flags := cmd.Flags()
	var p domain.TaskPatch
	if flags.Changed("title") {
		p.Title = &f.title
	}
	if flags.Changed("description") {
		p.Description = &f.description
	}
	if flags.Changed("category") {
		p.Category = &f.category
	}
	if flags.Changed("due") {
		due, err := parseDue(f.due, now)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		p.DueDate = &due
	}
	if flags.Changed("priority") {
		v, err := domain.ParsePriority(f.priority)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		p.Priority = &v
	}
	if flags.Changed("repeat") {
		v, err := domain.ParseRepeatType(f.repeat)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		p.RepeatType = &v
	}
	if flags.Changed("estimate") {
		p.EstimatedHours = &f.estimate
	}
	if flags.Changed("actual") {
		p.ActualHours = &f.actual
	}
	if p.IsEmpty() {
		return domain.TaskPatch{}, app.ErrEmptyPatch
	}
	return p, p.Validate()
}

func newTasksAddCmd(opts *rootOptions) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.title == "" {
				f.title = strings.Join(args, " ")
			}
			return runAuthed(cmd, opts, "tasks add", func(ctx context.Context, rt *cliRuntime) error {
				in, err := f.input(cmd, rt.now())
				if err != nil {
					return err
				}
				task, err := rt.tasks.Create(ctx, in)
				if err != nil {
					return err
				}
				writeTasks(cmd.OutOrStdout(), []domain.Task{task}, rt.now())
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newTasksEditCmd(opts *rootOptions) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "tasks edit", func(ctx context.Context, rt *cliRuntime) error {
				patch, err := f.patch(cmd, rt.now())
				if err != nil {
					return err
				}
				if err := rt.tasks.FetchAll(ctx); err != nil {
					return err
				}
				task, err := rt.tasks.Edit(ctx, id, patch)
				if err != nil {
					return err
				}
				writeTasks(cmd.OutOrStdout(), []domain.Task{task}, rt.now())
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newTaskToggleCmd(opts *rootOptions, use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "tasks "+use, func(ctx context.Context, rt *cliRuntime) error {
				current, err := heldTask(ctx, rt, id)
				if err != nil {
					return err
				}
				if current.Completed == completed {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "task %d is already %s\n", id, taskStatus(current, rt.now()))
					return nil
				}
				task, _, err := rt.tasks.ToggleComplete(ctx, id)
				if err != nil {
					return err
				}
				writeTasks(cmd.OutOrStdout(), []domain.Task{task}, rt.now())
				return nil
			})
		},
	}
}

func newTasksArchiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "tasks archive", func(ctx context.Context, rt *cliRuntime) error {
				if _, err := heldTask(ctx, rt, id); err != nil {
					return err
				}
				task, _, err := rt.tasks.Archive(ctx, id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "archived task %d: %s\n", task.ID, task.Title)
				return nil
			})
		},
	}
}

func newTasksRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "tasks rm", func(ctx context.Context, rt *cliRuntime) error {
				if _, err := heldTask(ctx, rt, id); err != nil {
					return err
				}
				if err := rt.tasks.Delete(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted task %d\n", id)
				return nil
			})
		},
	}
}

func newTasksShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task with its rendered description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAuthed(cmd, opts, "tasks show", func(ctx context.Context, rt *cliRuntime) error {
				task, err := rt.taskSvc.Get(ctx, id)
				if err != nil {
					return err
				}
				return writeTaskDetail(cmd.OutOrStdout(), task, rt.now())
			})
		},
	}
}

func newTasksCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List task categories in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthed(cmd, opts, "tasks categories", func(ctx context.Context, rt *cliRuntime) error {
				categories, err := rt.taskSvc.Categories(ctx)
				if err != nil {
					return err
				}
				if len(categories) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no categories"))
					return nil
				}
				for _, c := range categories {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), c)
				}
				return nil
			})
		},
	}
}

// heldTask loads the task collection and returns id from it.
func heldTask(ctx context.Context, rt *cliRuntime, id int64) (domain.Task, error) {
	if err := rt.tasks.FetchAll(ctx); err != nil {
		return domain.Task{}, err
	}
	task, ok := rt.tasks.Get(id)
	if !ok {
		return domain.Task{}, fmt.Errorf("task %d: %w", id, app.ErrNotFound)
	}
	return task, nil
}

// parseDue accepts today, tomorrow, +Nd, a calendar date, or RFC3339.
func parseDue(raw string, now time.Time) (time.Time, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	today := domain.StartOfDay(now)
	switch {
	case raw == "today":
		return today, nil
	case raw == "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case strings.HasPrefix(raw, "+") && strings.HasSuffix(raw, "d"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(raw, "+"), "d"))
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("invalid relative due date %q", raw)
		}
		return today.AddDate(0, 0, n), nil
	}
	due, err := common.ParseDueDate(strings.ToUpper(raw), now.Location())
	if err != nil {
		return time.Time{}, errors.Join(domain.ErrInvalidDueDate, fmt.Errorf("parse %q: %w", raw, err))
	}
	return due, nil
}
