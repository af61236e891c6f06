package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/trackit/internal/adapters/restapi"
	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

// StoreAdapter maps transport contracts onto the app stores and dashboard.
type StoreAdapter struct {
	tasks        *app.TaskStore
	habits       *app.HabitStore
	dashboard    *app.Dashboard
	upcomingDays int
	now          func() time.Time
}

// NewStoreAdapter builds one adapter. upcomingDays sizes the upcoming view.
func NewStoreAdapter(tasks *app.TaskStore, habits *app.HabitStore, dashboard *app.Dashboard, upcomingDays int, now func() time.Time) *StoreAdapter {
	if upcomingDays <= 0 {
		upcomingDays = 7
	}
	if now == nil {
		now = time.Now
	}
	return &StoreAdapter{tasks: tasks, habits: habits, dashboard: dashboard, upcomingDays: upcomingDays, now: now}
}

// ListTasks refreshes the task store and returns one filtered view.
func (a *StoreAdapter) ListTasks(ctx context.Context, in ListTasksRequest) ([]Task, error) {
	view := strings.ToLower(strings.TrimSpace(in.View))
	if view == "" {
		view = ViewAll
	}
	var priority domain.Priority
	if raw := strings.TrimSpace(in.Priority); raw != "" {
		p, err := domain.ParsePriority(raw)
		if err != nil {
			return nil, mapAppError("list tasks", err)
		}
		priority = p
	}
	if err := a.tasks.FetchAll(ctx); err != nil {
		return nil, mapAppError("list tasks", err)
	}

	now := a.now()
	var rows []domain.Task
	switch view {
	case ViewAll:
		rows = a.tasks.Active()
	case ViewToday:
		rows = a.tasks.Today(now)
	case ViewOverdue:
		rows = a.tasks.Overdue(now)
	case ViewUpcoming:
		days := in.Days
		if days <= 0 {
			days = a.upcomingDays
		}
		rows = a.tasks.Upcoming(now, days)
	default:
		return nil, fmt.Errorf("list tasks: unknown view %q: %w", in.View, ErrInvalidRequest)
	}
	category := strings.TrimSpace(in.Category)
	rows = domain.FilterTasks(rows, func(t domain.Task) bool {
		if category != "" && !strings.EqualFold(t.Category, category) {
			return false
		}
		return priority == "" || t.Priority == priority
	})
	return TasksFrom(rows, now), nil
}

// CreateTask validates and creates one task.
func (a *StoreAdapter) CreateTask(ctx context.Context, in CreateTaskRequest) (Task, error) {
	due, err := ParseDueDate(strings.TrimSpace(in.DueDate), nil)
	if err != nil {
		return Task{}, fmt.Errorf("create task: due_date %q: %w", in.DueDate, ErrInvalidRequest)
	}
	input := domain.TaskInput{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     due,
		Category:    in.Category,
	}
	if in.Priority != "" {
		if input.Priority, err = domain.ParsePriority(in.Priority); err != nil {
			return Task{}, mapAppError("create task", err)
		}
	}
	if in.RepeatType != "" {
		if input.RepeatType, err = domain.ParseRepeatType(in.RepeatType); err != nil {
			return Task{}, mapAppError("create task", err)
		}
	}
	if in.Hours > 0 {
		hours := in.Hours
		input.EstimatedHours = &hours
	}
	created, err := a.tasks.Create(ctx, input)
	if err != nil {
		return Task{}, mapAppError("create task", err)
	}
	return TaskFrom(created, a.now()), nil
}

// ToggleTask flips completion of one loaded task.
func (a *StoreAdapter) ToggleTask(ctx context.Context, id int64) (Task, error) {
	if err := a.ensureTasks(ctx, id); err != nil {
		return Task{}, err
	}
	task, found, err := a.tasks.ToggleComplete(ctx, id)
	if err != nil {
		return Task{}, mapAppError("toggle task", err)
	}
	if !found {
		return Task{}, fmt.Errorf("toggle task %d: %w", id, ErrNotFound)
	}
	return TaskFrom(task, a.now()), nil
}

// DeleteTask removes one task after the server confirms.
func (a *StoreAdapter) DeleteTask(ctx context.Context, id int64) error {
	if err := a.tasks.Delete(ctx, id); err != nil {
		return mapAppError("delete task", err)
	}
	return nil
}

// ListHabits refreshes and returns every habit.
func (a *StoreAdapter) ListHabits(ctx context.Context) ([]Habit, error) {
	if err := a.habits.FetchAll(ctx); err != nil {
		return nil, mapAppError("list habits", err)
	}
	return HabitsFrom(a.habits.Items()), nil
}

// LogHabit records today's occurrence of one habit.
func (a *StoreAdapter) LogHabit(ctx context.Context, id int64) (Habit, error) {
	if _, ok := a.habits.Get(id); !ok {
		if err := a.habits.FetchAll(ctx); err != nil {
			return Habit{}, mapAppError("log habit", err)
		}
	}
	habit, found, err := a.habits.LogOccurrence(ctx, id)
	if err != nil {
		return Habit{}, mapAppError("log habit", err)
	}
	if !found {
		return Habit{}, fmt.Errorf("log habit %d: %w", id, ErrNotFound)
	}
	return HabitFrom(habit), nil
}

// Dashboard loads the composite overview.
func (a *StoreAdapter) Dashboard(ctx context.Context) (Dashboard, error) {
	data, err := a.dashboard.Load(ctx, a.now())
	if err != nil {
		return Dashboard{}, mapAppError("load dashboard", err)
	}
	return DashboardFrom(data), nil
}

// ensureTasks loads the task collection when id is not held yet.
func (a *StoreAdapter) ensureTasks(ctx context.Context, id int64) error {
	if _, ok := a.tasks.Get(id); ok {
		return nil
	}
	if err := a.tasks.FetchAll(ctx); err != nil {
		return mapAppError("load tasks", err)
	}
	return nil
}

// mapAppError maps app, domain, and API errors into transport-layer sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotAuthenticated), errors.Is(err, restapi.ErrUnauthorized):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUnauthenticated, err))
	case errors.Is(err, app.ErrNotFound), errors.Is(err, restapi.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, restapi.ErrValidation),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidDueDate),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidRepeatType),
		errors.Is(err, domain.ErrInvalidHours),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidFrequency),
		errors.Is(err, app.ErrEmptyPatch):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	case restapi.KindOf(err) != "":
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUpstream, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
