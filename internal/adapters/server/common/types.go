// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

// Task list views accepted by ListTasks.
const (
	ViewAll      = "all"
	ViewToday    = "today"
	ViewOverdue  = "overdue"
	ViewUpcoming = "upcoming"
)

// SupportedViews returns the accepted task views in canonical order.
func SupportedViews() []string {
	return []string{ViewAll, ViewToday, ViewOverdue, ViewUpcoming}
}

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrUnauthenticated reports a missing or expired Trackit session.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrUpstream reports a Trackit API failure that is not the caller's fault.
var ErrUpstream = errors.New("upstream api failure")

// ListTasksRequest filters one task listing.
type ListTasksRequest struct {
	View     string
	Category string
	Priority string
	Days     int
}

// CreateTaskRequest carries one new task.
type CreateTaskRequest struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     string  `json:"due_date" yaml:"due_date"`
	Priority    string  `json:"priority,omitempty" yaml:"priority,omitempty"`
	RepeatType  string  `json:"repeat_type,omitempty" yaml:"repeat_type,omitempty"`
	Category    string  `json:"category,omitempty" yaml:"category,omitempty"`
	Hours       float64 `json:"estimated_hours,omitempty" yaml:"estimated_hours,omitempty"`
}

// Task is the transport shape of domain.Task.
type Task struct {
	ID          int64    `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     string   `json:"due_date" yaml:"due_date"`
	Priority    string   `json:"priority" yaml:"priority"`
	RepeatType  string   `json:"repeat_type" yaml:"repeat_type"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Hours       *float64 `json:"estimated_hours,omitempty" yaml:"estimated_hours,omitempty"`
	Completed   bool     `json:"completed" yaml:"completed"`
	Archived    bool     `json:"archived" yaml:"archived"`
	Overdue     bool     `json:"overdue" yaml:"overdue"`
}

// Habit is the transport shape of domain.Habit.
type Habit struct {
	ID            int64  `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Frequency     string `json:"frequency" yaml:"frequency"`
	Streak        int    `json:"streak" yaml:"streak"`
	LongestStreak int    `json:"longest_streak" yaml:"longest_streak"`
	LastLogDate   string `json:"last_log_date,omitempty" yaml:"last_log_date,omitempty"`
}

// DayBar is one day of the weekly chart.
type DayBar struct {
	Date           string `json:"date" yaml:"date"`
	Label          string `json:"label" yaml:"label"`
	TasksCompleted int    `json:"tasks_completed" yaml:"tasks_completed"`
	HabitsLogged   int    `json:"habits_logged" yaml:"habits_logged"`
}

// Dashboard is the transport shape of app.DashboardData.
type Dashboard struct {
	TotalTasks     int      `json:"total_tasks" yaml:"total_tasks"`
	CompletedTasks int      `json:"completed_tasks" yaml:"completed_tasks"`
	PendingTasks   int      `json:"pending_tasks" yaml:"pending_tasks"`
	OverdueTasks   int      `json:"overdue_tasks" yaml:"overdue_tasks"`
	TotalHabits    int      `json:"total_habits" yaml:"total_habits"`
	ActiveHabits   int      `json:"active_habits" yaml:"active_habits"`
	MaxStreak      int      `json:"max_streak" yaml:"max_streak"`
	CompletionRate float64  `json:"completion_rate" yaml:"completion_rate"`
	RecentTasks    []Task   `json:"recent_tasks" yaml:"recent_tasks"`
	RecentHabits   []Habit  `json:"recent_habits" yaml:"recent_habits"`
	Weekly         []DayBar `json:"weekly" yaml:"weekly"`
	Failed         []string `json:"failed_series,omitempty" yaml:"failed_series,omitempty"`
	LoadedAt       string   `json:"loaded_at" yaml:"loaded_at"`
}

// TaskService lists and mutates tasks.
type TaskService interface {
	ListTasks(context.Context, ListTasksRequest) ([]Task, error)
	CreateTask(context.Context, CreateTaskRequest) (Task, error)
	ToggleTask(context.Context, int64) (Task, error)
	DeleteTask(context.Context, int64) error
}

// HabitService lists and logs habits.
type HabitService interface {
	ListHabits(context.Context) ([]Habit, error)
	LogHabit(context.Context, int64) (Habit, error)
}

// DashboardReader loads the composite dashboard.
type DashboardReader interface {
	Dashboard(context.Context) (Dashboard, error)
}

// Services bundles every transport-facing port.
type Services interface {
	TaskService
	HabitService
	DashboardReader
}

const dateLayout = "2006-01-02"

// TaskFrom maps one domain task at now.
func TaskFrom(t domain.Task, now time.Time) Task {
	out := Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		RepeatType:  string(t.RepeatType),
		Category:    t.Category,
		Hours:       t.EstimatedHours,
		Completed:   t.Completed,
		Archived:    t.Archived,
		Overdue:     domain.IsOverdue(t, now),
	}
	if !t.DueDate.IsZero() {
		out.DueDate = t.DueDate.Format(time.RFC3339)
	}
	return out
}

// TasksFrom maps a task slice at now.
func TasksFrom(tasks []domain.Task, now time.Time) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskFrom(t, now))
	}
	return out
}

// HabitFrom maps one domain habit.
func HabitFrom(h domain.Habit) Habit {
	out := Habit{
		ID:            h.ID,
		Name:          h.Name,
		Description:   h.Description,
		Frequency:     string(h.Frequency),
		Streak:        h.Streak,
		LongestStreak: h.LongestStreak,
	}
	if h.LastLogDate != nil {
		out.LastLogDate = h.LastLogDate.Format(dateLayout)
	}
	return out
}

// HabitsFrom maps a habit slice.
func HabitsFrom(habits []domain.Habit) []Habit {
	out := make([]Habit, 0, len(habits))
	for _, h := range habits {
		out = append(out, HabitFrom(h))
	}
	return out
}

// DashboardFrom maps one dashboard load.
func DashboardFrom(d app.DashboardData) Dashboard {
	weekly := make([]DayBar, 0, len(d.Weekly))
	for _, bar := range d.Weekly {
		weekly = append(weekly, DayBar{
			Date:           bar.Date.Format(dateLayout),
			Label:          bar.Label,
			TasksCompleted: bar.TasksCompleted,
			HabitsLogged:   bar.HabitsLogged,
		})
	}
	return Dashboard{
		TotalTasks:     d.Stats.TotalTasks,
		CompletedTasks: d.Stats.CompletedTasks,
		PendingTasks:   d.Stats.PendingTasks,
		OverdueTasks:   d.Stats.OverdueTasks,
		TotalHabits:    d.Stats.TotalHabits,
		ActiveHabits:   d.Stats.ActiveHabits,
		MaxStreak:      d.Stats.MaxStreak,
		CompletionRate: d.Stats.CompletionRate,
		RecentTasks:    TasksFrom(d.RecentTasks, d.LoadedAt),
		RecentHabits:   HabitsFrom(d.RecentHabits),
		Weekly:         weekly,
		Failed:         append([]string(nil), d.Failed...),
		LoadedAt:       d.LoadedAt.Format(time.RFC3339),
	}
}

// ParseDueDate accepts a calendar date or an RFC3339 timestamp.
func ParseDueDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
