package app

import (
	"context"
	"time"

	"github.com/evanschultz/trackit/internal/domain"
	"github.com/evanschultz/trackit/internal/events"
	"github.com/evanschultz/trackit/internal/notify"
	"github.com/evanschultz/trackit/internal/resource"
)

// Success notifications shown after committed mutations.
const (
	MsgTaskCreated    = "Task created successfully!"
	MsgTaskUpdated    = "Task updated successfully!"
	MsgTaskDeleted    = "Task deleted successfully!"
	MsgTaskCompleted  = "Task completed!"
	MsgTaskIncomplete = "Task marked incomplete"
	MsgTaskArchived   = "Task archived successfully!"
	MsgHabitCreated   = "Habit created successfully!"
	MsgHabitUpdated   = "Habit updated successfully!"
	MsgHabitDeleted   = "Habit deleted successfully!"
	MsgHabitLogged    = "Habit logged successfully!"
)

const (
	resourceNameTasks  = "tasks"
	resourceNameHabits = "habits"
)

// StoreDeps holds collaborators shared by entity stores.
type StoreDeps struct {
	Notifier  notify.Notifier
	Publisher events.Publisher
	Logger    Logger
}

// TaskStore is the session-scoped task collection.
type TaskStore struct {
	*resource.Store[domain.Task, domain.TaskInput, domain.TaskPatch]
	svc *TaskService
}

// NewTaskStore wires a TaskStore over svc.
func NewTaskStore(svc *TaskService, deps StoreDeps) *TaskStore {
	ts := &TaskStore{svc: svc}
	ts.Store = resource.New(resource.Config[domain.Task, domain.TaskInput, domain.TaskPatch]{
		Name:   resourceNameTasks,
		List:   svc.List,
		Create: svc.Create,
		Update: ts.update,
		Delete: svc.Delete,
		Messages: resource.Messages{
			Created: MsgTaskCreated,
			Updated: MsgTaskUpdated,
			Deleted: MsgTaskDeleted,
		},
		Notifier:  deps.Notifier,
		Publisher: deps.Publisher,
		Logger:    deps.Logger,
	})
	return ts
}

// update merges patch over the current task to build the full payload the API expects.
func (s *TaskStore) update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	current, ok := s.Get(id)
	if !ok {
		fetched, err := s.svc.Get(ctx, id)
		if err != nil {
			return domain.Task{}, err
		}
		current = fetched
	}
	return s.svc.Update(ctx, id, patch.Merge(current))
}

// Edit applies patch optimistically and reconciles with the server.
func (s *TaskStore) Edit(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if patch.IsEmpty() {
		return domain.Task{}, ErrEmptyPatch
	}
	return s.Update(ctx, id, patch, patch.Apply)
}

// ToggleComplete flips the completed flag of id. Absent ids are a no-op.
func (s *TaskStore) ToggleComplete(ctx context.Context, id int64) (domain.Task, bool, error) {
	current, ok := s.Get(id)
	if !ok {
		return domain.Task{}, false, nil
	}
	msg := MsgTaskCompleted
	if current.Completed {
		msg = MsgTaskIncomplete
	}
	return s.Apply(ctx, id, func(ctx context.Context, cur domain.Task) (domain.Task, error) {
		if cur.Completed {
			return s.svc.Incomplete(ctx, id)
		}
		return s.svc.Complete(ctx, id)
	}, func(cur domain.Task) domain.Task {
		cur.Completed = !cur.Completed
		return cur
	}, msg)
}

// Archive hides id from active views.
func (s *TaskStore) Archive(ctx context.Context, id int64) (domain.Task, bool, error) {
	return s.Apply(ctx, id, func(ctx context.Context, _ domain.Task) (domain.Task, error) {
		return s.svc.Archive(ctx, id)
	}, func(cur domain.Task) domain.Task {
		cur.Archived = true
		return cur
	}, MsgTaskArchived)
}

// Today returns held tasks due on the calendar day of now.
func (s *TaskStore) Today(now time.Time) []domain.Task {
	return domain.FilterTasks(s.Items(), func(t domain.Task) bool { return domain.IsDueToday(t, now) })
}

// Overdue returns held open tasks due before today.
func (s *TaskStore) Overdue(now time.Time) []domain.Task {
	return domain.FilterTasks(s.Items(), func(t domain.Task) bool { return domain.IsOverdue(t, now) })
}

// Upcoming returns held open tasks due within days after today.
func (s *TaskStore) Upcoming(now time.Time, days int) []domain.Task {
	return domain.FilterTasks(s.Items(), func(t domain.Task) bool { return domain.IsUpcoming(t, now, days) })
}

// Active returns held tasks that are not archived.
func (s *TaskStore) Active() []domain.Task {
	return domain.FilterTasks(s.Items(), func(t domain.Task) bool { return !t.Archived })
}

// HabitStore is the session-scoped habit collection.
type HabitStore struct {
	*resource.Store[domain.Habit, domain.HabitInput, domain.HabitPatch]
	svc *HabitService
}

// NewHabitStore wires a HabitStore over svc.
func NewHabitStore(svc *HabitService, deps StoreDeps) *HabitStore {
	hs := &HabitStore{svc: svc}
	hs.Store = resource.New(resource.Config[domain.Habit, domain.HabitInput, domain.HabitPatch]{
		Name:   resourceNameHabits,
		List:   svc.List,
		Create: svc.Create,
		Update: hs.update,
		Delete: svc.Delete,
		Messages: resource.Messages{
			Created: MsgHabitCreated,
			Updated: MsgHabitUpdated,
			Deleted: MsgHabitDeleted,
		},
		Notifier:  deps.Notifier,
		Publisher: deps.Publisher,
		Logger:    deps.Logger,
	})
	return hs
}

func (s *HabitStore) update(ctx context.Context, id int64, patch domain.HabitPatch) (domain.Habit, error) {
	if err := patch.Validate(); err != nil {
		return domain.Habit{}, err
	}
	current, ok := s.Get(id)
	if !ok {
		return domain.Habit{}, ErrNotFound
	}
	return s.svc.Update(ctx, id, patch.Merge(current))
}

// Edit applies patch optimistically and reconciles with the server.
func (s *HabitStore) Edit(ctx context.Context, id int64, patch domain.HabitPatch) (domain.Habit, error) {
	return s.Update(ctx, id, patch, patch.Apply)
}

// LogOccurrence records a log for id and reconciles the habit with the server's
// recomputed streak. Absent ids are a no-op.
func (s *HabitStore) LogOccurrence(ctx context.Context, id int64) (domain.Habit, bool, error) {
	return s.Apply(ctx, id, func(ctx context.Context, cur domain.Habit) (domain.Habit, error) {
		entry, err := s.svc.Log(ctx, id)
		if err != nil {
			return domain.Habit{}, err
		}
		habits, err := s.svc.List(ctx)
		if err == nil {
			for _, h := range habits {
				if h.ID == id {
					return h, nil
				}
			}
		}
		// The log committed; keep the current streak until the next refresh.
		if !entry.LogDate.IsZero() {
			logged := entry.LogDate
			cur.LastLogDate = &logged
		}
		return cur, nil
	}, nil, MsgHabitLogged)
}

// MaxStreak returns the highest held streak. Display only; streaks come from the server.
func (s *HabitStore) MaxStreak() int {
	return domain.MaxStreak(s.Items())
}
