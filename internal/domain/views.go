package domain

import (
	"slices"
	"time"
)

// StartOfDay truncates t to local midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsDueToday reports whether t is due on the calendar day of now.
func IsDueToday(t Task, now time.Time) bool {
	if t.Archived || t.DueDate.IsZero() {
		return false
	}
	start := StartOfDay(now)
	due := t.DueDate.In(now.Location())
	return !due.Before(start) && due.Before(start.AddDate(0, 0, 1))
}

// IsOverdue reports whether an open task was due before today.
func IsOverdue(t Task, now time.Time) bool {
	if t.Completed || t.Archived || t.DueDate.IsZero() {
		return false
	}
	return t.DueDate.Before(StartOfDay(now))
}

// IsUpcoming reports whether an open task is due after today and within days.
func IsUpcoming(t Task, now time.Time, days int) bool {
	if t.Completed || t.Archived || t.DueDate.IsZero() || days <= 0 {
		return false
	}
	tomorrow := StartOfDay(now).AddDate(0, 0, 1)
	limit := tomorrow.AddDate(0, 0, days)
	return !t.DueDate.Before(tomorrow) && t.DueDate.Before(limit)
}

// FilterTasks returns the tasks matching pred, preserving order.
func FilterTasks(tasks []Task, pred func(Task) bool) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortTasksByDue orders tasks by due date then id.
func SortTasksByDue(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// MaxStreak returns the largest current streak. It is for display only.
func MaxStreak(habits []Habit) int {
	best := 0
	for _, h := range habits {
		best = max(best, h.Streak)
	}
	return best
}

// MergeWeekly joins task completion and habit consistency series by date.
func MergeWeekly(tasks, habits Series) []WeeklyBar {
	byDay := map[time.Time]*WeeklyBar{}
	get := func(d time.Time) *WeeklyBar {
		d = StartOfDay(d)
		bar, ok := byDay[d]
		if !ok {
			bar = &WeeklyBar{Date: d, Label: d.Weekday().String()[:3]}
			byDay[d] = bar
		}
		return bar
	}
	for _, p := range tasks.Points {
		get(p.Date).TasksCompleted += p.Completed
	}
	for _, p := range habits.Points {
		get(p.Date).HabitsLogged += p.Completed
	}
	out := make([]WeeklyBar, 0, len(byDay))
	for _, bar := range byDay {
		out = append(out, *bar)
	}
	slices.SortFunc(out, func(a, b WeeklyBar) int { return a.Date.Compare(b.Date) })
	return out
}
