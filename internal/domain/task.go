package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Priority ranks a task.
type Priority string

// Priority values.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// RepeatType describes how a task recurs.
type RepeatType string

// RepeatType values.
const (
	RepeatNone   RepeatType = "NONE"
	RepeatDaily  RepeatType = "DAILY"
	RepeatWeekly RepeatType = "WEEKLY"
)

var validRepeatTypes = []RepeatType{RepeatNone, RepeatDaily, RepeatWeekly}

// ParsePriority normalizes raw text into a Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// ParseRepeatType normalizes raw text into a RepeatType.
func ParseRepeatType(raw string) (RepeatType, error) {
	r := RepeatType(strings.ToUpper(strings.TrimSpace(raw)))
	if !slices.Contains(validRepeatTypes, r) {
		return "", ErrInvalidRepeatType
	}
	return r, nil
}

// Priorities returns every supported priority in display order.
func Priorities() []Priority {
	return slices.Clone(validPriorities)
}

// Task is the client-side view of a remote task.
type Task struct {
	ID             int64
	Title          string
	Description    string
	DueDate        time.Time
	Priority       Priority
	RepeatType     RepeatType
	Category       string
	EstimatedHours *float64
	ActualHours    *float64
	Completed      bool
	CompletedAt    *time.Time
	Archived       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Key returns the task id.
func (t Task) Key() int64 {
	return t.ID
}

// TaskInput is the create/update payload for a task.
type TaskInput struct {
	Title          string
	Description    string
	DueDate        time.Time
	Priority       Priority
	RepeatType     RepeatType
	Category       string
	EstimatedHours *float64
	ActualHours    *float64
}

// Normalize trims text fields and fills enum defaults.
func (in TaskInput) Normalize() TaskInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.RepeatType == "" {
		in.RepeatType = RepeatNone
	}
	return in
}

// Validate checks required fields and enum membership only.
func (in TaskInput) Validate() error {
	in = in.Normalize()
	if in.Title == "" {
		return ErrInvalidTitle
	}
	if in.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return ErrInvalidPriority
	}
	if !slices.Contains(validRepeatTypes, in.RepeatType) {
		return ErrInvalidRepeatType
	}
	if badHours(in.EstimatedHours) || badHours(in.ActualHours) {
		return ErrInvalidHours
	}
	return nil
}

// TaskPatch carries the fields of a partial task update. Nil means unchanged.
type TaskPatch struct {
	Title          *string
	Description    *string
	DueDate        *time.Time
	Priority       *Priority
	RepeatType     *RepeatType
	Category       *string
	EstimatedHours *float64
	ActualHours    *float64
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.RepeatType == nil && p.Category == nil &&
		p.EstimatedHours == nil && p.ActualHours == nil
}

// Validate rejects patches that would break task invariants.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrInvalidTitle
	}
	if p.DueDate != nil && p.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if p.Priority != nil && !slices.Contains(validPriorities, *p.Priority) {
		return ErrInvalidPriority
	}
	if p.RepeatType != nil && !slices.Contains(validRepeatTypes, *p.RepeatType) {
		return ErrInvalidRepeatType
	}
	if badHours(p.EstimatedHours) || badHours(p.ActualHours) {
		return ErrInvalidHours
	}
	return nil
}

// Apply returns a copy of t with the patch fields applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.RepeatType != nil {
		t.RepeatType = *p.RepeatType
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.EstimatedHours != nil {
		v := *p.EstimatedHours
		t.EstimatedHours = &v
	}
	if p.ActualHours != nil {
		v := *p.ActualHours
		t.ActualHours = &v
	}
	return t
}

// Merge produces the full update payload the API expects from a task and a patch.
func (p TaskPatch) Merge(t Task) TaskInput {
	t = p.Apply(t)
	return TaskInput{
		Title:          t.Title,
		Description:    t.Description,
		DueDate:        t.DueDate,
		Priority:       t.Priority,
		RepeatType:     t.RepeatType,
		Category:       t.Category,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
	}
}

// badHours rejects negative and non-finite hour values.
func badHours(v *float64) bool {
	return v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0))
}
