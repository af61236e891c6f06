package domain

import (
	"slices"
	"strings"
	"time"
)

// Frequency describes how often a habit is expected.
type Frequency string

// Frequency values.
const (
	FrequencyDaily  Frequency = "DAILY"
	FrequencyWeekly Frequency = "WEEKLY"
)

var validFrequencies = []Frequency{FrequencyDaily, FrequencyWeekly}

// ParseFrequency normalizes raw text into a Frequency.
func ParseFrequency(raw string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(raw)))
	if !slices.Contains(validFrequencies, f) {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

// Habit is the client-side view of a remote habit. Streak values are computed by the server.
type Habit struct {
	ID            int64
	Name          string
	Description   string
	Frequency     Frequency
	Streak        int
	LongestStreak int
	LastLogDate   *time.Time
	CreatedAt     time.Time
}

// Key returns the habit id.
func (h Habit) Key() int64 {
	return h.ID
}

// HabitInput is the create/update payload for a habit.
type HabitInput struct {
	Name        string
	Description string
	Frequency   Frequency
}

// Normalize trims text and defaults the frequency to daily.
func (in HabitInput) Normalize() HabitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Frequency == "" {
		in.Frequency = FrequencyDaily
	}
	return in
}

// Validate checks required fields and enum membership.
func (in HabitInput) Validate() error {
	in = in.Normalize()
	if in.Name == "" {
		return ErrInvalidName
	}
	if !slices.Contains(validFrequencies, in.Frequency) {
		return ErrInvalidFrequency
	}
	return nil
}

// HabitPatch carries the fields of a partial habit update.
type HabitPatch struct {
	Name        *string
	Description *string
	Frequency   *Frequency
}

// Validate rejects patches that would break habit invariants.
func (p HabitPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrInvalidName
	}
	if p.Frequency != nil && !slices.Contains(validFrequencies, *p.Frequency) {
		return ErrInvalidFrequency
	}
	return nil
}

// Apply returns a copy of h with the patch fields applied.
func (p HabitPatch) Apply(h Habit) Habit {
	if p.Name != nil {
		h.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		h.Description = strings.TrimSpace(*p.Description)
	}
	if p.Frequency != nil {
		h.Frequency = *p.Frequency
	}
	return h
}

// Merge produces the full update payload from a habit and a patch.
func (p HabitPatch) Merge(h Habit) HabitInput {
	h = p.Apply(h)
	return HabitInput{Name: h.Name, Description: h.Description, Frequency: h.Frequency}
}

// HabitLog records a single logging event. Logs are append only.
type HabitLog struct {
	ID      int64
	HabitID int64
	UserID  int64
	LogDate time.Time
}

// Key returns the log id.
func (l HabitLog) Key() int64 {
	return l.ID
}

// WeeklyProgress holds per-day log counts for a habit's current week.
type WeeklyProgress struct {
	HabitID int64
	Labels  []string
	Counts  []int
}

// Total sums the weekly counts.
func (w WeeklyProgress) Total() int {
	total := 0
	for _, c := range w.Counts {
		total += c
	}
	return total
}
