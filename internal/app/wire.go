package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/trackit/internal/domain"
)

const (
	dateLayout      = "2006-01-02"
	localTimeLayout = "2006-01-02T15:04:05"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	localTimeLayout,
	"2006-01-02 15:04:05",
	dateLayout,
}

// flexTime decodes the timestamp shapes the service emits: RFC 3339, zone-less
// local date-times, and bare dates. Zone-less values are read as UTC.
type flexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	parsed, err := parseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON emits a zone-less local date-time.
func (t flexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(localTimeLayout))
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", raw)
}

func optionalTime(t *flexTime) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// envelope is the {data, message, success} wrapper some endpoints use.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success *bool           `json:"success"`
}

// unwrap returns the payload inside an envelope, or raw itself when unwrapped.
func unwrap(raw json.RawMessage) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return raw
	}
	return env.Data
}

type userWire struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId,omitempty"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Timezone       string    `json:"timezone,omitempty"`
	IsActive       *bool     `json:"isActive,omitempty"`
	CreatedAt      *flexTime `json:"createdAt,omitempty"`
	UpdatedAt      *flexTime `json:"updatedAt,omitempty"`
}

func (w userWire) domain() domain.User {
	id := w.ID
	if id == 0 {
		id = w.UserID
	}
	return domain.User{
		ID:             id,
		Username:       w.Username,
		Email:          w.Email,
		FirstName:      w.FirstName,
		LastName:       w.LastName,
		ProfilePicture: w.ProfilePicture,
		Timezone:       w.Timezone,
		Active:         w.IsActive,
		CreatedAt:      optionalTime(w.CreatedAt),
		UpdatedAt:      optionalTime(w.UpdatedAt),
	}
}

// UserToJSON encodes a user the way the credential store persists it.
func UserToJSON(u domain.User) ([]byte, error) {
	w := userWire{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
		Timezone:       u.Timezone,
		IsActive:       u.Active,
	}
	if u.CreatedAt != nil {
		w.CreatedAt = &flexTime{Time: *u.CreatedAt}
	}
	if u.UpdatedAt != nil {
		w.UpdatedAt = &flexTime{Time: *u.UpdatedAt}
	}
	return json.Marshal(w)
}

// UserFromJSON decodes a persisted user.
func UserFromJSON(data []byte) (domain.User, error) {
	var w userWire
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return w.domain(), nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type profileRequest struct {
	Email          *string `json:"email,omitempty"`
	FirstName      *string `json:"firstName,omitempty"`
	LastName       *string `json:"lastName,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
	Timezone       *string `json:"timezone,omitempty"`
}

// loginResponse accepts both {token, user{...}} and {token, userId, username}.
type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	User      *userWire `json:"user"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
}

func (r loginResponse) user() domain.User {
	if r.User != nil {
		return r.User.domain()
	}
	return domain.User{ID: r.UserID, Username: r.Username}
}

type taskWire struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DueDate        flexTime  `json:"dueDate"`
	Priority       string    `json:"priority"`
	RepeatType     string    `json:"repeatType"`
	Category       string    `json:"category"`
	EstimatedHours *float64  `json:"estimatedHours"`
	ActualHours    *float64  `json:"actualHours"`
	Completed      bool      `json:"completed"`
	CompletedAt    *flexTime `json:"completedAt"`
	Archived       bool      `json:"archived"`
	CreatedAt      flexTime  `json:"createdAt"`
	UpdatedAt      flexTime  `json:"updatedAt"`
}

func (w taskWire) domain() domain.Task {
	return domain.Task{
		ID:             w.ID,
		Title:          w.Title,
		Description:    w.Description,
		DueDate:        w.DueDate.Time,
		Priority:       domain.Priority(strings.ToUpper(w.Priority)),
		RepeatType:     domain.RepeatType(strings.ToUpper(w.RepeatType)),
		Category:       w.Category,
		EstimatedHours: w.EstimatedHours,
		ActualHours:    w.ActualHours,
		Completed:      w.Completed,
		CompletedAt:    optionalTime(w.CompletedAt),
		Archived:       w.Archived,
		CreatedAt:      w.CreatedAt.Time,
		UpdatedAt:      w.UpdatedAt.Time,
	}
}

func tasksFromWire(rows []taskWire) []domain.Task {
	out := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.domain())
	}
	return out
}

type taskRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	DueDate        flexTime `json:"dueDate"`
	Priority       string   `json:"priority"`
	RepeatType     string   `json:"repeatType"`
	Category       string   `json:"category,omitempty"`
	EstimatedHours *float64 `json:"estimatedHours,omitempty"`
	ActualHours    *float64 `json:"actualHours,omitempty"`
}

func newTaskRequest(in domain.TaskInput) taskRequest {
	in = in.Normalize()
	return taskRequest{
		Title:          in.Title,
		Description:    in.Description,
		DueDate:        flexTime{Time: in.DueDate},
		Priority:       string(in.Priority),
		RepeatType:     string(in.RepeatType),
		Category:       in.Category,
		EstimatedHours: in.EstimatedHours,
		ActualHours:    in.ActualHours,
	}
}

type habitWire struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Frequency     string    `json:"frequency"`
	Streak        *int      `json:"streak"`
	CurrentStreak *int      `json:"currentStreak"`
	LongestStreak int       `json:"longestStreak"`
	LastLogDate   *flexTime `json:"lastLogDate"`
	CreatedAt     flexTime  `json:"createdAt"`
}

func (w habitWire) domain() domain.Habit {
	streak := 0
	switch {
	case w.Streak != nil:
		streak = *w.Streak
	case w.CurrentStreak != nil:
		streak = *w.CurrentStreak
	}
	return domain.Habit{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		Frequency:     domain.Frequency(strings.ToUpper(w.Frequency)),
		Streak:        max(streak, 0),
		LongestStreak: max(w.LongestStreak, 0),
		LastLogDate:   optionalTime(w.LastLogDate),
		CreatedAt:     w.CreatedAt.Time,
	}
}

func habitsFromWire(rows []habitWire) []domain.Habit {
	out := make([]domain.Habit, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.domain())
	}
	return out
}

type habitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Frequency   string `json:"frequency"`
}

func newHabitRequest(in domain.HabitInput) habitRequest {
	in = in.Normalize()
	return habitRequest{Name: in.Name, Description: in.Description, Frequency: string(in.Frequency)}
}

type refWire struct {
	ID int64 `json:"id"`
}

type habitLogWire struct {
	ID      int64    `json:"id"`
	HabitID int64    `json:"habitId"`
	UserID  int64    `json:"userId"`
	Habit   *refWire `json:"habit"`
	User    *refWire `json:"user"`
	LogDate flexTime `json:"logDate"`
}

func (w habitLogWire) domain(habitID int64) domain.HabitLog {
	out := domain.HabitLog{ID: w.ID, HabitID: w.HabitID, UserID: w.UserID, LogDate: w.LogDate.Time}
	if w.Habit != nil && w.Habit.ID != 0 {
		out.HabitID = w.Habit.ID
	}
	if w.User != nil && w.User.ID != 0 {
		out.UserID = w.User.ID
	}
	if out.HabitID == 0 {
		out.HabitID = habitID
	}
	return out
}

type taskAnalyticsWire struct {
	TotalTasks      int            `json:"totalTasks"`
	CompletedTasks  int            `json:"completedTasks"`
	OverdueTasks    int            `json:"overdueTasks"`
	TodayTasks      int            `json:"todayTasks"`
	CompletionRate  float64        `json:"completionRate"`
	TasksByPriority map[string]int `json:"tasksByPriority"`
	TasksByCategory map[string]int `json:"tasksByCategory"`
}

func (w taskAnalyticsWire) domain() domain.TaskAnalytics {
	out := domain.TaskAnalytics{
		Total:          w.TotalTasks,
		Completed:      w.CompletedTasks,
		Overdue:        w.OverdueTasks,
		Today:          w.TodayTasks,
		CompletionRate: w.CompletionRate,
		ByPriority:     w.TasksByPriority,
		ByCategory:     w.TasksByCategory,
	}
	if out.ByPriority == nil {
		out.ByPriority = map[string]int{}
	}
	if out.ByCategory == nil {
		out.ByCategory = map[string]int{}
	}
	return out
}

type summaryWire struct {
	TotalTasks       int     `json:"totalTasks"`
	CompletedTasks   int     `json:"completedTasks"`
	ActiveHabits     int     `json:"activeHabits"`
	ConsistencyScore float64 `json:"consistencyScore"`
	BestDay          string  `json:"bestDay"`
	WorstDay         string  `json:"worstDay"`
}

type completionWire struct {
	CompletionByDay map[string]int `json:"completionByDay"`
	TotalTasks      int            `json:"totalTasks"`
}

type consistencyWire struct {
	ConsistencyByDay map[string]int `json:"consistencyByDay"`
	TotalDays        int            `json:"totalDays"`
}

type bestWorstWire struct {
	BestDay      string `json:"bestDay"`
	BestDayLogs  int    `json:"bestDayLogs"`
	WorstDay     string `json:"worstDay"`
	WorstDayLogs int    `json:"worstDayLogs"`
}

// seriesFromMap converts a date-keyed map into a date-sorted series.
// Keys that are not dates are skipped.
func seriesFromMap(byDay map[string]int, total int) domain.Series {
	points := make([]domain.DailyPoint, 0, len(byDay))
	for key, count := range byDay {
		day, err := parseTimestamp(key)
		if err != nil || day.IsZero() {
			continue
		}
		points = append(points, domain.DailyPoint{Date: day, Completed: count, Total: total})
	}
	slices.SortFunc(points, func(a, b domain.DailyPoint) int { return a.Date.Compare(b.Date) })
	return domain.Series{Points: points, Total: total}
}

// weeklyProgressFrom accepts either a list of counts or a label-keyed map.
func weeklyProgressFrom(habitID int64, raw json.RawMessage) (domain.WeeklyProgress, error) {
	out := domain.WeeklyProgress{HabitID: habitID}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out.Counts); err != nil {
			return out, fmt.Errorf("decode weekly progress: %w", err)
		}
		return out, nil
	}
	var byLabel map[string]int
	if err := json.Unmarshal(trimmed, &byLabel); err != nil {
		return out, fmt.Errorf("decode weekly progress: %w", err)
	}
	for label := range byLabel {
		out.Labels = append(out.Labels, label)
	}
	slices.Sort(out.Labels)
	for _, label := range out.Labels {
		out.Counts = append(out.Counts, byLabel[label])
	}
	return out, nil
}
