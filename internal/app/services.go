package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/trackit/internal/domain"
)

// TaskService maps task intents onto API calls. It holds no state.
type TaskService struct {
	api Requester
}

// NewTaskService constructs a TaskService.
func NewTaskService(api Requester) *TaskService {
	return &TaskService{api: api}
}

func (s *TaskService) list(ctx context.Context, path string) ([]domain.Task, error) {
	var rows []taskWire
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return tasksFromWire(rows), nil
}

func (s *TaskService) one(ctx context.Context, method, path string, body any) (domain.Task, error) {
	var row taskWire
	if err := s.api.Do(ctx, method, path, body, &row); err != nil {
		return domain.Task{}, err
	}
	return row.domain(), nil
}

// List returns every task.
func (s *TaskService) List(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, "/tasks")
}

// Today returns tasks due today.
func (s *TaskService) Today(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, "/tasks/today")
}

// Overdue returns open tasks past their due date.
func (s *TaskService) Overdue(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, "/tasks/overdue")
}

// Upcoming returns tasks due within days.
func (s *TaskService) Upcoming(ctx context.Context, days int) ([]domain.Task, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}
	return s.list(ctx, "/tasks/upcoming?"+url.Values{"days": {strconv.Itoa(days)}}.Encode())
}

// ByCategory returns tasks in one category.
func (s *TaskService) ByCategory(ctx context.Context, category string) ([]domain.Task, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("category is required")
	}
	return s.list(ctx, "/tasks/category/"+url.PathEscape(category))
}

// ByPriority returns tasks with one priority.
func (s *TaskService) ByPriority(ctx context.Context, priority domain.Priority) ([]domain.Task, error) {
	p, err := domain.ParsePriority(string(priority))
	if err != nil {
		return nil, err
	}
	return s.list(ctx, "/tasks/priority/"+string(p))
}

// History returns tasks between two dates, inclusive.
func (s *TaskService) History(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	q := url.Values{"start": {formatDate(start)}, "end": {formatDate(end)}}
	return s.list(ctx, "/tasks/history?"+q.Encode())
}

// Get returns one task.
func (s *TaskService) Get(ctx context.Context, id int64) (domain.Task, error) {
	return s.one(ctx, http.MethodGet, taskPath(id, ""), nil)
}

// Create sends a new task.
func (s *TaskService) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	return s.one(ctx, http.MethodPost, "/tasks", newTaskRequest(in))
}

// Update replaces the editable fields of a task.
func (s *TaskService) Update(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	return s.one(ctx, http.MethodPut, taskPath(id, ""), newTaskRequest(in))
}

// Complete marks a task done.
func (s *TaskService) Complete(ctx context.Context, id int64) (domain.Task, error) {
	return s.one(ctx, http.MethodPatch, taskPath(id, "complete"), nil)
}

// Incomplete reopens a task.
func (s *TaskService) Incomplete(ctx context.Context, id int64) (domain.Task, error) {
	return s.one(ctx, http.MethodPatch, taskPath(id, "incomplete"), nil)
}

// Archive hides a task from active views.
func (s *TaskService) Archive(ctx context.Context, id int64) (domain.Task, error) {
	return s.one(ctx, http.MethodPatch, taskPath(id, "archive"), nil)
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	return s.api.Do(ctx, http.MethodDelete, taskPath(id, ""), nil, nil)
}

// Analytics returns task counters, zero-filled where the server omits them.
func (s *TaskService) Analytics(ctx context.Context) (domain.TaskAnalytics, error) {
	var w taskAnalyticsWire
	if err := s.api.Do(ctx, http.MethodGet, "/tasks/analytics", nil, &w); err != nil {
		return domain.TaskAnalytics{}, err
	}
	return w.domain(), nil
}

// Categories returns the distinct categories in use.
func (s *TaskService) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.api.Do(ctx, http.MethodGet, "/tasks/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func taskPath(id int64, action string) string {
	path := "/tasks/" + strconv.FormatInt(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

// HabitService maps habit intents onto API calls.
type HabitService struct {
	api Requester
}

// NewHabitService constructs a HabitService.
func NewHabitService(api Requester) *HabitService {
	return &HabitService{api: api}
}

// List returns every habit with its server-computed streak.
func (s *HabitService) List(ctx context.Context) ([]domain.Habit, error) {
	var rows []habitWire
	if err := s.api.Do(ctx, http.MethodGet, "/habits", nil, &rows); err != nil {
		return nil, err
	}
	return habitsFromWire(rows), nil
}

// Create sends a new habit.
func (s *HabitService) Create(ctx context.Context, in domain.HabitInput) (domain.Habit, error) {
	if err := in.Validate(); err != nil {
		return domain.Habit{}, err
	}
	var row habitWire
	if err := s.api.Do(ctx, http.MethodPost, "/habits", newHabitRequest(in), &row); err != nil {
		return domain.Habit{}, err
	}
	return row.domain(), nil
}

// Update replaces the editable fields of a habit.
func (s *HabitService) Update(ctx context.Context, id int64, in domain.HabitInput) (domain.Habit, error) {
	if err := in.Validate(); err != nil {
		return domain.Habit{}, err
	}
	var row habitWire
	if err := s.api.Do(ctx, http.MethodPut, habitPath(id, ""), newHabitRequest(in), &row); err != nil {
		return domain.Habit{}, err
	}
	return row.domain(), nil
}

// Delete removes a habit.
func (s *HabitService) Delete(ctx context.Context, id int64) error {
	return s.api.Do(ctx, http.MethodDelete, habitPath(id, ""), nil, nil)
}

// Log records one occurrence of a habit.
func (s *HabitService) Log(ctx context.Context, id int64) (domain.HabitLog, error) {
	var row habitLogWire
	if err := s.api.Do(ctx, http.MethodPost, habitPath(id, "log"), nil, &row); err != nil {
		return domain.HabitLog{}, err
	}
	return row.domain(id), nil
}

// Logs returns the log history of a habit.
func (s *HabitService) Logs(ctx context.Context, id int64) ([]domain.HabitLog, error) {
	var rows []habitLogWire
	if err := s.api.Do(ctx, http.MethodGet, habitPath(id, "logs"), nil, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.HabitLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.domain(id))
	}
	return out, nil
}

// WeeklyProgress returns this week's log counts for a habit.
func (s *HabitService) WeeklyProgress(ctx context.Context, id int64) (domain.WeeklyProgress, error) {
	var raw json.RawMessage
	if err := s.api.Do(ctx, http.MethodGet, habitPath(id, "weekly-progress"), nil, &raw); err != nil {
		return domain.WeeklyProgress{HabitID: id}, err
	}
	return weeklyProgressFrom(id, raw)
}

// MaxStreak returns the highest current streak across habits, for display only.
func (s *HabitService) MaxStreak(ctx context.Context) (int, error) {
	habits, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return domain.MaxStreak(habits), nil
}

func habitPath(id int64, action string) string {
	path := "/habits/" + strconv.FormatInt(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

// AnalyticsService reads aggregate views. Nothing it returns is mutated locally.
type AnalyticsService struct {
	api Requester
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(api Requester) *AnalyticsService {
	return &AnalyticsService{api: api}
}

// Summary returns the aggregate snapshot for a date range.
func (s *AnalyticsService) Summary(ctx context.Context, start, end time.Time) (domain.Summary, error) {
	if end.Before(start) {
		return domain.Summary{}, ErrInvalidRange
	}
	q := url.Values{"startDate": {formatDate(start)}, "endDate": {formatDate(end)}}
	var raw json.RawMessage
	if err := s.api.Do(ctx, http.MethodGet, "/analytics/summary?"+q.Encode(), nil, &raw); err != nil {
		return domain.Summary{}, err
	}
	var w summaryWire
	if payload := unwrap(raw); len(payload) > 0 {
		if err := json.Unmarshal(payload, &w); err != nil {
			return domain.Summary{}, fmt.Errorf("decode summary: %w", err)
		}
	}
	return domain.Summary{
		TotalTasks:       w.TotalTasks,
		CompletedTasks:   w.CompletedTasks,
		ActiveHabits:     w.ActiveHabits,
		ConsistencyScore: w.ConsistencyScore,
		BestDay:          w.BestDay,
		WorstDay:         w.WorstDay,
	}, nil
}

// TaskCompletion returns completed tasks per day for the last days.
func (s *AnalyticsService) TaskCompletion(ctx context.Context, days int) (domain.Series, error) {
	if days <= 0 {
		return domain.Series{}, ErrInvalidDays
	}
	var w completionWire
	path := "/analytics/task-completion?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &w); err != nil {
		return domain.Series{}, err
	}
	return seriesFromMap(w.CompletionByDay, w.TotalTasks), nil
}

// HabitConsistency returns habit logs per day for the last days.
func (s *AnalyticsService) HabitConsistency(ctx context.Context, days int) (domain.Series, error) {
	if days <= 0 {
		return domain.Series{}, ErrInvalidDays
	}
	var w consistencyWire
	path := "/analytics/habit-consistency?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &w); err != nil {
		return domain.Series{}, err
	}
	return seriesFromMap(w.ConsistencyByDay, w.TotalDays), nil
}

// BestWorstDays names the strongest and weakest days of the last days ending at now.
func (s *AnalyticsService) BestWorstDays(ctx context.Context, days int, now time.Time) (domain.BestWorstDays, error) {
	if days <= 0 {
		return domain.BestWorstDays{}, ErrInvalidDays
	}
	end := domain.StartOfDay(now)
	start := end.AddDate(0, 0, -days+1)
	q := url.Values{"startDate": {formatDate(start)}, "endDate": {formatDate(end)}}
	var w bestWorstWire
	if err := s.api.Do(ctx, http.MethodGet, "/analytics/best-worst-days?"+q.Encode(), nil, &w); err != nil {
		return domain.BestWorstDays{}, err
	}
	return domain.BestWorstDays(w), nil
}

// AuthService maps account intents onto API calls.
type AuthService struct {
	api Requester
}

// NewAuthService constructs an AuthService.
func NewAuthService(api Requester) *AuthService {
	return &AuthService{api: api}
}

// Register creates an account.
func (s *AuthService) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, err
	}
	req := registerRequest{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	var w userWire
	if err := s.api.Do(ctx, http.MethodPost, "/users/register", req, &w); err != nil {
		return domain.User{}, err
	}
	return w.domain(), nil
}

// Login exchanges credentials for a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", domain.User{}, domain.ErrInvalidUsername
	}
	if password == "" {
		return "", domain.User{}, domain.ErrInvalidPassword
	}
	var resp loginResponse
	if err := s.api.Do(ctx, http.MethodPost, "/users/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return "", domain.User{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", domain.User{}, fmt.Errorf("login response: %w", ErrNotAuthenticated)
	}
	user := resp.user()
	if user.Username == "" {
		user.Username = username
	}
	return resp.Token, user, nil
}

// Profile returns the authenticated user.
func (s *AuthService) Profile(ctx context.Context) (domain.User, error) {
	var w userWire
	if err := s.api.Do(ctx, http.MethodGet, "/users/profile", nil, &w); err != nil {
		return domain.User{}, err
	}
	return w.domain(), nil
}

// UpdateProfile sends a partial profile update.
func (s *AuthService) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.User, error) {
	req := profileRequest(patch)
	var w userWire
	if err := s.api.Do(ctx, http.MethodPut, "/users/profile", req, &w); err != nil {
		return domain.User{}, err
	}
	return w.domain(), nil
}
