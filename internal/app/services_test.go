package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/evanschultz/trackit/internal/domain"
)

func TestTaskServiceCreateSendsWirePayload(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodPost, "/tasks", `{"id":42,"title":"Buy milk","dueDate":"2024-01-01T10:00:00","priority":"LOW","repeatType":"NONE","completed":false,"archived":false,"createdAt":"2024-01-01T09:00:00.123456"}`)
	svc := NewTaskService(api)

	due := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	got, err := svc.Create(context.Background(), domain.TaskInput{Title: " Buy milk ", DueDate: due, Priority: domain.PriorityLow, RepeatType: domain.RepeatNone})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.ID != 42 || got.Title != "Buy milk" || !got.DueDate.Equal(due) || got.Priority != domain.PriorityLow {
		t.Fatalf("unexpected task %#v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected createdAt with fractional seconds to parse")
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(api.lastBody(http.MethodPost, "/tasks")), &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["title"] != "Buy milk" || sent["dueDate"] != "2024-01-01T10:00:00" || sent["priority"] != "LOW" || sent["repeatType"] != "NONE" {
		t.Fatalf("unexpected payload %#v", sent)
	}
	if _, ok := sent["category"]; ok {
		t.Fatalf("empty category should be omitted: %#v", sent)
	}
}

func TestTaskServiceCreateRejectsMissingFields(t *testing.T) {
	api := newFakeAPI()
	svc := NewTaskService(api)
	if _, err := svc.Create(context.Background(), domain.TaskInput{Title: "x"}); !errors.Is(err, domain.ErrInvalidDueDate) {
		t.Fatalf("expected ErrInvalidDueDate, got %v", err)
	}
	if api.called(http.MethodPost, "/tasks") != 0 {
		t.Fatal("invalid input must not reach the API")
	}
}

func TestTaskServiceQueryPaths(t *testing.T) {
	api := newFakeAPI()
	for _, path := range []string{
		"/tasks/upcoming?days=3",
		"/tasks/category/home%2Foffice",
		"/tasks/priority/HIGH",
		"/tasks/history?end=2026-02-28&start=2026-02-01",
	} {
		api.on(http.MethodGet, path, `[]`)
	}
	svc := NewTaskService(api)
	ctx := context.Background()
	if _, err := svc.Upcoming(ctx, 3); err != nil {
		t.Fatalf("Upcoming() error = %v", err)
	}
	if _, err := svc.ByCategory(ctx, "home/office"); err != nil {
		t.Fatalf("ByCategory() error = %v", err)
	}
	if _, err := svc.ByPriority(ctx, "high"); err != nil {
		t.Fatalf("ByPriority() error = %v", err)
	}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.History(ctx, start, start.AddDate(0, 0, 27)); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if _, err := svc.History(ctx, start, start.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := svc.Upcoming(ctx, 0); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("expected ErrInvalidDays, got %v", err)
	}
}

func TestTaskServicePropagatesErrorsUnchanged(t *testing.T) {
	api := newFakeAPI()
	api.fail(http.MethodPatch, "/tasks/7/complete", errServer)
	svc := NewTaskService(api)
	if _, err := svc.Complete(context.Background(), 7); err != errServer {
		t.Fatalf("expected the client error unchanged, got %v", err)
	}
}

func TestTaskAnalyticsDefaults(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodGet, "/tasks/analytics", `{"totalTasks":4}`)
	got, err := NewTaskService(api).Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if got.Total != 4 || got.Completed != 0 || got.ByPriority == nil || got.ByCategory == nil {
		t.Fatalf("unexpected analytics %#v", got)
	}
}

func TestHabitServiceStreakFields(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodGet, "/habits", `[{"id":1,"name":"Read","frequency":"daily","streak":4},{"id":2,"name":"Run","frequency":"WEEKLY","currentStreak":9,"longestStreak":12,"lastLogDate":"2026-02-20"}]`)
	svc := NewHabitService(api)
	habits, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if habits[0].Streak != 4 || habits[0].Frequency != domain.FrequencyDaily {
		t.Fatalf("unexpected first habit %#v", habits[0])
	}
	if habits[1].Streak != 9 || habits[1].LongestStreak != 12 || habits[1].LastLogDate == nil {
		t.Fatalf("unexpected second habit %#v", habits[1])
	}
	best, err := svc.MaxStreak(context.Background())
	if err != nil || best != 9 {
		t.Fatalf("MaxStreak() = %d, %v", best, err)
	}
}

func TestHabitServiceLogAndProgress(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodPost, "/habits/3/log", `{"id":10,"habit":{"id":3},"user":{"id":1},"logDate":"2026-02-21"}`)
	api.on(http.MethodGet, "/habits/3/weekly-progress", `[1,0,1,1,0,0,0]`)
	api.on(http.MethodGet, "/habits/4/weekly-progress", `{"TUESDAY":2,"MONDAY":1}`)
	svc := NewHabitService(api)
	ctx := context.Background()

	entry, err := svc.Log(ctx, 3)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if entry.ID != 10 || entry.HabitID != 3 || entry.UserID != 1 || entry.LogDate.Day() != 21 {
		t.Fatalf("unexpected log %#v", entry)
	}
	progress, err := svc.WeeklyProgress(ctx, 3)
	if err != nil || progress.Total() != 3 || len(progress.Counts) != 7 {
		t.Fatalf("WeeklyProgress(3) = %#v, %v", progress, err)
	}
	progress, err = svc.WeeklyProgress(ctx, 4)
	if err != nil || progress.Labels[0] != "MONDAY" || progress.Counts[1] != 2 {
		t.Fatalf("WeeklyProgress(4) = %#v, %v", progress, err)
	}
}

func TestAnalyticsServiceSeriesAndEnvelope(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodGet, "/analytics/task-completion?days=7", `{"completionByDay":{"2026-02-20":3,"2026-02-18":1,"bogus":9},"totalTasks":10}`)
	api.on(http.MethodGet, "/analytics/summary?endDate=2026-02-21&startDate=2026-02-15", `{"success":true,"data":{"totalTasks":5,"activeHabits":2,"consistencyScore":0.5,"bestDay":"MONDAY"}}`)
	api.on(http.MethodGet, "/analytics/best-worst-days?endDate=2026-02-21&startDate=2026-02-15", `{"bestDay":"MONDAY","bestDayLogs":4,"worstDay":"SUNDAY","worstDayLogs":0}`)
	svc := NewAnalyticsService(api)
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 18, 0, 0, 0, time.UTC)

	series, err := svc.TaskCompletion(ctx, 7)
	if err != nil {
		t.Fatalf("TaskCompletion() error = %v", err)
	}
	if len(series.Points) != 2 || series.Points[0].Date.Day() != 18 || series.Points[1].Completed != 3 || series.Total != 10 {
		t.Fatalf("unexpected series %#v", series)
	}
	summary, err := svc.Summary(ctx, now.AddDate(0, 0, -6), now)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.TotalTasks != 5 || summary.ActiveHabits != 2 || summary.BestDay != "MONDAY" {
		t.Fatalf("unexpected summary %#v", summary)
	}
	bw, err := svc.BestWorstDays(ctx, 7, now)
	if err != nil || bw.BestDayLogs != 4 || bw.WorstDay != "SUNDAY" {
		t.Fatalf("BestWorstDays() = %#v, %v", bw, err)
	}
}

func TestAuthServiceLoginShapes(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodPost, "/users/login", `{"token":"abc","tokenType":"Bearer","userId":7,"username":"ada"}`)
	token, user, err := NewAuthService(api).Login(context.Background(), "ada", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "abc" || user.ID != 7 || user.Username != "ada" {
		t.Fatalf("unexpected login result %q %#v", token, user)
	}

	api.on(http.MethodPost, "/users/login", `{"token":"def","user":{"id":8,"username":"bob"}}`)
	_, user, err = NewAuthService(api).Login(context.Background(), "bob", "pw")
	if err != nil || user.ID != 8 {
		t.Fatalf("Login() nested user = %#v, %v", user, err)
	}

	api.on(http.MethodPost, "/users/login", `{}`)
	if _, _, err := NewAuthService(api).Login(context.Background(), "x", "pw"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for empty token, got %v", err)
	}
}

func TestUserJSONRoundTripKeepsProfile(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := domain.User{ID: 3, Username: "ada", Email: "a@b.c", FirstName: "Ada", CreatedAt: &created}
	raw, err := UserToJSON(in)
	if err != nil {
		t.Fatalf("UserToJSON() error = %v", err)
	}
	out, err := UserFromJSON(raw)
	if err != nil {
		t.Fatalf("UserFromJSON() error = %v", err)
	}
	if out.ID != 3 || out.Email != "a@b.c" || out.FirstName != "Ada" || out.CreatedAt == nil || !out.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %#v", out)
	}
}
