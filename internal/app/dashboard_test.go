package app

import (
	"context"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/evanschultz/trackit/internal/events"
)

func dashboardAPI() *fakeAPI {
	api := newFakeAPI()
	api.on(http.MethodGet, "/tasks/analytics", `{"totalTasks":10,"completedTasks":4,"completionRate":40}`)
	api.on(http.MethodGet, "/tasks/today", `[{"id":1,"title":"a","dueDate":"2026-02-21"},{"id":2,"title":"b","dueDate":"2026-02-21"}]`)
	api.on(http.MethodGet, "/tasks/overdue", `[{"id":3,"title":"c","dueDate":"2026-02-19"}]`)
	api.on(http.MethodGet, "/habits", `[{"id":1,"name":"Read","streak":3},{"id":2,"name":"Run","streak":0}]`)
	api.on(http.MethodGet, "/analytics/task-completion?days=7", `{"completionByDay":{"2026-02-20":2,"2026-02-21":1},"totalTasks":10}`)
	api.on(http.MethodGet, "/analytics/habit-consistency?days=7", `{"consistencyByDay":{"2026-02-19":1,"2026-02-21":2},"totalDays":7}`)
	return api
}

func newTestDashboard(api *fakeAPI) *Dashboard {
	return NewDashboard(NewTaskService(api), NewHabitService(api), NewAnalyticsService(api), DashboardConfig{Days: 7, RecentLimit: 1}, nil)
}

func TestDashboardLoadMergesSeries(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	data, err := newTestDashboard(dashboardAPI()).Load(context.Background(), now)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if data.Partial() {
		t.Fatalf("unexpected failed series %v", data.Failed)
	}
	s := data.Stats
	if s.TotalTasks != 10 || s.CompletedTasks != 4 || s.PendingTasks != 2 || s.OverdueTasks != 1 || s.TotalHabits != 2 || s.ActiveHabits != 1 || s.MaxStreak != 3 {
		t.Fatalf("unexpected stats %#v", s)
	}
	if len(data.RecentTasks) != 1 || len(data.RecentHabits) != 1 {
		t.Fatalf("recent limit not applied: %d tasks %d habits", len(data.RecentTasks), len(data.RecentHabits))
	}
	labels := make([]string, 0, len(data.Weekly))
	for _, bar := range data.Weekly {
		labels = append(labels, bar.Label)
	}
	if !slices.Equal(labels, []string{"Thu", "Fri", "Sat"}) {
		t.Fatalf("weekly labels = %v", labels)
	}
	last := data.Weekly[2]
	if last.TasksCompleted != 1 || last.HabitsLogged != 2 {
		t.Fatalf("unexpected last bar %#v", last)
	}
}

func TestDashboardLoadDefaultsFailedSeries(t *testing.T) {
	api := dashboardAPI()
	api.fail(http.MethodGet, "/tasks/analytics", errServer)
	api.fail(http.MethodGet, "/analytics/habit-consistency?days=7", errServer)
	data, err := newTestDashboard(api).Load(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !slices.Equal(data.Failed, []string{SeriesHabitConsistency, SeriesTaskAnalytics}) {
		t.Fatalf("Failed = %v", data.Failed)
	}
	if data.Stats.TotalTasks != 0 || data.Analytics.ByPriority == nil {
		t.Fatalf("expected zero-value analytics defaults, got %#v", data.Analytics)
	}
	if data.Stats.PendingTasks != 2 || len(data.Weekly) != 2 {
		t.Fatalf("healthy series were not kept: stats %#v weekly %#v", data.Stats, data.Weekly)
	}
}

func TestDashboardLoadHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestDashboard(dashboardAPI()).Load(ctx, time.Now()); err == nil {
		t.Fatal("expected context error")
	}
}

func TestDashboardWatchRefreshesOnChanges(t *testing.T) {
	bus := events.New()
	refreshes := 0
	stop := newTestDashboard(dashboardAPI()).Watch(bus, func(events.Event) { refreshes++ })
	bus.Publish(events.TopicTasksChanged, nil)
	bus.Publish(events.TopicHabitsChanged, nil)
	bus.Publish(events.TopicSessionStarted, nil)
	if refreshes != 2 {
		t.Fatalf("refreshes = %d, want 2", refreshes)
	}
	stop()
	stop()
	bus.Publish(events.TopicTasksChanged, nil)
	if refreshes != 2 || bus.SubscriberCount() != 0 {
		t.Fatalf("expected no refresh after stop (refreshes=%d subs=%d)", refreshes, bus.SubscriberCount())
	}
}
