package app

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evanschultz/trackit/internal/domain"
	"github.com/evanschultz/trackit/internal/events"
)

// Dashboard series names, reported in DashboardData.Failed.
const (
	SeriesTaskAnalytics    = "task_analytics"
	SeriesTodayTasks       = "today_tasks"
	SeriesOverdueTasks     = "overdue_tasks"
	SeriesHabits           = "habits"
	SeriesTaskCompletion   = "task_completion"
	SeriesHabitConsistency = "habit_consistency"
)

// DashboardConfig tunes the dashboard load.
type DashboardConfig struct {
	Days        int
	RecentLimit int
}

// DashboardStats are the headline counters.
type DashboardStats struct {
	TotalTasks     int
	CompletedTasks int
	PendingTasks   int
	OverdueTasks   int
	TotalHabits    int
	ActiveHabits   int
	MaxStreak      int
	CompletionRate float64
}

// DashboardData is one composite dashboard load. Series that failed hold their
// zero defaults and are named in Failed.
type DashboardData struct {
	Stats        DashboardStats
	Analytics    domain.TaskAnalytics
	RecentTasks  []domain.Task
	OverdueTasks []domain.Task
	RecentHabits []domain.Habit
	Weekly       []domain.WeeklyBar
	Failed       []string
	LoadedAt     time.Time
}

// Partial reports whether any series fell back to its default.
func (d DashboardData) Partial() bool {
	return len(d.Failed) > 0
}

// Dashboard loads the composite overview.
type Dashboard struct {
	tasks     *TaskService
	habits    *HabitService
	analytics *AnalyticsService
	cfg       DashboardConfig
	logger    Logger
}

// NewDashboard constructs a Dashboard.
func NewDashboard(tasks *TaskService, habits *HabitService, analytics *AnalyticsService, cfg DashboardConfig, logger Logger) *Dashboard {
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Dashboard{tasks: tasks, habits: habits, analytics: analytics, cfg: cfg, logger: logger}
}

// Load issues every series request concurrently and waits for all of them.
// A failing series is logged and defaulted without blocking the others.
func (d *Dashboard) Load(ctx context.Context, now time.Time) (DashboardData, error) {
	var (
		analytics   = domain.TaskAnalytics{ByPriority: map[string]int{}, ByCategory: map[string]int{}}
		today       []domain.Task
		overdue     []domain.Task
		habits      []domain.Habit
		completion  domain.Series
		consistency domain.Series

		mu     sync.Mutex
		failed []string
	)
	fail := func(series string, err error) {
		d.logger.Warn("dashboard series failed", "series", series, "err", err)
		mu.Lock()
		failed = append(failed, series)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		v, err := d.tasks.Analytics(ctx)
		if err != nil {
			fail(SeriesTaskAnalytics, err)
			return nil
		}
		analytics = v
		return nil
	})
	g.Go(func() error {
		v, err := d.tasks.Today(ctx)
		if err != nil {
			fail(SeriesTodayTasks, err)
			return nil
		}
		today = v
		return nil
	})
	g.Go(func() error {
		v, err := d.tasks.Overdue(ctx)
		if err != nil {
			fail(SeriesOverdueTasks, err)
			return nil
		}
		overdue = v
		return nil
	})
	g.Go(func() error {
		v, err := d.habits.List(ctx)
		if err != nil {
			fail(SeriesHabits, err)
			return nil
		}
		habits = v
		return nil
	})
	g.Go(func() error {
		v, err := d.analytics.TaskCompletion(ctx, d.cfg.Days)
		if err != nil {
			fail(SeriesTaskCompletion, err)
			return nil
		}
		completion = v
		return nil
	})
	g.Go(func() error {
		v, err := d.analytics.HabitConsistency(ctx, d.cfg.Days)
		if err != nil {
			fail(SeriesHabitConsistency, err)
			return nil
		}
		consistency = v
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return DashboardData{}, err
	}

	slices.Sort(failed)
	active := 0
	for _, h := range habits {
		if h.Streak > 0 {
			active++
		}
	}
	return DashboardData{
		Stats: DashboardStats{
			TotalTasks:     analytics.Total,
			CompletedTasks: analytics.Completed,
			PendingTasks:   len(today),
			OverdueTasks:   len(overdue),
			TotalHabits:    len(habits),
			ActiveHabits:   active,
			MaxStreak:      domain.MaxStreak(habits),
			CompletionRate: analytics.CompletionRate,
		},
		Analytics:    analytics,
		RecentTasks:  head(today, d.cfg.RecentLimit),
		OverdueTasks: overdue,
		RecentHabits: head(habits, d.cfg.RecentLimit),
		Weekly:       domain.MergeWeekly(completion, consistency),
		Failed:       failed,
		LoadedAt:     now,
	}, nil
}

// Watch calls refresh whenever tasks or habits change. The returned func unsubscribes.
func (d *Dashboard) Watch(bus *events.Bus, refresh func(events.Event)) func() {
	subs := []*events.Subscription{
		bus.Subscribe("tasks.", refresh),
		bus.Subscribe("habits.", refresh),
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, sub := range subs {
				bus.Unsubscribe(sub)
			}
		})
	}
}

func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return slices.Clone(items)
	}
	return slices.Clone(items[:n])
}
