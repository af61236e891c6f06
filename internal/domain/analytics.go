package domain

import "time"

// Summary is the aggregate analytics snapshot for a date range.
type Summary struct {
	TotalTasks       int
	CompletedTasks   int
	ActiveHabits     int
	ConsistencyScore float64
	BestDay          string
	WorstDay         string
}

// TaskAnalytics holds task counters computed by the server.
type TaskAnalytics struct {
	Total          int
	Completed      int
	Overdue        int
	Today          int
	CompletionRate float64
	ByPriority     map[string]int
	ByCategory     map[string]int
}

// DailyPoint is one day of a completion or consistency series.
type DailyPoint struct {
	Date      time.Time
	Completed int
	Total     int
}

// Series is a date-ordered list of daily points.
type Series struct {
	Points []DailyPoint
	Total  int
}

// BestWorstDays names the most and least productive weekdays.
type BestWorstDays struct {
	BestDay      string
	BestDayLogs  int
	WorstDay     string
	WorstDayLogs int
}

// WeeklyBar is one merged day of the dashboard chart.
type WeeklyBar struct {
	Date           time.Time
	Label          string
	TasksCompleted int
	HabitsLogged   int
}
