package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/evanschultz/trackit/internal/domain"
)

const (
	dateLayout        = "2006-01-02"
	showMarkdownWidth = 80
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)

// renderTable draws rows under headers with a rounded border.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	for _, row := range rows {
		t.Row(row...)
	}
	return t.String()
}

// writeTasks prints tasks as a table, or a muted placeholder when empty.
func writeTasks(w io.Writer, tasks []domain.Task, now time.Time) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no tasks"))
		return
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			taskStatus(t, now),
			t.Title,
			string(t.Priority),
			formatDue(t.DueDate),
			t.Category,
		})
	}
	_, _ = fmt.Fprintln(w, renderTable([]string{"ID", "Status", "Title", "Priority", "Due", "Category"}, rows))
}

// writeHabits prints habits as a table, or a muted placeholder when empty.
func writeHabits(w io.Writer, habits []domain.Habit) {
	if len(habits) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no habits"))
		return
	}
	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		last := "never"
		if h.LastLogDate != nil {
			last = h.LastLogDate.Format(dateLayout)
		}
		rows = append(rows, []string{
			strconv.FormatInt(h.ID, 10),
			h.Name,
			string(h.Frequency),
			strconv.Itoa(h.Streak),
			strconv.Itoa(h.LongestStreak),
			last,
		})
	}
	_, _ = fmt.Fprintln(w, renderTable([]string{"ID", "Name", "Frequency", "Streak", "Best", "Last log"}, rows))
}

// writeTaskDetail prints one task with its description rendered as markdown.
func writeTaskDetail(w io.Writer, t domain.Task, now time.Time) error {
	fields := [][2]string{
		{"ID", strconv.FormatInt(t.ID, 10)},
		{"Title", t.Title},
		{"Status", taskStatus(t, now)},
		{"Priority", string(t.Priority)},
		{"Repeat", string(t.RepeatType)},
		{"Due", formatDue(t.DueDate)},
		{"Category", valueOr(t.Category, "-")},
		{"Estimated", formatHours(t.EstimatedHours)},
		{"Actual", formatHours(t.ActualHours)},
	}
	if t.CompletedAt != nil {
		fields = append(fields, [2]string{"Completed", t.CompletedAt.Format(time.RFC3339)})
	}
	for _, f := range fields {
		_, _ = fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", f[0]+":")), f[1])
	}
	if strings.TrimSpace(t.Description) == "" {
		return nil
	}
	rendered, err := renderMarkdown(t.Description, showMarkdownWidth)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(w, "\n"+rendered)
	return nil
}

// renderMarkdown renders md with the auto-detected glamour style.
func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("configure markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

func taskStatus(t domain.Task, now time.Time) string {
	switch {
	case t.Archived:
		return "archived"
	case t.Completed:
		return "done"
	case domain.IsOverdue(t, now):
		return "overdue"
	case domain.IsDueToday(t, now):
		return "today"
	default:
		return "open"
	}
}

func formatDue(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format(dateLayout)
	}
	return t.Format("2006-01-02 15:04")
}

func formatHours(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "h"
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
