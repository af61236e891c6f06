package tui

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"

	"github.com/evanschultz/trackit/internal/domain"
	"github.com/evanschultz/trackit/internal/events"
)

// TestModelWithTeatest renders the first load and quits.
func TestModelWithTeatest(t *testing.T) {
	m, _, _, _ := newTestModel()
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Overview")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: '2', Text: "2"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Write report")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestModelWithTeatestRefreshesOnBusEvent wires the model to a bus the same way
// the CLI does and checks that a change made elsewhere reaches the dashboard.
func TestModelWithTeatestRefreshesOnBusEvent(t *testing.T) {
	m, tasks, _, dash := newTestModel()
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	bus := events.New()
	bus.Subscribe("tasks.", func(e events.Event) {
		tm.Send(DataChangedMsg{Topic: e.Topic})
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Overview")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	added := domain.Task{ID: 9, Title: "Call plumber", DueDate: fixedNow}
	tasks.items = append(tasks.items, added)
	dash.data.RecentTasks = []domain.Task{added}
	bus.Publish("tasks.changed", nil)

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "plumber")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}
