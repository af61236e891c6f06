package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
	"github.com/evanschultz/trackit/internal/notify"
	"github.com/evanschultz/trackit/internal/resource"
)

// TaskStore is the task collection the model drives.
type TaskStore interface {
	FetchAll(context.Context) error
	Items() []domain.Task
	Create(context.Context, domain.TaskInput) (domain.Task, error)
	Delete(context.Context, int64) error
	ToggleComplete(context.Context, int64) (domain.Task, bool, error)
	Archive(context.Context, int64) (domain.Task, bool, error)
}

// HabitStore is the habit collection the model drives.
type HabitStore interface {
	FetchAll(context.Context) error
	Items() []domain.Habit
	Create(context.Context, domain.HabitInput) (domain.Habit, error)
	Delete(context.Context, int64) error
	LogOccurrence(context.Context, int64) (domain.Habit, bool, error)
}

// DashboardLoader loads the composite overview.
type DashboardLoader interface {
	Load(context.Context, time.Time) (app.DashboardData, error)
}

// Services bundles the model's collaborators.
type Services struct {
	Tasks     TaskStore
	Habits    HabitStore
	Dashboard DashboardLoader
}

type tab int

const (
	tabDashboard tab = iota
	tabTasks
	tabHabits
)

var tabTitles = []string{"Dashboard", "Tasks", "Habits"}

type inputMode int

const (
	modeNone inputMode = iota
	modeAddTask
	modeAddHabit
	modeInfo
	modeConfirmDelete
)

// taskView selects which slice of the task list is shown.
type taskView int

const (
	viewAll taskView = iota
	viewToday
	viewOverdue
	viewUpcoming
)

var taskViewNames = []string{"all", "today", "overdue", "upcoming"}

// add-task form field indexes.
const (
	taskFieldTitle = iota
	taskFieldDue
	taskFieldPriority
	taskFieldCategory
)

// loadedMsg carries one full reload.
type loadedMsg struct {
	tasks     []domain.Task
	habits    []domain.Habit
	dashboard app.DashboardData
	err       error
}

// dashboardMsg carries a dashboard-only reload.
type dashboardMsg struct {
	data app.DashboardData
	err  error
}

// DataChangedMsg tells the model that a task or habit collection changed,
// whoever made the change. Send it from a bus subscription.
type DataChangedMsg struct {
	Topic string
}

// actionMsg reports the outcome of one mutation.
type actionMsg struct {
	status string
	err    error
}

type notificationMsg struct {
	notification notify.Notification
}

type configReloadedMsg struct {
	config  RuntimeConfig
	err     error
	watched bool
}

type clipboardMsg struct {
	text string
	err  error
}

// Model is the Bubble Tea model for the trackit terminal UI.
type Model struct {
	svc Services

	width  int
	height int
	ready  bool
	err    error
	status string

	tab       tab
	view      taskView
	taskIndex int
	habitIdx  int

	tasks     []domain.Task
	habits    []domain.Habit
	dashboard app.DashboardData

	mode       inputMode
	formInputs []textinput.Model
	formFocus  int
	pendingDel int64

	help     help.Model
	keys     keyMap
	markdown *markdownRenderer

	config         RuntimeConfig
	reloadConfig   func() (RuntimeConfig, error)
	configUpdates  <-chan RuntimeConfig
	notifications  <-chan notify.Notification
	writeClipboard func(string) error
	now            func() time.Time
}

// NewModel constructs a Model over svc.
func NewModel(svc Services, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:            svc,
		status:         "loading...",
		help:           h,
		keys:           newKeyMap(),
		markdown:       newMarkdownRenderer("dark"),
		config:         DefaultRuntimeConfig(),
		writeClipboard: clipboard.WriteAll,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init starts the first load and the background listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadData, m.waitForNotification(), m.waitForConfig())
}

// Update applies one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.tasks = msg.tasks
		m.habits = msg.habits
		m.dashboard = msg.dashboard
		m.err = msg.err
		m.clampSelections()
		if msg.err == nil && (m.status == "" || m.status == "loading...") {
			m.status = "ready"
		}
		return m, nil

	case dashboardMsg:
		if msg.err != nil {
			m.status = "dashboard: " + msg.err.Error()
			return m, nil
		}
		m.dashboard = msg.data
		return m, nil

	case actionMsg:
		m.syncFromStores()
		if msg.err != nil {
			m.status = resource.MessageOf(msg.err)
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case DataChangedMsg:
		m.syncFromStores()
		return m, m.loadDashboard

	case notificationMsg:
		m.status = msg.notification.Message
		return m, m.waitForNotification()

	case configReloadedMsg:
		if msg.err != nil {
			m.status = "reload config failed: " + msg.err.Error()
			return m, nil
		}
		WithRuntimeConfig(msg.config)(&m)
		m.clampSelections()
		m.status = "config reloaded"
		if msg.watched {
			return m, m.waitForConfig()
		}
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied " + strconv.Quote(msg.text)
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// loadData fetches both collections and the dashboard.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	var errs []error
	if m.svc.Tasks != nil {
		if err := m.svc.Tasks.FetchAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.svc.Habits != nil {
		if err := m.svc.Habits.FetchAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	msg := loadedMsg{err: errors.Join(errs...)}
	if m.svc.Tasks != nil {
		msg.tasks = m.svc.Tasks.Items()
	}
	if m.svc.Habits != nil {
		msg.habits = m.svc.Habits.Items()
	}
	if m.svc.Dashboard != nil {
		data, err := m.svc.Dashboard.Load(ctx, m.now())
		if err != nil {
			msg.err = errors.Join(msg.err, err)
		}
		msg.dashboard = data
	}
	return msg
}

// loadDashboard refreshes only the dashboard.
func (m Model) loadDashboard() tea.Msg {
	if m.svc.Dashboard == nil {
		return nil
	}
	data, err := m.svc.Dashboard.Load(context.Background(), m.now())
	return dashboardMsg{data: data, err: err}
}

func (m Model) waitForNotification() tea.Cmd {
	if m.notifications == nil {
		return nil
	}
	ch := m.notifications
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{notification: n}
	}
}

func (m Model) waitForConfig() tea.Cmd {
	if m.configUpdates == nil {
		return nil
	}
	ch := m.configUpdates
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return configReloadedMsg{config: cfg, watched: true}
	}
}

func (m Model) reloadRuntimeConfigCmd() tea.Cmd {
	fn := m.reloadConfig
	return func() tea.Msg {
		if fn == nil {
			return configReloadedMsg{err: fmt.Errorf("config reload callback is unavailable")}
		}
		cfg, err := fn()
		return configReloadedMsg{config: cfg, err: err}
	}
}

// syncFromStores copies the current store contents into the model.
func (m *Model) syncFromStores() {
	if m.svc.Tasks != nil {
		m.tasks = m.svc.Tasks.Items()
	}
	if m.svc.Habits != nil {
		m.habits = m.svc.Habits.Items()
	}
	m.clampSelections()
}

// visibleTasks returns the tasks for the active view.
func (m Model) visibleTasks() []domain.Task {
	now := m.now()
	var out []domain.Task
	switch m.view {
	case viewToday:
		out = domain.FilterTasks(m.tasks, func(t domain.Task) bool { return domain.IsDueToday(t, now) })
	case viewOverdue:
		out = domain.FilterTasks(m.tasks, func(t domain.Task) bool { return domain.IsOverdue(t, now) })
	case viewUpcoming:
		days := m.config.UpcomingDays
		out = domain.FilterTasks(m.tasks, func(t domain.Task) bool { return domain.IsUpcoming(t, now, days) })
	default:
		out = domain.FilterTasks(m.tasks, func(t domain.Task) bool { return m.config.ShowArchived || !t.Archived })
	}
	if m.view != viewAll {
		domain.SortTasksByDue(out)
	}
	return out
}

func (m Model) selectedTask() (domain.Task, bool) {
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[clamp(m.taskIndex, 0, len(tasks)-1)], true
}

func (m Model) selectedHabit() (domain.Habit, bool) {
	if len(m.habits) == 0 {
		return domain.Habit{}, false
	}
	return m.habits[clamp(m.habitIdx, 0, len(m.habits)-1)], true
}

func (m *Model) clampSelections() {
	m.taskIndex = clamp(m.taskIndex, 0, max(0, len(m.visibleTasks())-1))
	m.habitIdx = clamp(m.habitIdx, 0, max(0, len(m.habits)-1))
}

// handleNormalModeKey handles keys outside of forms and modals.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.reloadConfig):
		return m, m.reloadRuntimeConfigCmd()
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.nextTab):
		m.tab = (m.tab + 1) % tab(len(tabTitles))
		return m, nil
	case key.Matches(msg, m.keys.prevTab):
		m.tab = (m.tab + tab(len(tabTitles)) - 1) % tab(len(tabTitles))
		return m, nil
	case key.Matches(msg, m.keys.dashboardTab):
		m.tab = tabDashboard
		return m, nil
	case key.Matches(msg, m.keys.tasksTab):
		m.tab = tabTasks
		return m, nil
	case key.Matches(msg, m.keys.habitsTab):
		m.tab = tabHabits
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.moveSelection(-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.moveSelection(1)
		return m, nil
	}

	switch m.tab {
	case tabTasks:
		return m.handleTaskKey(msg)
	case tabHabits:
		return m.handleHabitKey(msg)
	}
	return m, nil
}

func (m *Model) moveSelection(delta int) {
	switch m.tab {
	case tabTasks:
		m.taskIndex = clamp(m.taskIndex+delta, 0, max(0, len(m.visibleTasks())-1))
	case tabHabits:
		m.habitIdx = clamp(m.habitIdx+delta, 0, max(0, len(m.habits)-1))
	}
}

func (m Model) handleTaskKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cycleView):
		m.view = (m.view + 1) % taskView(len(taskViewNames))
		m.taskIndex = 0
		m.status = "view: " + taskViewNames[m.view]
		return m, nil
	case key.Matches(msg, m.keys.add):
		cmd := m.startTaskForm()
		return m, cmd
	}

	task, ok := m.selectedTask()
	if !ok {
		return m, nil
	}
	tasks := m.svc.Tasks
	switch {
	case key.Matches(msg, m.keys.info):
		m.mode = modeInfo
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		return m, func() tea.Msg {
			_, found, err := tasks.ToggleComplete(context.Background(), task.ID)
			if err == nil && !found {
				err = fmt.Errorf("task %d is no longer loaded", task.ID)
			}
			return actionMsg{err: err}
		}
	case key.Matches(msg, m.keys.archive):
		return m, func() tea.Msg {
			_, _, err := tasks.Archive(context.Background(), task.ID)
			return actionMsg{err: err}
		}
	case key.Matches(msg, m.keys.delete):
		m.mode = modeConfirmDelete
		m.pendingDel = task.ID
		return m, nil
	case key.Matches(msg, m.keys.yank):
		text := task.Title
		if task.Description != "" {
			text += "\n\n" + task.Description
		}
		return m, m.copyCmd(text)
	}
	return m, nil
}

func (m Model) handleHabitKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.add) {
		cmd := m.startHabitForm()
		return m, cmd
	}
	habit, ok := m.selectedHabit()
	if !ok {
		return m, nil
	}
	habits := m.svc.Habits
	switch {
	case key.Matches(msg, m.keys.logHabit), key.Matches(msg, m.keys.toggle):
		return m, func() tea.Msg {
			_, _, err := habits.LogOccurrence(context.Background(), habit.ID)
			return actionMsg{err: err}
		}
	case key.Matches(msg, m.keys.info):
		m.mode = modeInfo
		return m, nil
	case key.Matches(msg, m.keys.delete):
		m.mode = modeConfirmDelete
		m.pendingDel = habit.ID
		return m, nil
	case key.Matches(msg, m.keys.yank):
		return m, m.copyCmd(habit.Name)
	}
	return m, nil
}

func (m Model) copyCmd(text string) tea.Cmd {
	write := m.writeClipboard
	return func() tea.Msg {
		return clipboardMsg{text: text, err: write(text)}
	}
}

// handleInputModeKey routes keys while a form or modal is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeInfo:
		if msg.String() == "esc" || key.Matches(msg, m.keys.info) || key.Matches(msg, m.keys.quit) {
			m.mode = modeNone
		}
		return m, nil
	case modeConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			return m.confirmDelete()
		case "n", "esc":
			m.mode = modeNone
			m.pendingDel = 0
			m.status = "delete cancelled"
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.formInputs = nil
		m.status = "cancelled"
		return m, nil
	case "tab", "down":
		cmd := m.focusFormField(m.formFocus + 1)
		return m, cmd
	case "shift+tab", "up":
		cmd := m.focusFormField(m.formFocus - 1)
		return m, cmd
	case "enter":
		return m.submitForm()
	}
	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

// confirmDelete performs the pessimistic delete for the pending id.
func (m Model) confirmDelete() (tea.Model, tea.Cmd) {
	id := m.pendingDel
	m.mode = modeNone
	m.pendingDel = 0
	m.status = "deleting..."
	if m.tab == tabHabits {
		habits := m.svc.Habits
		return m, func() tea.Msg {
			return actionMsg{err: habits.Delete(context.Background(), id)}
		}
	}
	tasks := m.svc.Tasks
	return m, func() tea.Msg {
		return actionMsg{err: tasks.Delete(context.Background(), id)}
	}
}

func newFormInput(prompt, placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	return in
}

func (m *Model) startTaskForm() tea.Cmd {
	m.mode = modeAddTask
	m.formInputs = []textinput.Model{
		newFormInput("title: ", "what needs doing", 200),
		newFormInput("due: ", "today, tomorrow, +3d, or YYYY-MM-DD", 40),
		newFormInput("priority: ", "low, medium, high", 10),
		newFormInput("category: ", "optional", 60),
	}
	m.formFocus = 0
	return m.formInputs[0].Focus()
}

func (m *Model) startHabitForm() tea.Cmd {
	m.mode = modeAddHabit
	m.formInputs = []textinput.Model{
		newFormInput("name: ", "habit name", 120),
		newFormInput("frequency: ", "daily, weekly, monthly", 10),
	}
	m.formFocus = 0
	return m.formInputs[0].Focus()
}

func (m *Model) focusFormField(idx int) tea.Cmd {
	if len(m.formInputs) == 0 {
		return nil
	}
	m.formFocus = wrapIndex(idx, len(m.formInputs))
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	return m.formInputs[m.formFocus].Focus()
}

func (m Model) formValue(idx int) string {
	if idx < 0 || idx >= len(m.formInputs) {
		return ""
	}
	return strings.TrimSpace(m.formInputs[idx].Value())
}

// submitForm validates the open form and dispatches the create.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddTask:
		due, err := parseDueInput(m.formValue(taskFieldDue), m.now())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		var priority domain.Priority
		if raw := m.formValue(taskFieldPriority); raw != "" {
			priority, err = domain.ParsePriority(raw)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
		}
		in := domain.TaskInput{
			Title:    m.formValue(taskFieldTitle),
			DueDate:  due,
			Priority: priority,
			Category: m.formValue(taskFieldCategory),
		}.Normalize()
		if err := in.Validate(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.mode = modeNone
		m.formInputs = nil
		m.status = "creating task..."
		tasks := m.svc.Tasks
		return m, func() tea.Msg {
			_, err := tasks.Create(context.Background(), in)
			return actionMsg{err: err}
		}

	case modeAddHabit:
		var freq domain.Frequency
		if raw := m.formValue(1); raw != "" {
			parsed, err := domain.ParseFrequency(raw)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			freq = parsed
		}
		in := domain.HabitInput{Name: m.formValue(0), Frequency: freq}.Normalize()
		if err := in.Validate(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.mode = modeNone
		m.formInputs = nil
		m.status = "creating habit..."
		habits := m.svc.Habits
		return m, func() tea.Msg {
			_, err := habits.Create(context.Background(), in)
			return actionMsg{err: err}
		}
	}
	return m, nil
}

// parseDueInput accepts today, tomorrow, +Nd, or a YYYY-MM-DD date in now's location.
func parseDueInput(raw string, now time.Time) (time.Time, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	today := domain.StartOfDay(now)
	switch {
	case raw == "" || raw == "today":
		return today, nil
	case raw == "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case strings.HasPrefix(raw, "+") && strings.HasSuffix(raw, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(raw, "+"), "d"))
		if err != nil || days < 0 {
			return time.Time{}, fmt.Errorf("due offset %q must look like +3d", raw)
		}
		return today.AddDate(0, 0, days), nil
	}
	due, err := time.ParseInLocation("2006-01-02", raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("due date %q must be YYYY-MM-DD", raw)
	}
	return due, nil
}

// View renders the model.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the full screen as text.
func (m Model) render() string {
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	sections := []string{titleStyle.Render("trackit") + "  " + m.renderTabs(accent, muted), ""}
	if m.err != nil {
		sections = append(sections,
			lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render("error: "+resource.MessageOf(m.err)),
			statusStyle.Render("press r to retry"),
			"")
	}
	switch m.tab {
	case tabDashboard:
		sections = append(sections, m.renderDashboard(accent, muted))
	case tabTasks:
		sections = append(sections, m.renderTasks(accent, muted))
	case tabHabits:
		sections = append(sections, m.renderHabits(accent, muted))
	}
	if modal := m.renderModal(accent, muted); modal != "" {
		sections = append(sections, "", modal)
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	footer := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(statusStyle.Render(m.status) + "\n" + helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(footer)))
	}

	return content + "\n" + footer
}

func (m Model) renderTabs(accent, muted color.Color) string {
	active := lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(muted)
	parts := make([]string, 0, len(tabTitles))
	for i, title := range tabTitles {
		label := fmt.Sprintf("%d %s", i+1, title)
		if tab(i) == m.tab {
			parts = append(parts, active.Render(label))
			continue
		}
		parts = append(parts, inactive.Render(label))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderDashboard(accent, muted color.Color) string {
	d := m.dashboard
	head := lipgloss.NewStyle().Bold(true).Foreground(accent)
	sub := lipgloss.NewStyle().Foreground(muted)
	lines := []string{
		head.Render("Overview"),
		fmt.Sprintf("Tasks   %d total · %d done · %d pending · %d overdue",
			d.Stats.TotalTasks, d.Stats.CompletedTasks, d.Stats.PendingTasks, d.Stats.OverdueTasks),
		fmt.Sprintf("Habits  %d total · %d active · best streak %d",
			d.Stats.TotalHabits, d.Stats.ActiveHabits, d.Stats.MaxStreak),
		fmt.Sprintf("Done    %.0f%%", d.Stats.CompletionRate),
	}
	if d.Partial() {
		lines = append(lines, sub.Render("unavailable: "+strings.Join(d.Failed, ", ")))
	}
	if len(d.Weekly) > 0 {
		lines = append(lines, "", head.Render("This week"))
		for _, bar := range d.Weekly {
			lines = append(lines, fmt.Sprintf("%-3s %s %d tasks · %d habits",
				bar.Label,
				lipgloss.NewStyle().Foreground(accent).Render(strings.Repeat("█", min(bar.TasksCompleted+bar.HabitsLogged, 30))),
				bar.TasksCompleted, bar.HabitsLogged))
		}
	}
	if len(d.RecentTasks) > 0 {
		lines = append(lines, "", head.Render("Recent tasks"))
		for _, t := range d.RecentTasks {
			lines = append(lines, "  "+taskLine(t, m.now()))
		}
	}
	if len(d.RecentHabits) > 0 {
		lines = append(lines, "", head.Render("Habits"))
		for _, h := range d.RecentHabits {
			lines = append(lines, "  "+habitLine(h))
		}
	}
	if !d.LoadedAt.IsZero() {
		lines = append(lines, "", sub.Render("loaded "+d.LoadedAt.Local().Format("15:04:05")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTasks(accent, muted color.Color) string {
	tasks := m.visibleTasks()
	head := lipgloss.NewStyle().Bold(true).Foreground(accent)
	lines := []string{head.Render(fmt.Sprintf("Tasks (%s) %d", taskViewNames[m.view], len(tasks)))}
	if len(tasks) == 0 {
		return strings.Join(append(lines, lipgloss.NewStyle().Foreground(muted).Render("nothing here · press n to add a task")), "\n")
	}
	selected := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	overdue := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	archived := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	now := m.now()
	for i, t := range tasks {
		line := taskLine(t, now)
		switch {
		case i == m.taskIndex:
			line = selected.Render("› " + line)
		case t.Archived:
			line = archived.Render("  " + line)
		case domain.IsOverdue(t, now):
			line = overdue.Render("  " + line)
		default:
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHabits(accent, muted color.Color) string {
	head := lipgloss.NewStyle().Bold(true).Foreground(accent)
	lines := []string{head.Render(fmt.Sprintf("Habits %d", len(m.habits)))}
	if len(m.habits) == 0 {
		return strings.Join(append(lines, lipgloss.NewStyle().Foreground(muted).Render("no habits yet · press n to add one")), "\n")
	}
	selected := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	for i, h := range m.habits {
		if i == m.habitIdx {
			lines = append(lines, selected.Render("› "+habitLine(h)))
			continue
		}
		lines = append(lines, "  "+habitLine(h))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderModal(accent, muted color.Color) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(max(30, min(m.width-4, 90)))
	hint := lipgloss.NewStyle().Foreground(muted)
	switch m.mode {
	case modeAddTask, modeAddHabit:
		title := "New task"
		if m.mode == modeAddHabit {
			title = "New habit"
		}
		rows := []string{lipgloss.NewStyle().Bold(true).Render(title)}
		for _, in := range m.formInputs {
			rows = append(rows, in.View())
		}
		rows = append(rows, hint.Render("tab next field · enter save · esc cancel"))
		return box.Render(strings.Join(rows, "\n"))
	case modeConfirmDelete:
		return box.Render(fmt.Sprintf("Delete #%d? %s", m.pendingDel, hint.Render("y confirm · n cancel")))
	case modeInfo:
		if m.tab == tabHabits {
			h, ok := m.selectedHabit()
			if !ok {
				return ""
			}
			rows := []string{lipgloss.NewStyle().Bold(true).Render(h.Name), habitLine(h)}
			if body := m.markdown.render(h.Description, max(0, m.width-10)); body != "" {
				rows = append(rows, "", body)
			}
			return box.Render(strings.Join(rows, "\n"))
		}
		t, ok := m.selectedTask()
		if !ok {
			return ""
		}
		rows := []string{
			lipgloss.NewStyle().Bold(true).Render(t.Title),
			fmt.Sprintf("due %s · %s · repeats %s", t.DueDate.Local().Format("Mon Jan 2 2006"), t.Priority, t.RepeatType),
		}
		if t.Category != "" {
			rows = append(rows, "category "+t.Category)
		}
		if t.EstimatedHours != nil {
			rows = append(rows, fmt.Sprintf("estimate %.1fh", *t.EstimatedHours))
		}
		if body := m.markdown.render(t.Description, max(0, m.width-10)); body != "" {
			rows = append(rows, "", body)
		}
		rows = append(rows, "", hint.Render("esc close · y copy"))
		return box.Render(strings.Join(rows, "\n"))
	}
	return ""
}

func taskLine(t domain.Task, now time.Time) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	parts := []string{check, t.Title, "due " + t.DueDate.In(now.Location()).Format("2006-01-02"), string(t.Priority)}
	if t.Category != "" {
		parts = append(parts, "#"+t.Category)
	}
	if t.Archived {
		parts = append(parts, "(archived)")
	}
	return strings.Join(parts, "  ")
}

func habitLine(h domain.Habit) string {
	line := fmt.Sprintf("%s  %s  streak %d (best %d)", h.Name, strings.ToLower(string(h.Frequency)), h.Streak, h.LongestStreak)
	if h.LastLogDate != nil {
		line += "  last " + h.LastLogDate.Local().Format("2006-01-02")
	}
	return line
}

// fitLines truncates or pads content to exactly height lines.
func fitLines(content string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

func wrapIndex(idx, total int) int {
	if total <= 0 {
		return 0
	}
	return ((idx % total) + total) % total
}
