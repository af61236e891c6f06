package tui

import "charm.land/bubbles/v2/key"

// keyMap holds every binding the model reacts to.
type keyMap struct {
	quit         key.Binding
	reload       key.Binding
	reloadConfig key.Binding
	toggleHelp   key.Binding
	nextTab      key.Binding
	prevTab      key.Binding
	dashboardTab key.Binding
	tasksTab     key.Binding
	habitsTab    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	cycleView    key.Binding
	add          key.Binding
	info         key.Binding
	toggle       key.Binding
	archive      key.Binding
	logHabit     key.Binding
	delete       key.Binding
	yank         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		reloadConfig: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload config")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextTab:      key.NewBinding(key.WithKeys("tab", "L"), key.WithHelp("tab", "next tab")),
		prevTab:      key.NewBinding(key.WithKeys("shift+tab", "H"), key.WithHelp("shift+tab", "prev tab")),
		dashboardTab: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
		tasksTab:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "tasks")),
		habitsTab:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "habits")),
		moveUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		cycleView:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "cycle task view")),
		add:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		info:         key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "details")),
		toggle:       key.NewBinding(key.WithKeys("x", "space"), key.WithHelp("x", "toggle done")),
		archive:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
		logHabit:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log habit")),
		delete:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		yank:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	}
}

// ShortHelp returns the compact help row.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextTab, k.add, k.toggle, k.logHabit, k.info, k.delete, k.toggleHelp, k.quit}
}

// FullHelp returns the expanded help grid.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextTab, k.prevTab, k.dashboardTab, k.tasksTab, k.habitsTab, k.moveUp, k.moveDown},
		{k.add, k.info, k.toggle, k.archive, k.logHabit, k.delete, k.yank, k.cycleView},
		{k.reload, k.reloadConfig, k.toggleHelp, k.quit},
	}
}
