// Package tui renders a read-only agenda over the derived views: open
// tasks, active goals, and the trailing-week summary.
package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/hylla/loggbok/internal/domain"
	"github.com/hylla/loggbok/internal/render"
)

// Service represents the derived-state queries the agenda reads.
type Service interface {
	OpenTasks(context.Context) ([]domain.TaskView, error)
	ActiveGoals(context.Context) ([]domain.GoalView, error)
	WeeklySummary(context.Context) (domain.WeeklySummary, error)
}

// view tabs shown left to right.
const (
	tabTasks = iota
	tabGoals
	tabWeek
	tabCount
)

// tabTitles stores the header labels in tab order.
var tabTitles = []string{"Tasks", "Goals", "Week"}

// loadedMsg carries one refresh of every derived view.
type loadedMsg struct {
	tasks   []domain.TaskView
	goals   []domain.GoalView
	summary domain.WeeklySummary
	err     error
}

// Model is the agenda program state.
type Model struct {
	svc            Service
	keys           keyMap
	help           help.Model
	renderer       *render.TerminalRenderer
	glamourStyle   string
	writeClipboard func(string) error

	ready   bool
	width   int
	height  int
	tab     int
	cursor  int
	status  string
	err     error
	tasks   []domain.TaskView
	goals   []domain.GoalView
	summary domain.WeeklySummary
}

// NewModel builds the agenda model over a derived-state service.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:            svc,
		keys:           newKeyMap(),
		help:           h,
		status:         "loading...",
		glamourStyle:   "dark",
		writeClipboard: clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.renderer = render.NewTerminalRenderer(m.glamourStyle)
	return m
}

// Init kicks off the first data load.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "load failed"
			return m, nil
		}
		m.err = nil
		m.tasks = msg.tasks
		m.goals = msg.goals
		m.summary = msg.summary
		m.cursor = clamp(m.cursor, 0, m.rowCount()-1)
		m.status = "ready"
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	default:
		return m, nil
	}
}

// handleKey handles one key press in the agenda.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.nextTab):
		m.tab = (m.tab + 1) % tabCount
		m.cursor = 0
		return m, nil
	case key.Matches(msg, m.keys.prevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.cursor = 0
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.cursor = clamp(m.cursor-1, 0, m.rowCount()-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.cursor = clamp(m.cursor+1, 0, m.rowCount()-1)
		return m, nil
	case key.Matches(msg, m.keys.copyID):
		id := m.selectedID()
		if id == "" {
			m.status = "nothing to copy"
			return m, nil
		}
		if err := m.writeClipboard(id); err != nil {
			m.status = "clipboard unavailable"
			return m, nil
		}
		m.status = "copied " + id
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	activeTabStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	tabStyle := lipgloss.NewStyle().Foreground(muted)
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	tabs := make([]string, 0, tabCount)
	for idx, title := range tabTitles {
		if idx == m.tab {
			tabs = append(tabs, activeTabStyle.Render("["+title+"]"))
		} else {
			tabs = append(tabs, tabStyle.Render(" "+title+" "))
		}
	}

	sections := []string{
		titleStyle.Render("loggbok") + "  " + strings.Join(tabs, " "),
		"",
		m.bodyView(),
		"",
		statusStyle.Render(m.status),
		m.help.View(m.keys),
	}
	v := tea.NewView(strings.Join(sections, "\n"))
	v.AltScreen = true
	return v
}

// bodyView renders the active tab.
func (m Model) bodyView() string {
	switch m.tab {
	case tabTasks:
		return m.taskListView()
	case tabGoals:
		return m.goalListView()
	default:
		return m.weekView()
	}
}

// taskListView renders the open-task rows with the selection cursor.
func (m Model) taskListView() string {
	if len(m.tasks) == 0 {
		return "No open tasks."
	}
	selected := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	var b strings.Builder
	for idx, task := range m.tasks {
		marker := "  "
		line := fmt.Sprintf("%s  %s", task.ID, task.Title)
		if task.Due != "" {
			line += sub.Render("  due " + task.Due)
		}
		if task.Priority != "" {
			line += sub.Render("  " + task.Priority)
		}
		if idx == m.cursor {
			marker = "> "
			line = selected.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// goalListView renders the active-goal rows with the selection cursor.
func (m Model) goalListView() string {
	if len(m.goals) == 0 {
		return "No active goals."
	}
	selected := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	var b strings.Builder
	for idx, goal := range m.goals {
		marker := "  "
		line := fmt.Sprintf("%s  %s", goal.ID, goal.Title)
		if goal.LatestStatus != "" {
			line += sub.Render("  " + goal.LatestStatus)
		}
		if goal.TargetDate != "" {
			line += sub.Render("  by " + goal.TargetDate)
		}
		if idx == m.cursor {
			marker = "> "
			line = selected.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// weekView renders the weekly rollup markdown through glamour at the
// current window width.
func (m Model) weekView() string {
	return m.renderer.Render(render.WeeklySummaryMarkdown(m.summary), m.width-4)
}

// rowCount returns the selectable row count of the active tab.
func (m Model) rowCount() int {
	switch m.tab {
	case tabTasks:
		return len(m.tasks)
	case tabGoals:
		return len(m.goals)
	default:
		return 0
	}
}

// selectedID returns the entity id under the cursor, if any.
func (m Model) selectedID() string {
	switch m.tab {
	case tabTasks:
		if m.cursor >= 0 && m.cursor < len(m.tasks) {
			return m.tasks[m.cursor].ID
		}
	case tabGoals:
		if m.cursor >= 0 && m.cursor < len(m.goals) {
			return m.goals[m.cursor].ID
		}
	}
	return ""
}

// loadData loads every derived view in one refresh.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	tasks, err := m.svc.OpenTasks(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	goals, err := m.svc.ActiveGoals(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	summary, err := m.svc.WeeklySummary(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{tasks: tasks, goals: goals, summary: summary}
}

// clamp bounds v into [lo, hi]; hi below lo collapses to lo.
func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
