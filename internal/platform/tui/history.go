package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-player/internal/storage"
)

const (
	minWidthForSidebar = 80
	sidebarWidth       = 22
)

// historyFilters are the origin tabs; "" shows every run.
var historyFilters = []string{"", storage.OriginLocal, storage.OriginURL, storage.OriginSample}

// HistoryKeyMap defines the key bindings for the history browser.
type HistoryKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Next key.Binding
	Prev key.Binding
	Quit key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Next, k.Prev, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Next, k.Prev, k.Quit}}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "scroll up")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "scroll down")),
		Next: key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next origin")),
		Prev: key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("S-tab", "prev origin")),
		Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// HistoryModel browses recorded run attempts grouped by origin.
type HistoryModel struct {
	runs     []storage.Run
	stats    map[string]*storage.OriginStats
	filter   int
	table    table.Model
	help     help.Model
	keys     HistoryKeyMap
	width    int
	height   int
	quitting bool
}

// NewHistoryModel loads up to limit runs from store.
func NewHistoryModel(ctx context.Context, store *storage.Store, limit, width, height int) (HistoryModel, error) {
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return HistoryModel{}, err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return HistoryModel{}, err
	}

	m := HistoryModel{
		runs:   runs,
		stats:  stats,
		help:   help.New(),
		keys:   DefaultHistoryKeyMap(),
		width:  width,
		height: height,
	}
	m.table = m.createTable()
	m.updateRows()
	return m, nil
}

func (m HistoryModel) showSidebar() bool {
	return m.width >= minWidthForSidebar
}

func (m HistoryModel) createTable() table.Model {
	avail := m.width - 6
	if m.showSidebar() {
		avail -= sidebarWidth + 4
	}
	sourceW := max(avail-14-8-9-6, 12)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "When", Width: 14},
			{Title: "Origin", Width: 8},
			{Title: "Outcome", Width: 9},
			{Title: "Source", Width: sourceW},
		}),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

// Visible returns the runs matching the current origin filter.
func (m HistoryModel) Visible() []storage.Run {
	origin := historyFilters[m.filter]
	if origin == "" {
		return m.runs
	}
	var out []storage.Run
	for _, r := range m.runs {
		if r.Origin == origin {
			out = append(out, r)
		}
	}
	return out
}

func (m *HistoryModel) updateRows() {
	runs := m.Visible()
	rows := make([]table.Row, len(runs))
	for i, r := range runs {
		source := r.Source
		if r.Detail != "" {
			source += " (" + r.Detail + ")"
		}
		rows[i] = table.Row{r.CreatedAt.Format("Jan 02 15:04"), r.Origin, r.Outcome, source}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history browser.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.filter = (m.filter + 1) % len(historyFilters)
			m.updateRows()
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.filter = (m.filter + len(historyFilters) - 1) % len(historyFilters)
			m.updateRows()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table = m.createTable()
		m.updateRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func filterLabel(origin string) string {
	if origin == "" {
		return "all"
	}
	return origin
}

// View renders the history browser.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	b.WriteString(titleStyle.Render("RUN HISTORY - " + filterLabel(historyFilters[m.filter])))
	b.WriteString("\n\n")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	content := m.table.View()
	if len(m.Visible()) == 0 {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(1, 2).
			Render("No runs recorded yet.\nStart one with 'player play'.")
	}

	if m.showSidebar() {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			box.Width(sidebarWidth).Render(m.renderSidebar()), "  ", box.Render(content)))
	} else {
		b.WriteString(box.Render(content))
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(m.help.View(m.keys)))
	return b.String()
}

func (m HistoryModel) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString("Origins\n")
	sb.WriteString(strings.Repeat("-", sidebarWidth-4))
	sb.WriteString("\n")

	for i, origin := range historyFilters {
		cursor := "  "
		style := lipgloss.NewStyle()
		if i == m.filter {
			cursor = "> "
			style = style.Bold(true).Foreground(lipgloss.Color("229"))
		}
		label := filterLabel(origin)
		if st, ok := m.stats[origin]; ok {
			label = fmt.Sprintf("%-7s %d/%d", label, st.Started, st.Runs)
		} else if origin == "" {
			label = fmt.Sprintf("%-7s %d", label, len(m.runs))
		}
		sb.WriteString(style.Render(cursor + label))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RunHistory runs the history browser.
func RunHistory(ctx context.Context, store *storage.Store, limit, width, height int) error {
	model, err := NewHistoryModel(ctx, store, limit, width, height)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
