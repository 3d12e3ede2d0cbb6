package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-player/internal/canvas"
	"github.com/vovakirdan/tui-player/internal/core"
	"github.com/vovakirdan/tui-player/internal/host"
)

const helpText = " ^O file  ^U url  ^S sample  ^R restart  ^C quit  │  arrows z x q w enter shift"

type promptKind int

const (
	promptNone promptKind = iota
	promptFile
	promptURL
)

const (
	headerRows = 1
	helpRows   = 1
	minLogRows = 3
)

// layout splits the terminal into header, canvas, controller pad, help
// line and log panel, top to bottom.
type layout struct {
	canvas core.Rect
	pad    core.Rect
	help   int
	log    core.Rect
}

func computeLayout(width, height, padW, padH int) layout {
	logH := max(minLogRows, height/5)
	canvasH := max(height-headerRows-padH-helpRows-logH, 0)

	var l layout
	l.canvas = core.NewRect(0, headerRows, width, canvasH)
	l.pad = core.NewRect(max((width-padW)/2, 0), headerRows+canvasH, padW, padH)
	l.help = headerRows + canvasH + padH
	l.log = core.NewRect(0, l.help+helpRows, width, max(height-l.help-helpRows, 0))
	return l
}

// Model is the Bubble Tea model for one player terminal.
type Model struct {
	player  *Player
	initial Source
	keys    *KeyMapper
	painter *Painter

	prompt  textinput.Model
	asking  promptKind
	logView viewport.Model

	width    int
	height   int
	layout   layout
	quitting bool
}

// NewModel creates a model that runs initial once started.
func NewModel(p *Player, initial Source, painter *Painter, width, height int) Model {
	if painter == nil {
		painter = NewPainter(nil)
	}
	ti := textinput.New()
	ti.CharLimit = 2048

	m := Model{
		player:  p,
		initial: initial,
		keys:    NewKeyMapper(),
		painter: painter,
		prompt:  ti,
		logView: viewport.New(width, minLogRows),
	}
	return m.resize(width, height)
}

// Init starts the initial run and the refresh loop.
func (m Model) Init() tea.Cmd {
	p, src := m.player, m.initial
	return tea.Batch(
		tea.SetWindowTitle("tui-player"),
		waitRefresh(p.Refresh()),
		func() tea.Msg {
			p.Run(src)
			return nil
		},
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case RefreshMsg:
		return m.syncLog(), waitRefresh(m.player.Refresh())

	case tea.KeyMsg:
		if m.asking != promptNone {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.BlurMsg:
		m.player.Buttons.Blur()
		return m, nil
	}

	if m.asking != promptNone {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) resize(width, height int) Model {
	m.width, m.height = width, height
	padW, padH := m.player.Buttons.Size()
	m.layout = computeLayout(width, height, padW, padH)
	m.logView.Width = width
	m.logView.Height = m.layout.log.H
	m.prompt.Width = max(width-12, 10)
	return m.syncLog()
}

func (m Model) syncLog() Model {
	follow := m.logView.AtBottom()
	lines := m.player.UI.Lines()
	for i, line := range lines {
		lines[i] = m.logStyle(line).Render(line)
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.logView.GotoBottom()
	}
	return m
}

func (m Model) logStyle(line string) lipgloss.Style {
	switch {
	case strings.Contains(line, "] ERROR: "):
		return m.painter.Style(core.ColorRed, core.ColorDefault)
	case strings.Contains(line, "] WARN: "):
		return m.painter.Style(core.ColorYellow, core.ColorDefault)
	}
	return m.painter.Style(core.ColorGray, core.ColorDefault)
}

// handleKey processes keyboard input outside prompts.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, keys := m.keys.MapKey(msg)
	switch action {
	case ActionQuit:
		m.quitting = true
		return m, tea.Quit
	case ActionOpenFile:
		return m.ask(promptFile)
	case ActionOpenURL:
		return m.ask(promptURL)
	case ActionSample:
		m.player.RunSample()
	case ActionRestart:
		m.player.Restart()
	case ActionGame:
		if rt := m.player.Runtime(); rt != nil {
			for _, k := range keys {
				rt.Keyboard().Press(k)
			}
		}
	}
	return m, nil
}

func (m Model) ask(kind promptKind) (tea.Model, tea.Cmd) {
	m.asking = kind
	m.prompt.Reset()
	switch kind {
	case promptFile:
		m.prompt.Prompt = " file: "
		m.prompt.Placeholder = "path/to/game.js"
	case promptURL:
		m.prompt.Prompt = " url: "
		m.prompt.Placeholder = "https://example.com/game.js"
	}
	return m, m.prompt.Focus()
}

// handlePromptKey processes keyboard input while a prompt is open.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.keys.MapKeyToPromptAction(msg) {
	case PromptActionQuit:
		m.quitting = true
		return m, tea.Quit
	case PromptActionCancel:
		m.asking = promptNone
		m.prompt.Blur()
		return m, nil
	case PromptActionSubmit:
		value := m.prompt.Value()
		kind := m.asking
		m.asking = promptNone
		m.prompt.Blur()
		if kind == promptFile {
			m.player.RunFile(value)
		} else {
			m.player.RunURL(value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// handleMouse routes mouse events to the controller pad, the canvas
// pointer or the log panel.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	pad := m.layout.pad
	bx, by := msg.X-pad.X, msg.Y-pad.Y
	buttons := m.player.Buttons

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && buttons.MouseDown(bx, by) {
			return m, nil
		}
	case tea.MouseActionMotion:
		buttons.MouseMotion(bx, by)
	case tea.MouseActionRelease:
		buttons.MouseUp(bx, by)
	}

	if tea.MouseEvent(msg).IsWheel() {
		if m.layout.log.Contains(msg.X, msg.Y) {
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	rt := m.player.Runtime()
	if rt == nil {
		return m, nil
	}
	if x, y, ok := m.canvasFit().ToCanvas(msg.X, msg.Y); ok {
		down := msg.Action == tea.MouseActionPress ||
			(msg.Action == tea.MouseActionMotion && msg.Button == tea.MouseButtonLeft)
		rt.Keyboard().Pointer(x, y, down)
	}
	return m, nil
}

func (m Model) frame() *canvas.Frame {
	rt := m.player.Runtime()
	if rt == nil {
		return nil
	}
	fr, _ := rt.Display().Frame()
	return fr
}

func (m Model) canvasFit() fit {
	w, h := m.player.CanvasSize()
	if fr := m.frame(); fr != nil {
		w, h = fr.Width, fr.Height
	}
	return fitFrame(w, h, m.layout.canvas)
}

func statusColor(s host.Status) core.Color {
	switch s {
	case host.StatusReady:
		return core.ColorGreen
	case host.StatusRunning:
		return core.ColorBlue
	case host.StatusBooting:
		return core.ColorYellow
	case host.StatusTimeout, host.StatusError:
		return core.ColorRed
	}
	return core.ColorGray
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting || m.width <= 0 || m.height <= 0 {
		return ""
	}

	scr := core.NewScreen(m.width, m.layout.help)
	m.drawHeader(scr)
	m.drawCanvas(scr)
	m.player.Buttons.Draw(scr, m.layout.pad.X, m.layout.pad.Y)

	help := m.painter.Style(core.ColorGray, core.ColorDefault).MaxWidth(m.width).Render(helpText)
	if m.asking != promptNone {
		help = m.prompt.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.painter.RenderScreen(scr),
		help,
		m.logView.View(),
	)
}

func (m Model) drawHeader(scr *core.Screen) {
	ui := m.player.UI
	status := ui.Status()

	x := 1
	scr.DrawTextColored(x, 0, "tui-player", core.ColorHighlight, core.ColorDefault)
	x += len("tui-player") + 3

	label := "status: " + string(status)
	scr.DrawTextColored(x, 0, label, statusColor(status), core.ColorDefault)
	x += len(label) + 3

	scr.DrawTextColored(x, 0, "file: "+ui.File(), core.ColorGray, core.ColorDefault)
}

func (m Model) drawCanvas(scr *core.Screen) {
	area := m.layout.canvas
	fr := m.frame()
	if fr == nil {
		const waiting = "waiting for sandbox…"
		x := area.X + max((area.W-len([]rune(waiting)))/2, 0)
		scr.DrawTextColored(x, area.Y+area.H/2, waiting, core.ColorDimGray, core.ColorDefault)
		return
	}
	DrawFrame(scr, fr, area)
}

// Run starts a player in the current terminal and blocks until it quits.
func Run(deps Deps, src Source, width, height int) error {
	p := NewPlayer(deps, os.Stdout, false)
	defer p.Close()

	model := NewModel(p, src, NewPainter(nil), width, height)
	prog := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)

	_, err := prog.Run()
	return err
}
