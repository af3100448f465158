// Package tui is a terminal host for the whiteboard. It renders canvas
// frames into character cells and feeds mouse and keyboard input back into
// the same canvas controller the HTTP API drives.
//
// The model is used from the bubbletea event loop only.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aiscribe/scribe/internal/ai"
	"github.com/aiscribe/scribe/internal/assistant"
	"github.com/aiscribe/scribe/internal/canvas"
	"github.com/aiscribe/scribe/internal/credentials"
	"github.com/aiscribe/scribe/internal/graph"
	"github.com/aiscribe/scribe/internal/mapfile"
)

const (
	doubleClickWindow = 400 * time.Millisecond
	panelWidth        = 44
	headerRows        = 1
	footerRows        = 2
)

// =============================================================================
// Modes and messages
// =============================================================================

type inputMode int

const (
	modeCanvas inputMode = iota
	modeTheme
	modeEdit
	modeKey
)

// aiDoneMsg carries the result of an assistant run.
type aiDoneMsg struct {
	action  ai.Action
	outcome *assistant.Outcome
	err     error
}

// =============================================================================
// Model
// =============================================================================

// Deps are the collaborators the terminal host drives. Assistant and
// Credentials may be nil.
type Deps struct {
	Store       *graph.Store
	Canvas      *canvas.Controller
	Assistant   *assistant.Assistant
	Credentials *credentials.Service
	ExportDir   string
	Now         func() time.Time
}

// Model is the bubbletea model of the terminal whiteboard.
type Model struct {
	deps Deps

	width, height int
	mode          inputMode
	input         textinput.Model
	spinner       spinner.Model
	help          help.Model
	keys          keyMap
	status        string

	lastMouseX, lastMouseY int
	lastClickAt            time.Time
	lastClickNode          string
}

// New returns a model ready to run.
func New(d Deps) Model {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ExportDir == "" {
		d.ExportDir = "."
	}
	m := Model{
		deps:    d,
		width:   80,
		height:  24,
		input:   textinput.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    defaultKeyMap(),
	}
	m.input.CharLimit = 200
	if d.Store.Snapshot().IsEmpty() {
		m.openPrompt(modeTheme, "", "Theme for a new map")
	}
	return m
}

// Run starts the terminal whiteboard and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, d Deps) error {
	p := tea.NewProgram(New(d),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// canvasSize is the drawable area in cells.
func (m Model) canvasSize() (int, int) {
	w := m.width
	if m.panelVisible() {
		w -= panelWidth
	}
	h := m.height - headerRows - footerRows
	return max(w, 0), max(h, 0)
}

func (m Model) panelVisible() bool {
	if m.deps.Assistant == nil {
		return false
	}
	st := m.deps.Assistant.State()
	return st.Loading || st.Markdown != "" || st.Notice != "" || st.Error != ""
}

// =============================================================================
// Update
// =============================================================================

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case aiDoneMsg:
		return m.handleAIDone(msg)

	case spinner.TickMsg:
		if m.deps.Assistant == nil || !m.deps.Assistant.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.mode == modeCanvas || m.mode == modeEdit {
			m.handleMouse(msg)
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode != modeCanvas {
			return m.updatePrompt(msg)
		}
		return m.updateCanvasKeys(msg)
	}
	return m, nil
}

// handleMouse maps a terminal mouse event onto the controller. Cell
// coordinates become canvas screen pixels at the cell centre; motion is
// reported as a pixel delta.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	cw, ch := m.canvasSize()
	col, row := msg.X, msg.Y-headerRows
	inCanvas := col >= 0 && row >= 0 && col < cw && row < ch
	ctrl := m.deps.Canvas

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			ctrl.Wheel(-100)
			return
		case tea.MouseButtonWheelDown:
			ctrl.Wheel(100)
			return
		case tea.MouseButtonLeft:
		default:
			return
		}
		if !inCanvas {
			return
		}
		if m.mode == modeEdit {
			// Clicking away commits the editor, as PointerDown does.
			m.closePrompt()
		}
		x, y := cellCenter(col, row)
		target := ctrl.HitTest(x, y)
		ctrl.PointerDown(target)
		m.lastMouseX, m.lastMouseY = msg.X, msg.Y

		now := m.deps.Now()
		if target.Kind == canvas.TargetNode && target.NodeID == m.lastClickNode &&
			now.Sub(m.lastClickAt) <= doubleClickWindow {
			ctrl.PointerUp()
			m.beginEdit(target.NodeID)
			m.lastClickNode = ""
			return
		}
		m.lastClickAt = now
		m.lastClickNode = ""
		if target.Kind == canvas.TargetNode {
			m.lastClickNode = target.NodeID
		}

	case tea.MouseActionMotion:
		if ctrl.Mode() == canvas.ModeIdle {
			return
		}
		dx := float64(msg.X-m.lastMouseX) * cellWidth
		dy := float64(msg.Y-m.lastMouseY) * cellHeight
		m.lastMouseX, m.lastMouseY = msg.X, msg.Y
		if !inCanvas {
			ctrl.PointerLeave()
			return
		}
		ctrl.PointerMove(dx, dy)

	case tea.MouseActionRelease:
		ctrl.PointerUp()
	}
}

func (m Model) updateCanvasKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.deps.Canvas
	store := m.deps.Store
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, k.NewMap):
		m.openPrompt(modeTheme, "", "Theme for a new map")
		return m, textinput.Blink
	case key.Matches(msg, k.AddChild):
		if store.Theme() == "" && len(store.Snapshot().Nodes) == 0 {
			m.status = "Start a map first (n)."
			break
		}
		ctrl.AddChildOfSelection()
	case key.Matches(msg, k.Delete):
		ctrl.DeleteSelection()
	case key.Matches(msg, k.Edit):
		if sel := store.Selection(); sel != "" {
			m.beginEdit(sel)
			return m, textinput.Blink
		}
	case key.Matches(msg, k.NudgeUp):
		ctrl.NudgeSelection(0, -cellHeight)
	case key.Matches(msg, k.NudgeDown):
		ctrl.NudgeSelection(0, cellHeight)
	case key.Matches(msg, k.NudgeLeft):
		ctrl.NudgeSelection(-cellWidth, 0)
	case key.Matches(msg, k.NudgeRight):
		ctrl.NudgeSelection(cellWidth, 0)
	case key.Matches(msg, k.PanUp):
		ctrl.Pan(0, cellHeight*2)
	case key.Matches(msg, k.PanDown):
		ctrl.Pan(0, -cellHeight*2)
	case key.Matches(msg, k.PanLeft):
		ctrl.Pan(cellWidth*4, 0)
	case key.Matches(msg, k.PanRight):
		ctrl.Pan(-cellWidth*4, 0)
	case key.Matches(msg, k.ZoomIn):
		ctrl.ZoomIn()
	case key.Matches(msg, k.ZoomOut):
		ctrl.ZoomOut()
	case key.Matches(msg, k.ResetView):
		ctrl.ResetView()
	case key.Matches(msg, k.Layout):
		store.AutoLayout()
	case key.Matches(msg, k.Expand):
		return m.startAI(ai.ActionExpand)
	case key.Matches(msg, k.Organize):
		return m.startAI(ai.ActionOrganize)
	case key.Matches(msg, k.Summary):
		return m.startAI(ai.ActionSummary)
	case key.Matches(msg, k.Missing):
		return m.startAI(ai.ActionMissing)
	case key.Matches(msg, k.Dismiss):
		if m.deps.Assistant != nil {
			m.deps.Assistant.DismissError()
		}
		m.status = ""
	case key.Matches(msg, k.APIKey):
		if m.deps.Credentials == nil {
			m.status = "Credential storage is not available."
			break
		}
		m.openPrompt(modeKey, "", "API key")
		return m, textinput.Blink
	case key.Matches(msg, k.Export):
		path, err := mapfile.WriteFile(m.deps.ExportDir, store.Snapshot(), m.deps.Now())
		if err != nil {
			m.status = "Export failed: " + err.Error()
		} else {
			m.status = "Exported to " + path
		}
	case key.Matches(msg, k.ResetMap):
		store.Reset()
		ctrl.ResetView()
		m.status = "Map cleared."
	}
	return m, nil
}

// =============================================================================
// Prompts
// =============================================================================

func (m *Model) openPrompt(mode inputMode, value, placeholder string) {
	m.mode = mode
	m.input.Reset()
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.input.EchoMode = textinput.EchoNormal
	if mode == modeKey {
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	}
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) closePrompt() {
	if m.mode == modeEdit {
		m.deps.Canvas.ConfirmEdit()
	}
	m.mode = modeCanvas
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) beginEdit(id string) {
	if !m.deps.Canvas.BeginEdit(id) {
		return
	}
	edit, _ := m.deps.Canvas.Editing()
	m.openPrompt(modeEdit, edit.Draft, "Title")
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == modeEdit {
			m.deps.Canvas.CancelEdit()
		}
		m.mode = modeCanvas
		m.input.Blur()
		return m, nil

	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEnter:
		value := m.input.Value()
		switch m.mode {
		case modeTheme:
			if _, ok := m.deps.Canvas.StartMap(value); !ok {
				m.status = "Theme must not be empty."
				return m, nil
			}
			m.status = ""
		case modeEdit:
			m.deps.Canvas.SetDraft(value)
		case modeKey:
			if err := m.deps.Credentials.Set(context.Background(), value); err != nil {
				m.status = "Could not save key: " + err.Error()
				return m, nil
			}
			if m.deps.Assistant != nil {
				m.deps.Assistant.DismissError()
			}
			m.status = "API key saved."
		}
		m.closePrompt()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeEdit {
		m.deps.Canvas.SetDraft(m.input.Value())
	}
	return m, cmd
}

// =============================================================================
// AI
// =============================================================================

func (m Model) startAI(action ai.Action) (tea.Model, tea.Cmd) {
	a := m.deps.Assistant
	if a == nil {
		m.status = "No AI provider is configured."
		return m, nil
	}
	if a.Busy() {
		m.status = "An AI action is already running."
		return m, nil
	}
	m.status = ""
	run := func() tea.Msg {
		out, err := a.Run(context.Background(), action, "")
		return aiDoneMsg{action: action, outcome: out, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) handleAIDone(msg aiDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		if msg.outcome != nil && len(msg.outcome.Added) > 0 {
			m.status = fmt.Sprintf("Added %d node(s).", len(msg.outcome.Added))
		}
	case errors.Is(msg.err, assistant.ErrNoMap):
		m.status = "Start a map first (n)."
	case errors.Is(msg.err, assistant.ErrBusy):
		m.status = "An AI action is already running."
	case ai.IsMissingCredential(msg.err):
		if m.deps.Credentials != nil {
			m.openPrompt(modeKey, "", "API key required")
			return m, textinput.Blink
		}
		m.status = "An API key is required: run `scribe key set`."
	}
	return m, nil
}

// =============================================================================
// View
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1)
)

func (m Model) View() string {
	cw, ch := m.canvasSize()
	frame := m.deps.Canvas.Frame()

	title := "AI Scribe"
	if frame.Theme != "" {
		title += " · " + frame.Theme
	}
	header := headerStyle.Render(title) + dimStyle.Render(
		fmt.Sprintf("  zoom %.0f%%  nodes %d", frame.View.Zoom*100, len(frame.Nodes)))

	body := renderCanvas(frame, cw, ch)
	if m.panelVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.panelView(ch))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.footerView())
}

func (m Model) panelView(height int) string {
	st := m.deps.Assistant.State()
	inner := panelWidth - 4

	var parts []string
	if st.Action != "" {
		parts = append(parts, headerStyle.Render(strings.ToUpper(string(st.Action))))
	}
	if st.Error != "" {
		parts = append(parts, errorStyle.Render(st.Error))
	}
	if st.Notice != "" {
		parts = append(parts, noticeStyle.Render(st.Notice))
	}
	if st.Loading {
		parts = append(parts, m.spinner.View()+" Thinking...")
	} else if st.Markdown != "" {
		parts = append(parts, renderMarkdown(st.Markdown, inner))
	}

	content := strings.Join(parts, "\n\n")
	lines := strings.Split(content, "\n")
	if limit := height - 2; limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	return panelStyle.Width(panelWidth - 2).Height(max(height-2, 0)).Render(strings.Join(lines, "\n"))
}

func (m Model) footerView() string {
	var line string
	switch m.mode {
	case modeTheme:
		line = "New map: " + m.input.View()
	case modeEdit:
		line = "Title: " + m.input.View()
	case modeKey:
		line = "API key: " + m.input.View()
	default:
		line = m.help.View(m.keys)
	}
	status := dimStyle.Render(m.status)
	if m.status == "" {
		status = dimStyle.Render(string(m.deps.Canvas.Mode()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, line)
}
