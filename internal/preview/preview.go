// Package preview is the terminal live preview: type a pattern and watch the
// names it selects update as the input settles.
package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hayeah/runlens/live"
	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
)

// ExitState indicates how the program is exiting
type ExitState int

const (
	ExitStateNone    ExitState = iota // Not exiting
	ExitStateAbort                    // Esc, Ctrl+C
	ExitStateConfirm                  // Enter
)

// Updater receives every pattern edit. *live.Session implements it.
type Updater interface {
	Update(p resolver.Pattern, runIDs []string)
}

// StateMsg carries a session state into the program.
type StateMsg live.State

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	modeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6")).Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the Bubble Tea model for the preview.
type Model struct {
	input    textinput.Model
	viewport viewport.Model
	ready    bool

	mode    resolver.Mode
	runIDs  []string
	updater Updater

	state     live.State
	exitState ExitState
}

func NewModel(u Updater, runIDs []string, initial resolver.Pattern) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a search, glob or regex..."
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.SetValue(initial.Text)
	ti.Focus()

	mode := initial.Mode
	if mode == "" {
		mode = resolver.ModeSearch
	}
	return Model{
		input:    ti,
		viewport: viewport.New(0, 0), // sized on the first tea.WindowSizeMsg
		mode:     mode,
		runIDs:   runIDs,
		updater:  u,
	}
}

// Pattern is the pattern currently in the input.
func (m Model) Pattern() resolver.Pattern {
	return resolver.Pattern{Text: m.input.Value(), Mode: m.mode}
}

func (m Model) ExitState() ExitState {
	return m.exitState
}

func (m Model) State() live.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.push())
}

// push hands the current pattern to the updater off the event loop. The
// session reports back through Program.Send, which would block if called from
// inside Update.
func (m Model) push() tea.Cmd {
	p, runIDs, u := m.Pattern(), m.runIDs, m.updater
	return func() tea.Msg {
		u.Update(p, runIDs)
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.exitState != ExitStateNone {
		return m, tea.Quit
	}

	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView()) + 1
		footerHeight := 2
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.viewport.YPosition = headerHeight
		if !m.ready {
			m.ready = true
			m.updateViewportContent()
		}

	case StateMsg:
		m.state = live.State(msg)
		m.updateViewportContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.exitState = ExitStateAbort
			return m, tea.Quit
		case "enter":
			m.exitState = ExitStateConfirm
			return m, tea.Quit
		case "tab":
			if m.mode == resolver.ModeRegex {
				m.mode = resolver.ModeSearch
			} else {
				m.mode = resolver.ModeRegex
			}
			return m, m.push()
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		}
	}

	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.input.Value() != before {
		cmds = append(cmds, m.push())
	}

	// Keys belong to the input; the viewport only sees mouse and resize.
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) headerView() string {
	return modeStyle.Render(string(m.mode)) + " " + m.input.View()
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s", m.headerView(), m.viewport.View(), m.statusLine(), m.usageHint())
}

func (m Model) statusLine() string {
	msg := m.state.Message()
	switch {
	case m.state.Invalid:
		return errorStyle.Render(msg)
	case msg != "":
		return dimStyle.Render(fmt.Sprintf("%s (%d shown)", msg, len(m.state.Matches)))
	case m.state.Phase == live.Idle:
		return dimStyle.Render(fmt.Sprintf("%d runs selected", len(m.runIDs)))
	}
	return fmt.Sprintf("%d matches", len(m.state.Matches))
}

func (m Model) usageHint() string {
	return dimStyle.Render("(Tab to switch search/regex, ↑/↓ PgUp/PgDn to scroll, Enter to confirm, Esc/Ctrl+C to abort)")
}

func (m *Model) updateViewportContent() {
	var sb strings.Builder
	var current names.Kind
	for _, n := range m.state.Matches {
		if n.Kind != current {
			current = n.Kind
			sb.WriteString(headingStyle.Render(kindHeading(n.Kind)) + "\n")
		}
		line := "  " + n.Name
		if n.LogType != "" {
			line += " " + dimStyle.Render(string(n.LogType))
		}
		sb.WriteString(line + "\n")
	}
	m.viewport.SetContent(sb.String())
}

func kindHeading(k names.Kind) string {
	switch k {
	case names.KindMetric:
		return "Metrics"
	case names.KindFile:
		return "Files"
	}
	return string(k)
}

type Options struct {
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
	// Output defaults to stderr so the confirmed pattern can be piped.
	Output io.Writer
}

// Run shows the preview until the user confirms or aborts. It returns the
// final pattern and whether it was confirmed.
func Run(ctx context.Context, r live.Resolver, runIDs []string, initial resolver.Pattern, opts Options) (resolver.Pattern, bool, error) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	sessionOpts := []live.Option{live.WithTimeout(opts.Timeout)}
	if opts.Debounce > 0 {
		sessionOpts = append(sessionOpts, live.WithDebounce(opts.Debounce))
	}
	if opts.Logger != nil {
		sessionOpts = append(sessionOpts, live.WithLogger(opts.Logger))
	}

	var p *tea.Program
	sessionOpts = append(sessionOpts, live.WithOnChange(func(st live.State) {
		p.Send(StateMsg(st))
	}))
	session := live.NewSession(r, sessionOpts...)
	defer session.Close()

	p = tea.NewProgram(NewModel(session, runIDs, initial),
		tea.WithContext(ctx),
		tea.WithOutput(opts.Output),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return resolver.Pattern{}, false, err
	}
	fm, ok := final.(Model)
	if !ok {
		return resolver.Pattern{}, false, fmt.Errorf("could not get final model state")
	}
	return fm.Pattern(), fm.ExitState() == ExitStateConfirm, nil
}
