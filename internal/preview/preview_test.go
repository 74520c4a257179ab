package preview

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayeah/runlens/live"
	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
)

type recordingUpdater struct {
	patterns []resolver.Pattern
	runs     [][]string
}

func (r *recordingUpdater) Update(p resolver.Pattern, runIDs []string) {
	r.patterns = append(r.patterns, p)
	r.runs = append(r.runs, runIDs)
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestTypingEditsPattern(t *testing.T) {
	u := &recordingUpdater{}
	m := NewModel(u, []string{"R1"}, resolver.Pattern{})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = typeText(t, m, "train/*")
	assert.Equal(t, resolver.Pattern{Text: "train/*", Mode: resolver.ModeSearch}, m.Pattern())

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, resolver.ModeRegex, m.Pattern().Mode)
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.Equal(t, []resolver.Pattern{{Text: "train/*", Mode: resolver.ModeRegex}}, u.patterns)
	assert.Equal(t, [][]string{{"R1"}}, u.runs)
}

func TestPushCarriesCurrentPattern(t *testing.T) {
	u := &recordingUpdater{}
	m := NewModel(u, []string{"R1", "R2"}, resolver.Pattern{Text: "loss", Mode: resolver.ModeRegex})

	m.push()()
	assert.Equal(t, []resolver.Pattern{{Text: "loss", Mode: resolver.ModeRegex}}, u.patterns)
}

func TestStateRendering(t *testing.T) {
	m := NewModel(&recordingUpdater{}, []string{"R1"}, resolver.Pattern{Text: "loss"})
	assert.Equal(t, "Initializing...", m.View())

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = send(t, m, StateMsg(live.State{
		Phase: live.Ready,
		Matches: []names.Name{
			{Name: "train/loss", Kind: names.KindMetric},
			{Name: "media/loss_curve", Kind: names.KindFile, LogType: names.LogTypeImage},
		},
	}))
	view := m.View()
	assert.Contains(t, view, "Metrics")
	assert.Contains(t, view, "train/loss")
	assert.Contains(t, view, "Files")
	assert.Contains(t, view, "media/loss_curve")
	assert.Contains(t, view, "2 matches")

	m, _ = send(t, m, StateMsg(live.State{Phase: live.Invalid, Invalid: true, Matches: []names.Name{}}))
	assert.Contains(t, m.View(), resolver.InvalidRegexMessage)

	m, _ = send(t, m, StateMsg(live.State{Phase: live.Ready, Matches: []names.Name{}}))
	assert.Contains(t, m.View(), live.MessageNoMatches)
}

func TestExitStates(t *testing.T) {
	m := NewModel(&recordingUpdater{}, nil, resolver.Pattern{})
	confirmed, _ := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ExitStateConfirm, confirmed.ExitState())

	aborted, _ := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ExitStateAbort, aborted.ExitState())
}
