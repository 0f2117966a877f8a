// Package tui is a thin terminal view over app.App.
//
// The model never owns client state. Key presses become gestures posted to
// the event loop; the loop reports changes through a Bridge and the model
// re-reads a full app.State copy to render.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/papertrail/internal/app"
	"github.com/roach88/papertrail/internal/format"
	"github.com/roach88/papertrail/internal/model"
	"github.com/roach88/papertrail/internal/overlay"
	"github.com/roach88/papertrail/internal/selection"
)

const stateTimeout = 2 * time.Second

// Client runs gestures on the event loop and copies its state.
type Client interface {
	Post(fn func(*app.App)) bool
	State(ctx context.Context) (app.State, error)
}

// ChangedMsg reports that the client state changed.
type ChangedMsg struct{}

// StateMsg carries a fresh copy of the client state.
type StateMsg struct {
	State app.State
	Err   error
}

// Bridge forwards loop notifications to a running program. Pass Changed as
// app.Options.OnChange before the program exists; notifications before
// Attach are dropped.
type Bridge struct {
	prog atomic.Pointer[tea.Program]
}

// Attach starts forwarding to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.prog.Store(p)
}

// Changed is called on the event loop. tea.Program.Send blocks until the
// program reads the message, so it is sent from its own goroutine.
func (b *Bridge) Changed() {
	if p := b.prog.Load(); p != nil {
		go p.Send(ChangedMsg{})
	}
}

// entry is one selectable line: a search result or an overlay action.
type entry struct {
	label  string
	ref    model.EntityRef
	action overlay.Action
}

// Model is the bubbletea model.
type Model struct {
	client Client
	state  app.State
	err    error

	input  textinput.Model
	body   viewport.Model
	cursor int

	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates a model over client.
func New(client Client) Model {
	ti := textinput.New()
	ti.Placeholder = "search"
	ti.Focus()
	return Model{client: client, input: ti}
}

// State returns the last state the model rendered.
func (m Model) State() app.State { return m.state }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.fetch)
}

func (m Model) fetch() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()
	s, err := m.client.State(ctx)
	return StateMsg{State: s, Err: err}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(m.height-8, 3)
		if !m.ready {
			m.body = viewport.New(m.width, h)
			m.ready = true
		} else {
			m.body.Width, m.body.Height = m.width, h
		}
		m.body.SetContent(format.RenderString(m.state))
		return m, nil

	case ChangedMsg:
		return m, m.fetch

	case StateMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.apply(msg.State)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	return m, cmd
}

// apply takes a new state. The input line follows whichever surface owns
// the keyboard: the overlay when open, the page otherwise.
func (m *Model) apply(s app.State) {
	wasOpen := m.state.Overlay.Open
	m.state = s
	m.err = nil
	if wasOpen != s.Overlay.Open {
		m.input.SetValue(m.ownerText())
		m.input.CursorEnd()
		m.cursor = 0
	}
	if n := len(m.entries()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.body.SetContent(format.RenderString(s))
}

func (m Model) ownerText() string {
	switch {
	case m.state.Overlay.Open:
		return m.state.Overlay.Text
	case m.state.Politician != nil:
		return m.state.Politician.Input
	case m.state.Donor != nil:
		return m.state.Donor.Input
	}
	return ""
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if overlay.ParseKey(msg.String()).IsToggleChord() {
		key := overlay.ParseKey(msg.String())
		m.client.Post(func(a *app.App) { a.Overlay().HandleKey(key) })
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(m.entries())-1 {
			m.cursor++
		}
		return m, nil
	case tea.KeyEnter:
		m.enter()
		return m, nil
	case tea.KeyEsc:
		m.escape()
		return m, nil
	case tea.KeyTab:
		m.toggleComparison()
		return m, nil
	case tea.KeyCtrlB:
		m.client.Post(func(a *app.App) { a.Back() })
		return m, nil
	case tea.KeyPgDown:
		m.turnPage(1)
		return m, nil
	case tea.KeyPgUp:
		m.turnPage(-1)
		return m, nil
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if text := m.input.Value(); text != prev {
		m.client.Post(func(a *app.App) {
			if a.Overlay().IsOpen() {
				a.Overlay().SetText(text)
				return
			}
			if p, ok := a.Politicians(); ok {
				p.Input(text)
			} else if p, ok := a.Donors(); ok {
				p.Input(text)
			}
		})
	}
	return m, cmd
}

func (m Model) entries() []entry {
	var out []entry
	if ov := m.state.Overlay; ov.Open {
		if ov.Text == "" {
			for _, a := range overlay.Actions() {
				out = append(out, entry{label: string(a), action: a})
			}
			return out
		}
		for _, p := range ov.Results.Politicians {
			out = append(out, entry{label: format.Politician(p), ref: model.RefOf(p)})
		}
		for _, d := range ov.Results.Donors {
			out = append(out, entry{label: format.Donor(d), ref: model.RefOf(d)})
		}
		return out
	}
	if p := m.state.Politician; p != nil {
		for _, r := range p.Results {
			out = append(out, entry{label: format.Politician(r), ref: model.RefOf(r)})
		}
	}
	if d := m.state.Donor; d != nil {
		for _, r := range d.Results {
			out = append(out, entry{label: format.Donor(r), ref: model.RefOf(r)})
		}
	}
	return out
}

func (m Model) current() (entry, bool) {
	es := m.entries()
	if m.cursor < 0 || m.cursor >= len(es) {
		return entry{}, false
	}
	return es[m.cursor], true
}

// enter selects the highlighted entry. On a page whose typed text has not
// been searched yet, it searches instead.
func (m Model) enter() {
	if m.state.Overlay.Open {
		e, ok := m.current()
		if !ok {
			return
		}
		m.client.Post(func(a *app.App) {
			var err error
			if e.action != "" {
				err = a.Overlay().Run(e.action)
			} else {
				err = a.Overlay().SelectResult(e.ref)
			}
			if err != nil {
				a.Overlay().Hide()
			}
		})
		return
	}

	text := m.input.Value()
	e, ok := m.current()
	if !ok || text != m.searchedQuery() {
		m.client.Post(func(a *app.App) {
			if p, ok := a.Politicians(); ok {
				p.SubmitSearch(text)
			} else if p, ok := a.Donors(); ok {
				p.SubmitSearch(text)
			}
		})
		return
	}
	m.client.Post(func(a *app.App) {
		var err error
		if p, ok := a.Politicians(); ok {
			err = p.SelectResult(e.ref.ID)
		} else if p, ok := a.Donors(); ok {
			err = p.SelectResult(e.ref.ID)
		}
		if err != nil {
			a.Logger().Debug("select ignored", "id", e.ref.ID, "error", err)
		}
	})
}

func (m Model) searchedQuery() string {
	if p := m.state.Politician; p != nil && p.SearchStatus == selection.ResultsShown {
		return p.Query
	}
	if d := m.state.Donor; d != nil && d.SearchStatus == selection.ResultsShown {
		return d.Query
	}
	return ""
}

func (m Model) escape() {
	m.client.Post(func(a *app.App) {
		if a.Overlay().IsOpen() {
			a.Overlay().Hide()
			return
		}
		if p, ok := a.Politicians(); ok {
			if _, selected := p.Selection().Selected(); selected {
				p.ExitDetail()
			} else if len(p.Selection().Comparison()) > 0 {
				p.ExitComparison()
			}
			return
		}
		if p, ok := a.Donors(); ok {
			if _, selected := p.Selection().Selected(); selected {
				p.ExitDetail()
			}
		}
	})
}

func (m Model) toggleComparison() {
	if m.state.Overlay.Open || m.state.Politician == nil {
		return
	}
	e, ok := m.current()
	if !ok {
		return
	}
	m.client.Post(func(a *app.App) {
		if p, ok := a.Politicians(); ok {
			_ = p.ToggleComparison(e.ref.ID)
		}
	})
}

func (m Model) turnPage(delta int) {
	p := m.state.Politician
	if p == nil || p.Selected == nil {
		return
	}
	next := p.VoteQuery.Page + delta
	if next < 1 || (p.Dependent.Pagination.TotalPages > 0 && next > p.Dependent.Pagination.TotalPages) {
		return
	}
	m.client.Post(func(a *app.App) {
		if pp, ok := a.Politicians(); ok {
			pp.Selection().SetPage(next)
		}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := stylesFor(m.state.Overlay.Theme)

	var b strings.Builder
	b.WriteString(st.header.Render(fmt.Sprintf("papertrail  %s", m.state.Location)))
	b.WriteString("\n")

	if m.state.Overlay.Open {
		b.WriteString(st.overlay.Render(m.listView(st, "> "+m.input.View())))
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.listView(st, ""))
		b.WriteString("\n")
		if m.ready {
			b.WriteString(m.body.View())
		} else {
			b.WriteString(format.RenderString(m.state))
		}
	}
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(st.err.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(st.help.Render("ctrl+k palette · enter select · tab compare · esc back · pgup/pgdn votes · ctrl+c quit"))
	return b.String()
}

func (m Model) listView(st styles, title string) string {
	var lines []string
	if title != "" {
		lines = append(lines, title)
	}
	if m.state.Overlay.Open && m.state.Overlay.Loading {
		lines = append(lines, st.help.Render("searching..."))
	}
	for i, e := range m.entries() {
		if i == m.cursor {
			lines = append(lines, st.cursor.Render("▸ "+e.label))
		} else {
			lines = append(lines, "  "+e.label)
		}
	}
	return strings.Join(lines, "\n")
}

type styles struct {
	header  lipgloss.Style
	cursor  lipgloss.Style
	overlay lipgloss.Style
	help    lipgloss.Style
	err     lipgloss.Style
}

func stylesFor(t overlay.Theme) styles {
	fg, accent, muted := lipgloss.Color("235"), lipgloss.Color("25"), lipgloss.Color("244")
	if t == overlay.ThemeDark {
		fg, accent, muted = lipgloss.Color("252"), lipgloss.Color("117"), lipgloss.Color("241")
	}
	return styles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		cursor:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		overlay: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Foreground(fg).Padding(0, 1),
		help:    lipgloss.NewStyle().Foreground(muted),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	}
}
