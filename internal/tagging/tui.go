package tagging

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ledgerline/ledgerline/internal/model"
)

type sessionState int

const (
	statePrompting sessionState = iota
	stateEntering
	stateListing
	stateDone
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	rowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	guessStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Session is the interactive tagging loop: one untagged transaction at a
// time, with a guessed tag pair the user can accept, override, or skip.
type Session struct {
	engine *Engine

	state   sessionState
	skipped map[int]bool
	current int
	guess   model.TagPair
	input   textinput.Model
	status  string
	err     error
	tagged  int
}

// NewSession prepares the loop, positioned at the first untagged row.
func NewSession(engine *Engine) *Session {
	input := textinput.New()
	input.Placeholder = "tag, subtag"
	input.CharLimit = 80

	s := &Session{
		engine:  engine,
		skipped: make(map[int]bool),
		input:   input,
	}
	s.advance()
	return s
}

// Done reports whether the loop has nothing left to present.
func (s *Session) Done() bool { return s.state == stateDone }

// Tagged returns the number of rows tagged during this session.
func (s *Session) Tagged() int { return s.tagged }

// Err returns the error that ended the session, if any.
func (s *Session) Err() error { return s.err }

// advance moves to the next untagged row and refreshes the guess.
func (s *Session) advance() {
	index, ok := s.engine.NextUntagged(s.skipped)
	if !ok {
		s.state = stateDone
		return
	}
	guess, err := s.engine.Guess(index)
	if err != nil {
		s.fail(err)
		return
	}
	s.current = index
	s.guess = guess
	s.state = statePrompting
}

func (s *Session) fail(err error) {
	s.err = err
	s.state = stateDone
}

// Init implements tea.Model.
func (s *Session) Init() tea.Cmd { return textinput.Blink }

// Update implements tea.Model.
func (s *Session) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	if key.Type == tea.KeyCtrlC {
		s.state = stateDone
		return s, tea.Quit
	}

	switch s.state {
	case statePrompting:
		return s.updatePrompting(key)
	case stateEntering:
		return s.updateEntering(key)
	case stateListing:
		s.state = statePrompting
		return s, nil
	}
	return s, tea.Quit
}

func (s *Session) updatePrompting(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "g", "tab":
		if err := s.engine.Apply(s.current, s.guess); err != nil {
			s.fail(err)
			return s, tea.Quit
		}
		s.tagged++
		s.status = fmt.Sprintf("tagged as %s", s.guess)
		s.advance()
	case "i", "enter", " ":
		s.input.SetValue("")
		s.input.Focus()
		s.state = stateEntering
		return s, textinput.Blink
	case "s":
		s.skipped[s.current] = true
		s.status = "skipped"
		s.advance()
	case "t":
		s.state = stateListing
	case "q":
		s.state = stateDone
		return s, tea.Quit
	}
	if s.state == stateDone {
		return s, tea.Quit
	}
	return s, nil
}

func (s *Session) updateEntering(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEscape:
		s.input.Blur()
		s.state = statePrompting
		return s, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(s.input.Value())
		s.input.Blur()
		if text == "" {
			s.state = statePrompting
			return s, nil
		}
		pair := model.ParseTagPair(text, ",")
		if err := s.engine.Apply(s.current, pair); err != nil {
			s.fail(err)
			return s, tea.Quit
		}
		s.tagged++
		s.status = fmt.Sprintf("tagged as %s", pair)
		s.advance()
		if s.state == stateDone {
			return s, tea.Quit
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(key)
	return s, cmd
}

// View implements tea.Model.
func (s *Session) View() string {
	if s.state == stateDone {
		if s.err != nil {
			return errStyle.Render(s.err.Error()) + "\n"
		}
		return ""
	}

	var b strings.Builder

	_, untagged := s.engine.Summary()
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(fmt.Sprintf("Tagging: %d untagged", untagged)))

	row := s.engine.Rows()[s.current]
	b.WriteString(rowStyle.Render(fmt.Sprintf("%s  %-10s  %10s  %s",
		row.Date.Format(model.DateFormat), row.Account, row.Amount.StringFixed(2), row.Description)))
	b.WriteString("\n\n")

	switch s.state {
	case stateListing:
		counts, _ := s.engine.Summary()
		for _, c := range counts {
			fmt.Fprintf(&b, "  %4d  %s\n", c.Count, c.Pair)
		}
		b.WriteString("\n" + helpStyle.Render("press any key to return"))
	case stateEntering:
		b.WriteString(s.input.View())
		b.WriteString("\n" + helpStyle.Render("enter: accept • esc: cancel"))
	default:
		fmt.Fprintf(&b, "guess: %s\n\n", guessStyle.Render(s.guess.String()))
		b.WriteString(helpStyle.Render("g/tab: accept guess • i/enter/space: type tag • s: skip • t: list tags • q: quit"))
	}

	if s.status != "" {
		b.WriteString("\n" + statusStyle.Render(s.status))
	}
	b.WriteString("\n")
	return b.String()
}

// Run drives the interactive loop to completion and returns the number of
// rows tagged.
func Run(engine *Engine) (int, error) {
	session := NewSession(engine)
	if session.Done() {
		return 0, session.Err()
	}
	final, err := tea.NewProgram(session).Run()
	if err != nil {
		return 0, fmt.Errorf("running tagging session: %w", err)
	}
	s := final.(*Session)
	return s.Tagged(), s.Err()
}
