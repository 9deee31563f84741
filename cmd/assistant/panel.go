package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	assistant "github.com/pantrypal/assistant-core/core"
	"github.com/pantrypal/assistant-core/core/assist"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	phaseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	liveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// stateMsg carries a fresh session snapshot into the bubbletea loop.
type stateMsg assistant.State

type panelModel struct {
	session *assistant.Session
	state   assistant.State
	voice   bool

	spin  spinner.Model
	input textinput.Model
	width int
}

func newPanelModel(session *assistant.Session, voice bool) panelModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	input := textinput.New()
	input.Placeholder = "type a request..."
	input.CharLimit = 280

	return panelModel{
		session: session,
		state:   session.State(),
		voice:   voice,
		spin:    spin,
		input:   input,
		width:   80,
	}
}

func (m panelModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m panelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = assistant.State(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.typing() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m panelModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.ClosePanel()
		return m, tea.Quit
	}

	if m.typing() {
		switch msg.String() {
		case "enter":
			text := m.input.Value()
			m.input.Reset()
			m.input.Blur()
			_ = m.session.StopListening(text)
			return m, nil
		case "esc":
			m.input.Reset()
			m.input.Blur()
			_ = m.session.Cancel()
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.session.ClosePanel()
		return m, tea.Quit

	case "enter", " ":
		switch m.state.Phase {
		case assistant.PhaseListening:
			if m.voice {
				_ = m.session.FinishListening()
			}
		case assistant.PhaseError:
			_ = m.session.Dismiss()
		default:
			if err := m.session.StartListening(context.Background()); err == nil && !m.voice {
				m.input.Focus()
				return m, textinput.Blink
			}
		}

	case "y":
		_ = m.session.Confirm()
	case "n":
		_ = m.session.Reject()

	case "esc":
		switch m.state.Phase {
		case assistant.PhaseListening:
			_ = m.session.Cancel()
		case assistant.PhaseError:
			_ = m.session.Dismiss()
		case assistant.PhaseAwaitingConfirmation:
			_ = m.session.Reject()
		}

	case "r":
		m.input.Reset()
		m.input.Blur()
		m.session.Reset()
	}

	return m, nil
}

func (m panelModel) typing() bool {
	return !m.voice && m.state.Phase == assistant.PhaseListening
}

func (m panelModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Pantry Assistant"))
	b.WriteString(phaseStyle.Render("  " + m.phaseLabel()))
	b.WriteString("\n\n")

	for _, msg := range m.state.History {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	switch m.state.Phase {
	case assistant.PhaseListening:
		if m.typing() {
			b.WriteString("\n" + m.input.View() + "\n")
		} else {
			b.WriteString(m.renderTranscript())
		}

	case assistant.PhaseProcessing:
		b.WriteString("\n" + m.spin.View() + "thinking...\n")

	case assistant.PhaseAwaitingConfirmation:
		if action := m.state.PendingAction; action != nil {
			b.WriteString("\n" + confirmStyle.Render(m.renderConfirmation(action)) + "\n")
		}

	case assistant.PhaseError:
		if m.state.LastError != nil {
			message := fmt.Sprintf("%s error: %s", m.state.LastError.Kind, m.state.LastError.Message)
			b.WriteString("\n" + errorStyle.Render(wordwrap.String(message, m.width-2)) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render(m.helpLine()) + "\n")
	return b.String()
}

func (m panelModel) renderMessage(msg assist.Message) string {
	wrapped := wordwrap.String(msg.Text, m.width-6)
	if msg.Role == assist.RoleUser {
		return userStyle.Render("you  ") + wrapped
	}
	return assistantStyle.Render("asst ") + wrapped
}

func (m panelModel) renderTranscript() string {
	var b strings.Builder
	b.WriteString("\n" + m.spin.View() + "listening...\n")
	if m.state.LiveTranscript != "" {
		b.WriteString(liveStyle.Render(wordwrap.String(m.state.LiveTranscript, m.width-2)) + "\n")
	}
	if m.state.PartialTranscript != "" {
		b.WriteString(partialStyle.Render(m.state.PartialTranscript+"...") + "\n")
	}
	return b.String()
}

func (m panelModel) renderConfirmation(action *assist.ProposedAction) string {
	label := action.ConfirmLabel
	if label == "" {
		label = action.Name
	}
	return wordwrap.String(label, m.width-6) + "\n" + helpStyle.Render("y: yes  n: no")
}

func (m panelModel) phaseLabel() string {
	switch m.state.Phase {
	case assistant.PhaseListening:
		return "listening"
	case assistant.PhaseProcessing:
		return "thinking"
	case assistant.PhaseAwaitingConfirmation:
		return "confirm?"
	case assistant.PhaseError:
		return "error"
	}
	return "ready"
}

func (m panelModel) helpLine() string {
	switch m.state.Phase {
	case assistant.PhaseListening:
		if m.typing() {
			return "enter: send  esc: cancel"
		}
		return "enter: done talking  esc: cancel  q: quit"
	case assistant.PhaseAwaitingConfirmation:
		return "y: confirm  n: reject  enter: new request  q: quit"
	case assistant.PhaseError:
		return "enter: dismiss  q: quit"
	case assistant.PhaseProcessing:
		return "q: quit"
	}
	if m.voice {
		return "enter: talk  r: new conversation  q: quit"
	}
	return "enter: type a request  r: new conversation  q: quit"
}

func startPanel(voice bool, opts ...assistant.SessionOption) error {
	// The listener is registered before the program exists; publish through
	// a holder filled in below.
	var program *tea.Program

	opts = append(opts, assistant.WithStateListener(func(state assistant.State) {
		if program != nil {
			program.Send(stateMsg(state))
		}
	}))

	session := assistant.NewSession(opts...)
	program = tea.NewProgram(newPanelModel(session, voice), tea.WithAltScreen())

	_, err := program.Run()
	return err
}
