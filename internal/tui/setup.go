// ABOUTME: Interactive TUI wizard for connecting a Twitter developer app.
// ABOUTME: 3-step bubbletea model collecting client ID, client secret, and refresh token.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Step represents the current wizard step.
type Step int

const (
	StepClientID Step = iota
	StepClientSecret
	StepRefreshToken
	StepValidating
	StepDone
	StepFailed
)

// validationResultMsg carries the result of an async validation attempt.
// On success it holds the rotated refresh token returned by the platform.
type validationResultMsg struct {
	rotatedToken string
	err          error
}

// ValidateFn performs a refresh-token grant with the entered credentials and
// returns the rotated refresh token the platform issued.
type ValidateFn func(ctx context.Context, clientID, clientSecret, refreshToken string) (string, error)

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on SetupModel so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [3]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	rotatedToken  string
	validationErr error
	quitting      bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling with existing config values.
func NewSetupModel(clientID, clientSecret, refreshToken string) SetupModel {
	idInput := textinput.New()
	idInput.Placeholder = "your-oauth2-client-id"
	idInput.Focus()
	idInput.Width = 50
	if clientID != "" {
		idInput.SetValue(clientID)
	}

	secretInput := textinput.New()
	secretInput.Placeholder = "your-oauth2-client-secret"
	secretInput.EchoMode = textinput.EchoPassword
	secretInput.Width = 50
	if clientSecret != "" {
		secretInput.SetValue(clientSecret)
	}

	tokenInput := textinput.New()
	tokenInput.Placeholder = "your-refresh-token"
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.Width = 50
	if refreshToken != "" {
		tokenInput.SetValue(refreshToken)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:       StepClientID,
		inputs:     [3]textinput.Model{idInput, secretInput, tokenInput},
		spinner:    s,
		validateFn: ValidateCredentials,
		cancelCtx:  &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepClientID, StepClientSecret, StepRefreshToken:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.rotatedToken = msg.rotatedToken
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)

		// Don't advance on an empty field
		if strings.TrimSpace(m.inputs[idx].Value()) == "" {
			return m, nil
		}

		m.inputs[idx].Blur()

		switch m.step {
		case StepClientID:
			m.step = StepClientSecret
			m.inputs[1].Focus()
			return m, textinput.Blink
		case StepClientSecret:
			m.step = StepRefreshToken
			m.inputs[2].Focus()
			return m, textinput.Blink
		case StepRefreshToken:
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
	}

	// Forward to the active input
	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	clientID := m.inputs[0].Value()
	clientSecret := m.inputs[1].Value()
	refreshToken := m.inputs[2].Value()
	fn := m.validateFn
	return func() tea.Msg {
		rotated, err := fn(ctx, clientID, clientSecret, refreshToken)
		return validationResultMsg{rotatedToken: rotated, err: err}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   TERN"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Connect your Twitter developer app.\n\n")

	switch m.step {
	case StepClientID:
		b.WriteString(stepStyle.Render("Step 1 of 3: OAuth2 Client ID"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepClientSecret:
		b.WriteString(fmt.Sprintf("  Client ID: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 3: OAuth2 Client Secret"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepRefreshToken:
		b.WriteString(fmt.Sprintf("  Client ID: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: Refresh Token"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(validation performs a real token refresh and saves the rotated token)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[2].View())
		b.WriteString("\n")

	case StepValidating:
		b.WriteString(fmt.Sprintf("  Client ID: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Client Secret: %s\n\n", strings.Repeat("*", len(m.inputs[1].Value()))))
		b.WriteString(m.spinner.View())
		b.WriteString(" Refreshing token...")
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("✓ Connected!"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Validation failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered credentials. When validation succeeded, the
// refresh token is the rotated one issued by the platform.
func (m SetupModel) Result() (clientID, clientSecret, refreshToken string) {
	refreshToken = m.inputs[2].Value()
	if m.rotatedToken != "" {
		refreshToken = m.rotatedToken
	}
	return m.inputs[0].Value(), m.inputs[1].Value(), refreshToken
}

// ShouldSave returns true if the wizard completed (via validation success or
// "save anyway") and the user did not cancel with Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
