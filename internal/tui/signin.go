package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bamaolink/excalidraw/internal/docsession"
)

func (m *appModel) focusSignInField(f signInField) {
	m.signInFocus = f
	m.emailInput.Blur()
	m.passwordInput.Blur()
	switch f {
	case signInEmail:
		m.emailInput.Focus()
	case signInPassword:
		m.passwordInput.Focus()
	}
}

func (m appModel) signInCmd() tea.Cmd {
	repo, sess, toasts := m.repo, m.store, m.signInToasts
	email := strings.TrimSpace(m.emailInput.Value())
	password := m.passwordInput.Value()
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		u, err := docsession.SignIn(ctx, repo, sess, toasts, email, password)
		return signInDoneMsg{user: u, err: err}
	}
}

func (m appModel) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "x":
		// Only while the form is not taking text.
		if m.signInFocus == signInSubmit {
			dismissNewest(m.signInToasts)
			return m, nil
		}
	case "tab", "down", "ctrl+n":
		m.focusSignInField((m.signInFocus + 1) % 3)
		return m, nil
	case "shift+tab", "up", "ctrl+p":
		m.focusSignInField((m.signInFocus + 2) % 3)
		return m, nil
	case "enter":
		if m.signInFocus == signInEmail {
			m.focusSignInField(signInPassword)
			return m, nil
		}
		if m.signingIn {
			return m, nil
		}
		m.signingIn = true
		return m, m.busy(m.signInCmd())
	}

	var cmd tea.Cmd
	switch m.signInFocus {
	case signInEmail:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case signInPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) viewSignIn() string {
	w := min(48, max(m.width-4, 24))
	label := styleMuted()
	field := func(name string, in string, focused bool) string {
		l := label.Render(name)
		if focused {
			l = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(name)
		}
		return l + "\n" + renderInputLine(w, in)
	}

	submit := lipgloss.NewStyle().Padding(0, 1).Background(colorControlBg).Foreground(colorSurfaceFg)
	if m.signInFocus == signInSubmit {
		submit = submit.Background(colorAccent).Foreground(colorAccentFg).Bold(true)
	}
	submitLabel := "Sign in"
	if m.signingIn {
		submitLabel = m.spinner.View() + " Signing in"
	}

	form := strings.Join([]string{
		styleHeader().Render("Sign in"),
		"",
		field("Email", m.emailInput.View(), m.signInFocus == signInEmail),
		"",
		field("Password", m.passwordInput.View(), m.signInFocus == signInPassword),
		"",
		submit.Render(submitLabel),
	}, "\n")
	return lipgloss.NewStyle().Padding(1, 2).Render(form)
}
