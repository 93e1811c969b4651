package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"taskpilot-cli/internal/api"
	"taskpilot-cli/internal/session"
	"taskpilot-cli/internal/store"
)

// Run starts the interactive TUI and blocks until the user quits.
func Run(client *api.Client, sess *session.Session, cache store.Cache) error {
	applyColorProfilePreference()
	applyThemePreference()

	s := &sender{}
	m := newAppModel(client, sess, cache, s)
	p := tea.NewProgram(m, tea.WithAltScreen())
	s.p = p
	_, err := p.Run()
	return err
}

// sender forwards messages from background goroutines (checklist callbacks)
// into the program's update loop. The program pointer is set before Run, so
// the nil check only guards construction order.
type sender struct {
	p *tea.Program
}

func (s *sender) Send(msg tea.Msg) {
	if s.p != nil {
		s.p.Send(msg)
	}
}
