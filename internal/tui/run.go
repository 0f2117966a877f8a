package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run drives the terminal view until the user quits or ctx ends.
func Run(ctx context.Context, client Client, bridge *Bridge, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(New(client), opts...)
	bridge.Attach(p)
	_, err := p.Run()
	return err
}
