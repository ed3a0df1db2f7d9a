package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the chat view.
type Styles struct {
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Notice    lipgloss.Style
	Muted     lipgloss.Style
	Pane      lipgloss.Style
	PaneTitle lipgloss.Style
	Input     lipgloss.Style
}

// DefaultStyles returns the chat palette. With noColor every style renders
// plain text but keeps its layout (borders, padding).
func DefaultStyles(noColor bool) Styles {
	s := Styles{
		Header:    lipgloss.NewStyle().Bold(true).Padding(0, 1),
		User:      lipgloss.NewStyle().Bold(true),
		Assistant: lipgloss.NewStyle().Bold(true),
		Error:     lipgloss.NewStyle(),
		Notice:    lipgloss.NewStyle().Padding(0, 1),
		Muted:     lipgloss.NewStyle(),
		Pane:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		PaneTitle: lipgloss.NewStyle().Bold(true),
		Input:     lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
	}
	if noColor {
		return s
	}

	s.Header = s.Header.Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4"))
	s.User = s.User.Foreground(lipgloss.Color("12"))
	s.Assistant = s.Assistant.Foreground(lipgloss.Color("10"))
	s.Error = s.Error.Foreground(lipgloss.Color("9"))
	s.Notice = s.Notice.Foreground(lipgloss.Color("11"))
	s.Muted = s.Muted.Foreground(lipgloss.Color("241"))
	s.Pane = s.Pane.BorderForeground(lipgloss.Color("62"))
	s.PaneTitle = s.PaneTitle.Foreground(lipgloss.Color("62"))
	s.Input = s.Input.BorderForeground(lipgloss.Color("240"))
	return s
}
