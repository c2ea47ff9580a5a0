package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("205")
	colorMuted   = lipgloss.Color("241")
	colorError   = lipgloss.Color("196")
	colorWarning = lipgloss.Color("214")
	colorSuccess = lipgloss.Color("42")

	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
	styleOK    = lipgloss.NewStyle().Foreground(colorSuccess)
	stylePhase = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("0")).Background(colorPrimary)

	styleErrorNotice = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
				BorderForeground(colorError).Foreground(colorError).Padding(0, 1)
	styleValidationNotice = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
				BorderForeground(colorWarning).Foreground(colorWarning).Padding(0, 1)
	styleReport = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			BorderForeground(colorMuted)
)
