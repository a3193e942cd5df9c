// Package ui holds the lipgloss styles shared by doublegit's CLI
// output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderAccent styles a highlighted token.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderSuccess styles a success message.
func RenderSuccess(s string) string { return successStyle.Render(s) }

// RenderWarning styles a warning message.
func RenderWarning(s string) string { return warnStyle.Render(s) }

// RenderError styles an error message.
func RenderError(s string) string { return errorStyle.Render(s) }

// RenderDim styles secondary detail.
func RenderDim(s string) string { return dimStyle.Render(s) }
