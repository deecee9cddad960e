package main

import "github.com/charmbracelet/lipgloss"

var (
	userTag = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	assistantTag = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	systemTag = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("242"))
)

func roleTag(role string) string {
	switch role {
	case "user":
		return userTag.Render("you")
	case "assistant":
		return assistantTag.Render("brd")
	default:
		return systemTag.Render(role)
	}
}
