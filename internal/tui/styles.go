package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/auditportal/auditportal/internal/catalog"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("4")).
			Padding(0, 1)

	activeTabStyle   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("14"))
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	badgeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	blockStyle    = lipgloss.NewStyle().Bold(true)
	extraStyle    = lipgloss.NewStyle().Italic(true)
	fileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	dimStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	mineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	supportStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

// statusColors follows the badge colors of the web portal.
var statusColors = map[string]lipgloss.Color{
	catalog.StatusPending:      lipgloss.Color("11"),
	catalog.StatusApproved:     lipgloss.Color("10"),
	catalog.StatusRejected:     lipgloss.Color("9"),
	catalog.StatusMissingInfo:  lipgloss.Color("208"),
	catalog.StatusNotSubmitted: lipgloss.Color("8"),
	catalog.StatusIncomplete:   lipgloss.Color("13"),
	catalog.StatusNotRequired:  lipgloss.Color("6"),
}

func statusBadge(status string) string {
	style := lipgloss.NewStyle()
	if c, ok := statusColors[status]; ok {
		style = style.Foreground(c)
	} else {
		style = style.Faint(true)
	}
	return style.Render("[" + catalog.StatusLabel(status) + "]")
}
