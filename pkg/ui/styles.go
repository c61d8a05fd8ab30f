package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

// Color palette
var (
	// Brand colors
	Primary   = lipgloss.Color("#00B3E6")
	Secondary = lipgloss.Color("#7D56F4")

	// Severity colors, most severe first
	VeryHigh      = lipgloss.Color("#B91C1C")
	High          = lipgloss.Color("#FF3838")
	Medium        = lipgloss.Color("#FF8A00")
	Low           = lipgloss.Color("#FFD93D")
	VeryLow       = lipgloss.Color("#4D96FF")
	Informational = lipgloss.Color("#6B7280")

	// Status colors
	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
)

// Pre-configured styles
var (
	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true).
			MarginTop(1)

	ConfigLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Width(15)

	ConfigValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA"))

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(Muted)

	StatValueStyle = lipgloss.NewStyle().
			Bold(true)

	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(Primary)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3B3B4F"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Primary)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

var severityColors = map[finding.Severity]lipgloss.Color{
	finding.VeryHigh:      VeryHigh,
	finding.High:          High,
	finding.Medium:        Medium,
	finding.Low:           Low,
	finding.VeryLow:       VeryLow,
	finding.Informational: Informational,
}

// SeverityStyle returns the badge style for a severity.
func SeverityStyle(s finding.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	c, ok := severityColors[s]
	if !ok {
		return base.Foreground(Muted)
	}
	return base.Foreground(c)
}

// ComplianceStyle returns the style for a policy compliance status.
func ComplianceStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch status {
	case veracode.CompliancePassed:
		return base.Foreground(Success)
	case veracode.ComplianceConditional:
		return base.Foreground(Warning)
	case veracode.ComplianceDidNotPass:
		return base.Foreground(Error)
	default:
		return base.Foreground(Muted)
	}
}
