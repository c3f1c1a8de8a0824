package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/waftester/jsonparams/pkg/finding"
)

// Color palette
var (
	Primary   = lipgloss.Color("#7D56F4") // purple
	Secondary = lipgloss.Color("#00D4AA") // teal

	// Severity colors
	Critical = lipgloss.Color("#FF0000")
	High     = lipgloss.Color("#FF6B6B")
	Medium   = lipgloss.Color("#FFD93D")
	Low      = lipgloss.Color("#6BCB77")
	Info     = lipgloss.Color("#4D96FF")

	// Status colors
	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")

	// HTTP status code colors
	Status2xx = lipgloss.Color("#00D26A")
	Status3xx = lipgloss.Color("#4D96FF")
	Status4xx = lipgloss.Color("#FFD93D")
	Status5xx = lipgloss.Color("#FF3838")
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

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
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	// Bracketed metadata (nuclei-style)
	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	PassStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	CategoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3B3B4F")).
			Padding(0, 1)

	// Param table
	ParamNameStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SpanStyle = lipgloss.NewStyle().
			Foreground(Muted)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

// SeverityStyle returns the badge style for a severity level.
func SeverityStyle(s finding.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch s {
	case finding.Critical:
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Critical)
	case finding.High:
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(High)
	case finding.Medium:
		return base.Foreground(lipgloss.Color("#000000")).Background(Medium)
	case finding.Low:
		return base.Foreground(lipgloss.Color("#000000")).Background(Low)
	case finding.Info:
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Info)
	default:
		return base.Foreground(Muted)
	}
}

// StatusCodeStyle returns the style for an HTTP status code.
func StatusCodeStyle(code int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case code >= 200 && code < 300:
		return base.Foreground(Status2xx)
	case code >= 300 && code < 400:
		return base.Foreground(Status3xx)
	case code >= 400 && code < 500:
		return base.Foreground(Status4xx)
	case code >= 500:
		return base.Foreground(Status5xx)
	default:
		return base.Foreground(Muted)
	}
}

// KindStyle colors a param kind ("string", "number", "null").
func KindStyle(kind string) lipgloss.Style {
	base := lipgloss.NewStyle()
	switch strings.ToLower(kind) {
	case "string":
		return base.Foreground(Low)
	case "number":
		return base.Foreground(Info)
	case "null":
		return base.Foreground(Muted).Italic(true)
	default:
		return base
	}
}
