package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/waftester/jsonparams/pkg/finding"
)

// FormatFinding renders one finding as a nuclei-style line:
// [severity] [rule-id] param payload [status] evidence
func FormatFinding(f finding.Finding) string {
	var b strings.Builder
	b.WriteString(SeverityStyle(f.Severity).Render(strings.ToUpper(f.Severity.String())))
	b.WriteString(" ")
	b.WriteString(BracketStyle.Render(fmt.Sprintf("[%d]", f.RuleID)))
	b.WriteString(" ")
	b.WriteString(ParamNameStyle.Render(f.Param))
	b.WriteString(" ")
	b.WriteString(truncate(fmt.Sprintf("%q", f.Payload), maxValueWidth))
	if f.StatusCode > 0 {
		b.WriteString(" ")
		b.WriteString(BracketStyle.Render("[") + StatusCodeStyle(f.StatusCode).Render(fmt.Sprint(f.StatusCode)) + BracketStyle.Render("]"))
	}
	if f.Evidence != "" {
		b.WriteString(" ")
		b.WriteString(HelpStyle.Render(f.Evidence))
	}
	return b.String()
}

// Summary is the tail of a scan report.
type Summary struct {
	Target      string
	ScanID      string
	Fingerprint string
	Params      int
	Probes      int
	Errors      int
	Findings    int
	RateLimited bool
	Duration    time.Duration
}

// RenderSummary formats the end-of-scan statistics block.
func RenderSummary(s Summary) string {
	var b strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", ConfigLabelStyle.Render(label), StatValueStyle.Render(value))
	}
	b.WriteString(TitleStyle.Render("Scan Summary") + "\n")
	line("Target", URLStyle.Render(s.Target))
	if s.ScanID != "" {
		line("Scan ID", s.ScanID)
	}
	if s.Fingerprint != "" {
		line("Body", s.Fingerprint)
	}
	line("Params", fmt.Sprint(s.Params))
	line("Probes", fmt.Sprint(s.Probes))
	if s.Errors > 0 {
		line("Errors", WarnStyle.Render(fmt.Sprint(s.Errors)))
	}
	if s.Findings > 0 {
		line("Findings", FailStyle.Render(fmt.Sprint(s.Findings)))
	} else {
		line("Findings", PassStyle.Render("0"))
	}
	if s.RateLimited {
		line("Rate limited", WarnStyle.Render("yes"))
	}
	line("Duration", s.Duration.Round(time.Millisecond).String())
	return b.String()
}
