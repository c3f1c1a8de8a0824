// Package ui renders jsonparams output for terminals: styled status lines,
// the extracted param table, rule listings and scan findings.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/waftester/jsonparams/pkg/defaults"
)

// Build information, overridable via ldflags:
// go build -ldflags "-X github.com/waftester/jsonparams/pkg/ui.Commit=abc123"
var (
	Version   = defaults.Version
	BuildDate = "unknown"
	Commit    = "dev"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	uiMu        sync.RWMutex

	// stderr receives status lines; tests swap it.
	stderr io.Writer = os.Stderr
)

// SetSilent suppresses banners and status lines. Errors are still printed.
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// ConfigureColor turns color off unless both stdout and stderr can show it.
func ConfigureColor(forceOff bool) {
	if forceOff || !ColorSupported(os.Stdout) || !ColorSupported(os.Stderr) {
		SetNoColor(true)
	}
}

// Minimalist banner (ffuf-style box)
const bannerSeparator = "________________________________________________"

// PrintBanner prints the application banner to stderr.
func PrintBanner() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(stderr, BannerStyle.Render(bannerSeparator))
	fmt.Fprintln(stderr)
	fmt.Fprintf(stderr, " %s %s\n", BannerStyle.Render("jsonparams"), VersionStyle.Render("v"+Version))
	fmt.Fprintln(stderr, HelpStyle.Render(" JSON body parameter extraction and probing"))
	fmt.Fprintln(stderr, BannerStyle.Render(bannerSeparator))
	fmt.Fprintln(stderr)
}

// PrintDivider prints a horizontal rule.
func PrintDivider() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(stderr, DividerStyle.Render(strings.Repeat("─", 48)))
}

// PrintSection prints a section header.
func PrintSection(title string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(stderr, SectionStyle.Render(title))
}

// PrintConfigLine prints one "label  value" pair.
func PrintConfigLine(key, value string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(stderr, "  %s %s\n", ConfigLabelStyle.Render(key), ConfigValueStyle.Render(value))
}

// PrintHelp prints contextual help (to stderr like ffuf/nuclei)
func PrintHelp(text string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(stderr, HelpStyle.Render("  [i] "+text))
}

// PrintSuccess prints a success message (to stderr)
func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(stderr, PassStyle.Render("  [+] "+message))
}

// PrintError prints an error message (to stderr). Not affected by silent
// mode.
func PrintError(message string) {
	fmt.Fprintln(stderr, FailStyle.Render("  [X] "+message))
}

// PrintWarning prints a warning message (to stderr)
func PrintWarning(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(stderr, WarnStyle.Render("  [!] "+message))
}

// PrintInfo prints an info message (to stderr)
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(stderr, "  %s %s\n", InfoStyle.Render("*"), message)
}
