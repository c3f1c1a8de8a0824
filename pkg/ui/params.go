package ui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/waftester/jsonparams/pkg/jsonparam"
)

const (
	maxValueWidth = 40
	minValueWidth = 12
)

// RenderParams formats params as an aligned table, one row per param in
// document order.
func RenderParams(params []jsonparam.Param) string {
	return RenderParamsWidth(params, 0)
}

// RenderParamsWidth is RenderParams fitted to a terminal of the given
// width: the value column takes whatever the other columns leave, but
// never less than minValueWidth. A width of 0 keeps the default column.
func RenderParamsWidth(params []jsonparam.Param, width int) string {
	if len(params) == 0 {
		return HelpStyle.Render("  no injectable params") + "\n"
	}

	nameW, spanW := len("NAME"), len("SPAN")
	spans := make([]string, len(params))
	for i, p := range params {
		nameW = max(nameW, utf8.RuneCountInString(p.Name))
		spans[i] = fmt.Sprintf("[%d,%d)", p.Begin, p.End)
		spanW = max(spanW, len(spans[i]))
	}
	idxW := len(strconv.Itoa(len(params)))
	valueW := maxValueWidth
	if width > 0 {
		used := 2 + idxW + 2 + nameW + 2 + 6 + 2 + spanW + 2
		valueW = max(minValueWidth, width-used)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s  %s  %s  %s\n",
		padRight("#", idxW),
		StatLabelStyle.Render(padRight("NAME", nameW)),
		StatLabelStyle.Render(padRight("KIND", 6)),
		StatLabelStyle.Render(padRight("SPAN", spanW)),
		StatLabelStyle.Render("VALUE"))

	for i, p := range params {
		fmt.Fprintf(&b, "  %s  %s  %s  %s  %s\n",
			padRight(strconv.Itoa(i+1), idxW),
			ParamNameStyle.Render(padRight(p.Name, nameW)),
			KindStyle(p.Kind()).Render(padRight(p.Kind(), 6)),
			SpanStyle.Render(padRight(spans[i], spanW)),
			displayValue(p, valueW))
	}
	return b.String()
}

// PrintParams writes the param table to stdout, sized to the terminal
// when stdout is one.
func PrintParams(params []jsonparam.Param) {
	fmt.Print(RenderParamsWidth(params, TerminalWidth(0)))
}

func displayValue(p jsonparam.Param, width int) string {
	if p.Null {
		return KindStyle("null").Render("null")
	}
	v := strconv.Quote(p.Value)
	if p.Numeric {
		v = p.Value
	}
	return truncate(v, width)
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
