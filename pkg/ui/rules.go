package ui

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/waftester/jsonparams/pkg/scanrule"
)

// RenderRules lists rules grouped by category, categories in name order
// and rules by ID within each.
func RenderRules(rules []scanrule.Rule) string {
	if len(rules) == 0 {
		return HelpStyle.Render("  no rules registered") + "\n"
	}

	byCategory := make(map[string][]scanrule.Rule)
	for _, r := range rules {
		byCategory[r.Category()] = append(byCategory[r.Category()], r)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	title := cases.Title(language.English)
	var b strings.Builder
	for i, c := range categories {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", CategoryStyle.Render(title.String(strings.ReplaceAll(c, "-", " "))))

		group := byCategory[c]
		sort.Slice(group, func(i, j int) bool { return group[i].ID() < group[j].ID() })
		for _, r := range group {
			tag := ""
			if pr, ok := r.(scanrule.PluginRule); ok {
				tag = " " + BracketStyle.Render("[plugin "+pr.Version()+"]")
			}
			fmt.Fprintf(&b, "  %s  %s%s\n", StatValueStyle.Render(fmt.Sprintf("%5d", r.ID())), r.Name(), tag)
			fmt.Fprintf(&b, "         %s\n", HelpStyle.Render(r.Description()))
		}
	}
	return b.String()
}

// PrintRules writes the rule listing to stdout.
func PrintRules(rules []scanrule.Rule) {
	fmt.Print(RenderRules(rules))
}
