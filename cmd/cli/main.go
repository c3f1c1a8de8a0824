// Command jsonparams lists, rewrites and probes the injectable values of
// JSON request bodies.
package main

import (
	"fmt"
	"os"

	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/ui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(defaults.ExitUserError)
	}

	switch os.Args[1] {
	case "extract", "params", "x":
		runExtract()
	case "inject":
		runInject()
	case "scan":
		runScan()
	case "rules":
		runRules()
	case "mcp":
		runMCP()
	case "-h", "--help", "help":
		printUsage()
		os.Exit(defaults.ExitSuccess)
	case "-v", "--version", "version":
		printVersion()
		os.Exit(defaults.ExitSuccess)
	default:
		ui.PrintError(fmt.Sprintf("unknown command %q", os.Args[1]))
		fmt.Fprintln(os.Stderr)
		printUsage()
		os.Exit(defaults.ExitUserError)
	}
}

func printUsage() {
	ui.PrintBanner()
	os.Stderr.Sync()

	fmt.Println(ui.SectionStyle.Render("USAGE"))
	fmt.Println("  jsonparams <command> [flags]")
	fmt.Println()
	fmt.Println(ui.SectionStyle.Render("COMMANDS"))
	commands := [][2]string{
		{"extract", "List the injectable params of a JSON body with their byte spans"},
		{"inject", "Rewrite one param (or every param) with a payload"},
		{"scan", "Probe a JSON endpoint with every rule's payloads"},
		{"rules", "List the scan rules"},
		{"mcp", "Serve the tools over the Model Context Protocol"},
		{"version", "Print version information"},
	}
	for _, c := range commands {
		fmt.Printf("  %s %s\n", ui.ConfigLabelStyle.Render(c[0]), c[1])
	}
	fmt.Println()
	fmt.Println(ui.SectionStyle.Render("EXAMPLES"))
	fmt.Println(`  echo '{"user":{"name":"alice"}}' | jsonparams extract`)
	fmt.Println(`  jsonparams inject -f body.json -name user.name -payload "' OR 1=1--"`)
	fmt.Println(`  jsonparams scan -u https://api.example.com/users -f body.json -rules 40018`)
	fmt.Println()
	fmt.Println(ui.HelpStyle.Render("  Run 'jsonparams <command> -h' for command flags."))
}

func printVersion() {
	fmt.Printf("jsonparams %s (commit %s, built %s)\n", ui.Version, ui.Commit, ui.BuildDate)
}
