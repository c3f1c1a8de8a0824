package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/waftester/jsonparams/pkg/jsonutil"
	"github.com/waftester/jsonparams/pkg/scanrule"
	"github.com/waftester/jsonparams/pkg/ui"
)

func runRules() {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	pluginDir := fs.String("plugins", "", "Directory of rule plugins (*.so)")
	jsonOut := fs.Bool("json", false, "Print rules as JSON")
	common := registerCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jsonparams rules [flags]\n\n")
		fmt.Fprintf(os.Stderr, "List the built-in and plugin scan rules.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		exitWithError("%v", err)
	}

	cfg, _, err := common.setup()
	if err != nil {
		exitWithError("config: %v", err)
	}
	if flagSet(fs, "plugins") {
		cfg.Scan.PluginDir = *pluginDir
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	if *jsonOut {
		if err := writeRulesJSON(os.Stdout, reg.All()); err != nil {
			exitWithError("encoding output: %v", err)
		}
		return
	}
	ui.PrintRules(reg.All())
}

type ruleOutput struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Plugin      bool   `json:"plugin,omitempty"`
	Version     string `json:"version,omitempty"`
}

func writeRulesJSON(w io.Writer, rules []scanrule.Rule) error {
	out := make([]ruleOutput, 0, len(rules))
	for _, r := range rules {
		o := ruleOutput{
			ID:          r.ID(),
			Name:        r.Name(),
			Category:    r.Category(),
			Description: r.Description(),
		}
		if p, ok := r.(scanrule.PluginRule); ok {
			o.Plugin = true
			o.Version = p.Version()
		}
		out = append(out, o)
	}
	enc := jsonutil.NewStreamEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
