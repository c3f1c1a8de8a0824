package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/jsonparam"
	"github.com/waftester/jsonparams/pkg/jsonutil"
	"github.com/waftester/jsonparams/pkg/ui"
	"github.com/waftester/jsonparams/pkg/variant"
)

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	file := fs.String("f", "", "Body file ('-' or empty reads stdin)")
	data := fs.String("d", "", "Body given inline")
	nulls := fs.Bool("nulls", false, "Report explicit nulls as params (default from scan_null_values)")
	jsonOut := fs.Bool("json", false, "Print params as JSON")
	common := registerCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jsonparams extract [flags] [file]\n\n")
		fmt.Fprintf(os.Stderr, "List the injectable params of a JSON body.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  jsonparams extract body.json\n")
		fmt.Fprintf(os.Stderr, "  curl -s https://api.example.com/sample | jsonparams extract -json\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		exitWithError("%v", err)
	}
	if fs.NArg() > 0 && *file == "" {
		*file = fs.Arg(0)
	}

	cfg, _, err := common.setup()
	if err != nil {
		exitWithError("config: %v", err)
	}
	scanNulls := cfg.ScanNullValues
	if flagSet(fs, "nulls") {
		scanNulls = *nulls
	}

	body, err := readBody(*data, *file, os.Stdin, cfg.MaxBodySize)
	if err != nil {
		exitWithError("reading body: %v", err)
	}

	params, err := jsonparam.Extract(body, scanNulls)
	if err != nil {
		reportSyntaxError(body, err)
		os.Exit(defaults.ExitUserError)
	}

	if *jsonOut {
		if err := writeParamsJSON(os.Stdout, body, params); err != nil {
			exitWithError("encoding output: %v", err)
		}
		return
	}
	ui.PrintParams(params)
	ui.PrintSuccess(fmt.Sprintf("%d params, body %s (%d bytes)", len(params), variant.Fingerprint(body), len(body)))
}

type paramsOutput struct {
	Count       int               `json:"count"`
	Fingerprint string            `json:"fingerprint"`
	Params      []jsonparam.Param `json:"params"`
}

func writeParamsJSON(w io.Writer, body string, params []jsonparam.Param) error {
	enc := jsonutil.NewStreamEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(paramsOutput{
		Count:       len(params),
		Fingerprint: variant.Fingerprint(body),
		Params:      params,
	})
}

func reportSyntaxError(body string, err error) {
	ui.PrintError(err.Error())
	if ctx := syntaxContext(body, err); ctx != "" {
		fmt.Fprintln(os.Stderr, ctx)
	}
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
