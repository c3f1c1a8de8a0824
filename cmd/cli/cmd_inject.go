package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/jsonutil"
	"github.com/waftester/jsonparams/pkg/ui"
	"github.com/waftester/jsonparams/pkg/variant"
)

func runInject() {
	fs := flag.NewFlagSet("inject", flag.ExitOnError)
	file := fs.String("f", "", "Body file ('-' or empty reads stdin)")
	data := fs.String("d", "", "Body given inline")
	name := fs.String("name", "", "Qualified param name, e.g. user.ids[0]")
	payload := fs.String("payload", "", "Value to write into the param")
	raw := fs.Bool("raw", false, "Splice the payload without escaping or quoting")
	all := fs.Bool("all", false, "Write one rewritten body per param")
	nulls := fs.Bool("nulls", false, "Treat explicit nulls as params (default from scan_null_values)")
	jsonOut := fs.Bool("json", false, "Print results as JSON")
	common := registerCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jsonparams inject -name <param> -payload <value> [flags] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Rewrite params of a JSON body. Bytes outside the param are kept as they are.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  jsonparams inject -name id -payload \"7 OR 1=1\" body.json\n")
		fmt.Fprintf(os.Stderr, "  jsonparams inject -all -payload \"'\" -json body.json\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		exitWithError("%v", err)
	}
	if fs.NArg() > 0 && *file == "" {
		*file = fs.Arg(0)
	}
	if *name == "" && !*all {
		exitWithUsage("-name or -all is required", "jsonparams inject -name <param> -payload <value> [file]")
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
	doc, err := variant.New(body, scanNulls)
	if err != nil {
		reportSyntaxError(body, err)
		os.Exit(defaults.ExitUserError)
	}

	results, err := injectBodies(doc, *name, *payload, *raw, *all)
	if err != nil {
		exitWithError("%v", err)
	}
	if err := writeInjected(os.Stdout, results, *jsonOut); err != nil {
		exitWithError("writing output: %v", err)
	}
	if *all {
		ui.PrintSuccess(fmt.Sprintf("%d variants", len(results)))
	}
}

// injectBodies rewrites the named param, or every param when all is set.
func injectBodies(doc *variant.JSON, name, payload string, raw, all bool) ([]variant.Injected, error) {
	if all {
		if !raw {
			return doc.All(payload)
		}
		out := make([]variant.Injected, 0, len(doc.Params()))
		for _, p := range doc.Params() {
			b, err := doc.InjectRaw(p, payload)
			if err != nil {
				return nil, fmt.Errorf("inject %s: %w", p.Name, err)
			}
			out = append(out, variant.Injected{Param: p, Body: b})
		}
		return out, nil
	}

	p, ok := doc.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", variant.ErrUnknownParam, name)
	}
	var (
		b   string
		err error
	)
	if raw {
		b, err = doc.InjectRaw(p, payload)
	} else {
		b, err = doc.Inject(p, payload)
	}
	if err != nil {
		return nil, err
	}
	return []variant.Injected{{Param: p, Body: b}}, nil
}

// writeInjected prints one body per line, or the results as JSON lines.
func writeInjected(w io.Writer, results []variant.Injected, asJSON bool) error {
	if asJSON {
		enc := jsonutil.NewStreamEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.Body); err != nil {
			return err
		}
	}
	return nil
}
