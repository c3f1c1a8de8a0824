package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/waftester/jsonparams/pkg/activescan"
	"github.com/waftester/jsonparams/pkg/config"
	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/duration"
	"github.com/waftester/jsonparams/pkg/jsonutil"
	"github.com/waftester/jsonparams/pkg/metrics"
	"github.com/waftester/jsonparams/pkg/tracing"
	"github.com/waftester/jsonparams/pkg/ui"
)

type scanFlags struct {
	target      *string
	method      *string
	headers     headerSlice
	data        *string
	file        *string
	rules       *string
	concurrency *int
	rate        *float64
	timeout     *string
	proxy       *string
	skipVerify  *bool
	userAgent   *string
	pluginDir   *string
	nulls       *bool
	metricsAddr *string
	otel        *string
	jsonOut     *bool
}

func runScan() {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	sf := &scanFlags{
		target:      fs.String("u", "", "Target URL (required)"),
		method:      fs.String("X", "POST", "HTTP method"),
		data:        fs.String("d", "", "Body given inline"),
		file:        fs.String("f", "", "Body file ('-' reads stdin)"),
		rules:       fs.String("rules", "", "Comma separated rule IDs to run (default: all)"),
		concurrency: fs.Int("c", defaults.Concurrency, "Concurrent probes"),
		rate:        fs.Float64("rate", defaults.RateLimit, "Probes per second, 0 for unlimited"),
		timeout:     fs.String("timeout", duration.HTTPScanning.String(), "Per-request timeout"),
		proxy:       fs.String("proxy", "", "Upstream proxy (http://, socks5://)"),
		skipVerify:  fs.Bool("k", false, "Skip TLS certificate verification"),
		userAgent:   fs.String("ua", "", "User-Agent header"),
		pluginDir:   fs.String("plugins", "", "Directory of rule plugins (*.so)"),
		nulls:       fs.Bool("nulls", false, "Probe explicit nulls too (default from scan_null_values)"),
		metricsAddr: fs.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9090"),
		otel:        fs.String("otel", "", "OTLP gRPC collector for traces, e.g. localhost:4317"),
		jsonOut:     fs.Bool("json", false, "Print the result as JSON"),
	}
	fs.Var(&sf.headers, "H", "Request header \"Name: value\" (repeatable)")
	common := registerCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jsonparams scan -u <url> [-f body.json | -d '{...}'] [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Probe every param of a JSON body with every active rule.\n")
		fmt.Fprintf(os.Stderr, "Only scan targets you are authorized to test.\n\n")
		fmt.Fprintf(os.Stderr, "Exit codes: 0 clean, 1 findings, 2 usage, 3 network, 4 internal\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		exitWithError("%v", err)
	}
	if *sf.target == "" {
		exitWithUsage("-u is required", "jsonparams scan -u <url> -f body.json")
	}

	cfg, logger, err := common.setup()
	if err != nil {
		exitWithError("config: %v", err)
	}
	if err := sf.apply(fs, cfg); err != nil {
		exitWithError("%v", err)
	}

	header, err := parseHeaders(sf.headers)
	if err != nil {
		exitWithError("%v", err)
	}
	body, err := readBody(*sf.data, *sf.file, os.Stdin, cfg.MaxBodySize)
	if err != nil {
		exitWithError("reading body: %v", err)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelScan := context.WithTimeout(ctx, duration.ContextScan)
	defer cancelScan()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		Endpoint:    cfg.Telemetry.OTelEndpoint,
		Insecure:    cfg.Telemetry.OTelInsecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		exitWithError("%v", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), duration.Shutdown)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("trace flush failed", slog.String("error", err.Error()))
		}
	}()

	collector := metrics.New()
	if cfg.Telemetry.MetricsAddr != "" {
		srv, err := collector.Serve(cfg.Telemetry.MetricsAddr, logger)
		if err != nil {
			exitWithError("metrics: %v", err)
		}
		defer srv.Close()
		ui.PrintInfo("metrics on http://" + srv.Addr() + "/metrics")
	}

	scanner, err := activescan.New(activescan.ConfigFrom(cfg), reg,
		activescan.WithLogger(logger),
		activescan.WithMetrics(collector),
	)
	if err != nil {
		exitWithError("%v", err)
	}

	ui.PrintBanner()
	ui.PrintConfigLine("Target", *sf.target)
	ui.PrintConfigLine("Method", strings.ToUpper(*sf.method))
	ui.PrintConfigLine("Rules", fmt.Sprint(len(reg.Active())))
	ui.PrintConfigLine("Concurrency", fmt.Sprint(cfg.Scan.Concurrency))
	ui.PrintConfigLine("Rate", fmt.Sprintf("%g/s", cfg.Scan.RateLimit))
	ui.PrintDivider()

	res, scanErr := scanner.Scan(ctx, activescan.Request{
		Method: strings.ToUpper(*sf.method),
		URL:    *sf.target,
		Header: header,
		Body:   body,
	})
	if res == nil {
		exitForError("scan", scanErr)
	}

	if *sf.jsonOut {
		if err := writeScanJSON(os.Stdout, res); err != nil {
			exitWithError("encoding output: %v", err)
		}
	} else {
		printScanResult(os.Stdout, res)
	}

	if scanErr != nil {
		exitForError("scan", scanErr)
	}
	if res.ParseError != "" {
		os.Exit(defaults.ExitUserError)
	}
	if len(res.Findings) > 0 {
		os.Exit(defaults.ExitFindings)
	}
}

// apply overlays the flags given on the command line onto cfg.
func (sf *scanFlags) apply(fs *flag.FlagSet, cfg *config.Config) error {
	var errs []error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "c":
			cfg.Scan.Concurrency = *sf.concurrency
		case "rate":
			cfg.Scan.RateLimit = *sf.rate
		case "timeout":
			d, err := parseTimeout(*sf.timeout)
			errs = append(errs, err)
			cfg.Scan.Timeout = d
		case "proxy":
			cfg.Scan.Proxy = *sf.proxy
		case "k":
			cfg.Scan.SkipVerify = *sf.skipVerify
		case "ua":
			cfg.Scan.UserAgent = *sf.userAgent
		case "plugins":
			cfg.Scan.PluginDir = *sf.pluginDir
		case "nulls":
			cfg.ScanNullValues = *sf.nulls
		case "metrics":
			cfg.Telemetry.MetricsAddr = *sf.metricsAddr
		case "otel":
			cfg.Telemetry.OTelEndpoint = *sf.otel
		case "rules":
			ids, err := parseRuleIDs(*sf.rules)
			errs = append(errs, err)
			cfg.Scan.Rules = ids
		}
	})
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return cfg.Validate()
}

func writeScanJSON(w io.Writer, res *activescan.Result) error {
	enc := jsonutil.NewStreamEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func printScanResult(w io.Writer, res *activescan.Result) {
	if res.ParseError != "" {
		ui.PrintWarning("body is not parseable JSON, no params probed")
		ui.PrintError(res.ParseError)
		ui.PrintHelp("check the Content-Type and body; form and query params are not probed")
	}
	if len(res.Findings) > 0 {
		ui.PrintSection("FINDINGS")
		for _, f := range res.Findings {
			fmt.Fprintln(w, ui.FormatFinding(f))
		}
	}
	ui.PrintSection("SUMMARY")
	fmt.Fprint(w, ui.RenderSummary(ui.Summary{
		Target:      res.Target,
		ScanID:      res.ID,
		Fingerprint: res.Fingerprint,
		Params:      len(res.Params),
		Probes:      res.Probes,
		Errors:      len(res.Errors),
		Findings:    len(res.Findings),
		RateLimited: res.RateLimited,
		Duration:    res.Duration,
	}))
}
