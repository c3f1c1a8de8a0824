package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/waftester/jsonparams/pkg/activescan"
	"github.com/waftester/jsonparams/pkg/duration"
	"github.com/waftester/jsonparams/pkg/mcpserver"
	"github.com/waftester/jsonparams/pkg/metrics"
)

// runMCP starts the MCP server.
//   - -stdio (default): IDE integrations
//   - -http <addr>:     remote clients over streamable HTTP
func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	httpAddr := fs.String("http", envOrDefault("JSONPARAMS_HTTP_ADDR", ""), "HTTP address to listen on (e.g. :8080). Disables stdio.")
	noScan := fs.Bool("no-scan", false, "Do not expose scan_json_endpoint (no outbound traffic)")
	common := registerCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jsonparams mcp [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Serve extract_json_params, inject_json_param, list_rules and\n")
		fmt.Fprintf(os.Stderr, "scan_json_endpoint over the Model Context Protocol.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  jsonparams mcp\n")
		fmt.Fprintf(os.Stderr, "  jsonparams mcp -http :8080 -no-scan\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		exitWithError("%v", err)
	}

	cfg, logger, err := common.setup()
	if err != nil {
		exitWithError("config: %v", err)
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	var scanner *activescan.Scanner
	if !*noScan {
		scanner, err = activescan.New(activescan.ConfigFrom(cfg), reg,
			activescan.WithLogger(logger),
			activescan.WithMetrics(metrics.New()),
		)
		if err != nil {
			exitWithError("%v", err)
		}
	}

	srv := mcpserver.New(&mcpserver.Config{
		ScanNullValues: cfg.ScanNullValues,
		Registry:       reg,
		Scanner:        scanner,
		Logger:         logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *httpAddr == "" {
		if err := srv.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			exitWithError("mcp: %v", err)
		}
		return
	}

	httpSrv := &http.Server{
		Addr:              *httpAddr,
		Handler:           srv.HTTPHandler(),
		ReadHeaderTimeout: duration.ReadHeader,
		IdleTimeout:       duration.IdleConn,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), duration.Shutdown)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp shutdown", slog.String("error", err.Error()))
		}
	}()

	logger.Info("serving MCP over HTTP", slog.String("addr", *httpAddr))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitWithError("mcp: %v", err)
	}
}
