package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/waftester/jsonparams/pkg/config"
	"github.com/waftester/jsonparams/pkg/iohelper"
	"github.com/waftester/jsonparams/pkg/jsonparam"
	"github.com/waftester/jsonparams/pkg/ui"
)

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath *string
	verbose    *bool
	noColor    *bool
	silent     *bool
}

func registerCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath: fs.String("config", envOrDefault("JSONPARAMS_CONFIG", ""), "YAML config file (env JSONPARAMS_CONFIG)"),
		verbose:    fs.Bool("v", false, "Debug logging"),
		noColor:    fs.Bool("no-color", false, "Disable colored output"),
		silent:     fs.Bool("silent", false, "Suppress banner and status lines"),
	}
}

// setup loads the config file, if any, and applies the UI flags. The
// returned logger writes text to stderr at the configured level.
func (c *commonFlags) setup() (*config.Config, *slog.Logger, error) {
	ui.ConfigureColor(*c.noColor)
	ui.SetSilent(*c.silent)

	cfg := config.Default()
	if *c.configPath != "" {
		loaded, err := config.Load(*c.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if *c.verbose {
		cfg.LogLevel = "debug"
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// readBody returns data when set, otherwise the contents of path, where ""
// and "-" mean stdin. Bodies over maxSize are rejected rather than cut.
func readBody(data, path string, stdin io.Reader, maxSize int) (string, error) {
	if data != "" {
		if len(data) > maxSize {
			return "", fmt.Errorf("%w (%d bytes)", iohelper.ErrTooLarge, maxSize)
		}
		return data, nil
	}

	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := iohelper.ReadCapped(r, int64(maxSize))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// syntaxContext renders the body around a syntax error with a caret under
// the failing byte.
func syntaxContext(body string, err error) string {
	se, ok := jsonparam.AsSyntaxError(err)
	if !ok {
		return ""
	}
	const radius = 24
	start := max(0, se.Offset-radius)
	for start < se.Offset && !utf8.RuneStart(body[start]) {
		start++
	}
	end := min(len(body), se.Offset+radius)
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end++
	}
	snippet := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(body[start:end])
	pad := utf8.RuneCountInString(body[start:se.Offset])
	return fmt.Sprintf("    %s\n    %s^", snippet, strings.Repeat(" ", pad))
}

type headerSlice []string

func (h *headerSlice) String() string { return strings.Join(*h, "; ") }

func (h *headerSlice) Set(value string) error {
	*h = append(*h, value)
	return nil
}

// parseHeaders turns "Name: value" strings into a header set.
func parseHeaders(raw []string) (http.Header, error) {
	h := make(http.Header, len(raw))
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

// parseRuleIDs parses a comma separated list of rule IDs.
func parseRuleIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid rule ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseTimeout accepts a Go duration ("10s", "1m30s") or bare seconds.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid timeout %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return d, nil
}
