package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/waftester/jsonparams/pkg/activescan"
	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/jsonutil"
	"github.com/waftester/jsonparams/pkg/scanrule"
)

// The MCP SDK defines LoggingLevel as a bare string type.
const (
	logInfo    mcp.LoggingLevel = "info"
	logWarning mcp.LoggingLevel = "warning"
)

// Config holds MCP server configuration.
type Config struct {
	// ScanNullValues is the default null policy when a call omits scan_nulls.
	ScanNullValues bool

	// Registry lists the rules shown by list_rules. Nil uses the built-ins.
	Registry *scanrule.Registry

	// Scanner backs scan_json_endpoint. Nil leaves the tool unregistered.
	Scanner *activescan.Scanner

	Logger *slog.Logger
}

// Server wraps the MCP server with the jsonparams tools.
type Server struct {
	mcp    *mcp.Server
	config *Config
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Registry == nil {
		cfg.Registry = scanrule.NewDefault()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		logger: logger.With(slog.String("component", "mcp")),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ServiceName,
			Title:   "jsonparams MCP Server",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for direct access (e.g., testing).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// RunStdio serves one client over stdin/stdout until ctx is done or the
// client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a handler for the streamable HTTP transport, with a
// /health endpoint next to it.
func (s *Server) HTTPHandler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{Stateless: false},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/mcp", streamable)
	mux.Handle("/", streamable)

	return s.recoveryMiddleware(securityHeaders(mux))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"jsonparams-mcp"}`))
}

// recoveryMiddleware turns a handler panic into a 500 instead of a dropped
// connection.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic in HTTP handler",
					slog.Any("panic", err),
					slog.String("stack", string(debug.Stack())))
				w.Header().Set("Content-Type", defaults.ContentTypeJSON)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Helpers: result builders
// ---------------------------------------------------------------------------

// notifyProgress sends a progress notification when the client asked for
// one.
func notifyProgress(ctx context.Context, req *mcp.CallToolRequest, progress, total float64, message string) {
	token := req.Params.GetProgressToken()
	if token == nil || req.Session == nil {
		return
	}
	_ = req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

// logToSession sends a structured log message to the MCP client.
func logToSession(ctx context.Context, req *mcp.CallToolRequest, level mcp.LoggingLevel, data any) {
	if req.Session == nil {
		return
	}
	_ = req.Session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: defaults.ServiceName,
		Data:   data,
	})
}

// textResult creates a CallToolResult with a single text content block.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult marshals v to indented JSON and wraps it in a CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// jsonError is an error result whose text is a JSON object, so agents can
// read the failure position without parsing prose.
func jsonError(v any) *mcp.CallToolResult {
	res, err := jsonResult(v)
	if err != nil {
		return errorResult(fmt.Sprint(v))
	}
	res.IsError = true
	return res
}

func boolPtr(b bool) *bool { return &b }

// parseArgs unmarshals the raw JSON arguments from a tool call into dst.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

const serverInstructions = `You are connected to jsonparams, which finds the injectable values in a JSON request body and records the exact byte span of each one.

Tools:
• extract_json_params: list every string, number (and optionally null) value with its qualified name ("user.name", "ids[0]", "@items") and [begin,end) byte offsets. Read-only, no network.
• inject_json_param: replace one named value with a payload and get the rewritten body back. Everything outside the replaced span is unchanged. Read-only, no network.
• list_rules: show the active scan rules. Read-only, no network.
• scan_json_endpoint: send the body to a target with each rule's payloads injected into each param and report findings. Sends network traffic; only use against systems the user is authorized to test.

Bodies that are not JSON the extractor accepts return a structured error with the failing byte offset.`
