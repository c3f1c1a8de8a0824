package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/waftester/jsonparams/pkg/activescan"
	"github.com/waftester/jsonparams/pkg/jsonparam"
	"github.com/waftester/jsonparams/pkg/variant"
)

// registerTools adds the jsonparams tools to the MCP server.
func (s *Server) registerTools() {
	s.addExtractTool()
	s.addInjectTool()
	s.addListRulesTool()
	if s.config.Scanner != nil {
		s.addScanTool()
	}
}

func (s *Server) scanNulls(v *bool) bool {
	if v == nil {
		return s.config.ScanNullValues
	}
	return *v
}

// syntaxErrorResult reports a body the extractor rejected.
func syntaxErrorResult(err error) *mcp.CallToolResult {
	out := map[string]any{"error": err.Error()}
	if se, ok := jsonparam.AsSyntaxError(err); ok {
		out["kind"] = se.Kind.String()
		out["offset"] = se.Offset
	}
	return jsonError(out)
}

// ═══════════════════════════════════════════════════════════════════════════
// extract_json_params
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addExtractTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "extract_json_params",
			Title: "Extract JSON Params",
			Description: `List the injectable values of a JSON request body WITHOUT sending any traffic.

Each param has a qualified name (nested keys joined with '.', array elements as name[i], unnamed top-level values as @items), its decoded value, and the [begin,end) byte span of the token in the body (quotes excluded).

Booleans are never reported. Nulls are reported only when scan_nulls is true.

EXAMPLE INPUTS:
• {"body": "{\"user\":{\"name\":\"alice\",\"ids\":[1,2]}}"}
• {"body": "{\"a\":null}", "scan_nulls": true}`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"body": map[string]any{
						"type":        "string",
						"description": "The raw JSON request body.",
					},
					"scan_nulls": map[string]any{
						"type":        "boolean",
						"description": "Report explicit null values as params.",
					},
				},
				"required": []string{"body"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Extract JSON Params",
			},
		},
		s.handleExtract,
	)
}

type extractArgs struct {
	Body      string `json:"body"`
	ScanNulls *bool  `json:"scan_nulls"`
}

type extractResult struct {
	Count       int               `json:"count"`
	Fingerprint string            `json:"fingerprint"`
	Params      []jsonparam.Param `json:"params"`
}

func (s *Server) handleExtract(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args extractArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected 'body' (string) and optional 'scan_nulls' (boolean).", err)), nil
	}

	params, err := jsonparam.Extract(args.Body, s.scanNulls(args.ScanNulls))
	if err != nil {
		s.logger.Debug("extract rejected body", slog.String("error", err.Error()))
		return syntaxErrorResult(err), nil
	}

	return jsonResult(extractResult{
		Count:       len(params),
		Fingerprint: variant.Fingerprint(args.Body),
		Params:      params,
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// inject_json_param
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addInjectTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "inject_json_param",
			Title: "Inject Into JSON Param",
			Description: `Replace one param of a JSON body with a payload and return the rewritten body. No traffic is sent.

Only the param's [begin,end) span changes. String params receive the payload JSON-escaped; number and null params receive it bare when it is a valid JSON number and as a quoted string otherwise. Set raw to splice the payload exactly as given.

Set all instead of name to get one rewritten body per param.

EXAMPLE INPUTS:
• {"body": "{\"id\":7}", "name": "id", "payload": "7 OR 1=1"}
• {"body": "{\"q\":\"x\"}", "name": "q", "payload": "<svg onload=alert(1)>"}
• {"body": "{\"a\":\"1\",\"b\":\"2\"}", "all": true, "payload": "'"}`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"body": map[string]any{
						"type":        "string",
						"description": "The raw JSON request body.",
					},
					"name": map[string]any{
						"type":        "string",
						"description": "Qualified param name as returned by extract_json_params. The first param with this name is used.",
					},
					"payload": map[string]any{
						"type":        "string",
						"description": "Value to write into the param.",
					},
					"raw": map[string]any{
						"type":        "boolean",
						"description": "Splice the payload without escaping or quoting.",
					},
					"all": map[string]any{
						"type":        "boolean",
						"description": "Inject into every param in turn instead of one named param.",
					},
					"scan_nulls": map[string]any{
						"type":        "boolean",
						"description": "Treat explicit nulls as injectable params.",
					},
				},
				"required": []string{"body", "payload"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Inject Into JSON Param",
			},
		},
		s.handleInject,
	)
}

type injectArgs struct {
	Body      string `json:"body"`
	Name      string `json:"name"`
	Payload   string `json:"payload"`
	Raw       bool   `json:"raw"`
	All       bool   `json:"all"`
	ScanNulls *bool  `json:"scan_nulls"`
}

type injectResult struct {
	Param       jsonparam.Param `json:"param"`
	Body        string          `json:"body"`
	Fingerprint string          `json:"fingerprint"`
}

func (s *Server) handleInject(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args injectArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Name == "" && !args.All {
		return errorResult("either 'name' or 'all' is required. Call extract_json_params first to see the param names."), nil
	}

	doc, err := variant.New(args.Body, s.scanNulls(args.ScanNulls))
	if err != nil {
		return syntaxErrorResult(err), nil
	}

	if args.All {
		out := make([]injectResult, 0, len(doc.Params()))
		for _, p := range doc.Params() {
			body, err := s.inject(doc, p, args.Payload, args.Raw)
			if err != nil {
				return errorResult(fmt.Sprintf("inject %s: %v", p.Name, err)), nil
			}
			out = append(out, injectResult{Param: p, Body: body, Fingerprint: variant.Fingerprint(body)})
		}
		return jsonResult(map[string]any{"count": len(out), "variants": out})
	}

	p, ok := doc.Lookup(args.Name)
	if !ok {
		names := make([]string, 0, len(doc.Params()))
		for _, p := range doc.Params() {
			names = append(names, p.Name)
		}
		return jsonError(map[string]any{
			"error":     fmt.Sprintf("%v: %q", variant.ErrUnknownParam, args.Name),
			"available": names,
		}), nil
	}

	body, err := s.inject(doc, p, args.Payload, args.Raw)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(injectResult{Param: p, Body: body, Fingerprint: variant.Fingerprint(body)})
}

func (s *Server) inject(doc *variant.JSON, p jsonparam.Param, payload string, raw bool) (string, error) {
	if raw {
		return doc.InjectRaw(p, payload)
	}
	return doc.Inject(p, payload)
}

// ═══════════════════════════════════════════════════════════════════════════
// list_rules
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addListRulesTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "list_rules",
			Title:       "List Scan Rules",
			Description: "List the scan rules scan_json_endpoint runs, with ID, name, category and description. No traffic is sent.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "List Scan Rules",
			},
		},
		s.handleListRules,
	)
}

type ruleEntry struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	Version     string `json:"version,omitempty"`
}

func (s *Server) handleListRules(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := s.config.Registry.All()
	active := make(map[int]bool)
	for _, r := range s.config.Registry.Active() {
		active[r.ID()] = true
	}

	out := make([]ruleEntry, 0, len(rules))
	for _, r := range rules {
		e := ruleEntry{
			ID:          r.ID(),
			Name:        r.Name(),
			Category:    r.Category(),
			Description: r.Description(),
			Active:      active[r.ID()],
		}
		if pr, ok := r.(interface{ Version() string }); ok {
			e.Version = pr.Version()
		}
		out = append(out, e)
	}
	return jsonResult(map[string]any{"count": len(out), "rules": out})
}

// ═══════════════════════════════════════════════════════════════════════════
// scan_json_endpoint
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addScanTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "scan_json_endpoint",
			Title: "Scan JSON Endpoint",
			Description: `Actively probe an HTTP endpoint that accepts a JSON body. Every param of the body is rewritten with each rule's payloads and sent; responses are compared with a baseline request.

SENDS NETWORK TRAFFIC. Only use against targets the user is authorized to test.

A body that is not valid JSON is reported in parse_error and no probes are sent.

EXAMPLE INPUTS:
• {"target": "https://api.example.com/users", "body": "{\"name\":\"alice\",\"id\":7}"}
• {"target": "https://api.example.com/search", "method": "PUT", "body": "{\"q\":\"x\"}", "headers": {"Authorization": "Bearer ..."}}`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"target": map[string]any{
						"type":        "string",
						"description": "Endpoint URL including scheme.",
					},
					"method": map[string]any{
						"type":        "string",
						"description": "HTTP method. Defaults to POST.",
						"enum":        []string{"POST", "PUT", "PATCH", "DELETE", "GET"},
					},
					"body": map[string]any{
						"type":        "string",
						"description": "The JSON request body to probe.",
					},
					"headers": map[string]any{
						"type":                 "object",
						"description":          "Extra request headers.",
						"additionalProperties": map[string]any{"type": "string"},
					},
				},
				"required": []string{"target", "body"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(true),
				Title:           "Scan JSON Endpoint",
			},
		},
		s.handleScan,
	)
}

type scanArgs struct {
	Target  string            `json:"target"`
	Method  string            `json:"method"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func (s *Server) handleScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args scanArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if err := validateTargetURL(args.Target); err != nil {
		return errorResult(err.Error()), nil
	}

	header := make(http.Header, len(args.Headers))
	for k, v := range args.Headers {
		header.Set(k, v)
	}

	notifyProgress(ctx, req, 0, 100, "Scanning "+args.Target)
	res, err := s.config.Scanner.Scan(ctx, activescan.Request{
		Method: strings.ToUpper(args.Method),
		URL:    args.Target,
		Header: header,
		Body:   args.Body,
	})
	if err != nil && res == nil {
		return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
	}
	notifyProgress(ctx, req, 100, 100, "Scan complete")

	if res.ParseError != "" {
		logToSession(ctx, req, logWarning, "body is not parseable JSON: "+res.ParseError)
	} else {
		logToSession(ctx, req, logInfo, fmt.Sprintf("%d findings from %d probes on %s", len(res.Findings), res.Probes, args.Target))
	}

	if err != nil {
		// partial result: report what was gathered with the error
		out, merr := jsonResult(map[string]any{"error": err.Error(), "result": res})
		if merr != nil {
			return nil, merr
		}
		out.IsError = !errors.Is(err, context.Canceled)
		return out, nil
	}
	return jsonResult(res)
}

// validateTargetURL checks that target is an absolute http(s) URL.
func validateTargetURL(target string) error {
	if target == "" {
		return errors.New("target URL is required. Example: {\"target\": \"https://api.example.com/users\"}")
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid target URL %q: %v", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target URL must use http or https, got %q", target)
	}
	if u.Host == "" {
		return fmt.Errorf("target URL %q has no host", target)
	}
	return nil
}
