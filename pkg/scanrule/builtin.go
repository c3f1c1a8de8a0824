package scanrule

import (
	"fmt"
	"strings"

	"github.com/waftester/jsonparams/pkg/finding"
	"github.com/waftester/jsonparams/pkg/jsonparam"
)

// Built-in rule IDs.
const (
	IDReflectedScript = 40012
	IDSQLError        = 40018
	IDTypeConfusion   = 40030
)

// Builtin returns fresh instances of the built-in rules.
func Builtin() []Rule {
	return []Rule{
		NewReflectedScriptRule(),
		NewSQLErrorRule(),
		NewTypeConfusionRule(),
	}
}

// SQLErrorRule injects quote-breaking payloads and looks for database
// error messages that were not in the baseline response.
type SQLErrorRule struct {
	payloads []string
	patterns []string
}

// NewSQLErrorRule creates the rule with its default payloads and patterns.
func NewSQLErrorRule() *SQLErrorRule {
	return &SQLErrorRule{
		payloads: []string{
			"'",
			`"`,
			"' OR 1=1--",
		},
		// lowercase
		patterns: []string{
			"you have an error in your sql syntax",
			"warning: mysql",
			"mysql_fetch_array()",
			"pg_query():",
			"postgresql query failed",
			"unclosed quotation mark after the character string",
			"odbc sql server driver",
			"sqlstate[hy000]",
			"sqlstate[42000]",
			"syntax error in query expression",
			"sqlite3.operationalerror",
			"ora-00933",
		},
	}
}

func (r *SQLErrorRule) ID() int          { return IDSQLError }
func (r *SQLErrorRule) Name() string     { return "SQL Injection (error based)" }
func (r *SQLErrorRule) Category() string { return "injection" }
func (r *SQLErrorRule) Description() string {
	return "Breaks out of string and numeric params and watches for database error messages"
}

func (r *SQLErrorRule) Payloads(p jsonparam.Param) []string {
	if p.Numeric {
		// keep the original number so the payload breaks the query after it
		out := make([]string, len(r.payloads))
		for i, pl := range r.payloads {
			out[i] = p.Value + pl
		}
		return out
	}
	return r.payloads
}

func (r *SQLErrorRule) Evaluate(p Probe) *finding.Finding {
	pattern := matchAny(p.Response, r.patterns)
	if pattern == "" || matchAny(p.BaselineResponse, []string{pattern}) != "" {
		return nil
	}
	conf := 0.80
	if strings.Contains(strings.ToLower(p.Payload), "or 1=1") {
		conf = 0.86
	}
	return &finding.Finding{
		RuleID:     r.ID(),
		Rule:       r.Name(),
		Severity:   finding.High,
		Confidence: conf,
		Param:      p.Param.Name,
		Payload:    p.Payload,
		Evidence:   fmt.Sprintf("DB error pattern %q (HTTP %d)", pattern, p.StatusCode),
		StatusCode: p.StatusCode,
	}
}

// ReflectedScriptRule injects a unique marker with HTML metacharacters and
// reports it when the marker comes back unencoded in an HTML response.
type ReflectedScriptRule struct {
	payload string
}

// NewReflectedScriptRule creates the rule with its default marker.
func NewReflectedScriptRule() *ReflectedScriptRule {
	return &ReflectedScriptRule{payload: `jsonparams_xss_probe_<>"'</script>`}
}

func (r *ReflectedScriptRule) ID() int          { return IDReflectedScript }
func (r *ReflectedScriptRule) Name() string     { return "Cross Site Scripting (reflected)" }
func (r *ReflectedScriptRule) Category() string { return "injection" }
func (r *ReflectedScriptRule) Description() string {
	return "Reflects an HTML breaking marker through string params"
}

func (r *ReflectedScriptRule) Payloads(p jsonparam.Param) []string {
	if p.Numeric {
		return nil
	}
	return []string{r.payload}
}

func (r *ReflectedScriptRule) Evaluate(p Probe) *finding.Finding {
	if !strings.Contains(p.Response, p.Payload) {
		return nil
	}
	conf := 0.78
	if ct := p.Header.Get("Content-Type"); strings.Contains(ct, "html") {
		conf = 0.85
	} else if ct != "" {
		// reflected into JSON or text, not directly exploitable
		return nil
	}
	return &finding.Finding{
		RuleID:     r.ID(),
		Rule:       r.Name(),
		Severity:   finding.Medium,
		Confidence: conf,
		Param:      p.Param.Name,
		Payload:    p.Payload,
		Evidence:   fmt.Sprintf("payload reflected unencoded via param %q", p.Param.Name),
		StatusCode: p.StatusCode,
	}
}

// TypeConfusionRule replaces numbers with values of the wrong type or
// out-of-range magnitude and reports server errors the original value did
// not cause. It is configured like an external plugin.
type TypeConfusionRule struct {
	payloads  []string
	minStatus int
}

// NewTypeConfusionRule creates the rule with its defaults.
func NewTypeConfusionRule() *TypeConfusionRule {
	return &TypeConfusionRule{
		payloads: []string{
			"jsonparams",
			"-1",
			"1e309",
			"99999999999999999999999",
		},
		minStatus: 500,
	}
}

func (r *TypeConfusionRule) ID() int          { return IDTypeConfusion }
func (r *TypeConfusionRule) Name() string     { return "Numeric Type Confusion" }
func (r *TypeConfusionRule) Category() string { return "input-validation" }
func (r *TypeConfusionRule) Version() string  { return "1.0.0" }
func (r *TypeConfusionRule) Description() string {
	return "Sends strings and out-of-range numbers to numeric params and watches for server errors"
}

// Init accepts "payloads" ([]string or []any of strings) and "min_status"
// (int or float64).
func (r *TypeConfusionRule) Init(config map[string]any) error {
	if v, ok := config["payloads"]; ok {
		switch pl := v.(type) {
		case []string:
			r.payloads = pl
		case []any:
			out := make([]string, 0, len(pl))
			for _, item := range pl {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("scanrule: %s: payloads must be strings, got %T", r.Name(), item)
				}
				out = append(out, s)
			}
			r.payloads = out
		default:
			return fmt.Errorf("scanrule: %s: payloads must be a list, got %T", r.Name(), v)
		}
	}
	if v, ok := config["min_status"]; ok {
		switch n := v.(type) {
		case int:
			r.minStatus = n
		case float64:
			r.minStatus = int(n)
		default:
			return fmt.Errorf("scanrule: %s: min_status must be a number, got %T", r.Name(), v)
		}
	}
	return nil
}

func (r *TypeConfusionRule) Payloads(p jsonparam.Param) []string {
	if !p.Numeric || p.Null {
		return nil
	}
	return r.payloads
}

func (r *TypeConfusionRule) Evaluate(p Probe) *finding.Finding {
	if p.StatusCode < r.minStatus || (p.BaselineStatus != 0 && p.BaselineStatus >= r.minStatus) {
		return nil
	}
	return &finding.Finding{
		RuleID:     r.ID(),
		Rule:       r.Name(),
		Severity:   finding.Low,
		Confidence: 0.6,
		Param:      p.Param.Name,
		Payload:    p.Payload,
		Evidence:   fmt.Sprintf("HTTP %d (baseline %d)", p.StatusCode, p.BaselineStatus),
		StatusCode: p.StatusCode,
	}
}

// matchAny returns the first pattern found in body, case-insensitively.
func matchAny(body string, patterns []string) string {
	if body == "" {
		return ""
	}
	lower := strings.ToLower(body)
	for _, pat := range patterns {
		if strings.Contains(lower, pat) {
			return pat
		}
	}
	return ""
}
