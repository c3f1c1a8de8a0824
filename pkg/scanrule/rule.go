// Package scanrule holds the checks that run against extracted JSON params
// and the registry that decides which of them are active.
package scanrule

import (
	"net/http"
	"time"

	"github.com/waftester/jsonparams/pkg/finding"
	"github.com/waftester/jsonparams/pkg/jsonparam"
)

// Rule is the identity every check shares.
type Rule interface {
	// ID is unique within a registry.
	ID() int

	// Name is the qualifying name used by RemoveByName.
	Name() string

	Description() string

	// Category groups rules for listing: "injection", "input-validation".
	Category() string
}

// ActiveRule sends payloads through a param and judges the responses.
type ActiveRule interface {
	Rule

	// Payloads returns the values to inject into p. An empty result skips p.
	Payloads(p jsonparam.Param) []string

	// Evaluate returns a finding when the probe response shows the issue.
	Evaluate(p Probe) *finding.Finding
}

// PluginRule is a rule supplied from outside the built-in set.
type PluginRule interface {
	Rule

	Version() string

	// Init is called once before the rule is registered.
	Init(config map[string]any) error
}

// Probe is one injected request and what came back.
type Probe struct {
	Param   jsonparam.Param
	Payload string
	// Body is the request body with the payload in place.
	Body string

	StatusCode int
	Header     http.Header
	Response   string
	Duration   time.Duration

	// Baseline is the response to the unmodified body.
	BaselineStatus   int
	BaselineResponse string
}
