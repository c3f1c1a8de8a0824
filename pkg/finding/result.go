package finding

import (
	"fmt"
	"time"
)

// Finding is what a rule reports when a probe response matches.
type Finding struct {
	RuleID     int      `json:"rule_id"`
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Param      string   `json:"param"`
	Payload    string   `json:"payload"`
	Evidence   string   `json:"evidence"`
	Method     string   `json:"method,omitempty"`
	URL        string   `json:"url,omitempty"`
	StatusCode int      `json:"status_code,omitempty"`
	// Fingerprint identifies the injected body that triggered the finding.
	Fingerprint string `json:"fingerprint,omitempty"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s in %s (%s)", f.Severity, f.Rule, f.Param, f.Evidence)
}

// ScanResult is the base result type for scan operations.
type ScanResult struct {
	Target       string        `json:"target"`
	TestedParams int           `json:"tested_params,omitempty"`
	StartTime    time.Time     `json:"start_time,omitzero"`
	Duration     time.Duration `json:"duration,omitzero,format:nano"`
}
