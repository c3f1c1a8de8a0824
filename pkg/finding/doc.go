// Package finding holds the types shared by scan rules and the active
// scanner: severity levels, the finding a rule reports for one probe, and
// the base result of a scan.
//
// Usage:
//
//	type Result struct {
//	    finding.ScanResult
//	    Findings []finding.Finding `json:"findings,omitempty"`
//	}
package finding
