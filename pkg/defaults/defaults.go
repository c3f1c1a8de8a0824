// Package defaults holds the default values used across jsonparams.
//
// Usage:
//
//	cfg.Scan.Concurrency = defaults.Concurrency
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
package defaults

import "fmt"

// Version is the current jsonparams version
const Version = "1.0.0"

// Scanning.
const (
	// Concurrency is the default number of probes in flight (5)
	Concurrency = 5

	// ConcurrencyMax caps the configurable concurrency (50)
	ConcurrencyMax = 50

	// RateLimit is the default probe rate in requests per second (20)
	RateLimit = 20

	// MaxBodySize is the largest request body the extractor accepts (1MB)
	MaxBodySize = 1024 * 1024

	// MaxResponseSize is how much of each probe response is read (2MB)
	MaxResponseSize = 2 * 1024 * 1024
)

// Content types.
const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"
)

// Telemetry.
const (
	// ServiceName is the OpenTelemetry service.name
	ServiceName = "jsonparams"
)

// User agents.
const (
	// UAMinimal is the plain jsonparams user agent
	UAMinimal = "jsonparams/" + Version
)

// UserAgent returns the jsonparams user agent with context
func UserAgent(context string) string {
	if context == "" {
		return UAMinimal
	}
	return fmt.Sprintf("jsonparams/%s (%s)", Version, context)
}
