// Package duration holds the time constants used across jsonparams.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.Shutdown)
//	client := httpclient.New(httpclient.Config{Timeout: duration.HTTPScanning})
//
// Timeout fields never take literal durations like `30 * time.Second`;
// TestNoHardcodedTimeouts enforces it.
package duration

import "time"

// HTTP client timeouts.
const (
	// HTTPScanning is the default per-probe timeout (10s)
	HTTPScanning = 10 * time.Second

	// DialTimeout bounds TCP and proxy dials (5s)
	DialTimeout = 5 * time.Second

	// TLSHandshake bounds the TLS handshake (5s)
	TLSHandshake = 5 * time.Second

	// IdleConn is how long idle keep-alive connections are kept (90s)
	IdleConn = 90 * time.Second
)

// Server and lifecycle timeouts.
const (
	// ReadHeader bounds header reads on the metrics listener (5s)
	ReadHeader = 5 * time.Second

	// Shutdown is the grace period for flushing spans and stopping servers (5s)
	Shutdown = 5 * time.Second

	// ContextScan bounds a whole active scan (15min)
	ContextScan = 15 * time.Minute
)
