package httpclient

import "errors"

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrProxyConnect indicates the upstream proxy is misconfigured or
	// could not be dialed.
	ErrProxyConnect = errors.New("httpclient: proxy connection failed")
)
