// Package httpclient builds the HTTP client the active scanner sends probes
// with: pooled connections, no redirect following, optional upstream proxy
// (HTTP or SOCKS5) and a fixed User-Agent and header set on every request.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: duration.HTTPScanning)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// Proxy is the upstream proxy URL (http, https, socks5, socks5h)
	Proxy string

	// MaxConnsPerHost bounds connections to the target (default: ConcurrencyMax)
	MaxConnsPerHost int

	// UserAgent is set on every request (default: defaults.UAMinimal)
	UserAgent string

	// Headers are added to every request
	Headers http.Header
}

// DefaultConfig returns the scanner defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         duration.HTTPScanning,
		MaxConnsPerHost: defaults.ConcurrencyMax,
		UserAgent:       defaults.UAMinimal,
	}
}

// New creates a client from cfg. A malformed proxy URL is an error rather
// than a silent direct connection.
func New(cfg Config) (*http.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.HTTPScanning
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = defaults.ConcurrencyMax
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UAMinimal
	}

	dialer := &net.Dialer{
		Timeout:   duration.DialTimeout,
		KeepAlive: duration.IdleConn,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     duration.IdleConn,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: duration.TLSHandshake,
		DialContext:         dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	pc, err := ParseProxyURL(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
	}
	if pc != nil {
		if pc.IsSOCKS {
			d, err := CreateSOCKSDialer(pc, duration.DialTimeout)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
			}
			transport.DialContext = d.DialContext
		} else {
			transport.Proxy = http.ProxyURL(pc.URL)
		}
	}

	return &http.Client{
		Transport: &middlewareTransport{
			base:      transport,
			userAgent: cfg.UserAgent,
			headers:   cfg.Headers.Clone(),
		},
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// scanners need to see the redirect response itself
			return http.ErrUseLastResponse
		},
	}, nil
}
