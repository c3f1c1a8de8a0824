package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Supported upstream proxy schemes.
var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true, // DNS resolved by the proxy
}

// ProxyConfig is a parsed upstream proxy URL.
type ProxyConfig struct {
	URL      *url.URL
	Scheme   string
	Host     string
	Port     string
	Username string
	Password string
	IsSOCKS  bool
}

// ParseProxyURL validates an upstream proxy URL. It returns nil, nil for an
// empty string. A URL without a scheme is taken as http://.
func ParseProxyURL(proxyURL string) (*ProxyConfig, error) {
	if proxyURL == "" {
		return nil, nil
	}
	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("unsupported proxy scheme '%s', supported: http, https, socks5, socks5h", scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("proxy URL missing host")
	}
	port := parsed.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "8080"
		case "https":
			port = "8443"
		default:
			port = "1080"
		}
	}

	pc := &ProxyConfig{
		URL:     parsed,
		Scheme:  scheme,
		Host:    host,
		Port:    port,
		IsSOCKS: strings.HasPrefix(scheme, "socks"),
	}
	if parsed.User != nil {
		pc.Username = parsed.User.Username()
		pc.Password, _ = parsed.User.Password()
	}
	return pc, nil
}

// Address returns the proxy address in host:port format
func (p *ProxyConfig) Address() string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

// ContextDialer is the dial signature http.Transport expects.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TimeoutDialer bounds dials made through a proxy.Dialer, which may not
// support contexts itself.
type TimeoutDialer struct {
	dialer  proxy.Dialer
	timeout time.Duration
}

// DialContext implements ContextDialer.
func (t *TimeoutDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if cd, ok := t.dialer.(proxy.ContextDialer); ok {
		conn, err := cd.DialContext(ctx, network, address)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
		}
		return conn, nil
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := t.dialer.Dial(network, address)
		select {
		case ch <- result{conn, err}:
		case <-ctx.Done():
			if conn != nil {
				conn.Close()
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: proxy dial timeout: %v", ErrProxyConnect, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProxyConnect, r.err)
		}
		return r.conn, nil
	}
}

// CreateSOCKSDialer creates a SOCKS5 dialer for pc.
func CreateSOCKSDialer(pc *ProxyConfig, timeout time.Duration) (ContextDialer, error) {
	if pc == nil {
		return nil, fmt.Errorf("proxy config is nil")
	}

	// x/net/proxy knows socks5 and socks5h; both hand the hostname to the proxy
	proxyURL := &url.URL{Scheme: pc.Scheme, Host: pc.Address()}
	if pc.Username != "" {
		proxyURL.User = url.UserPassword(pc.Username, pc.Password)
	}

	dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS dialer: %w", err)
	}
	return &TimeoutDialer{dialer: dialer, timeout: timeout}, nil
}
