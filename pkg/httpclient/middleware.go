package httpclient

import "net/http"

// middlewareTransport sets the configured User-Agent and headers on every
// outgoing request.
type middlewareTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   http.Header
}

// RoundTrip implements http.RoundTripper.
func (m *middlewareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so the caller's request is never mutated
	r := req.Clone(req.Context())

	for key, vals := range m.headers {
		r.Header.Del(key)
		for _, v := range vals {
			r.Header.Add(key, v)
		}
	}
	if m.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", m.userAgent)
	}

	return m.base.RoundTrip(r)
}
