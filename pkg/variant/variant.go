// Package variant rewrites a JSON body one param at a time using the byte
// spans recorded by jsonparam. Everything outside the replaced span is
// left byte-for-byte as it was.
package variant

import (
	"errors"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/waftester/jsonparams/pkg/jsonparam"
	"github.com/waftester/jsonparams/pkg/jsonutil"
)

var (
	// ErrUnknownParam is returned by InjectByName when no param has the name.
	ErrUnknownParam = errors.New("variant: unknown param")
	// ErrOffsetOutOfRange is returned when a param span does not fit the body.
	ErrOffsetOutOfRange = errors.New("variant: offset out of range")
)

// JSON is a parsed body ready for injection. It is immutable and safe for
// concurrent use.
type JSON struct {
	body   string
	params []jsonparam.Param
}

// Injected is one rewritten body and the param it was derived from.
type Injected struct {
	Param jsonparam.Param `json:"param"`
	Body  string          `json:"body"`
}

// New extracts the params of body once. Syntax errors from the extractor
// are returned unchanged, so errors.Is(err, jsonparam.ErrSyntax) holds.
func New(body string, scanNulls bool) (*JSON, error) {
	params, err := jsonparam.Extract(body, scanNulls)
	if err != nil {
		return nil, err
	}
	return &JSON{body: body, params: params}, nil
}

// Body returns the original body.
func (j *JSON) Body() string { return j.body }

// Params returns a copy of the extracted params in document order.
func (j *JSON) Params() []jsonparam.Param {
	out := make([]jsonparam.Param, len(j.params))
	copy(out, j.params)
	return out
}

// Inject returns the body with p's span replaced by payload, encoded so the
// result stays well-formed: string params receive the payload escaped,
// numeric and null params receive a bare number or a quoted string.
func (j *JSON) Inject(p jsonparam.Param, payload string) (string, error) {
	enc, err := Encode(p, payload)
	if err != nil {
		return "", err
	}
	return j.InjectRaw(p, enc)
}

// InjectRaw splices payload into p's span without any encoding.
func (j *JSON) InjectRaw(p jsonparam.Param, payload string) (string, error) {
	if p.Begin < 0 || p.End < p.Begin || p.End > len(j.body) {
		return "", fmt.Errorf("%w: [%d,%d) in body of %d bytes", ErrOffsetOutOfRange, p.Begin, p.End, len(j.body))
	}
	return j.body[:p.Begin] + payload + j.body[p.End:], nil
}

// InjectByName injects into the first param called name.
func (j *JSON) InjectByName(name, payload string) (string, error) {
	p, ok := j.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return j.Inject(p, payload)
}

// Lookup returns the first param called name.
func (j *JSON) Lookup(name string) (jsonparam.Param, bool) {
	for _, p := range j.params {
		if p.Name == name {
			return p, true
		}
	}
	return jsonparam.Param{}, false
}

// All injects payload into every param in turn.
func (j *JSON) All(payload string) ([]Injected, error) {
	out := make([]Injected, 0, len(j.params))
	for _, p := range j.params {
		body, err := j.Inject(p, payload)
		if err != nil {
			return nil, fmt.Errorf("inject %s: %w", p.Name, err)
		}
		out = append(out, Injected{Param: p, Body: body})
	}
	return out, nil
}

// Encode renders payload the way Inject writes it into p's span.
func Encode(p jsonparam.Param, payload string) (string, error) {
	if !p.Numeric {
		return jsonutil.Escape(payload)
	}
	if isNumber(payload) {
		return payload, nil
	}
	return jsonutil.Quote(payload)
}

// Fingerprint is a short murmur3 hash of body, used to correlate probes
// and results in logs.
func Fingerprint(body string) string {
	return fmt.Sprintf("%08x", murmur3.Sum32([]byte(body)))
}

func isNumber(s string) bool {
	if s == "" || !(s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) {
		return false
	}
	// a valid JSON value starting with '-' or a digit can only be a number
	return jsonutil.Valid([]byte(s))
}
