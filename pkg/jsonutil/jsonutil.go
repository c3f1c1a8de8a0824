// Package jsonutil wraps github.com/go-json-experiment/json for the places
// that need a real JSON codec: decoding string tokens found by the
// parameter extractor, quoting payloads before they are spliced into a
// body, and encoding command/tool output.
//
// Usage:
//
//	value, err := jsonutil.Unquote(`café`) // "café"
//	quoted, err := jsonutil.Quote(`a"b`)        // `"a\"b"`
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the indented JSON encoding of v.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	// go-json-experiment uses jsontext options for indentation
	return json.Marshal(v, jsontext.WithIndentPrefix(prefix), jsontext.WithIndent(indent))
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// Quote returns s as a JSON string literal, surrounding quotes included.
// HTML characters are left as-is so payloads reach the target verbatim.
func Quote(s string) (string, error) {
	b, err := jsontext.AppendQuote(nil, []byte(s))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Escape is Quote without the surrounding quotes: the form a payload takes
// when it replaces the inside of an existing string literal.
func Escape(s string) (string, error) {
	q, err := Quote(s)
	if err != nil {
		return "", err
	}
	return q[1 : len(q)-1], nil
}

// Unquote decodes the body of a JSON string literal (the text between the
// quotes, escapes still in place).
func Unquote(raw string) (string, error) {
	b, err := jsontext.AppendUnquote(nil, []byte(`"`+raw+`"`))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Encoder writes one JSON document per Encode call, newline terminated.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewStreamEncoder creates an encoder that writes to w.
func NewStreamEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the JSON encoding of v to the stream, followed by a newline.
func (e *Encoder) Encode(v any) error {
	var err error
	if e.indent != "" {
		err = json.MarshalWrite(e.w, v, jsontext.WithIndent(e.indent))
	} else {
		err = json.MarshalWrite(e.w, v)
	}
	if err != nil {
		return err
	}
	_, err = e.w.Write([]byte{'\n'})
	return err
}

// SetIndent instructs the encoder to format each subsequent encoded value
// with the given indentation.
func (e *Encoder) SetIndent(prefix, indent string) {
	e.indent = indent
}
