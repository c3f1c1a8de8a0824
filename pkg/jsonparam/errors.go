package jsonparam

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every error Extract returns.
var ErrSyntax = errors.New("jsonparam: syntax error")

// Kind classifies a SyntaxError.
type Kind int

const (
	KindUnexpectedStart Kind = iota + 1
	KindMissingSeparator
	KindUnterminated
	KindUnexpectedTerminator
	KindUnknownValue
	KindInvalidToken
	KindInvalidFieldName
)

var kindNames = map[Kind]string{
	KindUnexpectedStart:      "unexpected_start",
	KindMissingSeparator:     "missing_separator",
	KindUnterminated:         "unterminated",
	KindUnexpectedTerminator: "unexpected_terminator",
	KindUnknownValue:         "unknown_value",
	KindInvalidToken:         "invalid_token",
	KindInvalidFieldName:     "invalid_field_name",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// SyntaxError reports where a body stopped following the grammar.
type SyntaxError struct {
	Kind   Kind
	Msg    string
	Offset int // byte offset of the offending rune, len(body) at end of input
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("jsonparam: %s at offset %d", e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// AsSyntaxError extracts the *SyntaxError from err, if any.
func AsSyntaxError(err error) (*SyntaxError, bool) {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// describe renders a rune for an error message.
func describe(r rune) string {
	if r == eof {
		return "EOF"
	}
	return fmt.Sprintf("%q", r)
}
