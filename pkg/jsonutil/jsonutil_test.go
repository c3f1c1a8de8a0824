package jsonutil

import (
	"bytes"
	"strings"
	"testing"
)

// TestUnquote verifies escape sequences inside a string token are decoded.
func TestUnquote(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", "Alice", "Alice", false},
		{"escaped quote", `a\"b`, `a"b`, false},
		{"escaped backslash", `c:\\tmp`, `c:\tmp`, false},
		{"unicode escape", `caf\u00e9`, "café", false},
		{"newline escape", `a\nb`, "a\nb", false},
		{"empty", "", "", false},
		{"bad escape", `\x41`, "", true},
		{"raw control char", "a\nb", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unquote(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unquote(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unquote(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// TestQuote verifies payloads are quoted without HTML escaping.
func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", `"abc"`},
		{`a"b`, `"a\"b"`},
		{`\`, `"\\"`},
		{"<script>", `"<script>"`},
		{"line\nbreak", `"line\nbreak"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Quote(tt.in)
			if err != nil {
				t.Fatalf("Quote(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// TestEscapeUnquoteRoundTrip verifies Escape output decodes back through Unquote.
func TestEscapeUnquoteRoundTrip(t *testing.T) {
	for _, s := range []string{`' OR '1'='1`, `"><svg onload=alert(1)>`, "tab\there", "naïve"} {
		esc, err := Escape(s)
		if err != nil {
			t.Fatalf("Escape(%q) error = %v", s, err)
		}
		back, err := Unquote(esc)
		if err != nil {
			t.Fatalf("Unquote(%q) error = %v", esc, err)
		}
		if back != s {
			t.Errorf("round trip %q -> %q -> %q", s, esc, back)
		}
	}
}

// TestMarshalIndent verifies MarshalIndent produces indented JSON.
func TestMarshalIndent(t *testing.T) {
	got, err := MarshalIndent(map[string]int{"a": 1, "b": 2}, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	result := string(got)
	if !strings.Contains(result, "\n") || !strings.Contains(result, "  ") {
		t.Errorf("MarshalIndent() = %q, want indented output", result)
	}
}

// TestEncoder verifies the streaming encoder works correctly.
func TestEncoder(t *testing.T) {
	t.Run("multiple encodes", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewStreamEncoder(&buf)

		for i := 1; i <= 3; i++ {
			if err := enc.Encode(i); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Errorf("expected 3 lines, got %d: %q", len(lines), buf.String())
		}
	})

	t.Run("with indentation", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewStreamEncoder(&buf)
		enc.SetIndent("", "    ")

		if err := enc.Encode(map[string]int{"key": 42}); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if !strings.Contains(buf.String(), "    ") {
			t.Error("Encode() with SetIndent() should produce indented output")
		}
	})
}

// TestValid verifies JSON validation.
func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`{}`, true},
		{`[1,2,3]`, true},
		{`null`, true},
		{`{invalid}`, false},
		{``, false},
		{`{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Valid([]byte(tt.input)); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestRoundTrip verifies Marshal/Unmarshal round-trip consistency.
func TestRoundTrip(t *testing.T) {
	type request struct {
		Body      string `json:"body"`
		ScanNulls bool   `json:"scan_nulls"`
	}

	data, err := Marshal(request{Body: `{"a":1}`, ScanNulls: true})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got request
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Body != `{"a":1}` || !got.ScanNulls {
		t.Errorf("round trip = %+v", got)
	}
}

func BenchmarkUnquote(b *testing.B) {
	raw := `caf\u00e9 \"quoted\" \\ path`
	for i := 0; i < b.N; i++ {
		_, _ = Unquote(raw)
	}
}
