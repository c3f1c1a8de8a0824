package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/jsonparams/pkg/config"
	"github.com/waftester/jsonparams/pkg/iohelper"
	"github.com/waftester/jsonparams/pkg/jsonparam"
)

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"Authorization: Bearer abc", "X-Trace:1", "X-Trace: 2"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", h.Get("Authorization"))
	assert.Equal(t, []string{"1", "2"}, h.Values("X-Trace"))

	for _, bad := range []string{"no-colon", ": value", "   : x"} {
		_, err := parseHeaders([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestHeaderSlice(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var h headerSlice
	fs.Var(&h, "H", "")
	require.NoError(t, fs.Parse([]string{"-H", "A: 1", "-H", "B: 2"}))
	assert.Equal(t, headerSlice{"A: 1", "B: 2"}, h)
	assert.Equal(t, "A: 1; B: 2", h.String())
}

func TestParseRuleIDs(t *testing.T) {
	ids, err := parseRuleIDs("40018, 40012,,90029 ")
	require.NoError(t, err)
	assert.Equal(t, []int{40018, 40012, 90029}, ids)

	ids, err = parseRuleIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseRuleIDs("40018,sqli")
	assert.ErrorContains(t, err, `"sqli"`)
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"10", 10 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{"0", 0, true},
		{"-5s", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeout(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadBody(t *testing.T) {
	t.Run("inline data wins", func(t *testing.T) {
		got, err := readBody(`{"a":1}`, "ignored.json", strings.NewReader("stdin"), 1024)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, got)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "body.json")
		require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o600))
		got, err := readBody("", path, nil, 1024)
		require.NoError(t, err)
		assert.Equal(t, `[1,2]`, got)
	})

	t.Run("stdin", func(t *testing.T) {
		for _, path := range []string{"", "-"} {
			got, err := readBody("", path, strings.NewReader(`"x"`), 1024)
			require.NoError(t, err)
			assert.Equal(t, `"x"`, got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readBody("", filepath.Join(t.TempDir(), "nope.json"), nil, 1024)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := readBody(strings.Repeat("a", 11), "", nil, 10)
		assert.ErrorIs(t, err, iohelper.ErrTooLarge)

		_, err = readBody("", "-", strings.NewReader(strings.Repeat("a", 11)), 10)
		assert.ErrorIs(t, err, iohelper.ErrTooLarge)
	})
}

func TestSyntaxContext(t *testing.T) {
	body := `{"a" 1}`
	_, err := jsonparam.Extract(body, false)
	require.Error(t, err)

	got := syntaxContext(body, err)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "    "+body, lines[0])
	assert.Equal(t, strings.Repeat(" ", 4+5)+"^", lines[1])

	assert.Empty(t, syntaxContext(body, os.ErrNotExist))
}

func TestSyntaxContext_LongBody(t *testing.T) {
	body := `{"padding":"` + strings.Repeat("x", 100) + `" "b":1}`
	_, err := jsonparam.Extract(body, false)
	se, ok := jsonparam.AsSyntaxError(err)
	require.True(t, ok)

	got := syntaxContext(body, err)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	caret := strings.Index(lines[1], "^")
	assert.Equal(t, body[se.Offset], lines[0][caret])
}

func TestSyntaxContext_MultiByte(t *testing.T) {
	tests := map[string]string{
		"accents before error": `{"név":"árvíztűrő" x}`,
		// the window start lands inside a two-byte rune
		"window splits a rune": `{"ab":"` + strings.Repeat("é", 20) + `"  x}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := jsonparam.Extract(body, false)
			require.Error(t, err)

			lines := strings.Split(syntaxContext(body, err), "\n")
			require.Len(t, lines, 2)
			require.True(t, utf8.ValidString(lines[0]), "snippet %q", lines[0])

			caret := strings.Index(lines[1], "^")
			snippet := []rune(lines[0])
			require.Less(t, caret, len(snippet))
			assert.Equal(t, 'x', snippet[caret])
		})
	}
}

func TestCommonFlagsSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsonparams.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan_null_values: true\nlog_level: warn\n"), 0o600))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := registerCommonFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", path, "-silent", "-no-color"}))

	cfg, logger, err := c.setup()
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, cfg.ScanNullValues)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestCommonFlagsSetup_VerboseOverridesLevel(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := registerCommonFlags(fs)
	require.NoError(t, fs.Parse([]string{"-v", "-silent"}))

	cfg, _, err := c.setup()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestCommonFlagsSetup_BadConfig(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := registerCommonFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}))

	_, _, err := c.setup()
	assert.Error(t, err)
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("JSONPARAMS_TEST_VALUE", "")
	assert.Equal(t, "fallback", envOrDefault("JSONPARAMS_TEST_VALUE", "fallback"))
	t.Setenv("JSONPARAMS_TEST_VALUE", "set")
	assert.Equal(t, "set", envOrDefault("JSONPARAMS_TEST_VALUE", "fallback"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	level, err := config.ParseLevel("warn")
	require.NoError(t, err)
	logger := newLogger(&buf, level)

	logger.Info("hidden")
	logger.Warn("shown", "param", "user.id")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "param=user.id")
}
