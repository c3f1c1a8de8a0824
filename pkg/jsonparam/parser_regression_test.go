package jsonparam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Regression: lenient end-of-input handling ---
// EOF is only fatal inside an object that was opened with '{'. Bare
// top-level values and top-level arrays end cleanly at EOF. Proxied
// traffic relies on this, so these cases are pinned rather than tightened.

func TestQuirk_BareStringAtTopLevel(t *testing.T) {
	params, err := Extract(`"just a string"`, false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, ItemsName, params[0].Name)
	assert.Equal(t, "just a string", params[0].Value)
}

func TestQuirk_BareNumberNeedsTerminator(t *testing.T) {
	// Numbers are read until a non-numeric rune; EOF inside one is fatal
	// even at the top level.
	_, err := Extract(`42`, false)
	require.ErrorIs(t, err, ErrSyntax)

	params, err := Extract("42\n", false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "42", params[0].Value)
}

func TestQuirk_OpenedObjectMustClose(t *testing.T) {
	_, err := Extract(`{"a":[1,2]`, false)
	se, ok := AsSyntaxError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnterminated, se.Kind)
	assert.Equal(t, 10, se.Offset)
}

func TestQuirk_TrailingTextAfterObjectIgnored(t *testing.T) {
	params, err := Extract(`{"a":"x"} trailing garbage`, false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "a", params[0].Name)
}

func TestQuirk_TrailingCommaInArray(t *testing.T) {
	params, err := Extract(`{"a":[1,2,]}`, false)
	require.NoError(t, err)
	assert.Len(t, params, 2)
}

func TestQuirk_TopLevelArrayClosedByBrace(t *testing.T) {
	// After a top-level array the object state machine accepts '}' as a
	// terminator, the same as after a bare value.
	params, err := Extract(`[1]}`, false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "@items[0]", params[0].Name)
}

func TestQuirk_TopLevelArrayFollowedByField(t *testing.T) {
	params, err := Extract(`["a"],"b":"c"}`, false)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "@items[0]", params[0].Name)
	assert.Equal(t, "b", params[1].Name)
}

func TestQuirk_KeywordsCaseInsensitive(t *testing.T) {
	body := `{"a":NULL,"b":True,"c":fAlSe}`
	params, err := Extract(body, true)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "NULL", params[0].Raw(body))
	assert.True(t, params[0].Null)
}

func TestQuirk_DuplicateKeysKept(t *testing.T) {
	params, err := Extract(`{"a":"1","a":"2"}`, false)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, params[0].Name, params[1].Name)
	assert.Less(t, params[0].Begin, params[1].Begin)
}

func TestQuirk_EmptyArrayAndObjectValues(t *testing.T) {
	params, err := Extract(`{"a":[],"b":{},"c":"x"}`, false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "c", params[0].Name)
}

// Escapes the JSON decoder rejects are resolved one at a time: a bad
// escape in a string does not stop the valid ones around it from decoding.
func TestQuirk_LenientEscapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unknown escape drops backslash", `bad \q escape`, "bad q escape"},
		{"escaped apostrophe", `it\'s \"q\"`, `it's "q"`},
		{"dos path", `C:\dir\new`, "C:dir\new"},
		{"raw tab keeps other escapes", "x\\ny\tz", "x\ny\tz"},
		{"unicode next to bad escape", `\u00e9\x`, "éx"},
		{"surrogate pair", `\ud83d\ude00\'`, "\U0001F600'"},
		{"short unicode escape", `\u12 x\'`, "u12 x'"},
		{"escaped slash and backslash", `a\/b\\c\'`, `a/b\c'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"a":"` + tt.raw + `"}`
			params, err := Extract(body, false)
			require.NoError(t, err)
			require.Len(t, params, 1)
			assert.Equal(t, tt.want, params[0].Value)
			// the span still covers the token as written
			assert.Equal(t, tt.raw, params[0].Raw(body))
		})
	}
}

// A body of only whitespace has nothing to inject into and is not an
// error, unlike a non-empty body with an unknown leading character.
func TestQuirk_WhitespaceOnlyBodyHasNoParams(t *testing.T) {
	for _, body := range []string{" ", "\r\n", "\t \n  "} {
		params, err := Extract(body, true)
		require.NoError(t, err, "%q", body)
		assert.Empty(t, params)
	}

	_, err := Extract("  x", false)
	se, ok := AsSyntaxError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnknownValue, se.Kind)
	assert.Equal(t, 2, se.Offset)

	params, err := Extract("\n  {\"a\":1}", false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, 8, params[0].Begin)
}

func TestQuirk_NumberScanIsGreedy(t *testing.T) {
	// The number scanner does not validate shape, only the rune class.
	params, err := Extract(`{"a":1-2e+.3}`, false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "1-2e+.3", params[0].Value)
}
