package jsonparam

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Scenarios(t *testing.T) {
	t.Run("object with string and number", func(t *testing.T) {
		params, err := Extract(`{"a":"x","b":1}`, false)
		require.NoError(t, err)
		assert.Equal(t, []Param{
			{Name: "a", Value: "x", Begin: 6, End: 7},
			{Name: "b", Value: "1", Begin: 14, End: 15, Numeric: true},
		}, params)
	})

	t.Run("array field", func(t *testing.T) {
		params, err := Extract(`{"a":[1,2,3]}`, false)
		require.NoError(t, err)
		require.Len(t, params, 3)
		for i, want := range []string{"1", "2", "3"} {
			assert.Equal(t, indexName("a", i), params[i].Name)
			assert.Equal(t, want, params[i].Value)
			assert.True(t, params[i].Numeric)
		}
	})

	t.Run("empty object", func(t *testing.T) {
		params, err := Extract(`{}`, true)
		require.NoError(t, err)
		assert.Empty(t, params)
	})

	t.Run("null with policy on", func(t *testing.T) {
		params, err := Extract(`{"a":null}`, true)
		require.NoError(t, err)
		require.Len(t, params, 1)
		assert.Equal(t, Param{Name: "a", Null: true, Begin: 5, End: 9, Numeric: true}, params[0])
		assert.Empty(t, params[0].Value)
	})

	t.Run("null with policy off", func(t *testing.T) {
		params, err := Extract(`{"a":null}`, false)
		require.NoError(t, err)
		assert.Empty(t, params)
	})

	t.Run("missing closing brace", func(t *testing.T) {
		body := `{"a":"x"`
		_, err := Extract(body, false)
		require.Error(t, err)
		se, ok := AsSyntaxError(err)
		require.True(t, ok)
		assert.Equal(t, KindUnterminated, se.Kind)
		assert.Equal(t, len(body), se.Offset)
		assert.Contains(t, se.Msg, "'}'")
	})

	t.Run("top-level array", func(t *testing.T) {
		params, err := Extract(`[1,2]`, false)
		require.NoError(t, err)
		require.Len(t, params, 2)
		assert.Equal(t, "@items[0]", params[0].Name)
		assert.Equal(t, "@items[1]", params[1].Name)
	})
}

func TestExtract_EmptyInput(t *testing.T) {
	for _, body := range []string{"", "  \n\t"} {
		params, err := Extract(body, true)
		require.NoError(t, err)
		assert.NotNil(t, params)
		assert.Empty(t, params)
	}
}

func TestExtract_NestedNames(t *testing.T) {
	body := `{"user":{"name":"bob","tags":["x","y"],"addr":{"zip":"123"}},"items":[{"id":7},{"id":8}]}`
	params, err := Extract(body, false)
	require.NoError(t, err)

	var names []string
	for _, p := range params {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"user.name",
		"user.tags[0]",
		"user.tags[1]",
		"user.addr.zip",
		"items[0].id",
		"items[1].id",
	}, names)
}

func TestExtract_EscapedStrings(t *testing.T) {
	body := `{"q":"a\"b\\cé","k\"ey":"v"}`
	params, err := Extract(body, false)
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Equal(t, `a"b\cé`, params[0].Value)
	assert.Equal(t, `a\"b\\cé`, params[0].Raw(body), "offsets cover the escaped token")
	assert.Equal(t, `k\"ey`, params[1].Name, "field names are kept as written")
}

func TestExtract_Numbers(t *testing.T) {
	body := `{"a":-1.5e+10,"b":0,"c":3E-2}`
	params, err := Extract(body, false)
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, "-1.5e+10", params[0].Value)
	assert.Equal(t, "0", params[1].Value)
	assert.Equal(t, "3E-2", params[2].Value)
}

func TestExtract_BooleansNotEmitted(t *testing.T) {
	params, err := Extract(`{"a":true,"b":FALSE,"c":"x","d":[True,false]}`, false)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "c", params[0].Name)
}

func TestExtract_Whitespace(t *testing.T) {
	body := "{\n  \"a\" : \"x\" ,\r\n\t\"b\":[ 1 , 2 ]\n}\n"
	params, err := Extract(body, false)
	require.NoError(t, err)
	require.Len(t, params, 3)
	for _, p := range params {
		assert.Equal(t, p.Value, p.Raw(body))
	}
}

func TestExtract_MultiByteOffsets(t *testing.T) {
	body := `{"név":"árvíztűrő","n":1}`
	params, err := Extract(body, false)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "név", params[0].Name)
	assert.Equal(t, "árvíztűrő", params[0].Raw(body))
	assert.Equal(t, "1", params[1].Raw(body))
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		kind   Kind
		offset int
	}{
		{"missing colon", `{"a" 1}`, KindMissingSeparator, 5},
		{"field without quotes", `{a:1}`, KindInvalidFieldName, 1},
		{"unterminated string", `{"a":"x`, KindUnterminated, 7},
		{"unterminated field", `{"a`, KindUnterminated, 3},
		{"EOF in number", `{"a":12`, KindUnterminated, 7},
		{"bare number", `42`, KindUnterminated, 2},
		{"bad token", `{"a":tru}`, KindInvalidToken, 8},
		{"EOF in token", `{"a":nu`, KindUnterminated, 7},
		{"unknown value", `{"a":@}`, KindUnknownValue, 5},
		{"value missing", `{"a":}`, KindUnexpectedTerminator, 5},
		{"bad object end", `{"a":1;"b":2}`, KindUnexpectedTerminator, 6},
		{"bad array end", `[1;2]`, KindUnexpectedTerminator, 2},
		{"unterminated array", `{"a":[1,2`, KindUnterminated, 9},
		{"EOF after colon", `{"a":`, KindUnterminated, 5},
		{"EOF after comma", `{"a":1,`, KindUnterminated, 7},
		{"escape at EOF", `{"a":"x\`, KindUnterminated, 8},
		{"bare garbage", `hello`, KindUnknownValue, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Extract(tt.body, true)
			require.Error(t, err)
			assert.Nil(t, params, "no partial result on error")
			assert.True(t, errors.Is(err, ErrSyntax))

			se, ok := AsSyntaxError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, se.Kind, se.Msg)
			assert.Equal(t, tt.offset, se.Offset, se.Msg)
			assert.LessOrEqual(t, se.Offset, len(tt.body))
			assert.Contains(t, err.Error(), "offset")
		})
	}
}

func TestExtract_UnknownValueNamesField(t *testing.T) {
	_, err := Extract(`{"user":{"age":x}}`, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"user.age"`)
	assert.Contains(t, err.Error(), `'x'`)
}

// corpus is shared by the property tests below.
var corpus = []string{
	`{"a":"x","b":1}`,
	`{"a":[1,2,3]}`,
	`{"a":null,"b":[null,"s",null],"c":{"d":null}}`,
	`[{"id":1,"tags":["a","b"]},{"id":2,"tags":[]},{}]`,
	`{"s":"esc\"aped\\\/\n","n":-0.5e3,"t":true,"f":false}`,
	"{ \"w\" :\t\"  spaced  \" ,\n \"x\" : [ \"1\" ,2 ] }",
	`"bare"`,
	`[]`,
	`[[1,2],[3]]`,
}

func TestExtract_RoundTripOffsets(t *testing.T) {
	for _, body := range corpus {
		params, err := Extract(body, true)
		require.NoError(t, err, body)
		for _, p := range params {
			require.True(t, 0 <= p.Begin && p.Begin <= p.End && p.End <= len(body), p.String())
			raw := p.Raw(body)
			switch {
			case p.Null:
				assert.True(t, strings.EqualFold(raw, "null"), p.String())
			case p.Numeric:
				assert.Equal(t, p.Value, raw)
			default:
				assert.Equal(t, `"`, body[p.Begin-1:p.Begin], "string span starts after the quote")
				assert.Equal(t, `"`, body[p.End:p.End+1], "string span ends before the quote")
				if !strings.Contains(raw, `\`) {
					assert.Equal(t, p.Value, raw)
				}
			}
		}
	}
}

func TestExtract_Order(t *testing.T) {
	for _, body := range corpus {
		params, err := Extract(body, true)
		require.NoError(t, err, body)
		for i := 1; i < len(params); i++ {
			assert.LessOrEqual(t, params[i-1].End, params[i].Begin, "spans must not overlap or go backwards in %s", body)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	for _, body := range corpus {
		first, err := Extract(body, true)
		require.NoError(t, err)
		second, err := Extract(body, true)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestExtract_ArrayNamesContiguous(t *testing.T) {
	const n = 25
	var b strings.Builder
	b.WriteString(`{"arr":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"v"`)
	}
	b.WriteString(`]}`)

	params, err := Extract(b.String(), false)
	require.NoError(t, err)
	require.Len(t, params, n)
	for i, p := range params {
		assert.Equal(t, indexName("arr", i), p.Name)
	}
}

func TestExtract_NullPolicyToggle(t *testing.T) {
	for _, body := range corpus {
		with, err := Extract(body, true)
		require.NoError(t, err)
		without, err := Extract(body, false)
		require.NoError(t, err)

		var filtered []Param
		for _, p := range with {
			if !p.Null {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			assert.Empty(t, without, body)
			continue
		}
		assert.Equal(t, filtered, without, body)
	}
}

func TestExtract_Concurrent(t *testing.T) {
	want := make([][]Param, len(corpus))
	for i, body := range corpus {
		p, err := Extract(body, true)
		require.NoError(t, err)
		want[i] = p
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, body := range corpus {
				got, err := Extract(body, true)
				assert.NoError(t, err)
				assert.Equal(t, want[i], got)
			}
		}()
	}
	wg.Wait()
}

func TestParam_Kind(t *testing.T) {
	assert.Equal(t, "string", Param{}.Kind())
	assert.Equal(t, "number", Param{Numeric: true}.Kind())
	assert.Equal(t, "null", Param{Null: true, Numeric: true}.Kind())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "unterminated", KindUnterminated.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func BenchmarkExtract(b *testing.B) {
	body := `{"user":{"name":"bob","email":"b@example.com","roles":["admin","dev"]},"page":1,"size":50,"filter":null}`
	b.SetBytes(int64(len(body)))
	for i := 0; i < b.N; i++ {
		_, _ = Extract(body, true)
	}
}
