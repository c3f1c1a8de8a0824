package scanrule

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/jsonparams/pkg/finding"
	"github.com/waftester/jsonparams/pkg/jsonparam"
)

var (
	strParam = jsonparam.Param{Name: "user.name", Value: "bob"}
	numParam = jsonparam.Param{Name: "user.id", Value: "7", Numeric: true}
	nulParam = jsonparam.Param{Name: "note", Null: true, Numeric: true}
)

func TestBuiltin_IDsDistinct(t *testing.T) {
	seen := map[int]bool{}
	for _, rule := range Builtin() {
		assert.False(t, seen[rule.ID()], "duplicate id %d", rule.ID())
		seen[rule.ID()] = true
		assert.NotEmpty(t, rule.Name())
		assert.NotEmpty(t, rule.Description())
		assert.NotEmpty(t, rule.Category())
	}
}

func TestSQLErrorRule(t *testing.T) {
	r := NewSQLErrorRule()

	assert.Contains(t, r.Payloads(strParam), "'")
	assert.Contains(t, r.Payloads(numParam), "7'", "numeric payloads keep the original value")

	t.Run("error in response", func(t *testing.T) {
		f := r.Evaluate(Probe{
			Param:      strParam,
			Payload:    "' OR 1=1--",
			StatusCode: 500,
			Response:   "Warning: You have an error in your SQL syntax near ''",
		})
		require.NotNil(t, f)
		assert.Equal(t, IDSQLError, f.RuleID)
		assert.Equal(t, finding.High, f.Severity)
		assert.Equal(t, 0.86, f.Confidence)
		assert.Equal(t, "user.name", f.Param)
	})

	t.Run("error already in baseline", func(t *testing.T) {
		f := r.Evaluate(Probe{
			Param:            strParam,
			Payload:          "'",
			Response:         "pg_query(): failed",
			BaselineResponse: "PG_QUERY(): failed",
		})
		assert.Nil(t, f)
	})

	t.Run("clean response", func(t *testing.T) {
		assert.Nil(t, r.Evaluate(Probe{Param: strParam, Payload: "'", Response: `{"ok":true}`}))
	})
}

func TestReflectedScriptRule(t *testing.T) {
	r := NewReflectedScriptRule()
	payloads := r.Payloads(strParam)
	require.Len(t, payloads, 1)
	assert.Empty(t, r.Payloads(numParam))

	html := http.Header{"Content-Type": []string{"text/html; charset=utf-8"}}
	jsonCT := http.Header{"Content-Type": []string{"application/json"}}

	f := r.Evaluate(Probe{Param: strParam, Payload: payloads[0], Header: html, Response: "<p>" + payloads[0] + "</p>"})
	require.NotNil(t, f)
	assert.Equal(t, finding.Medium, f.Severity)

	assert.Nil(t, r.Evaluate(Probe{Param: strParam, Payload: payloads[0], Header: jsonCT, Response: payloads[0]}))
	assert.Nil(t, r.Evaluate(Probe{Param: strParam, Payload: payloads[0], Header: html, Response: "&lt;script&gt;"}))
}

func TestTypeConfusionRule(t *testing.T) {
	r := NewTypeConfusionRule()
	assert.NotEmpty(t, r.Payloads(numParam))
	assert.Empty(t, r.Payloads(strParam))
	assert.Empty(t, r.Payloads(nulParam))

	assert.NotNil(t, r.Evaluate(Probe{Param: numParam, Payload: "x", StatusCode: 500, BaselineStatus: 200}))
	assert.Nil(t, r.Evaluate(Probe{Param: numParam, Payload: "x", StatusCode: 500, BaselineStatus: 500}))
	assert.Nil(t, r.Evaluate(Probe{Param: numParam, Payload: "x", StatusCode: 400, BaselineStatus: 200}))
}

func TestTypeConfusionRule_Init(t *testing.T) {
	r := NewTypeConfusionRule()
	require.NoError(t, r.Init(map[string]any{
		"payloads":   []any{"a", "b"},
		"min_status": float64(400),
	}))
	assert.Equal(t, []string{"a", "b"}, r.Payloads(numParam))
	assert.NotNil(t, r.Evaluate(Probe{Param: numParam, StatusCode: 400, BaselineStatus: 200}))

	assert.Error(t, NewTypeConfusionRule().Init(map[string]any{"payloads": "nope"}))
	assert.Error(t, NewTypeConfusionRule().Init(map[string]any{"payloads": []any{1}}))
	assert.Error(t, NewTypeConfusionRule().Init(map[string]any{"min_status": "500"}))
}
