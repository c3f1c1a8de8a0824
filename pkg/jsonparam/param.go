package jsonparam

import (
	"fmt"
	"strconv"
)

// ItemsName is the synthetic name of an unnamed top-level value or array.
const ItemsName = "@items"

// Param is one injectable scalar found in a body.
type Param struct {
	// Name is the path of the scalar: "user.name", "ids[2]", "@items[0]".
	Name string `json:"name"`
	// Value is the decoded scalar. Empty for a null.
	Value string `json:"value"`
	// Null marks an explicit null literal.
	Null bool `json:"null,omitempty"`
	// Begin and End delimit the still-escaped token in the original body,
	// quotes excluded.
	Begin int `json:"begin"`
	End   int `json:"end"`
	// Numeric is set for tokens written without quotes.
	Numeric bool `json:"numeric"`
}

// Raw returns the literal token text the param was read from.
func (p Param) Raw(body string) string {
	return body[p.Begin:p.End]
}

// Kind classifies the param as "string", "number" or "null".
func (p Param) Kind() string {
	switch {
	case p.Null:
		return "null"
	case p.Numeric:
		return "number"
	default:
		return "string"
	}
}

func (p Param) String() string {
	if p.Null {
		return fmt.Sprintf("%s=null [%d,%d)", p.Name, p.Begin, p.End)
	}
	return fmt.Sprintf("%s=%q [%d,%d)", p.Name, p.Value, p.Begin, p.End)
}

// qualify joins a nested object key onto its parent path.
func qualify(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func indexName(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}
