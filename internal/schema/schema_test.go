package schema

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Schema {
	t.Helper()
	s, err := Parse([]byte(src))
	require.NoError(t, err)
	return s
}

func doc(t *testing.T, src string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return v
}

func paths(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Path
	}
	return out
}

func TestValidate_NilSchemaAcceptsAnything(t *testing.T) {
	for _, src := range []string{`{}`, `[]`, `"x"`, `42`, `null`, `{"a":{"b":[1,2]}}`} {
		assert.Empty(t, Validate(nil, doc(t, src)), "document %s", src)
	}
}

func TestValidate_MinimumViolation(t *testing.T) {
	s := mustParse(t, `{
		"type": "object",
		"properties": {"price": {"type": "number", "minimum": 0}},
		"required": ["price"]
	}`)

	violations := Validate(s, doc(t, `{"price": -5}`))
	require.Len(t, violations, 1)
	assert.Equal(t, "price", violations[0].Path)
	assert.Contains(t, violations[0].Message, ">= 0")

	assert.Empty(t, Validate(s, doc(t, `{"price": 12.5}`)))
}

func TestValidate_Keywords(t *testing.T) {
	s := mustParse(t, `{
		"type": "object",
		"additionalProperties": false,
		"required": ["name", "status"],
		"properties": {
			"name":   {"type": "string", "minLength": 2, "maxLength": 5},
			"status": {"enum": ["open", "closed"]},
			"count":  {"type": "integer", "maximum": 10},
			"tags":   {"type": "array", "items": {"type": "string"}},
			"note":   {"type": ["string", "null"]}
		}
	}`)

	tests := []struct {
		name      string
		document  string
		wantPaths []string
	}{
		{
			name:     "valid",
			document: `{"name":"abc","status":"open","count":3,"tags":["a","b"],"note":null}`,
		},
		{
			name:      "missing required",
			document:  `{"name":"abc"}`,
			wantPaths: []string{"status"},
		},
		{
			name:      "wrong type",
			document:  `{"name":7,"status":"open"}`,
			wantPaths: []string{"name"},
		},
		{
			name:      "enum miss",
			document:  `{"name":"abc","status":"pending"}`,
			wantPaths: []string{"status"},
		},
		{
			name:      "integer rejects fraction",
			document:  `{"name":"abc","status":"open","count":1.5}`,
			wantPaths: []string{"count"},
		},
		{
			name:      "maximum",
			document:  `{"name":"abc","status":"open","count":11}`,
			wantPaths: []string{"count"},
		},
		{
			name:      "string length",
			document:  `{"name":"a","status":"open"}`,
			wantPaths: []string{"name"},
		},
		{
			name:      "items element-wise",
			document:  `{"name":"abc","status":"open","tags":["ok",3,"fine",false]}`,
			wantPaths: []string{"tags[1]", "tags[3]"},
		},
		{
			name:      "additional property rejected",
			document:  `{"name":"abc","status":"open","extra":true}`,
			wantPaths: []string{"extra"},
		},
		{
			name:      "root type mismatch",
			document:  `["not","an","object"]`,
			wantPaths: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(s, doc(t, tt.document))
			if len(tt.wantPaths) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tt.wantPaths, paths(got), "violations: %v", got)
		})
	}
}

func TestValidate_AdditionalPropertiesAllowedByDefault(t *testing.T) {
	s := mustParse(t, `{"properties": {"a": {"type": "string"}}}`)
	assert.Empty(t, Validate(s, doc(t, `{"a":"x","b":1}`)))
}

func TestValidate_AdditionalPropertiesSchema(t *testing.T) {
	s := mustParse(t, `{"type":"object","additionalProperties":{"type":"number"}}`)
	assert.Empty(t, Validate(s, doc(t, `{"a":1,"b":2.5}`)))
	assert.Equal(t, []string{"b"}, paths(Validate(s, doc(t, `{"a":1,"b":"x"}`))))
}

func TestValidate_RefAndDefinitions(t *testing.T) {
	s := mustParse(t, `{
		"type": "object",
		"properties": {
			"billing":  {"$ref": "#/definitions/address"},
			"shipping": {"$ref": "#/definitions/address"}
		},
		"definitions": {
			"address": {
				"type": "object",
				"required": ["city"],
				"properties": {"city": {"type": "string"}, "zip": {"type": "string"}}
			}
		}
	}`)

	assert.Empty(t, Validate(s, doc(t, `{"billing":{"city":"Oslo"},"shipping":{"city":"Bergen","zip":"5003"}}`)))

	got := Validate(s, doc(t, `{"billing":{"zip":"1"},"shipping":{"city":4}}`))
	assert.ElementsMatch(t, []string{"billing.city", "shipping.city"}, paths(got))
}

func TestValidate_RecursiveRef(t *testing.T) {
	s := mustParse(t, `{
		"$ref": "#/definitions/node",
		"definitions": {
			"node": {
				"type": "object",
				"required": ["value"],
				"properties": {
					"value": {"type": "integer"},
					"children": {"type": "array", "items": {"$ref": "#/definitions/node"}}
				}
			}
		}
	}`)

	assert.Empty(t, Validate(s, doc(t, `{"value":1,"children":[{"value":2,"children":[{"value":3}]}]}`)))
	got := Validate(s, doc(t, `{"value":1,"children":[{"value":2,"children":[{"value":"x"}]}]}`))
	assert.Equal(t, []string{"children[0].children[0].value"}, paths(got))
}

func TestValidate_OneOf(t *testing.T) {
	s := mustParse(t, `{
		"type": "object",
		"properties": {
			"payment": {
				"oneOf": [
					{"type": "object", "required": ["card"], "properties": {"card": {"type": "string"}}},
					{"type": "object", "required": ["iban"], "properties": {"iban": {"type": "string"}}}
				]
			},
			"id": {"type": ["string", "integer"], "oneOf": [{"type": "string"}, {"minimum": 1}]}
		}
	}`)

	assert.Empty(t, Validate(s, doc(t, `{"payment":{"card":"4111"}}`)))
	assert.Empty(t, Validate(s, doc(t, `{"payment":{"iban":"NO93"}}`)))
	assert.Empty(t, Validate(s, doc(t, `{"payment":{"card":"1","iban":"2"}}`)), "at least one branch is enough")
	assert.Equal(t, []string{"payment"}, paths(Validate(s, doc(t, `{"payment":{"cash":true}}`))))

	assert.Empty(t, Validate(s, doc(t, `{"id":"abc"}`)))
	assert.Empty(t, Validate(s, doc(t, `{"id":7}`)))
	assert.NotEmpty(t, Validate(s, doc(t, `{"id":0}`)))
	assert.NotEmpty(t, Validate(s, doc(t, `{"id":true}`)), "sibling type keyword still applies")
}

func TestValidate_PropertyRequiredShorthand(t *testing.T) {
	s := mustParse(t, `{"properties":{"sku":{"type":"string","required":true},"qty":{"type":"integer"}}}`)
	assert.Equal(t, []string{"sku"}, paths(Validate(s, doc(t, `{"qty":1}`))))
	assert.Empty(t, Validate(s, doc(t, `{"sku":"A-1"}`)))
}

func TestValidate_NumericEnumMatchesAcrossRepresentations(t *testing.T) {
	s := mustParse(t, `{"enum":[1,2,3]}`)
	assert.Empty(t, Validate(s, 2))
	assert.Empty(t, Validate(s, json.Number("3")))
	assert.NotEmpty(t, Validate(s, 4.0))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown type", `{"type":"decimal"}`},
		{"type not string", `{"type":5}`},
		{"external ref", `{"$ref":"https://example.com/schema.json"}`},
		{"dangling ref", `{"properties":{"a":{"$ref":"#/definitions/missing"}}}`},
		{"circular ref chain", `{"definitions":{"a":{"$ref":"#/definitions/b"},"b":{"$ref":"#/definitions/a"}}}`},
		{"self ref through oneOf", `{"definitions":{"a":{"oneOf":[{"$ref":"#/definitions/a"},{"$ref":"#/definitions/a"}]}}}`},
		{"ref cycle through oneOf base", `{"definitions":{"a":{"type":"object","oneOf":[{"$ref":"#/definitions/b"}]},"b":{"oneOf":[{"type":"string"},{"$ref":"#/definitions/a"}]}}}`},
		{"empty oneOf", `{"oneOf":[]}`},
		{"properties not object", `{"properties":[]}`},
		{"required not array", `{"type":"object","required":"a"}`},
		{"bad additionalProperties", `{"type":"object","additionalProperties":"no"}`},
		{"negative minLength", `{"minLength":-1}`},
		{"minimum not number", `{"minimum":"0"}`},
		{"definitions not object", `{"definitions":[]}`},
		{"property not object", `{"properties":{"a":true}}`},
		{"empty enum", `{"enum":[]}`},
		{"not json", `{"type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			var ce *CompileError
			assert.True(t, errors.As(err, &ce), "expected *CompileError, got %T", err)
		})
	}
}

func TestCompile_RecursionThroughPropertiesIsAllowed(t *testing.T) {
	s := mustParse(t, `{
		"$ref": "#/definitions/node",
		"definitions": {
			"node": {"oneOf": [
				{"type": "string"},
				{"type": "object", "properties": {"next": {"$ref": "#/definitions/node"}}}
			]}
		}
	}`)
	assert.Empty(t, Validate(s, doc(t, `{"next":{"next":"end"}}`)))
	assert.NotEmpty(t, Validate(s, doc(t, `{"next":{"next":5}}`)))
}

func TestValidate_GivesUpOnExponentialBranching(t *testing.T) {
	s := mustParse(t, `{
		"$ref": "#/definitions/n",
		"definitions": {
			"n": {"oneOf": [
				{"type": "object", "required": ["x"], "properties": {"c": {"$ref": "#/definitions/n"}}},
				{"type": "object", "required": ["y"], "properties": {"c": {"$ref": "#/definitions/n"}}}
			]}
		}
	}`)

	var nested any = map[string]any{}
	for i := 0; i < 60; i++ {
		nested = map[string]any{"c": nested}
	}

	done := make(chan []Violation, 1)
	go func() { done <- Validate(s, nested) }()

	select {
	case vs := <-done:
		require.Len(t, vs, 1)
		assert.Contains(t, vs[0].Message, "too complex")
	case <-time.After(10 * time.Second):
		t.Fatal("validation did not finish")
	}
}

func TestSchema_JSONRoundTrip(t *testing.T) {
	src := `{"type":"object","properties":{"price":{"type":"number","minimum":0}},"required":["price"]}`

	var s Schema
	require.NoError(t, json.Unmarshal([]byte(src), &s))

	out, err := json.Marshal(&s)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))

	assert.Len(t, Validate(&s, doc(t, `{"price":-1}`)), 1)
}

func TestSchema_UnmarshalRejectsInvalid(t *testing.T) {
	var holder struct {
		Structure *Schema `json:"structure"`
	}
	err := json.Unmarshal([]byte(`{"structure":{"type":"nope"}}`), &holder)
	require.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`{"structure":null}`), &holder))
	assert.Nil(t, holder.Structure)
}
