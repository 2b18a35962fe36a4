package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

const refPrefix = "#/definitions/"

// Violation is one place where a document does not conform to its schema.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// CompileError reports a structurally invalid schema definition.
type CompileError struct {
	Path    string
	Message string
}

func (e *CompileError) Error() string {
	if e.Path == "" {
		return "invalid schema: " + e.Message
	}
	return fmt.Sprintf("invalid schema at %s: %s", e.Path, e.Message)
}

// Schema is an entity structure compiled into a node tree. It is immutable
// once built and safe for concurrent use.
type Schema struct {
	root        Node
	definitions map[string]Node
	raw         map[string]any
}

// Parse compiles a JSON encoded schema.
func Parse(data []byte) (*Schema, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &CompileError{Message: err.Error()}
	}
	return Compile(raw)
}

// Compile builds the node tree for a decoded schema document. Every $ref must
// point at an entry of the document's own definitions map.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, &CompileError{Message: "schema is empty"}
	}

	c := &compiler{}
	s := &Schema{definitions: make(map[string]Node), raw: raw}

	if defs, ok := raw["definitions"]; ok {
		m, ok := defs.(map[string]any)
		if !ok {
			return nil, &CompileError{Path: "definitions", Message: "must be an object"}
		}
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			node, err := c.node(joinPath("definitions", name), m[name])
			if err != nil {
				return nil, err
			}
			s.definitions[name] = node
		}
	}

	root, err := c.node("", raw)
	if err != nil {
		return nil, err
	}
	s.root = root

	for _, ref := range c.refs {
		if _, ok := s.definitions[ref.name]; !ok {
			return nil, &CompileError{Path: ref.path, Message: fmt.Sprintf("reference %q has no matching definition", refPrefix+ref.name)}
		}
	}
	if err := s.checkRefCycles(); err != nil {
		return nil, err
	}
	return s, nil
}

// checkRefCycles rejects definitions that can reach themselves without
// consuming input, following $refs through oneOf branches and their base.
func (s *Schema) checkRefCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(s.definitions))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return &CompileError{Path: joinPath("definitions", name), Message: "circular $ref that consumes no input"}
		case done:
			return nil
		}
		state[name] = visiting
		for _, next := range headRefs(s.definitions[name], nil) {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// headRefs appends the definitions n applies to the same value it is given.
func headRefs(n Node, out []string) []string {
	switch n := n.(type) {
	case *RefNode:
		out = append(out, n.Name)
	case *OneOfNode:
		if n.Base != nil {
			out = headRefs(n.Base, out)
		}
		for _, branch := range n.Branches {
			out = headRefs(branch, out)
		}
	}
	return out
}

// Root returns the compiled root node.
func (s *Schema) Root() Node {
	return s.root
}

// Definition returns the compiled node for a named definition.
func (s *Schema) Definition(name string) (Node, bool) {
	n, ok := s.definitions[name]
	return n, ok
}

// Validate checks document against s. A nil schema accepts any document.
// An empty result means the document conforms.
func Validate(s *Schema, document any) []Violation {
	if s == nil || s.root == nil {
		return nil
	}
	c := &checker{definitions: s.definitions, budget: &budget{}}
	c.descend(s.root, "", document)
	if c.budget.exceeded {
		return []Violation{{Message: fmt.Sprintf("document is too complex to check, gave up after %d steps", maxSteps)}}
	}
	return c.violations
}

// MarshalJSON emits the schema exactly as it was declared.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.raw)
}

// UnmarshalJSON compiles the schema while decoding, so configuration loading
// fails on a structurally invalid definition.
func (s *Schema) UnmarshalJSON(data []byte) error {
	compiled, err := Parse(data)
	if err != nil {
		return err
	}
	*s = *compiled
	return nil
}

type refUse struct {
	name string
	path string
}

type compiler struct {
	refs []refUse
}

func (c *compiler) node(path string, v any) (Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &CompileError{Path: path, Message: fmt.Sprintf("must be an object, got %T", v)}
	}

	if ref, ok := m["$ref"]; ok {
		return c.ref(path, ref)
	}

	if branches, ok := m["oneOf"]; ok {
		return c.oneOf(path, m, branches)
	}

	k, err := parseConstraints(path, m)
	if err != nil {
		return nil, err
	}

	_, hasProps := m["properties"]
	_, hasRequired := m["required"].([]any)
	_, hasAdditional := m["additionalProperties"]
	_, hasItems := m["items"]

	switch {
	case hasType(k.Types, TypeObject) || hasProps || hasRequired || hasAdditional:
		return c.object(path, m, k)
	case hasType(k.Types, TypeArray) || hasItems:
		n := &ArrayNode{constraints: k}
		if items, ok := m["items"]; ok {
			n.Items, err = c.node(joinPath(path, "items"), items)
			if err != nil {
				return nil, err
			}
		}
		return n, nil
	default:
		return &ScalarNode{constraints: k}, nil
	}
}

func (c *compiler) ref(path string, ref any) (Node, error) {
	s, ok := ref.(string)
	if !ok {
		return nil, &CompileError{Path: path, Message: "$ref must be a string"}
	}
	if !strings.HasPrefix(s, refPrefix) || len(s) == len(refPrefix) {
		return nil, &CompileError{Path: path, Message: fmt.Sprintf("unsupported $ref %q, only %s<name> is allowed", s, refPrefix)}
	}
	name := strings.TrimPrefix(s, refPrefix)
	c.refs = append(c.refs, refUse{name: name, path: path})
	return &RefNode{Name: name}, nil
}

func (c *compiler) oneOf(path string, m map[string]any, branches any) (Node, error) {
	list, ok := branches.([]any)
	if !ok || len(list) == 0 {
		return nil, &CompileError{Path: joinPath(path, "oneOf"), Message: "must be a non-empty array"}
	}

	n := &OneOfNode{}
	for i, b := range list {
		branch, err := c.node(indexPath(joinPath(path, "oneOf"), i), b)
		if err != nil {
			return nil, err
		}
		n.Branches = append(n.Branches, branch)
	}

	rest := make(map[string]any, len(m))
	for key, val := range m {
		if key != "oneOf" {
			rest[key] = val
		}
	}
	if hasKeywords(rest) {
		base, err := c.node(path, rest)
		if err != nil {
			return nil, err
		}
		n.Base = base
	}
	return n, nil
}

func (c *compiler) object(path string, m map[string]any, k constraints) (Node, error) {
	n := &ObjectNode{constraints: k, Properties: map[string]Node{}, AdditionalAllowed: true}

	if props, ok := m["properties"]; ok {
		pm, ok := props.(map[string]any)
		if !ok {
			return nil, &CompileError{Path: joinPath(path, "properties"), Message: "must be an object"}
		}
		names := make([]string, 0, len(pm))
		for name := range pm {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop, err := c.node(joinPath(path, name), pm[name])
			if err != nil {
				return nil, err
			}
			n.Properties[name] = prop
			// Property-level "required": true is accepted as shorthand.
			if pmap, ok := pm[name].(map[string]any); ok {
				if req, ok := pmap["required"].(bool); ok && req {
					n.Required = append(n.Required, name)
				}
			}
		}
	}

	if req, ok := m["required"]; ok {
		switch r := req.(type) {
		case []any:
			for i, item := range r {
				s, ok := item.(string)
				if !ok {
					return nil, &CompileError{Path: indexPath(joinPath(path, "required"), i), Message: "must be a string"}
				}
				if !contains(n.Required, s) {
					n.Required = append(n.Required, s)
				}
			}
		case bool:
			// shorthand consumed by the parent object
		default:
			return nil, &CompileError{Path: joinPath(path, "required"), Message: "must be an array of property names"}
		}
	}

	if add, ok := m["additionalProperties"]; ok {
		switch a := add.(type) {
		case bool:
			n.AdditionalAllowed = a
		case map[string]any:
			extra, err := c.node(joinPath(path, "additionalProperties"), a)
			if err != nil {
				return nil, err
			}
			n.Additional = extra
		default:
			return nil, &CompileError{Path: joinPath(path, "additionalProperties"), Message: "must be a boolean or a schema"}
		}
	}
	return n, nil
}

func parseConstraints(path string, m map[string]any) (constraints, error) {
	var k constraints

	switch t := m["type"].(type) {
	case nil:
	case string:
		if !Type(t).valid() {
			return k, &CompileError{Path: joinPath(path, "type"), Message: fmt.Sprintf("unknown type %q", t)}
		}
		k.Types = []Type{Type(t)}
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok || !Type(s).valid() {
				return k, &CompileError{Path: joinPath(path, "type"), Message: fmt.Sprintf("unknown type %v", item)}
			}
			k.Types = append(k.Types, Type(s))
		}
	default:
		return k, &CompileError{Path: joinPath(path, "type"), Message: "must be a string or an array of strings"}
	}

	if enum, ok := m["enum"]; ok {
		list, ok := enum.([]any)
		if !ok || len(list) == 0 {
			return k, &CompileError{Path: joinPath(path, "enum"), Message: "must be a non-empty array"}
		}
		k.Enum = list
	}

	var err error
	if k.Minimum, err = floatKeyword(path, m, "minimum"); err != nil {
		return k, err
	}
	if k.Maximum, err = floatKeyword(path, m, "maximum"); err != nil {
		return k, err
	}
	if k.MinLength, err = lengthKeyword(path, m, "minLength"); err != nil {
		return k, err
	}
	if k.MaxLength, err = lengthKeyword(path, m, "maxLength"); err != nil {
		return k, err
	}
	return k, nil
}

func floatKeyword(path string, m map[string]any, key string) (*float64, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, &CompileError{Path: joinPath(path, key), Message: "must be a number"}
	}
	return &f, nil
}

func lengthKeyword(path string, m map[string]any, key string) (*int, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok || f < 0 || f != math.Trunc(f) {
		return nil, &CompileError{Path: joinPath(path, key), Message: "must be a non-negative integer"}
	}
	n := int(f)
	return &n, nil
}

// hasKeywords reports whether m carries anything that constrains a value.
func hasKeywords(m map[string]any) bool {
	for _, key := range []string{
		"type", "enum", "properties", "required", "additionalProperties", "items",
		"minimum", "maximum", "minLength", "maxLength",
	} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

func hasType(types []Type, t Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
