package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

// Type is a JSON value type name as used by the "type" keyword.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
)

func (t Type) valid() bool {
	switch t {
	case TypeObject, TypeArray, TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeNull:
		return true
	}
	return false
}

// Node is one compiled schema node. The concrete variants are ObjectNode,
// ArrayNode, ScalarNode, RefNode and OneOfNode.
type Node interface {
	check(c *checker, path string, value any)
}

// constraints holds keywords shared by the typed variants.
type constraints struct {
	Types     []Type
	Enum      []any
	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
}

// ObjectNode validates JSON objects.
type ObjectNode struct {
	constraints
	Properties map[string]Node
	Required   []string
	// AdditionalAllowed is false when additionalProperties is false.
	AdditionalAllowed bool
	// Additional, when set, validates every undeclared property.
	Additional Node
}

// ArrayNode validates JSON arrays.
type ArrayNode struct {
	constraints
	Items Node
}

// ScalarNode validates any value against type, enum and range keywords only.
type ScalarNode struct {
	constraints
}

// RefNode defers to a named entry in the schema's definitions.
type RefNode struct {
	Name string
}

// OneOfNode passes when at least one branch accepts the value. Base carries
// sibling keywords declared next to oneOf and must also pass.
type OneOfNode struct {
	Base     Node
	Branches []Node
}

// maxDepth bounds recursion through $ref cycles that never consume input.
const maxDepth = 256

// maxSteps bounds the node visits of one Validate call, counting the work
// spent on oneOf branches that end up discarded.
const maxSteps = 1 << 20

type budget struct {
	steps    int
	exceeded bool
}

type checker struct {
	definitions map[string]Node
	violations  []Violation
	depth       int
	// budget is shared with the scratch checkers of oneOf branches
	budget *budget
}

func (c *checker) addf(path, format string, args ...any) {
	c.violations = append(c.violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) descend(n Node, path string, value any) {
	if c.budget.exceeded {
		return
	}
	if c.budget.steps++; c.budget.steps > maxSteps {
		c.budget.exceeded = true
		return
	}
	if c.depth >= maxDepth {
		c.addf(path, "schema nesting exceeds %d levels", maxDepth)
		return
	}
	c.depth++
	n.check(c, path, value)
	c.depth--
}

// passes runs n in a scratch checker and reports whether it produced no violations.
func (c *checker) passes(n Node, path string, value any) bool {
	scratch := &checker{definitions: c.definitions, depth: c.depth, budget: c.budget}
	scratch.descend(n, path, value)
	return len(scratch.violations) == 0 && !c.budget.exceeded
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// checkConstraints returns false when the type check failed, in which case
// structural checks for the node must be skipped.
func (c *checker) checkConstraints(k *constraints, path string, value any) bool {
	actual := typeOf(value)
	if len(k.Types) > 0 && !typeAllowed(k.Types, actual) {
		c.addf(path, "expected %s, got %s", describeTypes(k.Types), actual)
		return false
	}

	if len(k.Enum) > 0 {
		found := false
		for _, allowed := range k.Enum {
			if valuesEqual(allowed, value) {
				found = true
				break
			}
		}
		if !found {
			c.addf(path, "value %s is not one of the allowed values", render(value))
		}
	}

	if n, ok := toFloat(value); ok {
		if k.Minimum != nil && n < *k.Minimum {
			c.addf(path, "must be >= %v, got %v", *k.Minimum, n)
		}
		if k.Maximum != nil && n > *k.Maximum {
			c.addf(path, "must be <= %v, got %v", *k.Maximum, n)
		}
	}

	if s, ok := value.(string); ok {
		length := utf8.RuneCountInString(s)
		if k.MinLength != nil && length < *k.MinLength {
			c.addf(path, "must be at least %d characters long", *k.MinLength)
		}
		if k.MaxLength != nil && length > *k.MaxLength {
			c.addf(path, "must be at most %d characters long", *k.MaxLength)
		}
	}
	return true
}

func (n *ObjectNode) check(c *checker, path string, value any) {
	if !c.checkConstraints(&n.constraints, path, value) {
		return
	}
	obj, ok := value.(map[string]any)
	if !ok {
		// null allowed by an explicit type list, or an inferred object node
		// applied to a non-object: nothing structural to check.
		return
	}

	for _, name := range n.Required {
		if _, present := obj[name]; !present {
			c.addf(joinPath(path, name), "is required")
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		child := joinPath(path, key)
		if prop, declared := n.Properties[key]; declared {
			c.descend(prop, child, obj[key])
			continue
		}
		switch {
		case !n.AdditionalAllowed:
			c.addf(child, "additional property is not allowed")
		case n.Additional != nil:
			c.descend(n.Additional, child, obj[key])
		}
	}
}

func (n *ArrayNode) check(c *checker, path string, value any) {
	if !c.checkConstraints(&n.constraints, path, value) {
		return
	}
	arr, ok := value.([]any)
	if !ok || n.Items == nil {
		return
	}
	for i, elem := range arr {
		c.descend(n.Items, indexPath(path, i), elem)
	}
}

func (n *ScalarNode) check(c *checker, path string, value any) {
	c.checkConstraints(&n.constraints, path, value)
}

func (n *RefNode) check(c *checker, path string, value any) {
	target, ok := c.definitions[n.Name]
	if !ok {
		// Compile rejects dangling refs; reaching this means a hand-built tree.
		c.addf(path, "unresolved reference %q", n.Name)
		return
	}
	c.descend(target, path, value)
}

func (n *OneOfNode) check(c *checker, path string, value any) {
	if n.Base != nil {
		c.descend(n.Base, path, value)
	}
	for _, branch := range n.Branches {
		if c.passes(branch, path, value) {
			return
		}
	}
	c.addf(path, "does not match any of the %d oneOf alternatives", len(n.Branches))
}

// typeOf returns the JSON type name of a decoded value. Whole numbers report
// as integer.
func typeOf(value any) Type {
	switch v := value.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case string:
		return TypeString
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	default:
		if f, ok := toFloat(v); ok {
			if f == math.Trunc(f) && !math.IsInf(f, 0) {
				return TypeInteger
			}
			return TypeNumber
		}
	}
	return Type(fmt.Sprintf("%T", value))
}

func typeAllowed(allowed []Type, actual Type) bool {
	for _, t := range allowed {
		if t == actual {
			return true
		}
		if t == TypeNumber && actual == TypeInteger {
			return true
		}
	}
	return false
}

func describeTypes(types []Type) string {
	if len(types) == 1 {
		return string(types[0])
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return "one of [" + strings.Join(parts, ", ") + "]"
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// valuesEqual compares decoded JSON values, treating numbers by magnitude.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !valuesEqual(v, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func render(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
