package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Scope is the state mapping directive expressions are resolved against.
// It is never mutated after a document's transformation begins; merges
// always produce a new map.
type Scope map[string]any

// Merge returns a new Scope containing the receiver's keys overlaid with
// the override's keys. The merge is shallow: nested objects are replaced,
// not combined.
func (s Scope) Merge(override Scope) Scope {
	merged := make(Scope, len(s)+len(override))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Lookup resolves a dotted state path (e.g. "user.name") against the scope.
// It returns false when any path segment is missing or not traversable.
func (s Scope) Lookup(path string) (any, bool) {
	var current any = map[string]any(s)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Truthy reports whether a scope value counts as true for conditional
// directives. Follows JSON semantics: nil, false, 0, "" and empty
// collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Stringify renders a scope value the way it should appear in markup text.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		// JSON numbers decode as float64; print integers without a decimal.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
