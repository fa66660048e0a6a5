// FILE: lixenwraith/setty/path.go
package setty

import (
	"fmt"
	"strings"
)

// ValidatePath checks that path is a non-empty sequence of '.'-separated segments,
// each a valid bare key.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}
	for _, segment := range strings.Split(path, ".") {
		if !isValidKeySegment(segment) {
			return fmt.Errorf("%w: invalid segment %q in path %q", ErrInvalidPath, segment, path)
		}
	}
	return nil
}

// GetPath returns the value addressed by a dotted path. Every segment descends
// one key, so the empty path looks up the key "". Any missing segment, or an
// intermediate value that is not a mapping, yields false.
func GetPath(v any, path string) (any, bool) {
	current := v
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, exists := m[segment]
		if !exists {
			return nil, false
		}
		current = next
	}

	return current, true
}

// NestPath builds a single-key nested mapping mirroring path, with value at the
// innermost segment: NestPath("a.b", 1) == {"a": {"b": 1}}.
func NestPath(path string, value any) map[string]any {
	segments := strings.Split(path, ".")
	nested := map[string]any{segments[len(segments)-1]: value}
	for i := len(segments) - 2; i >= 0; i-- {
		nested = map[string]any{segments[i]: nested}
	}
	return nested
}

// UnsetPath removes the key addressed by path from its parent mapping and returns
// the previous value. Missing intermediate segments make it a no-op. v is
// modified in place.
func UnsetPath(v any, path string) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok || path == "" {
		return nil, false
	}

	head, tail, nested := strings.Cut(path, ".")
	if nested {
		return UnsetPath(m[head], tail)
	}

	prev, exists := m[head]
	if !exists {
		return nil, false
	}
	delete(m, head)
	return prev, true
}

// setNestedValue sets a value in a nested map using a dot-notation path.
// It creates intermediate maps if they don't exist.
// If a segment exists but is not a map, it will be overwritten by a new map.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested

	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]
		next, isMap := current[segment].(map[string]any)
		if !isMap {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}

	current[segments[len(segments)-1]] = value
}

// CompletePaths enumerates every dotted property path reachable in the schema
// and returns those starting with prefix. References and nullable wrappers are
// followed transparently; union variants each contribute their own paths,
// including the discriminant, without deduplication. A reference already being
// expanded on the current branch is not entered again.
func CompletePaths(ts *TypeSchema, prefix string) []string {
	if ts == nil {
		return nil
	}

	var all []string
	ts.collectPaths("", ts.Root, make(map[string]bool), &all)

	if prefix == "" {
		return all
	}
	matched := all[:0]
	for _, p := range all {
		if strings.HasPrefix(p, prefix) {
			matched = append(matched, p)
		}
	}
	return matched
}

func (ts *TypeSchema) collectPaths(path string, s Schema, expanding map[string]bool, out *[]string) {
	switch node := s.(type) {
	case *RefSchema:
		if expanding[node.Target] {
			return
		}
		expanding[node.Target] = true
		ts.collectPaths(path, ts.Defs[node.Target], expanding, out)
		delete(expanding, node.Target)

	case *NullableSchema:
		ts.collectPaths(path, node.Inner, expanding, out)

	case *UnionSchema:
		for _, variant := range node.Variants {
			*out = append(*out, joinPath(path, node.TagField))
			ts.collectPaths(path, variant.Schema, expanding, out)
		}

	case *ObjectSchema:
		for _, prop := range node.Properties {
			ppath := joinPath(path, prop.Name)
			*out = append(*out, ppath)
			ts.collectPaths(ppath, prop.Schema, expanding, out)
		}
	}
}

// isValidKeySegment checks if a single path segment is a valid TOML key part.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	// TOML bare keys are sequences of ASCII letters, ASCII digits, underscores, and dashes (A-Za-z0-9_-).
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}
