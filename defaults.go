// FILE: lixenwraith/setty/defaults.go
package setty

// maxDefaultDepth bounds default expansion for self-referential types whose
// defaults would otherwise expand forever.
const maxDefaultDepth = 64

// FillDefaults returns a copy of v in which every absent property that declares
// a default is filled in. Defaults are themselves filled recursively, so a
// partial default object receives the nested defaults of its type. Present
// values are never overwritten. Union defaults are applied only when the
// discriminant is present and selects a known variant.
func FillDefaults(v any, ts *TypeSchema) any {
	if ts == nil {
		return Clone(v)
	}
	return ts.fill(Clone(v), ts.Root, 0)
}

// fill mutates v, which the caller owns, and returns it.
func (ts *TypeSchema) fill(v any, s Schema, depth int) any {
	if depth > maxDefaultDepth {
		return v
	}

	switch node := ts.resolve(s).(type) {
	case *ObjectSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		for _, prop := range node.Properties {
			if key, exists := findPropertyKey(m, prop.Name, prop); exists {
				m[key] = ts.fill(m[key], prop.Schema, depth+1)
			} else if prop.HasDefault {
				m[prop.Name] = ts.fill(Clone(prop.Default), prop.Schema, depth+1)
			}
		}
		return m

	case *UnionSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		tag, ok := node.TagOf(m)
		if !ok {
			// Never invent a discriminant
			return v
		}
		variant := node.Variant(tag)
		if variant == nil {
			return v
		}
		return ts.fill(m, variant.Schema, depth+1)

	case *ArraySchema:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		for i := range items {
			items[i] = ts.fill(items[i], node.Items, depth+1)
		}
		return items

	case *MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		for k := range m {
			m[k] = ts.fill(m[k], node.Values, depth+1)
		}
		return m
	}

	return v
}
