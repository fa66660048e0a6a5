// FILE: lixenwraith/setty/combine.go
package setty

// Combine folds values left to right into one. The first value is adopted as-is,
// every following value is merged into the accumulator using the per-field
// policies of ts. An explicit nil is a present value and resets whatever it
// replaces. The inputs are not modified.
func Combine(ts *TypeSchema, values ...any) any {
	var acc any
	seeded := false

	for _, v := range values {
		if !seeded {
			acc = Clone(v)
			seeded = true
			continue
		}
		acc = ts.mergeOwned(acc, v, ts.rootSchema())
	}

	return acc
}

// Merge combines rhs into lhs using the merge rule of the root type and
// returns the result. Neither argument is modified.
func (ts *TypeSchema) Merge(lhs, rhs any) any {
	return ts.mergeOwned(Clone(lhs), rhs, ts.rootSchema())
}

func (ts *TypeSchema) rootSchema() Schema {
	if ts == nil {
		return nil
	}
	return ts.Root
}

// mergeOwned merges rhs into lhs, which the caller owns and may be mutated.
// Values taken from rhs are always cloned.
func (ts *TypeSchema) mergeOwned(lhs, rhs any, s Schema) any {
	if ts == nil || s == nil {
		return Clone(rhs)
	}

	switch node := ts.resolve(s).(type) {
	case *ObjectSchema:
		return ts.mergeObject(lhs, rhs, node)
	case *UnionSchema:
		return ts.mergeUnion(lhs, rhs, node)
	case *ArraySchema:
		return mergeArray(lhs, rhs)
	case *MapSchema:
		return mergeMap(lhs, rhs)
	default:
		// Scalars, enums and unknown shapes are replaced
		return Clone(rhs)
	}
}

// mergeObject applies per-property policies for every key present in rhs.
func (ts *TypeSchema) mergeObject(lhs, rhs any, obj *ObjectSchema) any {
	rm, ok := rhs.(map[string]any)
	if !ok {
		return Clone(rhs)
	}
	lm, ok := lhs.(map[string]any)
	if !ok {
		return Clone(rm)
	}

	for _, key := range sortedKeys(rm) {
		value := rm[key]
		prop := obj.Property(key)
		if prop == nil {
			// Unknown keys fall back to replace; the decoder reports them later
			lm[key] = Clone(value)
			continue
		}

		existingKey, exists := findPropertyKey(lm, key, prop)
		target := key
		if exists {
			target = existingKey
		}

		switch ts.effectivePolicy(prop) {
		case CombineKeep:
			if !exists {
				lm[key] = Clone(value)
			}
		case CombineMerge:
			if !exists {
				lm[key] = Clone(value)
			} else {
				lm[target] = ts.mergeOwned(lm[target], value, prop.Schema)
			}
		default:
			lm[target] = Clone(value)
		}
	}

	return lm
}

// mergeUnion merges two union values when both carry a discriminant that selects
// the same variant. Any other combination replaces the whole value.
func (ts *TypeSchema) mergeUnion(lhs, rhs any, union *UnionSchema) any {
	rm, rok := rhs.(map[string]any)
	lm, lok := lhs.(map[string]any)
	if !rok || !lok {
		return Clone(rhs)
	}

	lkey, ltag, lhasTag := union.tagEntry(lm)
	rkey, rtag, rhasTag := union.tagEntry(rm)
	if !lhasTag || !rhasTag {
		return Clone(rhs)
	}

	variant := union.Variant(rtag)
	if variant == nil || union.Variant(ltag) != variant {
		return Clone(rhs)
	}

	inner, ok := ts.resolve(variant.Schema).(*ObjectSchema)
	if !ok {
		return Clone(rhs)
	}

	// Merge everything but the tag, then carry the latest tag spelling over
	body := make(map[string]any, len(rm))
	for k, v := range rm {
		if k != rkey {
			body[k] = v
		}
	}
	merged := ts.mergeObject(lm, body, inner).(map[string]any)
	merged[lkey] = rtag

	return merged
}

// mergeArray appends rhs elements after lhs elements.
func mergeArray(lhs, rhs any) any {
	ra, ok := rhs.([]any)
	if !ok {
		return Clone(rhs)
	}
	la, ok := lhs.([]any)
	if !ok {
		return Clone(ra)
	}

	out := make([]any, 0, len(la)+len(ra))
	out = append(out, la...)
	for _, item := range ra {
		out = append(out, Clone(item))
	}
	return out
}

// mergeMap is a shallow key union where rhs wins on conflict.
func mergeMap(lhs, rhs any) any {
	rm, ok := rhs.(map[string]any)
	if !ok {
		return Clone(rhs)
	}
	lm, ok := lhs.(map[string]any)
	if !ok {
		return Clone(rm)
	}

	for k, v := range rm {
		lm[k] = Clone(v)
	}
	return lm
}

// findPropertyKey locates the key under which prop is stored in m, trying the
// exact spelling first and then every accepted alias.
func findPropertyKey(m map[string]any, key string, prop *Property) (string, bool) {
	if _, ok := m[key]; ok {
		return key, true
	}
	for _, k := range sortedKeys(m) {
		if prop.Matches(k) {
			return k, true
		}
	}
	return "", false
}
