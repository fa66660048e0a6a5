// FILE: lixenwraith/setty/schema.go
package setty

import (
	"fmt"
	"sort"
	"strings"
)

// Policy determines how two values supplied for the same property are combined.
type Policy int

const (
	// CombineAuto resolves to Merge for object and union schemas and Replace otherwise
	CombineAuto Policy = iota
	// CombineKeep retains the first value supplied for a key
	CombineKeep
	// CombineReplace overwrites the previous value with the latest one
	CombineReplace
	// CombineMerge recursively merges using the declared type of the property
	CombineMerge
)

// String returns the policy name as used in struct tags
func (p Policy) String() string {
	switch p {
	case CombineKeep:
		return "keep"
	case CombineReplace:
		return "replace"
	case CombineMerge:
		return "merge"
	default:
		return "auto"
	}
}

// ParsePolicy parses a policy name as it appears in `combine=` tag options.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return CombineAuto, nil
	case "keep":
		return CombineKeep, nil
	case "replace":
		return CombineReplace, nil
	case "merge":
		return CombineMerge, nil
	default:
		return CombineAuto, fmt.Errorf("%w: unknown combine policy %q", ErrSchema, s)
	}
}

// Schema is a node of the immutable type description graph.
// Implementations: *ObjectSchema, *UnionSchema, *NullableSchema, *EnumSchema,
// *ScalarSchema, *ArraySchema, *MapSchema and *RefSchema.
type Schema interface {
	schemaNode()
}

// ScalarType names the JSON type of a leaf
type ScalarType string

const (
	ScalarString  ScalarType = "string"
	ScalarInteger ScalarType = "integer"
	ScalarNumber  ScalarType = "number"
	ScalarBoolean ScalarType = "boolean"
	// ScalarAny accepts any value and is never descended into
	ScalarAny ScalarType = "any"
)

// ScalarSchema describes a leaf value. Format is an optional semantic hint
// such as "duration", "date-time" or "uri".
type ScalarSchema struct {
	Type   ScalarType
	Format string
}

// EnumSchema is a string enumeration (unit variants).
type EnumSchema struct {
	Name        string
	Description string
	Values      []string
}

// ArraySchema is an ordered sequence of Items.
type ArraySchema struct {
	Items Schema
}

// MapSchema is a free-form dictionary with string keys.
type MapSchema struct {
	Values Schema
}

// NullableSchema wraps exactly one non-null alternative.
type NullableSchema struct {
	Inner Schema
}

// RefSchema points to a named entry of the definitions table.
type RefSchema struct {
	Target string
}

// Deprecation carries the notice attached to a deprecated property.
type Deprecation struct {
	Reason string
	Since  string
}

// Property is the per-field metadata consulted by combine, defaults, paths and deprecation scanning.
type Property struct {
	Name        string
	Aliases     []string
	Description string
	Schema      Schema
	Default     any
	HasDefault  bool
	Required    bool
	Combine     Policy
	Deprecated  *Deprecation

	spellings aliasSet
}

// Matches reports whether key addresses this property under any accepted spelling.
func (p *Property) Matches(key string) bool {
	if key == p.Name {
		return true
	}
	if p.spellings == nil {
		return newAliasSet(append([]string{p.Name}, p.Aliases...)...).Contains(key)
	}
	return p.spellings.Contains(key)
}

// ObjectSchema describes a struct with named properties in declaration order.
type ObjectSchema struct {
	Name        string
	Description string
	Properties  []*Property
}

// Property returns the property addressed by key, or nil.
func (o *ObjectSchema) Property(key string) *Property {
	for _, p := range o.Properties {
		if p.Name == key {
			return p
		}
	}
	for _, p := range o.Properties {
		if p.Matches(key) {
			return p
		}
	}
	return nil
}

// RequiredNames returns the names of required properties in declaration order.
func (o *ObjectSchema) RequiredNames() []string {
	var names []string
	for _, p := range o.Properties {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Variant is one alternative of a tagged union.
type Variant struct {
	Tag         string
	Aliases     []string
	Description string
	Schema      Schema

	spellings aliasSet
}

// Matches reports whether tag selects this variant, ignoring case.
func (v *Variant) Matches(tag string) bool {
	if v.spellings == nil {
		return newAliasSet(append([]string{v.Tag}, v.Aliases...)...).Contains(tag)
	}
	return v.spellings.Contains(tag)
}

// UnionSchema is a discriminated union selected by the value of TagField.
type UnionSchema struct {
	Name        string
	Description string
	TagField    string
	Variants    []*Variant
}

// Variant returns the variant selected by tag, or nil when no alias matches.
func (u *UnionSchema) Variant(tag string) *Variant {
	for _, v := range u.Variants {
		if v.Matches(tag) {
			return v
		}
	}
	return nil
}

// TagOf extracts the discriminant from a mapping. The tag field is looked up
// exactly first and then case-insensitively.
func (u *UnionSchema) TagOf(m map[string]any) (string, bool) {
	_, tag, ok := u.tagEntry(m)
	return tag, ok
}

// tagEntry returns the key holding the discriminant and its string value.
func (u *UnionSchema) tagEntry(m map[string]any) (string, string, bool) {
	if raw, ok := m[u.TagField]; ok {
		s, isStr := raw.(string)
		return u.TagField, s, isStr
	}
	for _, k := range sortedKeys(m) {
		if strings.EqualFold(k, u.TagField) {
			s, isStr := m[k].(string)
			return k, s, isStr
		}
	}
	return "", "", false
}

func (*ScalarSchema) schemaNode() {}
func (*EnumSchema) schemaNode() {}
func (*ArraySchema) schemaNode() {}
func (*MapSchema) schemaNode() {}
func (*NullableSchema) schemaNode() {}
func (*RefSchema) schemaNode() {}
func (*ObjectSchema) schemaNode() {}
func (*UnionSchema) schemaNode() {}

// Constructors for hand-written schemas.

func StringType() *ScalarSchema { return &ScalarSchema{Type: ScalarString} }
func IntegerType() *ScalarSchema { return &ScalarSchema{Type: ScalarInteger} }
func NumberType() *ScalarSchema { return &ScalarSchema{Type: ScalarNumber} }
func BoolType() *ScalarSchema { return &ScalarSchema{Type: ScalarBoolean} }
func AnyType() *ScalarSchema { return &ScalarSchema{Type: ScalarAny} }

func ArrayOf(items Schema) *ArraySchema { return &ArraySchema{Items: items} }
func MapOf(values Schema) *MapSchema { return &MapSchema{Values: values} }
func NullableOf(inner Schema) *NullableSchema { return &NullableSchema{Inner: inner} }
func Ref(target string) *RefSchema { return &RefSchema{Target: target} }

// Enum creates a string enumeration schema.
func Enum(name string, values ...string) *EnumSchema {
	return &EnumSchema{Name: name, Values: values}
}

// PropertyOption customizes a property created with Prop.
type PropertyOption func(*Property)

// WithDefault sets the default value. The value is normalized.
func WithDefault(v any) PropertyOption {
	return func(p *Property) {
		p.Default = Normalize(v)
		p.HasDefault = true
	}
}

// WithCombine overrides the combine policy.
func WithCombine(policy Policy) PropertyOption {
	return func(p *Property) { p.Combine = policy }
}

// WithDeprecation marks the property as deprecated.
func WithDeprecation(reason, since string) PropertyOption {
	return func(p *Property) { p.Deprecated = &Deprecation{Reason: reason, Since: since} }
}

// WithAliases adds alternative names accepted on input.
func WithAliases(aliases ...string) PropertyOption {
	return func(p *Property) { p.Aliases = append(p.Aliases, aliases...) }
}

// WithDescription attaches documentation used by Markdown and JSON Schema output.
func WithDescription(desc string) PropertyOption {
	return func(p *Property) { p.Description = desc }
}

// AsRequired marks the property as required.
func AsRequired() PropertyOption {
	return func(p *Property) { p.Required = true }
}

// Prop creates a property with precomputed spellings.
func Prop(name string, schema Schema, opts ...PropertyOption) *Property {
	p := &Property{Name: name, Schema: schema}
	for _, opt := range opts {
		opt(p)
	}
	p.spellings = newAliasSet(append([]string{p.Name}, p.Aliases...)...)
	return p
}

// NewObject creates an object schema.
func NewObject(name string, props ...*Property) *ObjectSchema {
	return &ObjectSchema{Name: name, Properties: props}
}

// VariantOf creates a union variant with precomputed tag spellings.
func VariantOf(tag string, schema Schema, aliases ...string) *Variant {
	v := &Variant{Tag: tag, Aliases: aliases, Schema: schema}
	v.spellings = newAliasSet(append([]string{tag}, aliases...)...)
	return v
}

// NewUnion creates a tagged union schema.
func NewUnion(name, tagField string, variants ...*Variant) *UnionSchema {
	return &UnionSchema{Name: name, TagField: tagField, Variants: variants}
}

// TypeSchema is the complete, immutable description of a configuration type:
// a root schema plus the flat definitions table resolving every RefSchema.
// It is safe for concurrent use once constructed.
type TypeSchema struct {
	Title string
	Root  Schema
	Defs  map[string]Schema
}

// NewTypeSchema assembles and validates a type schema.
func NewTypeSchema(root Schema, defs map[string]Schema) (*TypeSchema, error) {
	if defs == nil {
		defs = make(map[string]Schema)
	}
	ts := &TypeSchema{Root: root, Defs: defs}

	if obj, ok := ts.resolve(root).(*ObjectSchema); ok {
		ts.Title = obj.Name
	}

	if err := ts.Validate(); err != nil {
		return nil, err
	}
	return ts, nil
}

// MustTypeSchema is like NewTypeSchema but panics on error
func MustTypeSchema(root Schema, defs map[string]Schema) *TypeSchema {
	ts, err := NewTypeSchema(root, defs)
	if err != nil {
		panic(fmt.Sprintf("invalid schema: %v", err))
	}
	return ts
}

// Validate checks that every reference resolves, nullable wrappers wrap a
// non-null schema and union variants have disjoint tag spellings.
func (ts *TypeSchema) Validate() error {
	var errs []string
	visited := make(map[Schema]bool)

	var walk func(where string, s Schema)
	walk = func(where string, s Schema) {
		if s == nil {
			errs = append(errs, fmt.Sprintf("%s: missing schema", where))
			return
		}
		if visited[s] {
			return
		}
		visited[s] = true

		switch node := s.(type) {
		case *RefSchema:
			target, ok := ts.Defs[node.Target]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s: unresolved reference %q", where, node.Target))
				return
			}
			walk(node.Target, target)
		case *NullableSchema:
			if _, nested := node.Inner.(*NullableSchema); nested {
				errs = append(errs, fmt.Sprintf("%s: nullable wraps another nullable", where))
			}
			walk(where, node.Inner)
		case *ArraySchema:
			walk(where+"[]", node.Items)
		case *MapSchema:
			walk(where+"{}", node.Values)
		case *ObjectSchema:
			for _, p := range node.Properties {
				walk(joinPath(where, p.Name), p.Schema)
			}
		case *UnionSchema:
			if node.TagField == "" {
				errs = append(errs, fmt.Sprintf("%s: union %q has no tag field", where, node.Name))
			}
			for i, v := range node.Variants {
				vi := v.spellings
				if vi == nil {
					vi = newAliasSet(append([]string{v.Tag}, v.Aliases...)...)
				}
				for _, other := range node.Variants[i+1:] {
					vo := other.spellings
					if vo == nil {
						vo = newAliasSet(append([]string{other.Tag}, other.Aliases...)...)
					}
					if spelling, clash := vi.Overlaps(vo); clash {
						errs = append(errs, fmt.Sprintf("%s: union %q variants %q and %q share tag spelling %q",
							where, node.Name, v.Tag, other.Tag, spelling))
					}
				}
				walk(where, v.Schema)
			}
		}
	}

	walk(ts.Title, ts.Root)
	// Definitions not reachable from the root are still validated
	names := make([]string, 0, len(ts.Defs))
	for name := range ts.Defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		walk(name, ts.Defs[name])
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(errs, "; "))
	}
	return nil
}

// resolve strips references and nullable wrappers. Returns nil for an
// unresolvable reference or a reference cycle without structure.
func (ts *TypeSchema) resolve(s Schema) Schema {
	for hops := 0; hops <= len(ts.Defs)+1; hops++ {
		switch node := s.(type) {
		case *RefSchema:
			s = ts.Defs[node.Target]
		case *NullableSchema:
			s = node.Inner
		default:
			return s
		}
	}
	return nil
}

// effectivePolicy resolves CombineAuto against the declared schema.
func (ts *TypeSchema) effectivePolicy(p *Property) Policy {
	if p.Combine != CombineAuto {
		return p.Combine
	}
	switch ts.resolve(p.Schema).(type) {
	case *ObjectSchema, *UnionSchema:
		return CombineMerge
	default:
		return CombineReplace
	}
}

// joinPath appends a segment to a dotted path.
func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
