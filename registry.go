// FILE: lixenwraith/setty/registry.go
package setty

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"reflect"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTagName is the struct tag consulted when SchemaOptions.TagName is empty.
const DefaultTagName = "config"

// SchemaOptions controls how Go types are described. Options are fixed per
// Registry so every type derived through it follows the same conventions.
type SchemaOptions struct {
	// TagName is the struct tag holding the property name and options
	TagName string
	// FieldCase renames fields that have no explicit name in their tag
	FieldCase Case
	// VariantCase renames union variant tags
	VariantCase Case
}

// Enumeration is implemented by string types restricted to a fixed set of values.
// The method is called on a zero value.
type Enumeration interface {
	EnumValues() []string
}

// UnionVariant associates a discriminant value with the concrete Go type
// decoded for it.
type UnionVariant struct {
	Tag     string
	Aliases []string
	Type    reflect.Type
}

// VariantType declares T as the variant selected by tag or any alias.
func VariantType[T any](tag string, aliases ...string) UnionVariant {
	return UnionVariant{Tag: tag, Aliases: aliases, Type: reflect.TypeOf((*T)(nil)).Elem()}
}

type unionInfo struct {
	iface    reflect.Type
	tagField string
	variants []UnionVariant
	tags     []aliasSet
}

// variantByTag returns the variant selected by tag, matching any spelling.
func (u *unionInfo) variantByTag(tag string) (UnionVariant, bool) {
	for i, v := range u.variants {
		if u.tags[i].Contains(tag) {
			return v, true
		}
	}
	return UnionVariant{}, false
}

// variantByType returns the variant whose Go type is t or *t.
func (u *unionInfo) variantByType(t reflect.Type) (UnionVariant, bool) {
	for _, v := range u.variants {
		if v.Type == t || (t.Kind() == reflect.Ptr && v.Type == t.Elem()) ||
			(v.Type.Kind() == reflect.Ptr && v.Type.Elem() == t) {
			return v, true
		}
	}
	return UnionVariant{}, false
}

// Registry derives TypeSchemas from Go types and caches them. A Registry is
// safe for concurrent use.
type Registry struct {
	opts    SchemaOptions
	mutex   sync.RWMutex
	unions  map[reflect.Type]*unionInfo
	schemas map[reflect.Type]*TypeSchema
}

// NewRegistry creates an empty registry.
func NewRegistry(opts SchemaOptions) *Registry {
	if opts.TagName == "" {
		opts.TagName = DefaultTagName
	}
	return &Registry{
		opts:    opts,
		unions:  make(map[reflect.Type]*unionInfo),
		schemas: make(map[reflect.Type]*TypeSchema),
	}
}

var defaultRegistry = NewRegistry(SchemaOptions{})

// DefaultRegistry returns the process-wide registry used when nil is passed.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Options returns the options the registry was created with.
func (r *Registry) Options() SchemaOptions {
	return r.opts
}

// RegisterUnion declares the interface type I as a tagged union. Values are
// decoded into the variant whose tag matches tagField, ignoring case.
// Every variant type must implement I and be a struct or pointer to struct.
func RegisterUnion[I any](r *Registry, tagField string, variants ...UnionVariant) error {
	if r == nil {
		r = defaultRegistry
	}
	return r.registerUnion(reflect.TypeOf((*I)(nil)).Elem(), tagField, variants)
}

// MustRegisterUnion is like RegisterUnion but panics on error
func MustRegisterUnion[I any](r *Registry, tagField string, variants ...UnionVariant) {
	if err := RegisterUnion[I](r, tagField, variants...); err != nil {
		panic(err)
	}
}

func (r *Registry) registerUnion(iface reflect.Type, tagField string, variants []UnionVariant) error {
	if iface.Kind() != reflect.Interface {
		return fmt.Errorf("%w: union type %s must be an interface", ErrSchema, iface)
	}
	if tagField == "" {
		return fmt.Errorf("%w: union %s needs a tag field", ErrSchema, iface)
	}
	if len(variants) == 0 {
		return fmt.Errorf("%w: union %s has no variants", ErrSchema, iface)
	}

	info := &unionInfo{iface: iface, tagField: tagField}
	for _, v := range variants {
		if v.Type == nil || !v.Type.Implements(iface) {
			return fmt.Errorf("%w: variant %q type %v does not implement %s", ErrSchema, v.Tag, v.Type, iface)
		}
		if derefType(v.Type).Kind() != reflect.Struct {
			return fmt.Errorf("%w: variant %q type %s must be a struct", ErrSchema, v.Tag, v.Type)
		}
		v.Tag = r.opts.VariantCase.Apply(v.Tag)
		tags := newAliasSet(append([]string{v.Tag}, v.Aliases...)...)
		for i, prev := range info.variants {
			if spelling, clash := tags.Overlaps(info.tags[i]); clash {
				return fmt.Errorf("%w: union %s variants %q and %q share tag spelling %q",
					ErrSchema, iface, prev.Tag, v.Tag, spelling)
			}
		}
		info.variants = append(info.variants, v)
		info.tags = append(info.tags, tags)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.unions[iface] = info
	// Cached schemas may describe iface as an opaque value
	r.schemas = make(map[reflect.Type]*TypeSchema)
	return nil
}

// union returns the registration for an interface type.
func (r *Registry) union(t reflect.Type) (*unionInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	u, ok := r.unions[t]
	return u, ok
}

// SchemaFor returns the schema of T, deriving and caching it on first use.
// A nil registry means the default registry.
func SchemaFor[T any](r *Registry) (*TypeSchema, error) {
	if r == nil {
		r = defaultRegistry
	}
	return r.SchemaOf(reflect.TypeOf((*T)(nil)).Elem())
}

// MustSchemaFor is like SchemaFor but panics on error
func MustSchemaFor[T any](r *Registry) *TypeSchema {
	ts, err := SchemaFor[T](r)
	if err != nil {
		panic(err)
	}
	return ts
}

// SchemaOf returns the schema of t, deriving and caching it on first use.
func (r *Registry) SchemaOf(t reflect.Type) (*TypeSchema, error) {
	r.mutex.RLock()
	ts, ok := r.schemas[t]
	r.mutex.RUnlock()
	if ok {
		return ts, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Another goroutine may have derived it meanwhile
	if ts, ok := r.schemas[t]; ok {
		return ts, nil
	}

	b := &schemaBuilder{
		reg:   r,
		defs:  make(map[string]Schema),
		names: make(map[reflect.Type]string),
		taken: make(map[string]reflect.Type),
	}
	root, err := b.build(t)
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema for %s: %w", t, err)
	}

	ts, err = NewTypeSchema(root, b.defs)
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema for %s: %w", t, err)
	}
	if ts.Title == "" {
		ts.Title = t.Name()
	}

	r.schemas[t] = ts
	return ts, nil
}

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	timeType        = reflect.TypeOf(time.Time{})
	ipType          = reflect.TypeOf(net.IP{})
	ipNetType       = reflect.TypeOf(net.IPNet{})
	urlType         = reflect.TypeOf(url.URL{})
	enumerationType = reflect.TypeOf((*Enumeration)(nil)).Elem()
)

// wellKnownSchema describes standard library types decoded from strings.
func wellKnownSchema(t reflect.Type) (Schema, bool) {
	switch t {
	case durationType:
		return &ScalarSchema{Type: ScalarString, Format: "duration"}, true
	case timeType:
		return &ScalarSchema{Type: ScalarString, Format: "date-time"}, true
	case ipType:
		return &ScalarSchema{Type: ScalarString, Format: "ip"}, true
	case ipNetType:
		return &ScalarSchema{Type: ScalarString, Format: "cidr"}, true
	case urlType:
		return &ScalarSchema{Type: ScalarString, Format: "uri"}, true
	}
	return nil, false
}

// schemaBuilder holds the state of one derivation. The registry lock is held.
type schemaBuilder struct {
	reg   *Registry
	defs  map[string]Schema
	names map[reflect.Type]string
	taken map[string]reflect.Type
}

func (b *schemaBuilder) build(t reflect.Type) (Schema, error) {
	if s, ok := wellKnownSchema(t); ok {
		return s, nil
	}

	if t.Kind() == reflect.String && reflect.PointerTo(t).Implements(enumerationType) {
		values := reflect.New(t).Interface().(Enumeration).EnumValues()
		return &EnumSchema{Name: t.Name(), Values: values}, nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		inner, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		if _, nullable := inner.(*NullableSchema); nullable {
			return inner, nil
		}
		return NullableOf(inner), nil

	case reflect.Interface:
		if u, ok := b.reg.unions[t]; ok {
			return b.buildUnion(u)
		}
		return AnyType(), nil

	case reflect.Struct:
		return b.buildStruct(t)

	case reflect.Slice, reflect.Array:
		items, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		return ArrayOf(items), nil

	case reflect.Map:
		values, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		return MapOf(values), nil

	case reflect.String:
		return StringType(), nil
	case reflect.Bool:
		return BoolType(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntegerType(), nil
	case reflect.Float32, reflect.Float64:
		return NumberType(), nil
	}

	return nil, fmt.Errorf("%w: unsupported type %s", ErrSchema, t)
}

// defName picks a definitions key for a named type, qualifying it with the
// package name when two types share a name.
func (b *schemaBuilder) defName(t reflect.Type) string {
	name := sanitizeDefName(t.Name())
	if other, exists := b.taken[name]; exists && other != t {
		name = path.Base(t.PkgPath()) + "." + name
	}
	b.taken[name] = t
	return name
}

func sanitizeDefName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ',', ' ', '/', '*':
			return '_'
		}
		return r
	}, name)
}

func (b *schemaBuilder) buildStruct(t reflect.Type) (Schema, error) {
	if t.Name() == "" {
		return b.buildObject(t)
	}
	if name, ok := b.names[t]; ok {
		return Ref(name), nil
	}

	// Register the name first so self-references become refs
	name := b.defName(t)
	b.names[t] = name
	obj, err := b.buildObject(t)
	if err != nil {
		return nil, err
	}
	b.defs[name] = obj
	return Ref(name), nil
}

func (b *schemaBuilder) buildObject(t reflect.Type) (*ObjectSchema, error) {
	specs, err := b.reg.fields(t)
	if err != nil {
		return nil, err
	}

	obj := &ObjectSchema{Name: t.Name()}
	var errs []string
	for _, spec := range specs {
		s, err := b.build(spec.typ)
		if err != nil {
			errs = append(errs, fmt.Sprintf("field %s: %v", spec.goName, err))
			continue
		}
		prop, err := b.property(spec, s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("field %s: %v", spec.goName, err))
			continue
		}
		obj.Properties = append(obj.Properties, prop)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrSchema, t, strings.Join(errs, "; "))
	}
	return obj, nil
}

// property converts a field spec into schema metadata.
func (b *schemaBuilder) property(spec fieldSpec, s Schema) (*Property, error) {
	opts := []PropertyOption{WithCombine(spec.policy)}
	if len(spec.aliases) > 0 {
		opts = append(opts, WithAliases(spec.aliases...))
	}
	if spec.description != "" {
		opts = append(opts, WithDescription(spec.description))
	}
	if spec.deprecated != nil {
		opts = append(opts, WithDeprecation(spec.deprecated.Reason, spec.deprecated.Since))
	}

	// Nested sections always exist so their own defaults apply
	_, wellKnown := wellKnownSchema(spec.typ)
	isSection := spec.typ.Kind() == reflect.Struct && !wellKnown

	hasDefault := spec.hasDefault
	switch {
	case spec.hasDefault:
		value, err := parseDefault(spec.rawDefault, s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDefault(value))
	case isSection:
		hasDefault = true
		opts = append(opts, WithDefault(map[string]any{}))
	}

	if spec.required || (!hasDefault && !spec.optional && implicitlyRequired(spec.typ)) {
		opts = append(opts, AsRequired())
	}

	return Prop(spec.name, s, opts...), nil
}

// implicitlyRequired reports whether a field without default must be supplied.
// Pointers, collections and opaque values may be absent.
func implicitlyRequired(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map:
		return false
	case reflect.Interface:
		return t.NumMethod() > 0
	}
	return true
}

// parseDefault reads a `default` tag as a YAML literal. String-typed fields keep
// the raw text so that `default:"123"` stays a string.
func parseDefault(raw string, s Schema) (any, error) {
	inner := s
	if n, ok := inner.(*NullableSchema); ok {
		inner = n.Inner
	}
	switch node := inner.(type) {
	case *EnumSchema:
		return raw, nil
	case *ScalarSchema:
		if node.Type == ScalarString {
			return raw, nil
		}
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("invalid default %q: %w", raw, err)
	}
	return Normalize(value), nil
}

func (b *schemaBuilder) buildUnion(u *unionInfo) (Schema, error) {
	if name, ok := b.names[u.iface]; ok {
		return Ref(name), nil
	}
	name := b.defName(u.iface)
	b.names[u.iface] = name

	union := &UnionSchema{Name: u.iface.Name(), TagField: u.tagField}
	for _, v := range u.variants {
		s, err := b.build(derefType(v.Type))
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", v.Tag, err)
		}
		union.Variants = append(union.Variants, VariantOf(v.Tag, s, v.Aliases...))
	}

	b.defs[name] = union
	return Ref(name), nil
}

// fieldSpec is the tag-derived metadata of one struct field.
type fieldSpec struct {
	index       []int
	goName      string
	name        string
	typ         reflect.Type
	aliases     []string
	policy      Policy
	required    bool
	optional    bool
	hasDefault  bool
	rawDefault  string
	deprecated  *Deprecation
	description string
}

// fields lists the configurable fields of a struct type. Embedded structs
// without an explicit name are flattened into the parent.
//
// Recognized tags, with TagName "config":
//
//	config:"name,combine=keep|replace|merge,alias=a|b,required,optional"
//	default:"<yaml literal>"
//	deprecated:"reason"  since:"version"
//	description:"text"
func (r *Registry) fields(t reflect.Type) ([]fieldSpec, error) {
	var specs []fieldSpec

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		tag := field.Tag.Get(r.opts.TagName)
		if tag == "-" {
			continue // Skip this field
		}
		name, options, _ := strings.Cut(tag, ",")

		if field.Anonymous && name == "" && field.Type.Kind() == reflect.Struct {
			embedded, err := r.fields(field.Type)
			if err != nil {
				return nil, err
			}
			for _, spec := range embedded {
				spec.index = append([]int{i}, spec.index...)
				specs = append(specs, spec)
			}
			continue
		}

		if !field.IsExported() {
			continue
		}

		spec := fieldSpec{
			index:       []int{i},
			goName:      field.Name,
			name:        name,
			typ:         field.Type,
			description: field.Tag.Get("description"),
		}
		if spec.name == "" {
			spec.name = r.opts.FieldCase.Apply(field.Name)
		}
		if !isValidKeySegment(spec.name) {
			return nil, fmt.Errorf("%w: field %s.%s has invalid name %q", ErrSchema, t, field.Name, spec.name)
		}

		if options != "" {
			for _, opt := range strings.Split(options, ",") {
				key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
				switch key {
				case "combine":
					policy, err := ParsePolicy(value)
					if err != nil {
						return nil, fmt.Errorf("field %s.%s: %w", t, field.Name, err)
					}
					spec.policy = policy
				case "alias":
					spec.aliases = append(spec.aliases, strings.Split(value, "|")...)
				case "required":
					spec.required = true
				case "optional":
					spec.optional = true
				case "":
				default:
					return nil, fmt.Errorf("%w: field %s.%s has unknown tag option %q", ErrSchema, t, field.Name, key)
				}
			}
		}

		if raw, ok := field.Tag.Lookup("default"); ok {
			spec.hasDefault = true
			spec.rawDefault = raw
		}
		if reason, ok := field.Tag.Lookup("deprecated"); ok {
			spec.deprecated = &Deprecation{Reason: reason, Since: field.Tag.Get("since")}
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

// Encode converts a Go value into a normalized value using the same field names
// as the derived schema. Union interface values gain their discriminant.
func (r *Registry) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return r.encode(reflect.ValueOf(v))
}

func (r *Registry) encode(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Type() {
	case durationType:
		return time.Duration(rv.Int()).String(), nil
	case timeType:
		return rv.Interface().(time.Time).Format(time.RFC3339Nano), nil
	case ipType:
		ip := rv.Interface().(net.IP)
		if len(ip) == 0 {
			return "", nil
		}
		return ip.String(), nil
	case ipNetType:
		ipnet := rv.Interface().(net.IPNet)
		if ipnet.IP == nil {
			return "", nil
		}
		return ipnet.String(), nil
	case urlType:
		u := rv.Interface().(url.URL)
		return u.String(), nil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return r.encode(rv.Elem())

	case reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		concrete := rv.Elem()
		u, isUnion := r.union(rv.Type())
		if !isUnion {
			return r.encode(concrete)
		}
		variant, ok := u.variantByType(concrete.Type())
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a registered variant of %s", ErrSchema, concrete.Type(), rv.Type())
		}
		body, err := r.encode(concrete)
		if err != nil {
			return nil, err
		}
		m, ok := body.(map[string]any)
		if !ok {
			m = make(map[string]any)
		}
		m[u.tagField] = variant.Tag
		return m, nil

	case reflect.Struct:
		specs, err := r.fields(rv.Type())
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, len(specs))
		for _, spec := range specs {
			field := rv.FieldByIndex(spec.index)
			if field.Kind() == reflect.Interface && field.IsNil() {
				// An unset union is absent rather than null
				continue
			}
			if spec.deprecated != nil && field.IsZero() {
				continue
			}
			value, err := r.encode(field)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", spec.goName, err)
			}
			m[spec.name] = value
		}
		return m, nil

	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := r.encode(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil

	case reflect.Map:
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			item, err := r.encode(iter.Value())
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(iter.Key().Interface())] = item
		}
		return out, nil
	}

	return Normalize(rv.Interface()), nil
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
