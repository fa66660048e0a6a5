// FILE: lixenwraith/setty/decode.go
package setty

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Decode checks v against the schema of T and decodes it into a fresh T.
// Unknown fields, missing required fields, unknown union tags and enum values
// are reported as *DecodeError with the path of the offending field.
func Decode[T any](reg *Registry, v any) (T, error) {
	var out T
	if reg == nil {
		reg = defaultRegistry
	}

	ts, err := SchemaFor[T](reg)
	if err != nil {
		return out, err
	}
	if err := reg.decodeInto(ts, v, &out); err != nil {
		return out, err
	}
	return out, nil
}

// decodeInto is the single authoritative function for turning a combined value
// into a Go value. All public decoding paths delegate to this.
func (r *Registry) decodeInto(ts *TypeSchema, v any, target any) error {
	// Validate target
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be non-nil pointer, got %T", target)
	}

	canonical, err := ts.Check(v)
	if err != nil {
		return err
	}
	if canonical == nil {
		return nil
	}

	if err := r.mapDecode(canonical, target); err != nil {
		return &DecodeError{Reason: "type mismatch", Err: err}
	}
	return nil
}

// mapDecode runs mapstructure with the registry's naming rules and hooks.
func (r *Registry) mapDecode(input any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		TagName:     r.opts.TagName,
		ErrorUnused: true,
		Squash:      true,
		DecodeHook:  r.getDecodeHook(),
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	return decoder.Decode(input)
}

// getDecodeHook returns the composite decode hook for all type conversions
func (r *Registry) getDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		// Tagged unions
		r.unionHookFunc(),

		// Network types
		stringToNetIPHookFunc(),
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),

		// Standard hooks
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// unionHookFunc decodes a mapping into the variant type selected by its tag
// when the target is a registered union interface.
func (r *Registry) unionHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t.Kind() != reflect.Interface {
			return data, nil
		}
		u, ok := r.union(t)
		if !ok {
			return data, nil
		}
		m, ok := data.(map[string]any)
		if !ok {
			return data, nil
		}

		body := make(map[string]any, len(m))
		tag := ""
		for k, v := range m {
			if strings.EqualFold(k, u.tagField) {
				tag, _ = v.(string)
				continue
			}
			body[k] = v
		}

		variant, ok := u.variantByTag(tag)
		if !ok {
			return nil, fmt.Errorf("unknown variant %q of %s", tag, t)
		}

		ptr := reflect.New(derefType(variant.Type))
		if err := r.mapDecode(body, ptr.Interface()); err != nil {
			return nil, err
		}
		if variant.Type.Kind() == reflect.Ptr {
			return ptr.Interface(), nil
		}
		return ptr.Elem().Interface(), nil
	}
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != ipType {
			return data, nil
		}

		str := data.(string)
		if str == "" {
			return net.IP(nil), nil
		}
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}

		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}

		return ip, nil
	}
}

// stringToNetIPNetHookFunc handles net.IPNet conversion
func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		if derefType(t) != ipNetType {
			return data, nil
		}

		str := data.(string)
		if str == "" {
			if isPtr {
				return (*net.IPNet)(nil), nil
			}
			return net.IPNet{}, nil
		}
		if len(str) > 49 { // Max IPv6 CIDR length
			return nil, fmt.Errorf("invalid CIDR length: %d", len(str))
		}
		_, ipnet, err := net.ParseCIDR(str)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR: %w", err)
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		if derefType(t) != urlType {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// Check verifies that v conforms to the schema and returns a canonical copy in
// which alias spellings are renamed to declared property names, union tags to
// their declared spelling and enum values to their declared case. All
// violations are returned joined.
func (ts *TypeSchema) Check(v any) (any, error) {
	c := &checker{ts: ts}
	out := c.check("", ts.rootSchema(), v)
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return out, nil
}

type checker struct {
	ts   *TypeSchema
	errs []error
}

func (c *checker) fail(path, field, reason string) {
	c.errs = append(c.errs, &DecodeError{Path: path, Field: field, Reason: reason})
}

func (c *checker) check(path string, s Schema, v any) any {
	if s == nil {
		return Clone(v)
	}

	if n, ok := s.(*NullableSchema); ok {
		if v == nil {
			return nil
		}
		return c.check(path, n.Inner, v)
	}
	if ref, ok := s.(*RefSchema); ok {
		return c.check(path, c.ts.Defs[ref.Target], v)
	}

	if v == nil {
		switch node := s.(type) {
		case *ArraySchema, *MapSchema:
			return nil
		case *ScalarSchema:
			if node.Type == ScalarAny {
				return nil
			}
		}
		c.fail(path, "", "null is not allowed here")
		return nil
	}

	switch node := s.(type) {
	case *ObjectSchema:
		m, ok := v.(map[string]any)
		if !ok {
			c.fail(path, "", fmt.Sprintf("expected object, got %s", KindOf(v)))
			return nil
		}
		return c.checkObject(path, node, m, "")

	case *UnionSchema:
		m, ok := v.(map[string]any)
		if !ok {
			c.fail(path, "", fmt.Sprintf("expected object, got %s", KindOf(v)))
			return nil
		}
		tagKey, tag, hasTag := node.tagEntry(m)
		if !hasTag {
			c.fail(path, node.TagField, "missing union tag")
			return nil
		}
		variant := node.Variant(tag)
		if variant == nil {
			c.fail(path, node.TagField, fmt.Sprintf("unknown variant %q, expected one of %s", tag, variantTags(node)))
			return nil
		}
		obj, ok := c.ts.resolve(variant.Schema).(*ObjectSchema)
		if !ok {
			return Clone(m)
		}
		out := c.checkObject(path, obj, m, tagKey)
		if out != nil {
			out[node.TagField] = variant.Tag
		}
		return out

	case *EnumSchema:
		str, ok := v.(string)
		if !ok {
			c.fail(path, "", fmt.Sprintf("expected string, got %s", KindOf(v)))
			return nil
		}
		for _, value := range node.Values {
			if strings.EqualFold(value, str) {
				return value
			}
		}
		c.fail(path, "", fmt.Sprintf("unknown variant %q, expected one of %s", str, strings.Join(node.Values, ", ")))
		return nil

	case *ArraySchema:
		items, ok := v.([]any)
		if !ok {
			// Weak typing turns delimited strings into slices
			if _, isString := v.(string); isString {
				return v
			}
			c.fail(path, "", fmt.Sprintf("expected array, got %s", KindOf(v)))
			return nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = c.check(joinPath(path, strconv.Itoa(i)), node.Items, item)
		}
		return out

	case *MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			c.fail(path, "", fmt.Sprintf("expected object, got %s", KindOf(v)))
			return nil
		}
		out := make(map[string]any, len(m))
		for _, key := range sortedKeys(m) {
			out[key] = c.check(joinPath(path, key), node.Values, m[key])
		}
		return out

	case *ScalarSchema:
		return c.checkScalar(path, node, v)
	}

	return Clone(v)
}

// checkScalar enforces the scalar type of node. Strings holding a number or a
// boolean are converted; every other mismatch fails, including conversions
// that would lose data such as a fractional number into an integer.
func (c *checker) checkScalar(path string, node *ScalarSchema, v any) any {
	switch node.Type {
	case ScalarAny:
		return Clone(v)

	case ScalarString:
		if s, ok := v.(string); ok {
			return s
		}

	case ScalarBoolean:
		switch val := v.(type) {
		case bool:
			return val
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
				return b
			}
		}

	case ScalarInteger:
		switch val := v.(type) {
		case int64:
			return val
		case float64:
			if val == math.Trunc(val) && val >= math.MinInt64 && val < math.MaxInt64 {
				return int64(val)
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
				return n
			}
		}

	case ScalarNumber:
		switch val := v.(type) {
		case int64, float64:
			return val
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return f
			}
		}
	}

	c.fail(path, "", fmt.Sprintf("expected %s, got %s", node.Type, KindOf(v)))
	return nil
}

// checkObject verifies the keys of m against obj, skipping skipKey.
func (c *checker) checkObject(path string, obj *ObjectSchema, m map[string]any, skipKey string) map[string]any {
	out := make(map[string]any, len(m))
	seen := make(map[*Property]string, len(m))

	for _, key := range sortedKeys(m) {
		if skipKey != "" && key == skipKey {
			continue
		}
		prop := obj.Property(key)
		if prop == nil {
			c.errs = append(c.errs, &DecodeError{
				Path:       path,
				Field:      key,
				Reason:     "unknown field",
				Suggestion: suggest(key, propertyNames(obj)),
			})
			continue
		}
		if first, dup := seen[prop]; dup {
			c.fail(path, key, fmt.Sprintf("duplicate field, already set as %q", first))
			continue
		}
		seen[prop] = key
		out[prop.Name] = c.check(joinPath(path, prop.Name), prop.Schema, m[key])
	}

	for _, prop := range obj.Properties {
		if _, present := seen[prop]; !present && prop.Required {
			c.fail(path, prop.Name, "missing required field")
		}
	}

	return out
}

func propertyNames(obj *ObjectSchema) []string {
	names := make([]string, 0, len(obj.Properties))
	for _, p := range obj.Properties {
		names = append(names, p.Name)
		names = append(names, p.Aliases...)
	}
	return names
}

func variantTags(u *UnionSchema) string {
	tags := make([]string, 0, len(u.Variants))
	for _, v := range u.Variants {
		tags = append(tags, strconv.Quote(v.Tag))
	}
	return strings.Join(tags, ", ")
}
