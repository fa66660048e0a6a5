// FILE: lixenwraith/setty/jsonschema.go
package setty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	jsonSchemaDraft = "https://json-schema.org/draft/2020-12/schema"
	// jsonSchemaURL identifies the generated document inside the compiler
	jsonSchemaURL = "setty://schema.json"
)

// standardFormats are emitted as "format"; other hints go to "x-format".
var standardFormats = map[string]bool{
	"date-time": true,
	"uri":       true,
}

// JSONSchema renders ts as a draft 2020-12 JSON Schema document. Named
// types live under "$defs" and are referenced with "#/$defs/<name>".
func JSONSchema(ts *TypeSchema) map[string]any {
	doc := jsonSchemaNode(ts.Root)
	doc["$schema"] = jsonSchemaDraft
	if ts.Title != "" {
		doc["title"] = ts.Title
	}

	if len(ts.Defs) > 0 {
		defs := make(map[string]any, len(ts.Defs))
		for name, s := range ts.Defs {
			defs[name] = jsonSchemaNode(s)
		}
		doc["$defs"] = defs
	}
	return doc
}

func jsonSchemaNode(s Schema) map[string]any {
	switch node := s.(type) {
	case *RefSchema:
		return map[string]any{"$ref": "#/$defs/" + node.Target}

	case *NullableSchema:
		return map[string]any{"anyOf": []any{
			jsonSchemaNode(node.Inner),
			map[string]any{"type": "null"},
		}}

	case *ScalarSchema:
		out := make(map[string]any)
		if node.Type != ScalarAny {
			out["type"] = string(node.Type)
		}
		if node.Format != "" {
			if standardFormats[node.Format] {
				out["format"] = node.Format
			} else {
				out["x-format"] = node.Format
			}
		}
		return out

	case *EnumSchema:
		values := make([]any, len(node.Values))
		for i, v := range node.Values {
			values[i] = v
		}
		out := map[string]any{"type": "string", "enum": values}
		if node.Name != "" {
			out["title"] = node.Name
		}
		if node.Description != "" {
			out["description"] = node.Description
		}
		return out

	case *ArraySchema:
		return map[string]any{"type": "array", "items": jsonSchemaNode(node.Items)}

	case *MapSchema:
		return map[string]any{"type": "object", "additionalProperties": jsonSchemaNode(node.Values)}

	case *ObjectSchema:
		return jsonSchemaObject(node)

	case *UnionSchema:
		variants := make([]any, 0, len(node.Variants))
		for _, v := range node.Variants {
			variant := map[string]any{
				"allOf": []any{jsonSchemaNode(v.Schema)},
				"properties": map[string]any{
					node.TagField: map[string]any{"const": v.Tag},
				},
				"required": []any{node.TagField},
			}
			if v.Description != "" {
				variant["description"] = v.Description
			}
			variants = append(variants, variant)
		}
		out := map[string]any{"oneOf": variants}
		if node.Name != "" {
			out["title"] = node.Name
		}
		if node.Description != "" {
			out["description"] = node.Description
		}
		return out
	}

	return map[string]any{}
}

func jsonSchemaObject(obj *ObjectSchema) map[string]any {
	props := make(map[string]any, len(obj.Properties))
	for _, p := range obj.Properties {
		ps := jsonSchemaNode(p.Schema)
		if p.Description != "" {
			ps["description"] = p.Description
		}
		if p.HasDefault {
			ps["default"] = Clone(p.Default)
		}
		if p.Combine != CombineAuto {
			ps["x-combine"] = p.Combine.String()
		}
		if p.Deprecated != nil {
			ps["deprecated"] = true
			notice := make(map[string]any)
			if p.Deprecated.Reason != "" {
				notice["reason"] = p.Deprecated.Reason
			}
			if p.Deprecated.Since != "" {
				notice["since"] = p.Deprecated.Since
			}
			ps["deprecation"] = notice
		}
		props[p.Name] = ps
	}

	out := map[string]any{"type": "object", "properties": props}
	if obj.Name != "" {
		out["title"] = obj.Name
	}
	if obj.Description != "" {
		out["description"] = obj.Description
	}
	if required := obj.RequiredNames(); len(required) > 0 {
		names := make([]any, len(required))
		for i, n := range required {
			names[i] = n
		}
		out["required"] = names
	}
	return out
}

// ValidateJSONSchema validates v against the JSON Schema rendering of ts.
// v is expected in canonical form as returned by TypeSchema.Check.
func ValidateJSONSchema(ts *TypeSchema, v any) error {
	doc, err := jsonRoundTrip(JSONSchema(ts))
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(jsonSchemaURL, doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	compiled, err := compiler.Compile(jsonSchemaURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}

	instance, err := jsonRoundTrip(Normalize(v))
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// jsonRoundTrip converts v to the representation the validator expects.
func jsonRoundTrip(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// jsonSchemaDefNames lists definition names in a stable order.
func jsonSchemaDefNames(ts *TypeSchema) []string {
	names := make([]string, 0, len(ts.Defs))
	for name := range ts.Defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
