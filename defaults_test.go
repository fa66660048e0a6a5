// FILE: lixenwraith/setty/defaults_test.go
package setty

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFillDefaults(t *testing.T) {
	ts := newTestSchema(t)

	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{
			name:  "EmptyObject",
			input: map[string]any{},
			expected: map[string]any{
				"name":   "app",
				"server": map[string]any{"host": "localhost", "port": int64(8080)},
			},
		},
		{
			name:  "PresentValuesKept",
			input: map[string]any{"name": "custom", "server": map[string]any{"port": int64(1)}},
			expected: map[string]any{
				"name":   "custom",
				"server": map[string]any{"host": "localhost", "port": int64(1)},
			},
		},
		{
			name:  "AliasCountsAsPresent",
			input: map[string]any{"server": map[string]any{"hostname": "h"}},
			expected: map[string]any{
				"name":   "app",
				"server": map[string]any{"hostname": "h", "port": int64(8080)},
			},
		},
		{
			name:  "ExplicitNullKept",
			input: map[string]any{"name": nil, "server": nil},
			expected: map[string]any{
				"name":   nil,
				"server": nil,
			},
		},
		{
			name:  "UnionVariantDefaults",
			input: map[string]any{"db": map[string]any{"kind": "pg", "user": "u"}},
			expected: map[string]any{
				"name":   "app",
				"server": map[string]any{"host": "localhost", "port": int64(8080)},
				"db":     map[string]any{"kind": "pg", "user": "u", "host": "db"},
			},
		},
		{
			name:  "UnionWithoutTagUntouched",
			input: map[string]any{"db": map[string]any{"user": "u"}},
			expected: map[string]any{
				"name":   "app",
				"server": map[string]any{"host": "localhost", "port": int64(8080)},
				"db":     map[string]any{"user": "u"},
			},
		},
		{
			name:  "ArrayItemsFilled",
			input: map[string]any{"backends": []any{map[string]any{"port": int64(1)}}},
			expected: map[string]any{
				"name":     "app",
				"server":   map[string]any{"host": "localhost", "port": int64(8080)},
				"backends": []any{map[string]any{"host": "localhost", "port": int64(1)}},
			},
		},
		{
			name:  "NullableObjectFilled",
			input: map[string]any{"extra": map[string]any{}},
			expected: map[string]any{
				"name":   "app",
				"server": map[string]any{"host": "localhost", "port": int64(8080)},
				"extra":  map[string]any{"host": "localhost", "port": int64(8080)},
			},
		},
		{
			name:     "NonObjectUnchanged",
			input:    "text",
			expected: "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FillDefaults(tt.input, ts)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("FillDefaults() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFillDefaultsProperties(t *testing.T) {
	ts := newTestSchema(t)

	t.Run("Idempotent", func(t *testing.T) {
		inputs := []any{
			map[string]any{},
			map[string]any{"db": map[string]any{"kind": "sqlite"}},
			map[string]any{"backends": []any{map[string]any{}}, "extra": map[string]any{}},
		}
		for _, in := range inputs {
			once := FillDefaults(in, ts)
			assert.True(t, Equal(once, FillDefaults(once, ts)), "FillDefaults must be idempotent for %v", in)
		}
	})

	t.Run("InputNotModified", func(t *testing.T) {
		in := map[string]any{"server": map[string]any{}}
		FillDefaults(in, ts)
		assert.Equal(t, map[string]any{"server": map[string]any{}}, in)
	})

	t.Run("DefaultsNotShared", func(t *testing.T) {
		first := FillDefaults(map[string]any{}, ts).(map[string]any)
		first["server"].(map[string]any)["host"] = "mutated"

		second := FillDefaults(map[string]any{}, ts).(map[string]any)
		assert.Equal(t, "localhost", second["server"].(map[string]any)["host"])
	})

	t.Run("NilSchema", func(t *testing.T) {
		assert.Equal(t, map[string]any{"a": int64(1)}, FillDefaults(map[string]any{"a": int64(1)}, nil))
	})

	t.Run("SelfReferentialDefaultTerminates", func(t *testing.T) {
		node := NewObject("Node",
			Prop("value", IntegerType(), WithDefault(1)),
			Prop("next", Ref("Node"), WithDefault(map[string]any{})),
		)
		ts := MustTypeSchema(Ref("Node"), map[string]Schema{"Node": node})

		filled := FillDefaults(map[string]any{}, ts)
		depth := 0
		for current, ok := filled.(map[string]any); ok; current, ok = current["next"].(map[string]any) {
			depth++
		}
		assert.Greater(t, depth, 1)
		assert.LessOrEqual(t, depth, maxDefaultDepth+4)
	})
}
