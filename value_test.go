// FILE: lixenwraith/setty/value_test.go
package setty

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	type custom string

	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"Nil", nil, nil},
		{"Int", 42, int64(42)},
		{"Uint8", uint8(7), int64(7)},
		{"HugeUint", uint64(math.MaxUint64), float64(math.MaxUint64)},
		{"Float32", float32(1.5), float64(1.5)},
		{"JSONInteger", json.Number("12"), int64(12)},
		{"JSONFloat", json.Number("1.25"), float64(1.25)},
		{"Duration", 90 * time.Second, "1m30s"},
		{"TypedString", custom("x"), "x"},
		{"StringSlice", []string{"a", "b"}, []any{"a", "b"}},
		{"YAMLMap", map[any]any{"a": 1, 2: "b"}, map[string]any{"a": int64(1), "2": "b"}},
		{"TypedMap", map[string]int{"a": 1}, map[string]any{"a": int64(1)}},
		{"NestedMaps", map[string]any{"a": []any{map[string]any{"b": 1}}},
			map[string]any{"a": []any{map[string]any{"b": int64(1)}}}},
		{"NilPointer", (*int)(nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNull, KindOf(nil))
	assert.Equal(t, KindBool, KindOf(true))
	assert.Equal(t, KindNumber, KindOf(int64(1)))
	assert.Equal(t, KindNumber, KindOf(1.5))
	assert.Equal(t, KindString, KindOf("a"))
	assert.Equal(t, KindSequence, KindOf([]any{}))
	assert.Equal(t, KindMapping, KindOf(map[string]any{}))
	assert.Equal(t, KindInvalid, KindOf(struct{}{}))
	assert.Equal(t, "object", KindMapping.String())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"NilNil", nil, nil, true},
		{"NilEmptyMap", nil, map[string]any{}, false},
		{"IntFloat", int64(1), float64(1), true},
		{"IntString", int64(1), "1", false},
		{"Maps", map[string]any{"a": []any{int64(1)}}, map[string]any{"a": []any{float64(1)}}, true},
		{"MapsDiffer", map[string]any{"a": int64(1)}, map[string]any{"b": int64(1)}, false},
		{"SequenceOrder", []any{"a", "b"}, []any{"b", "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Equal(tt.a, tt.b))
			assert.Equal(t, tt.equal, Equal(tt.b, tt.a))
		})
	}
}

func TestClone(t *testing.T) {
	original := map[string]any{"a": []any{map[string]any{"b": int64(1)}}}
	clone := Clone(original).(map[string]any)
	clone["a"].([]any)[0].(map[string]any)["b"] = int64(2)

	assert.Equal(t, int64(1), original["a"].([]any)[0].(map[string]any)["b"])
}
