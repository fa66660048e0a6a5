// FILE: lixenwraith/setty/combine_test.go
package setty

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSchema builds a schema exercising every node kind.
func newTestSchema(t *testing.T) *TypeSchema {
	t.Helper()

	ts, err := NewTypeSchema(Ref("Root"), map[string]Schema{
		"Root": NewObject("Root",
			Prop("name", StringType(), WithDefault("app"), WithDescription("Application name")),
			Prop("plugins", ArrayOf(StringType())),
			Prop("tags", ArrayOf(StringType()), WithCombine(CombineMerge)),
			Prop("owner", StringType(), WithCombine(CombineKeep)),
			Prop("labels", MapOf(StringType()), WithCombine(CombineMerge)),
			Prop("server", Ref("Server"), WithDefault(map[string]any{})),
			Prop("backends", ArrayOf(Ref("Server"))),
			Prop("db", Ref("Database")),
			Prop("extra", NullableOf(Ref("Server"))),
			Prop("mode", Enum("Mode", "Fast", "Safe")),
		),
		"Server": NewObject("Server",
			Prop("host", StringType(), WithDefault("localhost"), WithAliases("hostname")),
			Prop("port", IntegerType(), WithDefault(8080)),
			Prop("timeout", IntegerType(), WithDeprecation("use read_timeout", "1.2")),
		),
		"Database": NewUnion("Database", "kind",
			VariantOf("postgres", Ref("Postgres"), "pg"),
			VariantOf("sqlite", Ref("Sqlite")),
		),
		"Postgres": NewObject("Postgres",
			Prop("host", StringType(), WithDefault("db")),
			Prop("user", StringType(), AsRequired()),
		),
		"Sqlite": NewObject("Sqlite",
			Prop("path", StringType()),
			Prop("file", StringType(), WithDeprecation("use path", "")),
		),
	})
	require.NoError(t, err)
	return ts
}

func TestCombine(t *testing.T) {
	ts := newTestSchema(t)

	tests := []struct {
		name     string
		values   []any
		expected any
	}{
		{
			name:     "NoValues",
			values:   nil,
			expected: nil,
		},
		{
			name:     "SingleValueAdopted",
			values:   []any{map[string]any{"name": "a"}},
			expected: map[string]any{"name": "a"},
		},
		{
			name: "ReplaceScalar",
			values: []any{
				map[string]any{"name": "a"},
				map[string]any{"name": "b"},
			},
			expected: map[string]any{"name": "b"},
		},
		{
			name: "KeepFirst",
			values: []any{
				map[string]any{"owner": "first"},
				map[string]any{"owner": "second"},
				map[string]any{"owner": "third"},
			},
			expected: map[string]any{"owner": "first"},
		},
		{
			name: "KeepAdoptsWhenAbsent",
			values: []any{
				map[string]any{"name": "a"},
				map[string]any{"owner": "second"},
			},
			expected: map[string]any{"name": "a", "owner": "second"},
		},
		{
			name: "ArrayReplacedByDefault",
			values: []any{
				map[string]any{"plugins": []any{"a"}},
				map[string]any{"plugins": []any{"b"}},
			},
			expected: map[string]any{"plugins": []any{"b"}},
		},
		{
			name: "ArrayAppend",
			values: []any{
				map[string]any{"tags": []any{"a"}},
				map[string]any{"tags": []any{"b", "c"}},
			},
			expected: map[string]any{"tags": []any{"a", "b", "c"}},
		},
		{
			name: "ArrayNullResets",
			values: []any{
				map[string]any{"tags": []any{"a"}},
				map[string]any{"tags": nil},
				map[string]any{"tags": []any{"b"}},
			},
			expected: map[string]any{"tags": []any{"b"}},
		},
		{
			name: "MapMerge",
			values: []any{
				map[string]any{"labels": map[string]any{"a": "1", "b": "1"}},
				map[string]any{"labels": map[string]any{"b": "2", "c": "3"}},
			},
			expected: map[string]any{"labels": map[string]any{"a": "1", "b": "2", "c": "3"}},
		},
		{
			name: "ObjectMerge",
			values: []any{
				map[string]any{"server": map[string]any{"host": "example.com"}},
				map[string]any{"server": map[string]any{"port": int64(9090)}},
			},
			expected: map[string]any{"server": map[string]any{"host": "example.com", "port": int64(9090)}},
		},
		{
			name: "AliasKeepsFirstSpelling",
			values: []any{
				map[string]any{"server": map[string]any{"hostname": "a"}},
				map[string]any{"server": map[string]any{"host": "b"}},
			},
			expected: map[string]any{"server": map[string]any{"hostname": "b"}},
		},
		{
			name: "UnionSameVariantMerges",
			values: []any{
				map[string]any{"db": map[string]any{"kind": "postgres", "host": "a"}},
				map[string]any{"db": map[string]any{"kind": "PG", "user": "app"}},
			},
			expected: map[string]any{"db": map[string]any{"kind": "PG", "host": "a", "user": "app"}},
		},
		{
			name: "UnionDifferentVariantReplaces",
			values: []any{
				map[string]any{"db": map[string]any{"kind": "postgres", "host": "a"}},
				map[string]any{"db": map[string]any{"kind": "sqlite", "path": "x.db"}},
			},
			expected: map[string]any{"db": map[string]any{"kind": "sqlite", "path": "x.db"}},
		},
		{
			name: "UnionMissingTagReplaces",
			values: []any{
				map[string]any{"db": map[string]any{"kind": "postgres", "host": "a"}},
				map[string]any{"db": map[string]any{"user": "app"}},
			},
			expected: map[string]any{"db": map[string]any{"user": "app"}},
		},
		{
			name: "NullableObjectMerges",
			values: []any{
				map[string]any{"extra": map[string]any{"host": "a"}},
				map[string]any{"extra": map[string]any{"port": int64(1)}},
			},
			expected: map[string]any{"extra": map[string]any{"host": "a", "port": int64(1)}},
		},
		{
			name: "UnknownKeyReplaced",
			values: []any{
				map[string]any{"unknown": map[string]any{"a": int64(1)}},
				map[string]any{"unknown": map[string]any{"b": int64(2)}},
			},
			expected: map[string]any{"unknown": map[string]any{"b": int64(2)}},
		},
		{
			name: "NonMappingReplacesRoot",
			values: []any{
				map[string]any{"name": "a"},
				"scalar",
			},
			expected: "scalar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(ts, tt.values...)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Combine() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombineProperties(t *testing.T) {
	ts := newTestSchema(t)

	t.Run("ReplaceIdempotent", func(t *testing.T) {
		v := map[string]any{
			"name":   "a",
			"server": map[string]any{"host": "h", "port": int64(1)},
			"mode":   "Fast",
		}
		assert.True(t, Equal(v, Combine(ts, v, v)))
	})

	t.Run("InputsNotModified", func(t *testing.T) {
		a := map[string]any{"tags": []any{"a"}, "server": map[string]any{"host": "x"}}
		b := map[string]any{"tags": []any{"b"}, "server": map[string]any{"port": int64(1)}}
		aCopy, bCopy := Clone(a), Clone(b)

		result := Combine(ts, a, b).(map[string]any)
		result["server"].(map[string]any)["host"] = "mutated"

		assert.Equal(t, aCopy, a)
		assert.Equal(t, bCopy, b)
	})

	t.Run("MergeMethod", func(t *testing.T) {
		lhs := map[string]any{"tags": []any{"a"}}
		merged := ts.Merge(lhs, map[string]any{"tags": []any{"b"}})
		assert.Equal(t, map[string]any{"tags": []any{"a", "b"}}, merged)
		assert.Equal(t, map[string]any{"tags": []any{"a"}}, lhs)
	})

	t.Run("NilSchemaReplaces", func(t *testing.T) {
		got := Combine(nil, map[string]any{"a": int64(1)}, map[string]any{"b": int64(2)})
		assert.Equal(t, map[string]any{"b": int64(2)}, got)
	})
}
