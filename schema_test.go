// FILE: lixenwraith/setty/schema_test.go
package setty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected Policy
		wantErr  bool
	}{
		{"", CombineAuto, false},
		{"auto", CombineAuto, false},
		{"keep", CombineKeep, false},
		{" Replace ", CombineReplace, false},
		{"MERGE", CombineMerge, false},
		{"append", CombineAuto, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePolicy(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSchema)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
			if tt.input != "" {
				assert.Equal(t, p, mustParsePolicy(t, p.String()))
			}
		})
	}
}

func mustParsePolicy(t *testing.T, s string) Policy {
	t.Helper()
	p, err := ParsePolicy(s)
	require.NoError(t, err)
	return p
}

func TestTypeSchemaValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		ts := newTestSchema(t)
		assert.Equal(t, "Root", ts.Title)
		assert.NoError(t, ts.Validate())
	})

	t.Run("UnresolvedReference", func(t *testing.T) {
		_, err := NewTypeSchema(Ref("Root"), map[string]Schema{
			"Root": NewObject("Root", Prop("child", Ref("Missing"))),
		})
		assert.ErrorIs(t, err, ErrSchema)
		assert.Contains(t, err.Error(), `unresolved reference "Missing"`)
	})

	t.Run("NestedNullable", func(t *testing.T) {
		_, err := NewTypeSchema(NewObject("Root", Prop("a", NullableOf(NullableOf(StringType())))), nil)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("OverlappingVariants", func(t *testing.T) {
		_, err := NewTypeSchema(NewUnion("U", "kind",
			VariantOf("first", NewObject("A")),
			VariantOf("second", NewObject("B"), "First"),
		), nil)
		assert.ErrorIs(t, err, ErrSchema)
		assert.Contains(t, err.Error(), "share tag spelling")
	})

	t.Run("MissingTagField", func(t *testing.T) {
		_, err := NewTypeSchema(NewUnion("U", "", VariantOf("a", NewObject("A"))), nil)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("MustTypeSchemaPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			MustTypeSchema(Ref("Nope"), nil)
		})
	})
}

func TestEffectivePolicy(t *testing.T) {
	ts := newTestSchema(t)
	root := ts.Defs["Root"].(*ObjectSchema)

	tests := []struct {
		property string
		expected Policy
	}{
		{"name", CombineReplace},
		{"plugins", CombineReplace},
		{"tags", CombineMerge},
		{"owner", CombineKeep},
		{"server", CombineMerge},
		{"db", CombineMerge},
		{"extra", CombineMerge},
		{"mode", CombineReplace},
	}

	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			prop := root.Property(tt.property)
			require.NotNil(t, prop)
			assert.Equal(t, tt.expected, ts.effectivePolicy(prop))
		})
	}
}

func TestObjectAndUnionLookup(t *testing.T) {
	ts := newTestSchema(t)

	server := ts.Defs["Server"].(*ObjectSchema)
	assert.Equal(t, "host", server.Property("hostname").Name)
	assert.Equal(t, "host", server.Property("HOST").Name)
	assert.Nil(t, server.Property("missing"))
	assert.Empty(t, server.RequiredNames())

	postgres := ts.Defs["Postgres"].(*ObjectSchema)
	assert.Equal(t, []string{"user"}, postgres.RequiredNames())

	db := ts.Defs["Database"].(*UnionSchema)
	assert.Equal(t, "postgres", db.Variant("PG").Tag)
	assert.Nil(t, db.Variant("mysql"))

	tag, ok := db.TagOf(map[string]any{"Kind": "sqlite"})
	assert.True(t, ok)
	assert.Equal(t, "sqlite", tag)

	_, ok = db.TagOf(map[string]any{"kind": int64(1)})
	assert.False(t, ok)
}
