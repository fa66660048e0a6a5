// FILE: lixenwraith/setty/deprecated_test.go
package setty

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCollectDeprecations(t *testing.T) {
	ts := newTestSchema(t)

	tests := []struct {
		name     string
		input    any
		expected []DeprecatedUse
	}{
		{
			name:     "NoneUsed",
			input:    map[string]any{"server": map[string]any{"port": int64(1)}},
			expected: nil,
		},
		{
			name:  "NestedProperty",
			input: map[string]any{"server": map[string]any{"timeout": int64(5)}},
			expected: []DeprecatedUse{
				{Path: "server.timeout", Reason: "use read_timeout", Since: "1.2"},
			},
		},
		{
			name:  "AllOccurrences",
			input: map[string]any{
				"server": map[string]any{"timeout": int64(5)},
				"extra":  map[string]any{"timeout": int64(6)},
			},
			expected: []DeprecatedUse{
				{Path: "extra.timeout", Reason: "use read_timeout", Since: "1.2"},
				{Path: "server.timeout", Reason: "use read_timeout", Since: "1.2"},
			},
		},
		{
			name:  "ArrayItems",
			input: map[string]any{"backends": []any{map[string]any{}, map[string]any{"timeout": int64(1)}}},
			expected: []DeprecatedUse{
				{Path: "backends.1.timeout", Reason: "use read_timeout", Since: "1.2"},
			},
		},
		{
			name:  "UnionVariant",
			input: map[string]any{"db": map[string]any{"kind": "sqlite", "file": "x"}},
			expected: []DeprecatedUse{
				{Path: "db.file", Reason: "use path"},
			},
		},
		{
			name:  "UnionWithoutTag",
			input: map[string]any{"db": map[string]any{"file": "x"}},
			expected: []DeprecatedUse{
				{Path: "db.file", Reason: "use path"},
			},
		},
		{
			name:     "ExplicitNullReported",
			input:    map[string]any{"server": map[string]any{"timeout": nil}},
			expected: []DeprecatedUse{{Path: "server.timeout", Reason: "use read_timeout", Since: "1.2"}},
		},
		{
			name:     "NonMapping",
			input:    "text",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CollectDeprecations(tt.input, ts))
		})
	}
}

func TestScanDeprecatedDoesNotModify(t *testing.T) {
	ts := newTestSchema(t)
	in := map[string]any{"server": map[string]any{"timeout": int64(5)}}
	ScanDeprecated(in, ts, func([]string, string, string) {})
	assert.Equal(t, map[string]any{"server": map[string]any{"timeout": int64(5)}}, in)

	// Nil callback and nil schema are no-ops
	ScanDeprecated(in, ts, nil)
	ScanDeprecated(in, nil, func([]string, string, string) { t.Fatal("unexpected call") })
}

func TestFormatDeprecation(t *testing.T) {
	tests := []struct {
		name     string
		path     []string
		reason   string
		since    string
		expected string
	}{
		{
			name:     "PathOnly",
			path:     []string{"a", "b"},
			expected: "WARNING: Config property `a.b` is deprecated",
		},
		{
			name:     "WithSince",
			path:     []string{"a"},
			since:    "1.0",
			expected: "WARNING: Config property `a` is deprecated since version: 1.0",
		},
		{
			name:     "WithReason",
			path:     []string{"a"},
			since:    "1.0",
			reason:   "use b\nor c",
			expected: "WARNING: Config property `a` is deprecated since version: 1.0\n  use b\n  or c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDeprecation(tt.path, tt.reason, tt.since))
		})
	}
}

func TestDeprecationReporters(t *testing.T) {
	t.Run("Writer", func(t *testing.T) {
		var buf bytes.Buffer
		WriterDeprecationReporter(&buf)([]string{"server", "timeout"}, "gone", "2.0")
		assert.Contains(t, buf.String(), "`server.timeout` is deprecated since version: 2.0")
		assert.Contains(t, buf.String(), "gone")
	})

	t.Run("Logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		LogDeprecationReporter(logger)([]string{"server", "timeout"}, "gone", "2.0")

		out := buf.String()
		assert.Contains(t, out, `"level":"warn"`)
		assert.Contains(t, out, `"path":"server.timeout"`)
		assert.Contains(t, out, `"since":"2.0"`)
		assert.Contains(t, out, `"reason":"gone"`)
		assert.Contains(t, out, "deprecated configuration property")
	})
}
