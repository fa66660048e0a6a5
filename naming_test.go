// FILE: lixenwraith/setty/naming_test.go
package setty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaseApply(t *testing.T) {
	tests := []struct {
		input    string
		c        Case
		expected string
	}{
		{"MaxConns", CaseAsIs, "MaxConns"},
		{"MaxConns", CaseLower, "maxconns"},
		{"MaxConns", CaseSnake, "max_conns"},
		{"MaxConns", CaseCamel, "maxConns"},
		{"MaxConns", CasePascal, "MaxConns"},
		{"MaxConns", CaseKebab, "max-conns"},
		{"HTTPServer", CaseSnake, "http_server"},
		{"HTTPServer", CaseCamel, "httpServer"},
		{"max_conns", CasePascal, "MaxConns"},
		{"log-level", CaseSnake, "log_level"},
		{"Retry2Times", CaseSnake, "retry2_times"},
	}

	for _, tt := range tests {
		t.Run(tt.input+"/"+tt.c.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.c.Apply(tt.input))
		})
	}
}

func TestAliasSet(t *testing.T) {
	set := newAliasSet("MaxConns", "limit")

	for _, spelling := range []string{"MaxConns", "maxconns", "max_conns", "MAX-CONNS", "maxConns", "LIMIT"} {
		assert.True(t, set.Contains(spelling), spelling)
	}
	assert.False(t, set.Contains("max"))

	_, clash := set.Overlaps(newAliasSet("max_conns"))
	assert.True(t, clash)
	_, clash = set.Overlaps(newAliasSet("other"))
	assert.False(t, clash)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, normalizeKey("max_conns"), normalizeKey("MaxConns"))
	assert.Equal(t, normalizeKey("max-conns"), normalizeKey("MAX_CONNS"))
	assert.NotEqual(t, normalizeKey("max"), normalizeKey("maxconns"))
}
