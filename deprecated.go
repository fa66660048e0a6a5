// FILE: lixenwraith/setty/deprecated.go
package setty

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// DeprecationFunc is called for every deprecated property present in a value.
// path is the full property path, reason and since may be empty.
type DeprecationFunc func(path []string, reason, since string)

// DeprecatedUse records one occurrence of a deprecated property.
type DeprecatedUse struct {
	Path   string
	Reason string
	Since  string
}

// ScanDeprecated walks v alongside the schema and reports every present
// property marked deprecated, at any depth. Union values are checked against all
// variants since the tag may not resolve. The value is never modified.
func ScanDeprecated(v any, ts *TypeSchema, fn DeprecationFunc) {
	if ts == nil || fn == nil {
		return
	}
	ts.scanDeprecated(nil, ts.Root, v, fn)
}

// CollectDeprecations returns every deprecated property present in v.
func CollectDeprecations(v any, ts *TypeSchema) []DeprecatedUse {
	var uses []DeprecatedUse
	ScanDeprecated(v, ts, func(path []string, reason, since string) {
		uses = append(uses, DeprecatedUse{Path: strings.Join(path, "."), Reason: reason, Since: since})
	})
	return uses
}

func (ts *TypeSchema) scanDeprecated(path []string, s Schema, v any, fn DeprecationFunc) {
	switch node := ts.resolve(s).(type) {
	case *UnionSchema:
		for _, variant := range node.Variants {
			ts.scanDeprecated(path, variant.Schema, v, fn)
		}

	case *ObjectSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		for _, key := range sortedKeys(m) {
			prop := node.Property(key)
			if prop == nil {
				continue
			}
			ppath := appendSegment(path, key)
			if prop.Deprecated != nil {
				fn(ppath, prop.Deprecated.Reason, prop.Deprecated.Since)
			}
			ts.scanDeprecated(ppath, prop.Schema, m[key], fn)
		}

	case *ArraySchema:
		items, ok := v.([]any)
		if !ok {
			return
		}
		for i, item := range items {
			ts.scanDeprecated(appendSegment(path, strconv.Itoa(i)), node.Items, item, fn)
		}

	case *MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		for _, key := range sortedKeys(m) {
			ts.scanDeprecated(appendSegment(path, key), node.Values, m[key], fn)
		}
	}
}

// appendSegment returns a new slice so callbacks may retain the path.
func appendSegment(path []string, segment string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, segment)
}

// FormatDeprecation renders a deprecation notice as a single warning message.
func FormatDeprecation(path []string, reason, since string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "WARNING: Config property `%s` is deprecated", strings.Join(path, "."))
	if since != "" {
		fmt.Fprintf(&b, " since version: %s", since)
	}
	if reason != "" {
		b.WriteString("\n  ")
		b.WriteString(strings.ReplaceAll(reason, "\n", "\n  "))
	}
	return b.String()
}

// WriterDeprecationReporter prints warnings to w, highlighted when w is a terminal.
func WriterDeprecationReporter(w io.Writer) DeprecationFunc {
	warn := color.New(color.FgYellow)
	return func(path []string, reason, since string) {
		warn.Fprintln(w, FormatDeprecation(path, reason, since))
	}
}

// LogDeprecationReporter logs deprecation warnings through zerolog.
func LogDeprecationReporter(logger zerolog.Logger) DeprecationFunc {
	return func(path []string, reason, since string) {
		event := logger.Warn().Str("path", strings.Join(path, "."))
		if since != "" {
			event = event.Str("since", since)
		}
		if reason != "" {
			event = event.Str("reason", reason)
		}
		event.Msg("deprecated configuration property")
	}
}
