// FILE: lixenwraith/setty/markdown_test.go
package setty

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMarkdownSchema(t *testing.T) *TypeSchema {
	t.Helper()

	app := NewObject("App",
		Prop("port", IntegerType(), WithDefault(8080), WithDescription("Listen port (1 < port)")),
		Prop("token", StringType(), AsRequired()),
		Prop("tags", ArrayOf(StringType()), WithDefault([]any{"a"})),
		Prop("level", Enum("Level", "debug", "info")),
		Prop("mode", StringType(), WithDescription("Use `fast` for benchmarks")),
		Prop("store", Ref("Store")),
		Prop("old", BoolType(), WithDeprecation("use new", "1.0")),
		Prop("proxy", NullableOf(StringType()), AsRequired()),
	)
	app.Description = "Application settings."

	ts, err := NewTypeSchema(Ref("App"), map[string]Schema{
		"App":    app,
		"Store":  NewUnion("Store", "kind", VariantOf("memory", Ref("Memory"), "mem")),
		"Memory": NewObject("Memory", Prop("size", IntegerType(), WithDefault(1))),
	})
	require.NoError(t, err)
	return ts
}

func TestMarkdown(t *testing.T) {
	md := Markdown(newMarkdownSchema(t))

	t.Run("SectionOrder", func(t *testing.T) {
		require.True(t, strings.HasPrefix(md, "## `App`\n\nApplication settings.\n\n<table>\n"))

		app := strings.Index(md, "## `App`")
		memory := strings.Index(md, "## `Memory`")
		store := strings.Index(md, "## `Store`\n")
		level := strings.Index(md, "## `Level`")
		assert.True(t, app < memory, "root before definitions")
		assert.True(t, memory < store, "definitions sorted")
		assert.True(t, store < level, "enums last")
	})

	t.Run("Rows", func(t *testing.T) {
		assert.Contains(t, md, "<tr>\n<td><code>port</code></td>\n<td><code>integer</code></td>\n"+
			"<td><code class=\"language-json\">8080</code></td>\n<td>Listen port (1 &lt; port)</td>\n</tr>\n")
		assert.Contains(t, md, "<td><code>token</code></td>\n<td><code>string</code></td>\n<td></td>\n<td></td>\n")
		assert.Contains(t, md, "<td><pre><code class=\"language-json\">[\n  &#34;a&#34;\n]</code></pre></td>\n")
		assert.Contains(t, md, "<td><a href=\"#level\"><code>Level</code></a></td>\n<td><code class=\"language-json\">null</code></td>\n")
		assert.Contains(t, md, "<td>\n\nUse `fast` for benchmarks\n\n</td>\n")
		assert.Contains(t, md, "<td><a href=\"#store\"><code>Store</code></a></td>\n")
		assert.Contains(t, md, "<td>\n\n**Deprecated** since 1.0: use new\n\n</td>\n")
		// Nullable fields always show a default
		assert.Contains(t, md, "<td><code>proxy</code></td>\n<td><code>string</code></td>\n<td><code class=\"language-json\">null</code></td>\n")
	})

	t.Run("Union", func(t *testing.T) {
		assert.Contains(t, md, "## `Store`\n\n<table>\n<thead><tr><th>Variants</th></tr></thead>\n<tbody>\n"+
			"<tr><td><a href=\"#storememory\"><code>memory</code></a></td></tr>\n")
		assert.Contains(t, md, "\n\n## `Store::memory`\n\nAlso accepted as: `mem`\n\n<table>\n")
	})

	t.Run("Enum", func(t *testing.T) {
		assert.Contains(t, md, "## `Level`\n\n<table>\n<thead><tr><th>Variants</th></tr></thead>\n<tbody>\n"+
			"<tr><td><code>debug</code></td></tr>\n<tr><td><code>info</code></td></tr>\n")
		assert.Equal(t, 1, strings.Count(md, "## `Level`"))
	})
}

func TestMarkdownID(t *testing.T) {
	assert.Equal(t, "storememory", markdownID("Store::memory"))
	assert.Equal(t, "app", markdownID("App"))
}
