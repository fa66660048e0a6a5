// FILE: lixenwraith/setty/markdown.go
package setty

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Markdown renders ts as user-facing documentation: one section per type
// with an HTML table of fields or variants. The root type comes first,
// followed by the definitions in name order.
func Markdown(ts *TypeSchema) string {
	w := &markdownWriter{ts: ts, enums: make(map[string]*EnumSchema)}

	rootName := ts.Title
	if ref, ok := ts.Root.(*RefSchema); ok {
		rootName = ref.Target
		w.section(rootName, ts.Defs[rootName])
	} else {
		w.section(rootName, ts.Root)
	}

	for _, name := range jsonSchemaDefNames(ts) {
		if name == rootName {
			continue
		}
		w.b.WriteString("\n")
		w.section(name, ts.Defs[name])
	}

	// Enumerations are inlined in the schema and documented last
	for i := 0; i < len(w.enumOrder); i++ {
		name := w.enumOrder[i]
		if _, isDef := ts.Defs[name]; isDef {
			continue
		}
		w.b.WriteString("\n")
		w.section(name, w.enums[name])
	}

	return w.b.String()
}

type markdownWriter struct {
	ts        *TypeSchema
	b         strings.Builder
	enums     map[string]*EnumSchema
	enumOrder []string
}

func (w *markdownWriter) printf(format string, args ...any) {
	fmt.Fprintf(&w.b, format, args...)
}

func (w *markdownWriter) section(name string, s Schema) {
	w.printf("## `%s`\n\n", name)

	switch node := s.(type) {
	case *ObjectSchema:
		w.description(node.Description)
		w.object(node)
	case *UnionSchema:
		w.description(node.Description)
		w.union(name, node)
	case *EnumSchema:
		w.description(node.Description)
		w.enum(node)
	case *RefSchema:
		w.printf("Alias of [`%s`](#%s)\n", node.Target, markdownID(node.Target))
	default:
		w.printf("Base type: `%s`\n", w.typeName(s))
	}
}

func (w *markdownWriter) description(desc string) {
	if desc = strings.TrimSpace(desc); desc != "" {
		w.printf("%s\n\n", desc)
	}
}

func (w *markdownWriter) object(obj *ObjectSchema) {
	w.b.WriteString("<table>\n")
	w.b.WriteString("<thead><tr><th>Field</th><th>Type</th><th>Default</th><th>Description</th></tr></thead>\n")
	w.b.WriteString("<tbody>\n")

	for _, p := range obj.Properties {
		w.b.WriteString("<tr>\n")
		w.printf("<td><code>%s</code></td>\n", html.EscapeString(p.Name))
		w.printf("<td>%s</td>\n", w.typeCell(p.Schema))

		_, nullable := p.Schema.(*NullableSchema)
		if p.Required && !nullable {
			w.b.WriteString("<td></td>\n")
		} else {
			var def any
			if p.HasDefault {
				def = p.Default
			}
			w.printf("<td>%s</td>\n", defaultCell(def))
		}

		desc := strings.TrimSpace(p.Description)
		if p.Deprecated != nil {
			notice := "**Deprecated**"
			if p.Deprecated.Since != "" {
				notice += " since " + p.Deprecated.Since
			}
			if p.Deprecated.Reason != "" {
				notice += ": " + p.Deprecated.Reason
			}
			desc = strings.TrimSpace(notice + "\n\n" + desc)
		}
		if strings.ContainsAny(desc, "\n`") || p.Deprecated != nil {
			w.printf("<td>\n\n%s\n\n</td>\n", desc)
		} else {
			w.printf("<td>%s</td>\n", html.EscapeString(desc))
		}

		w.b.WriteString("</tr>\n")
	}

	w.b.WriteString("</tbody>\n")
	w.b.WriteString("</table>\n")
}

func (w *markdownWriter) union(name string, u *UnionSchema) {
	w.b.WriteString("<table>\n")
	w.b.WriteString("<thead><tr><th>Variants</th></tr></thead>\n")
	w.b.WriteString("<tbody>\n")
	for _, v := range u.Variants {
		w.printf("<tr><td><a href=\"#%s\"><code>%s</code></a></td></tr>\n",
			markdownID(name+"::"+v.Tag), html.EscapeString(v.Tag))
	}
	w.b.WriteString("</tbody>\n")
	w.b.WriteString("</table>\n")

	for _, v := range u.Variants {
		w.b.WriteString("\n\n")
		w.printf("## `%s::%s`\n\n", name, v.Tag)
		w.description(v.Description)
		if len(v.Aliases) > 0 {
			w.printf("Also accepted as: `%s`\n\n", strings.Join(v.Aliases, "`, `"))
		}

		switch target := w.ts.resolve(v.Schema).(type) {
		case *ObjectSchema:
			w.description(target.Description)
			w.object(target)
		default:
			w.printf("Base type: %s\n", w.typeCell(v.Schema))
		}
	}
}

func (w *markdownWriter) enum(e *EnumSchema) {
	w.b.WriteString("<table>\n")
	w.b.WriteString("<thead><tr><th>Variants</th></tr></thead>\n")
	w.b.WriteString("<tbody>\n")
	for _, v := range e.Values {
		w.printf("<tr><td><code>%s</code></td></tr>\n", html.EscapeString(v))
	}
	w.b.WriteString("</tbody>\n")
	w.b.WriteString("</table>\n")
}

// typeCell renders the Type column: named types link to their section.
func (w *markdownWriter) typeCell(s Schema) string {
	switch node := s.(type) {
	case *NullableSchema:
		return w.typeCell(node.Inner)
	case *RefSchema:
		return fmt.Sprintf("<a href=\"#%s\"><code>%s</code></a>", markdownID(node.Target), node.Target)
	case *EnumSchema:
		if node.Name != "" {
			if _, seen := w.enums[node.Name]; !seen {
				w.enums[node.Name] = node
				w.enumOrder = append(w.enumOrder, node.Name)
			}
			return fmt.Sprintf("<a href=\"#%s\"><code>%s</code></a>", markdownID(node.Name), node.Name)
		}
	}
	return "<code>" + w.typeName(s) + "</code>"
}

// typeName is the JSON type of an unnamed schema.
func (w *markdownWriter) typeName(s Schema) string {
	switch node := s.(type) {
	case *ScalarSchema:
		return string(node.Type)
	case *EnumSchema:
		return "string"
	case *ArraySchema:
		return "array"
	case *NullableSchema:
		return w.typeName(node.Inner)
	default:
		return "object"
	}
}

func defaultCell(v any) string {
	data, err := json.MarshalIndent(Normalize(v), "", "  ")
	if err != nil {
		data = []byte(scalarString(v))
	}
	escaped := html.EscapeString(string(data))
	if strings.Contains(escaped, "\n") {
		return "<pre><code class=\"language-json\">" + escaped + "</code></pre>"
	}
	return "<code class=\"language-json\">" + escaped + "</code>"
}

// markdownID derives the anchor GitHub-style renderers generate for a heading.
func markdownID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, ":", ""))
}
