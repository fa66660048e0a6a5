package setty

import (
	"strings"
	"unicode"
)

// Case is a naming convention applied to field names and union tags at registration time.
type Case int

const (
	// CaseAsIs keeps names exactly as declared
	CaseAsIs Case = iota
	// CaseLower lower-cases names without separators ("maxconns")
	CaseLower
	// CaseSnake produces "max_conns"
	CaseSnake
	// CaseCamel produces "maxConns"
	CaseCamel
	// CasePascal produces "MaxConns"
	CasePascal
	// CaseKebab produces "max-conns"
	CaseKebab
)

// String returns the convention name
func (c Case) String() string {
	switch c {
	case CaseLower:
		return "lower"
	case CaseSnake:
		return "snake"
	case CaseCamel:
		return "camel"
	case CasePascal:
		return "pascal"
	case CaseKebab:
		return "kebab"
	default:
		return "as-is"
	}
}

// Apply converts name to the convention.
func (c Case) Apply(name string) string {
	if c == CaseAsIs {
		return name
	}

	words := splitWords(name)
	if len(words) == 0 {
		return name
	}

	switch c {
	case CaseLower:
		return strings.ToLower(strings.Join(words, ""))
	case CaseSnake:
		return strings.ToLower(strings.Join(words, "_"))
	case CaseKebab:
		return strings.ToLower(strings.Join(words, "-"))
	case CaseCamel, CasePascal:
		var b strings.Builder
		for i, w := range words {
			w = strings.ToLower(w)
			if i == 0 && c == CaseCamel {
				b.WriteString(w)
				continue
			}
			b.WriteString(capitalize(w))
		}
		return b.String()
	}
	return name
}

// splitWords breaks an identifier into words on separators and case humps.
// "HTTPServer_port" -> ["HTTP", "Server", "port"]
func splitWords(name string) []string {
	var words []string
	runes := []rune(name)
	start := -1

	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}

	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		if unicode.IsUpper(r) {
			lowerBefore := unicode.IsLower(prev) || unicode.IsDigit(prev)
			acronymEnd := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if lowerBefore || acronymEnd {
				flush(i)
				start = i
			}
		}
	}
	flush(len(runes))

	return words
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// aliasSet is a precomputed set of lower-cased spellings accepted for a name.
type aliasSet map[string]struct{}

// newAliasSet builds the accepted spellings for every name in all supported conventions.
func newAliasSet(names ...string) aliasSet {
	set := make(aliasSet)
	for _, name := range names {
		if name == "" {
			continue
		}
		set[strings.ToLower(name)] = struct{}{}
		for _, c := range []Case{CaseLower, CaseSnake, CaseCamel, CaseKebab} {
			set[strings.ToLower(c.Apply(name))] = struct{}{}
		}
	}
	return set
}

// Contains reports whether name is an accepted spelling, ignoring case.
func (a aliasSet) Contains(name string) bool {
	_, ok := a[strings.ToLower(name)]
	return ok
}

// Overlaps reports whether two sets share a spelling.
func (a aliasSet) Overlaps(other aliasSet) (string, bool) {
	for k := range a {
		if _, ok := other[k]; ok {
			return k, true
		}
	}
	return "", false
}

// normalizeKey folds case and separators so that "max_conns", "maxConns" and
// "MAX-CONNS" compare equal. Used for decoder field matching.
func normalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
