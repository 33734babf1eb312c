package compiler

import (
	"fmt"
	"strings"
)

// generateName synthesizes a tool name from an operation's HTTP method and
// path when no operationId is declared. Each path segment is camel-cased
// onto the lower-cased method; a `{param}` segment contributes a
// By<ParamName> suffix only when it is the final segment. Intermediate
// parameter segments contribute nothing.
func generateName(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))

	segments := splitPath(path)
	for i, seg := range segments {
		if name, isParam := paramName(seg); isParam {
			if i == len(segments)-1 {
				b.WriteString("By")
				b.WriteString(titleCase(name))
			}
			continue
		}
		b.WriteString(titleCase(seg))
	}
	return b.String()
}

func splitPath(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func paramName(seg string) (string, bool) {
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// titleCase capitalizes the first character and every character following
// a '-' or '_' separator, dropping the separators themselves.
func titleCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sanitizeName restricts a candidate name to [a-zA-Z0-9_-]. Dots become
// underscores, as does every other disallowed character.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// nameRegistry guarantees uniqueness within one catalog being built.
type nameRegistry map[string]bool

// claim returns name unchanged when free, otherwise the first
// integer-suffixed variant (name2, name3, ...) not yet taken.
func (r nameRegistry) claim(name string) string {
	if !r[name] {
		r[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if !r[candidate] {
			r[candidate] = true
			return candidate
		}
	}
}
