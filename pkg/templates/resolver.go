package templates

import "strings"

// Resolved is the outcome of resolving a template against a variable map.
// Once emitted it is plain text: it is never re-resolved, so renaming a
// contact later cannot retroactively change what was sent.
type Resolved struct {
	Subject string
	Body    string
}

// Resolve substitutes every occurrence of each known {{name}} token in the
// template's subject and body with the mapped value. Unknown tokens are left
// verbatim rather than failing the send. Tokens are matched as literal
// strings, so placeholder names containing pattern-significant characters
// need no escaping.
//
// Resolve is pure: no side effects, and identical inputs always produce
// identical output.
func Resolve(t Template, vars map[string]string) Resolved {
	if len(vars) == 0 {
		return Resolved{Subject: t.Subject, Body: t.Body}
	}

	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	r := strings.NewReplacer(pairs...)

	return Resolved{
		Subject: r.Replace(t.Subject),
		Body:    r.Replace(t.Body),
	}
}
