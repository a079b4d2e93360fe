// Package templates provides ready-made machine definitions for fsmkit create.
package templates

import (
	"fmt"
	"sort"
)

// Template is a canned machine definition in fsmkit DSL form. Source is
// complete and self-contained: it compiles without edits and carries no
// placeholders to fill in.
type Template struct {
	Name        string
	Description string
	Source      string
}

// Registry holds all available templates.
var Registry = map[string]Template{
	"turnstile": turnstile,
	"traffic":   traffic,
	"door":      door,
	"heartbeat": heartbeat,
}

// Get returns a template by name.
func Get(name string) (Template, error) {
	t, ok := Registry[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template: %s", name)
	}
	return t, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
