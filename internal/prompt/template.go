// Package prompt renders prompt templates with scalar and list bindings.
//
// Templates use text/template syntax. Missing bindings are errors, and the
// loopIndex helper turns a zero-based range index into a one-based counter:
//
//	{{range $i, $c := .chunks}}--- DOCUMENT {{loopIndex $i}} ---
//	{{$c.Text}}
//	{{end}}
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Template is a parsed prompt template, safe for concurrent use.
type Template struct {
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"loopIndex": func(i int) int { return i + 1 },
}

// New parses text into a Template.
func New(name, text string) (*Template, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}
	return &Template{tmpl: t}, nil
}

// Must panics if err is non-nil. For package-level defaults.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads and parses a template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return New(filepath.Base(path), string(data))
}

// Render executes the template against bindings.
func (t *Template) Render(bindings map[string]any) (string, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, bindings); err != nil {
		return "", fmt.Errorf("render template %q: %w", t.tmpl.Name(), err)
	}
	return b.String(), nil
}

// Render parses text and renders it once.
func Render(text string, bindings map[string]any) (string, error) {
	t, err := New("inline", text)
	if err != nil {
		return "", err
	}
	return t.Render(bindings)
}
