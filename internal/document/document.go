// Package document is the host page a map is rendered into: container
// elements and popup template sources addressed by ID.
package document

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammed-shakir/mapsheet/internal/point"
)

// Container is a live handle to the element a map is bound to.
type Container struct {
	ID     string `json:"id"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

type Document interface {
	Element(id string) (Container, bool)
	TemplateSource(id string) (string, bool)
}

// Static is an in-memory Document.
type Static struct {
	elements  map[string]Container
	templates map[string]string
}

func NewStatic() *Static {
	return &Static{elements: map[string]Container{}, templates: map[string]string{}}
}

func (d *Static) AddElement(c Container) *Static {
	d.elements[c.ID] = c
	return d
}

func (d *Static) AddTemplate(id, src string) *Static {
	d.templates[id] = src
	return d
}

func (d *Static) Element(id string) (Container, bool) {
	c, ok := d.elements[id]
	return c, ok
}

func (d *Static) TemplateSource(id string) (string, bool) {
	s, ok := d.templates[id]
	return s, ok
}

// LoadTemplates adds every *.tmpl file in dir, keyed by its base name without
// the extension.
func (d *Static) LoadTemplates(dir string) error {
	if dir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmpl"))
	if err != nil {
		return fmt.Errorf("glob templates: %w", err)
	}
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return fmt.Errorf("read template %s: %w", m, err)
		}
		id := strings.TrimSuffix(filepath.Base(m), ".tmpl")
		d.templates[id] = string(b)
	}
	return nil
}

// Compile parses a popup template once and returns a renderer over rows.
// Normalized row keys are available as {{.name}}; {{field "Header Name"}}
// looks a header up through the same normalization as Point.Get.
func Compile(name, src string) (point.TemplateFunc, error) {
	funcs := template.FuncMap{"field": func(string) string { return "" }}
	t, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", name, err)
	}
	return func(r point.Row) (string, error) {
		var buf bytes.Buffer
		// Each execution binds its own row to the "field" helper.
		cl, err := t.Clone()
		if err != nil {
			return "", fmt.Errorf("clone template %q: %w", name, err)
		}
		cl.Funcs(template.FuncMap{"field": func(h string) string {
			v, _ := r.Get(h)
			return v
		}})
		if err := cl.Execute(&buf, map[string]string(r)); err != nil {
			return "", fmt.Errorf("execute template %q: %w", name, err)
		}
		return buf.String(), nil
	}, nil
}
