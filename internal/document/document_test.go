package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mohammed-shakir/mapsheet/internal/point"
)

func TestCompile_RendersRowFieldsEscaped(t *testing.T) {
	fn, err := Compile("popup", `<h3>{{.name}}</h3><p>{{field "Icon URL"}}</p>`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	row := point.NewRow(map[string]string{"Name": "<A&B>", "Icon URL": "http://x/a.png"})
	got, err := fn(row)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<h3>&lt;A&amp;B&gt;</h3><p>http://x/a.png</p>`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	// renderer is reusable across rows
	got2, err := fn(point.Row{"name": "B"})
	if err != nil {
		t.Fatalf("render 2: %v", err)
	}
	if got2 != "<h3>B</h3><p></p>" {
		t.Fatalf("second render=%q", got2)
	}
}

func TestCompile_ParseError(t *testing.T) {
	if _, err := Compile("bad", "{{.name"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStatic_LoadTemplatesAndElements(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stores.tmpl"), []byte("<b>{{.name}}</b>"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := NewStatic().AddElement(Container{ID: "map"})
	if err := d.LoadTemplates(dir); err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	if src, ok := d.TemplateSource("stores"); !ok || src != "<b>{{.name}}</b>" {
		t.Fatalf("template=%q,%v", src, ok)
	}
	if _, ok := d.TemplateSource("ignored"); ok {
		t.Fatalf("non-.tmpl files must be skipped")
	}
	if c, ok := d.Element("map"); !ok || c.ID != "map" {
		t.Fatalf("element lookup failed")
	}
	if _, ok := d.Element("nope"); ok {
		t.Fatalf("unknown element resolved")
	}
}
