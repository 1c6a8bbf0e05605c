// Package web renders the standalone HTML page that boots a drawn scene in
// the browser with the matching mapping widget.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/mohammed-shakir/mapsheet/internal/mapsdk"
)

//go:embed templates/*.tmpl
var files embed.FS

var page = template.Must(template.New("page.tmpl").ParseFS(files, "templates/*.tmpl"))

// Keys are the credentials some widgets need to load their scripts.
type Keys struct {
	Google   string
	MapQuest string
	MapBox   string
}

type Page struct {
	Title string
	Scene mapsdk.Scene
	// ClickURL receives marker clicks when set, as POST {ClickURL}/{id}/click.
	ClickURL string
	Keys     Keys
}

type pageData struct {
	Page
	Kind      string
	SceneJSON template.JS
}

// Render writes p as a complete HTML document.
func Render(w io.Writer, p Page) error {
	switch p.Scene.Kind {
	case mapsdk.KindGoogle, mapsdk.KindMapQuest, mapsdk.KindMapBox, mapsdk.KindLeaflet:
	default:
		return fmt.Errorf("render page: unsupported widget %q", p.Scene.Kind)
	}
	raw, err := json.Marshal(p.Scene)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if p.Title == "" {
		p.Title = "Map"
	}
	var buf bytes.Buffer
	data := pageData{Page: p, Kind: string(p.Scene.Kind), SceneJSON: template.JS(raw)}
	if err := page.Execute(&buf, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
