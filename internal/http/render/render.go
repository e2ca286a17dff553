// Package render executes the HTML pages. Templates are embedded in the
// binary and parsed once at startup; each page is parsed together with
// the shared layout.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"

	"github.com/aanand-mishra/biblioteca/internal/http/flash"
)

//go:embed templates/*.html
var files embed.FS

const layout = "templates/layout.html"

// Page is what every template receives. Data holds the page-specific
// values.
type Page struct {
	Title   string
	User    string
	Flashes []flash.Message
	Data    any
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page under templates/ against the layout.
func New() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if name == layout {
			continue
		}
		tmpl, err := template.New(path.Base(name)).Funcs(funcs).ParseFS(files, layout, name)
		if err != nil {
			return nil, fmt.Errorf("render.New: %s: %w", name, err)
		}
		r.pages[path.Base(name)] = tmpl
	}

	return r, nil
}

var funcs = template.FuncMap{
	"deref": func(p *int) any {
		if p == nil {
			return ""
		}
		return *p
	},
}

// HTML writes page name with status. Rendering happens into a buffer first
// so a template error never leaves a half-written page behind.
func (r *Renderer) HTML(w http.ResponseWriter, status int, name string, page Page) {
	tmpl, ok := r.pages[name]
	if !ok {
		slog.Error("unknown page", slog.String("page", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		slog.Error("rendering page",
			slog.String("page", name),
			slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
