package admin

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/adfharrison1/go-tours/pkg/content"
)

//go:embed templates
var embeddedTemplates embed.FS

//go:embed static
var embeddedStatic embed.FS

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2 Jan 2006 15:04")
	},
	"fieldID": func(name string) string {
		return "field-" + strings.ReplaceAll(name, "_", "-")
	},
	"isType": func(field content.Field, types ...string) bool {
		for _, t := range types {
			if string(field.Type) == t {
				return true
			}
		}
		return false
	},
	"megabytes": func(n int64) string {
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	},
}

// templates holds one parsed set per admin page, each sharing layout.html
type templates struct {
	pages map[string]*template.Template
}

func loadTemplates() (*templates, error) {
	files, err := fs.Glob(embeddedTemplates, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	t := &templates{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(embeddedTemplates, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

func (t *templates) render(w io.Writer, name string, data interface{}) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown admin template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
