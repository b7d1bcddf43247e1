// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses the page templates once and renders them with
// layout, notices and asset tags filled in.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/newsroom/internal/assets"
	"github.com/olegiv/newsroom/internal/seo"
	"github.com/olegiv/newsroom/internal/session"
)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates map[string]*template.Template
	sessions  *scs.SessionManager
	assets    *assets.Manager
	siteName  string
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS fs.FS
	Sessions    *scs.SessionManager // optional, enables notices
	Assets      *assets.Manager     // optional, enables Styles/Scripts
	SiteName    string
	Funcs       template.FuncMap // extra functions, e.g. from modules
}

// Page families: each page is parsed with its family's layout and the
// shared partials.
var families = map[string]string{
	"frontend": "layouts/base.html",
	"admin":    "layouts/admin.html",
}

// New creates a Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		sessions:  cfg.Sessions,
		assets:    cfg.Assets,
		siteName:  cfg.SiteName,
	}

	funcs := templateFuncs()
	maps.Copy(funcs, cfg.Funcs)

	partials, err := templateFiles(cfg.TemplatesFS, "partials")
	if err != nil {
		return nil, fmt.Errorf("getting partials: %w", err)
	}

	for dir, layout := range families {
		pages, err := templateFiles(cfg.TemplatesFS, dir)
		if err != nil {
			return nil, fmt.Errorf("getting %s templates: %w", dir, err)
		}
		for _, p := range pages {
			name := dir + "/" + strings.TrimSuffix(path.Base(p), ".html")

			// Parse in order: layout, partials, page template
			files := append([]string{layout}, partials...)
			files = append(files, p)

			tmpl, err := template.New("").Funcs(funcs).ParseFS(cfg.TemplatesFS, files...)
			if err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}
	return r, nil
}

// templateFiles returns all .html files in a directory. A missing directory
// yields no files.
func templateFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".html") {
			files = append(files, path.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		"isoTime": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(start, end int) []int {
			var out []int
			for i := start; i <= end; i++ {
				out = append(out, i)
			}
			return out
		},
	}
}

// Has reports whether a template with name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Description string
	Canonical   string
	Meta        *seo.Meta // optional social and structured data
	Data        any
	Notice      *session.Notice
	SiteName    string
	CurrentYear int
	Head        template.HTML // extra head markup, e.g. JSON-LD
	Styles      template.HTML
	Scripts     template.HTML
	Assets      []string // asset handles to enqueue
}

// Render renders a template with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	if data.SiteName == "" {
		data.SiteName = r.siteName
	}
	if r.sessions != nil {
		if n, ok := session.PopNotice(req.Context(), r.sessions); ok {
			data.Notice = &n
		}
	}
	if r.assets != nil && len(data.Assets) > 0 {
		q := r.assets.NewQueue().Enqueue(data.Assets...)
		data.Styles = q.Styles()
		data.Scripts = q.Scripts()
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// SetNotice stores a notice shown on the next rendered page.
func (r *Renderer) SetNotice(req *http.Request, typ, message string) {
	if r.sessions != nil {
		session.PutNotice(req.Context(), r.sessions, typ, message)
	}
}
