// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/olegiv/newsroom/internal/badge"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/multiquery"
)

// DateLayout is the default display layout of dates in fragments.
const DateLayout = "Jan 2, 2006 15:04"

var fragmentFuncs = template.FuncMap{
	"badges":     func(a model.Article) template.HTML { return badge.AllForArticle(&a) },
	"articleURL": func(a model.Article) string { return a.URL() },
	"sectionURL": func(s model.Section) string { return s.URL() },
	"isoTime":    func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"showTime":   func(t time.Time, layout string) string { return t.Format(layout) },
	"displayTime": func(a model.Article) time.Time {
		return a.DisplayTime()
	},
}

// Each article partial receives a []model.Article.
const fragmentSource = `
{{define "hero"}}{{range .}}<article class="news-item news-item--hero">
{{- if .FeaturedImage}}<img class="news-item__image" src="{{.FeaturedImage}}" alt="" loading="lazy">{{end -}}
<h2 class="news-item__title"><a href="{{articleURL .}}">{{.Title}}</a></h2>{{badges .}}
{{- if .Excerpt}}<p class="news-item__excerpt">{{.Excerpt}}</p>{{end -}}
<time datetime="{{isoTime (displayTime .)}}">{{showTime (displayTime .) "Jan 2, 2006 15:04"}}</time></article>{{end}}{{end}}

{{define "breaking"}}{{range .}}<div class="news-item news-item--breaking" role="alert">
<span class="news-item__label">Breaking</span> <a href="{{articleURL .}}">{{.Title}}</a></div>{{end}}{{end}}

{{define "list"}}<ul class="news-list">{{range .}}<li class="news-list__item">
<a href="{{articleURL .}}">{{.Title}}</a>{{badges .}}
<time datetime="{{isoTime (displayTime .)}}">{{showTime (displayTime .) "Jan 2, 2006"}}</time></li>{{end}}</ul>{{end}}

{{define "grid"}}<div class="news-grid">{{range .}}<article class="news-item news-item--card">
{{- if .FeaturedImage}}<img class="news-item__image" src="{{.FeaturedImage}}" alt="" loading="lazy">{{end -}}
<h3 class="news-item__title"><a href="{{articleURL .}}">{{.Title}}</a></h3>{{badges .}}
{{- if .Excerpt}}<p class="news-item__excerpt">{{.Excerpt}}</p>{{end -}}
</article>{{end}}</div>{{end}}

{{define "ticker"}}<div class="news-ticker{{if .Scroll}} news-ticker--scroll{{end}}" style="--news-ticker-speed: {{.Speed}}s" aria-live="polite">
<span class="news-ticker__label">Breaking</span><ul class="news-ticker__items">
{{- range .Items}}<li><a href="{{articleURL .}}">{{.Title}}</a></li>{{end -}}
</ul></div>{{end}}

{{define "sections"}}<ul class="news-sections">{{range .Sections}}<li><a href="{{sectionURL .}}">{{.Name}}</a>
{{- if $.ShowCount}} <span class="news-sections__count">({{.ArticleCount}})</span>{{end}}</li>{{end}}</ul>{{end}}

{{define "byline"}}<p class="news-byline">{{if .Prefix}}{{.Prefix}} {{end}}<span class="news-byline__name">{{.Name}}</span></p>{{end}}

{{define "title"}}{{if .Link}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}{{end}}

{{define "last-updated"}}<p class="news-last-updated">{{if .Prefix}}{{.Prefix}} {{end}}<time datetime="{{isoTime .Time}}">{{showTime .Time .Layout}}</time></p>{{end}}

{{define "excerpt"}}<p class="news-excerpt">{{.}}</p>{{end}}
`

var fragments = template.Must(template.New("fragments").Funcs(fragmentFuncs).Parse(fragmentSource))

// layoutFor maps a multi-query role to its article partial.
func layoutFor(role string) string {
	switch role {
	case "featured", "hero":
		return "hero"
	case "breaking":
		return "breaking"
	case "grid":
		return "grid"
	default:
		return "list"
	}
}

// RenderFragment executes the named partial with data.
func RenderFragment(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

// RenderArticles renders items with the partial of the template's role.
// It is the multiquery.RenderFunc of the news blocks and the home page.
func RenderArticles(_ context.Context, t multiquery.Template, items []model.Article) (template.HTML, error) {
	return RenderFragment(layoutFor(t.Role), items)
}
