// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/olegiv/newsroom/internal/badge"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/multiquery"
	"github.com/olegiv/newsroom/internal/security"
)

// Namespace of the news blocks.
const Namespace = "news"

// DefaultTemplates is the child template list of a multi-query block
// without a templates attribute.
var DefaultTemplates = []any{"featured", "breaking", "remainder"}

// NewsDeps are the services the news blocks render with.
type NewsDeps struct {
	Articles    badge.ArticleLookup
	Distributor *multiquery.Distributor
}

// RegisterNews registers every news block on r.
func RegisterNews(r *Registry, deps NewsDeps) error {
	badges := badge.NewRenderer(deps.Articles)
	n := &newsBlocks{articles: deps.Articles, badges: badges, distributor: deps.Distributor}

	list := make([]Block, 0, len(model.Flags)+5)
	for _, f := range model.Flags {
		list = append(list, Block{
			Name:        Namespace + "/" + string(f) + "-badge",
			Title:       f.Label() + " badge",
			Description: "Shows the " + f.Label() + " badge when the article has the flag set.",
			Schema:      Schema{},
			Render:      n.badge(f),
		})
	}
	list = append(list,
		Block{
			Name:   Namespace + "/byline",
			Title:  "Byline",
			Schema: Schema{"prefix": {Type: TypeString, Default: "By"}},
			Render: n.byline,
		},
		Block{
			Name:  Namespace + "/title",
			Title: "Title",
			Schema: Schema{
				"level":  {Type: TypeInteger, Default: int64(2)},
				"isLink": {Type: TypeBoolean, Default: false},
			},
			Render: n.title,
		},
		Block{
			Name:  Namespace + "/last-updated",
			Title: "Last updated",
			Schema: Schema{
				"prefix": {Type: TypeString, Default: "Updated"},
				"format": {Type: TypeString, Default: DateLayout},
			},
			Render: n.lastUpdated,
		},
		Block{
			Name:   Namespace + "/excerpt",
			Title:  "Excerpt",
			Schema: Schema{"length": {Type: TypeInteger, Default: int64(0)}},
			Render: n.excerpt,
		},
		Block{
			Name:        Namespace + "/multi-query",
			Title:       "News query",
			Description: "Distributes one article query across hero, breaking and list templates.",
			Schema: Schema{
				"query":     {Type: TypeObject, Default: map[string]any{}},
				"templates": {Type: TypeArray, Default: DefaultTemplates},
			},
			Render: n.multiQuery,
		},
	)

	for _, b := range list {
		if err := r.Register(b); err != nil {
			return err
		}
	}
	return nil
}

type newsBlocks struct {
	articles    badge.ArticleLookup
	badges      *badge.Renderer
	distributor *multiquery.Distributor
}

// article resolves the news article of rc. ok is false when there is none.
func (n *newsBlocks) article(ctx context.Context, rc RenderContext) (*model.Article, bool) {
	if rc.ArticleID <= 0 {
		return nil, false
	}
	a, err := n.articles.GetArticle(ctx, rc.ArticleID)
	if err != nil || a == nil || !a.IsNews() {
		return nil, false
	}
	return a, true
}

func (n *newsBlocks) badge(f model.Flag) RenderFunc {
	return func(ctx context.Context, rc RenderContext) (template.HTML, error) {
		return n.badges.Render(ctx, f, rc.ArticleID), nil
	}
}

func (n *newsBlocks) byline(ctx context.Context, rc RenderContext) (template.HTML, error) {
	a, ok := n.article(ctx, rc)
	if !ok || a.Byline() == "" {
		return "", nil
	}
	return RenderFragment("byline", struct{ Prefix, Name string }{String(rc.Attrs, "prefix"), a.Byline()})
}

func (n *newsBlocks) title(ctx context.Context, rc RenderContext) (template.HTML, error) {
	a, ok := n.article(ctx, rc)
	if !ok {
		return "", nil
	}
	level := Int(rc.Attrs, "level")
	if level < 1 || level > 6 {
		level = 2
	}
	inner, err := RenderFragment("title", struct {
		Title, URL string
		Link       bool
	}{a.Title, a.URL(), Bool(rc.Attrs, "isLink")})
	if err != nil {
		return "", err
	}
	return template.HTML(fmt.Sprintf(`<h%d class="news-title">%s</h%d>`, level, inner, level)), nil //nolint:gosec // inner is escaped
}

func (n *newsBlocks) lastUpdated(ctx context.Context, rc RenderContext) (template.HTML, error) {
	a, ok := n.article(ctx, rc)
	if !ok {
		return "", nil
	}
	t, ok := a.Meta.LastUpdatedTime()
	if !ok {
		return "", nil
	}
	layout := String(rc.Attrs, "format")
	if layout == "" {
		layout = DateLayout
	}
	return RenderFragment("last-updated", struct {
		Prefix string
		Time   time.Time
		Layout string
	}{String(rc.Attrs, "prefix"), t, layout})
}

func (n *newsBlocks) excerpt(ctx context.Context, rc RenderContext) (template.HTML, error) {
	a, ok := n.article(ctx, rc)
	if !ok {
		return "", nil
	}
	text := a.Excerpt
	if length := Int(rc.Attrs, "length"); length > 0 {
		text = security.Excerpt(text, int(length))
	}
	if text == "" {
		return "", nil
	}
	return RenderFragment("excerpt", text)
}

func (n *newsBlocks) multiQuery(ctx context.Context, rc RenderContext) (template.HTML, error) {
	q, err := QueryFromAttr(rc.Attrs["query"])
	if err != nil {
		return "", err
	}
	templates, err := multiquery.ParseTemplates(Strings(rc.Attrs, "templates"))
	if err != nil {
		return "", err
	}
	return n.distributor.Render(ctx, q, templates), nil
}

// QueryFromAttr decodes a query attribute object into a multiquery.Query.
func QueryFromAttr(v any) (multiquery.Query, error) {
	var q multiquery.Query
	if v == nil {
		return q, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal(data, &q); err != nil {
		return q, fmt.Errorf("decoding query attribute: %w", err)
	}
	return q, nil
}
