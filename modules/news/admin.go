// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package news

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsroom/internal/analytics"
	"github.com/olegiv/newsroom/internal/assets"
	"github.com/olegiv/newsroom/internal/handler"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/render"
	"github.com/olegiv/newsroom/internal/security"
	"github.com/olegiv/newsroom/internal/session"
	"github.com/olegiv/newsroom/internal/store"
)

// AdminPerPage is the page size of the admin article list.
const AdminPerPage = 25

// nowSuffix marks the "Now" button of a datetime field.
const nowSuffix = "_now"

// Reach panels of the admin list.
const (
	StatsWindow = 30 * 24 * time.Hour
	StatsLimit  = 5
)

// ListRow is one article row of the admin list.
type ListRow struct {
	ID        int64
	Title     string
	Status    string
	Published time.Time
	Flags     []bool // in model.Flags order
	Byline    string
	Views     int64
	EditURL   string
}

// TopArticleRow is one line of the most viewed panel.
type TopArticleRow struct {
	Title   string
	EditURL string
	Views   int64
}

// Stats is the reach of the news in the last StatsWindow. It is nil when
// analytics is disabled.
type Stats struct {
	Days         int
	TopArticles  []TopArticleRow
	TopCountries []analytics.CountryViews
}

// ListData is the view of /admin/news.
type ListData struct {
	Rows       []ListRow
	Statuses   []string
	Status     string
	FlagLabels []string
	Pagination handler.Pagination
	Stats      *Stats
}

// FieldView is one input of the metadata panel.
type FieldView struct {
	Key     string
	Kind    string
	Label   string
	Checked bool
	Value   string
}

// EditData is the view of /admin/news/{id}.
type EditData struct {
	Article *model.Article
	Action  string
	Fields  []FieldView
}

func editURL(id int64) string {
	return "/admin/news/" + strconv.FormatInt(id, 10)
}

// handleList handles GET /admin/news.
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	status := query.Get("status")
	if !model.IsValidStatus(status) {
		status = ""
	}
	page, _ := strconv.Atoi(query.Get("page"))
	page = max(page, 1)

	filter := store.ArticleFilter{PostType: model.PostTypeNews, Status: status, Order: store.OrderNewest}
	total, err := m.ctx.Articles.Count(ctx, filter)
	if err != nil {
		m.internalError(w, r, "failed to count articles", err)
		return
	}

	pagination := handler.BuildPagination(page, total, AdminPerPage, "/admin/news", query)
	filter.Offset = pagination.Offset()
	filter.Limit = AdminPerPage
	items, err := m.ctx.Articles.List(ctx, filter)
	if err != nil {
		m.internalError(w, r, "failed to list articles", err)
		return
	}

	data := ListData{
		Rows:       make([]ListRow, 0, len(items)),
		Statuses:   model.ValidStatuses,
		Status:     status,
		Pagination: pagination,
	}
	for _, f := range model.Flags {
		data.FlagLabels = append(data.FlagLabels, f.Label())
	}
	for _, a := range items {
		row := ListRow{
			ID:        a.ID,
			Title:     a.Title,
			Status:    a.Status,
			Published: a.DisplayTime(),
			Byline:    a.Meta.Byline,
			EditURL:   editURL(a.ID),
		}
		for _, f := range model.Flags {
			row.Flags = append(row.Flags, a.Meta.Flag(f))
		}
		data.Rows = append(data.Rows, row)
	}

	if m.ctx.Analytics != nil {
		m.addViews(r, data.Rows)
		data.Stats = m.stats(r)
	}

	m.render(w, r, "admin/news_list", "News", data)
}

// addViews fills the view totals of rows. Failures leave them at zero.
func (m *Module) addViews(r *http.Request, rows []ListRow) {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	counts, err := m.ctx.Analytics.ViewCounts(r.Context(), ids)
	if err != nil {
		m.ctx.Logger.Warn("failed to count article views", "error", err)
		return
	}
	for i := range rows {
		rows[i].Views = counts[rows[i].ID]
	}
}

// stats builds the reach panels. A failing query leaves its panel empty.
func (m *Module) stats(r *http.Request) *Stats {
	ctx := r.Context()
	since := time.Now().UTC().Add(-StatsWindow)
	st := &Stats{Days: int(StatsWindow / (24 * time.Hour))}

	top, err := m.ctx.Analytics.TopArticles(ctx, since, StatsLimit)
	if err != nil {
		m.ctx.Logger.Warn("failed to load most viewed articles", "error", err)
	}
	for _, av := range top {
		a, err := m.ctx.Articles.GetArticle(ctx, av.ArticleID)
		if err != nil {
			continue // deleted since
		}
		st.TopArticles = append(st.TopArticles, TopArticleRow{Title: a.Title, EditURL: editURL(a.ID), Views: av.Views})
	}

	if st.TopCountries, err = m.ctx.Analytics.TopCountries(ctx, since, StatsLimit); err != nil {
		m.ctx.Logger.Warn("failed to load view countries", "error", err)
	}
	return st
}

// handleEdit handles GET /admin/news/{id}.
func (m *Module) handleEdit(w http.ResponseWriter, r *http.Request) {
	a, ok := m.loadArticle(w, r)
	if !ok {
		return
	}
	m.render(w, r, "admin/news_edit", a.Title, EditData{
		Article: a,
		Action:  editURL(a.ID),
		Fields:  fieldViews(a.Meta),
	})
}

// handleSaveMeta handles POST /admin/news/{id}.
func (m *Module) handleSaveMeta(w http.ResponseWriter, r *http.Request) {
	a, ok := m.loadArticle(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	meta := metaFromForm(r, time.Now())
	if _, err := m.ctx.Articles.SaveMeta(r.Context(), a.ID, meta); err != nil {
		if ve, ok := security.AsValidationError(err); ok {
			m.ctx.Render.SetNotice(r, session.NoticeError, "Metadata not saved: "+ve.Error())
			http.Redirect(w, r, editURL(a.ID), http.StatusSeeOther)
			return
		}
		m.internalError(w, r, "failed to save article meta", err)
		return
	}

	m.ctx.Logger.Info("article meta saved", "id", a.ID, "flags", len(meta.ActiveFlags()))
	m.ctx.Render.SetNotice(r, session.NoticeSuccess, "Metadata saved.")
	http.Redirect(w, r, editURL(a.ID), http.StatusSeeOther)
}

// handleClearCache handles POST /admin/cache/clear.
func (m *Module) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if m.invalidate(r.Context()) < 2 {
		m.ctx.Render.SetNotice(r, session.NoticeError, "The news cache could not be fully cleared.")
	} else {
		if m.ctx.Events != nil {
			if err := m.ctx.Events.LogInfo(r.Context(), model.EventCategoryCache, "News cache cleared", nil); err != nil {
				m.ctx.Logger.Warn("failed to log cache clear event", "error", err)
			}
		}
		m.ctx.Render.SetNotice(r, session.NoticeSuccess, "News cache cleared.")
	}
	http.Redirect(w, r, m.AdminURL(), http.StatusSeeOther)
}

// metaFromForm builds the metadata from the panel. Unchecked boxes are
// absent from the form and read as false.
func metaFromForm(r *http.Request, now time.Time) model.ArticleMeta {
	var meta model.ArticleMeta
	for _, f := range model.MetaFields {
		value := r.PostFormValue(f.Key)
		switch f.Kind {
		case model.MetaKindBool:
			value = model.FormatBool(model.ParseBool(value))
		case model.MetaKindDateTime:
			if r.PostFormValue(f.Key+nowSuffix) != "" {
				value = now.UTC().Format(time.RFC3339)
			}
		}
		meta.Set(f.Key, value)
	}
	return meta
}

// fieldViews lays out the stored metadata for the panel. Datetimes are shown
// in the legacy UTC layout the input accepts.
func fieldViews(meta model.ArticleMeta) []FieldView {
	values := meta.Values()
	out := make([]FieldView, 0, len(model.MetaFields))
	for _, f := range model.MetaFields {
		v := FieldView{Key: f.Key, Kind: f.Kind, Label: f.Label}
		switch f.Kind {
		case model.MetaKindBool:
			v.Checked = model.ParseBool(values[f.Key])
		case model.MetaKindDateTime:
			if t, ok := model.ParseMetaTime(values[f.Key]); ok {
				v.Value = t.UTC().Format(model.LastUpdatedLayout)
			}
		default:
			v.Value = values[f.Key]
		}
		out = append(out, v)
	}
	return out
}

func (m *Module) loadArticle(w http.ResponseWriter, r *http.Request) (*model.Article, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		http.NotFound(w, r)
		return nil, false
	}
	a, err := m.ctx.Articles.GetArticle(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return nil, false
		}
		m.internalError(w, r, "failed to load article", err)
		return nil, false
	}
	return a, true
}

func (m *Module) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	err := m.ctx.Render.Render(w, r, name, render.TemplateData{
		Title:  strings.TrimSpace(title),
		Data:   data,
		Assets: []string{assets.HandleNewsAdmin},
	})
	if err != nil {
		m.internalError(w, r, "failed to render admin page", err)
	}
}

func (m *Module) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	m.ctx.Logger.Error(msg, "error", err, "path", r.URL.Path)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
