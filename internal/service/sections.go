// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/security"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/util"
)

// SectionInput is the editable part of a section.
type SectionInput struct {
	Name        string
	Slug        string
	Description string
	ParentID    *int64
	SortOrder   int64
	IsActive    *bool // nil means active on create and unchanged on update
}

// SectionService manages the section taxonomy.
type SectionService struct {
	db      *sql.DB
	queries *store.Queries
	cache   *cache.Store
	ttl     time.Duration
	hooks   Hooks
	logger  *slog.Logger
}

// NewSectionService creates a SectionService. hooks may be nil.
func NewSectionService(db *sql.DB, c *cache.Store, ttl time.Duration, hooks Hooks, logger *slog.Logger) *SectionService {
	if hooks == nil {
		hooks = noHooks{}
	}
	return &SectionService{
		db:      db,
		queries: store.New(db),
		cache:   c,
		ttl:     ttl,
		hooks:   hooks,
		logger:  logger,
	}
}

// List returns every section with its published article count.
func (s *SectionService) List(ctx context.Context) ([]model.Section, error) {
	return cache.Remember(ctx, s.cache, GroupSections+"all", s.ttl, s.queries.ListSectionsWithCount)
}

// Tree returns the sections arranged by parent.
func (s *SectionService) Tree(ctx context.Context) ([]*model.Section, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.BuildSectionTree(list), nil
}

// Get returns one section. sql.ErrNoRows is returned when it does not exist.
func (s *SectionService) Get(ctx context.Context, id int64) (*model.Section, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

// GetBySlug returns the section with the given slug.
func (s *SectionService) GetBySlug(ctx context.Context, slug string) (*model.Section, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Slug == slug {
			return &list[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

// Children returns the active direct children of the section with
// parentSlug, or the active top-level sections when parentSlug is empty.
func (s *SectionService) Children(ctx context.Context, parentSlug string) ([]model.Section, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var parent sql.NullInt64
	if parentSlug != "" {
		p, err := s.GetBySlug(ctx, parentSlug)
		if err != nil {
			return nil, err
		}
		parent = sql.NullInt64{Int64: p.ID, Valid: true}
	}

	var out []model.Section
	for _, sec := range list {
		if sec.IsActive && sec.ParentID == parent {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *SectionService) validate(ctx context.Context, in *SectionInput, id int64) error {
	ve := security.NewValidationError()

	in.Name = security.PlainText(in.Name)
	in.Description = security.PlainText(in.Description)
	ve.Require("name", "Name", in.Name)

	if in.Slug == "" {
		in.Slug = in.Name
	}
	in.Slug = util.Slugify(in.Slug)
	if in.Name != "" && !util.IsValidSlug(in.Slug) {
		ve.Add("slug", "must contain letters or digits")
	} else if in.Slug != "" {
		taken, err := s.queries.SectionSlugExists(ctx, in.Slug, id)
		if err != nil {
			return fmt.Errorf("checking slug: %w", err)
		}
		if taken {
			ve.Add("slug", "is already in use")
		}
	}

	if in.ParentID != nil {
		if err := s.checkParent(ctx, *in.ParentID, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				ve.Add("parent_id", "unknown parent section")
			} else if errors.Is(err, errSectionCycle) {
				ve.Add("parent_id", "would create a cycle")
			} else {
				return err
			}
		}
	}

	return ve.Err()
}

var errSectionCycle = errors.New("section cycle")

// checkParent verifies that parentID exists and is not id or one of its descendants.
func (s *SectionService) checkParent(ctx context.Context, parentID, id int64) error {
	list, err := s.queries.ListSectionsWithCount(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]model.Section, len(list))
	for _, sec := range list {
		byID[sec.ID] = sec
	}
	if _, ok := byID[parentID]; !ok {
		return sql.ErrNoRows
	}
	if id == 0 {
		return nil
	}
	for cur, hops := parentID, 0; hops <= len(list); hops++ {
		if cur == id {
			return errSectionCycle
		}
		sec, ok := byID[cur]
		if !ok || !sec.ParentID.Valid {
			return nil
		}
		cur = sec.ParentID.Int64
	}
	return errSectionCycle
}

// Create validates and stores a new section.
func (s *SectionService) Create(ctx context.Context, in SectionInput) (*model.Section, error) {
	if err := s.validate(ctx, &in, 0); err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	now := time.Now().UTC()
	sec, err := s.queries.CreateSection(ctx, store.CreateSectionParams{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		ParentID:    util.NullInt64FromPtr(in.ParentID),
		SortOrder:   in.SortOrder,
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("creating section: %w", err)
	}

	s.logger.Info("section created", "id", sec.ID, "slug", sec.Slug)
	s.afterSave(ctx, sec.ID, &sec)
	return &sec, nil
}

// Update replaces the editable fields of a section.
func (s *SectionService) Update(ctx context.Context, id int64, in SectionInput) (*model.Section, error) {
	existing, err := s.queries.GetSectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in, id); err != nil {
		return nil, err
	}
	active := existing.IsActive
	if in.IsActive != nil {
		active = *in.IsActive
	}

	sec, err := s.queries.UpdateSection(ctx, store.UpdateSectionParams{
		ID:          id,
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		ParentID:    util.NullInt64FromPtr(in.ParentID),
		SortOrder:   in.SortOrder,
		IsActive:    active,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("updating section: %w", err)
	}

	s.afterSave(ctx, id, &sec)
	return &sec, nil
}

// Delete removes a section. Its children become top-level sections.
func (s *SectionService) Delete(ctx context.Context, id int64) error {
	if err := s.queries.DeleteSection(ctx, id); err != nil {
		return err
	}
	s.logger.Info("section deleted", "id", id)
	s.afterSave(ctx, id, nil)
	return nil
}

func (s *SectionService) afterSave(ctx context.Context, id int64, sec *model.Section) {
	for _, group := range []string{GroupSections, GroupArticles} {
		if err := s.cache.DeleteGroup(ctx, group); err != nil {
			s.logger.Warn("cache invalidation failed", "group", group, "error", err, "category", model.EventCategoryCache)
		}
	}
	if _, err := s.hooks.Call(ctx, model.HookSectionAfterSave, &model.SectionSaved{ID: id, Section: sec}); err != nil {
		s.logger.Warn("section hook failed", "error", err)
	}
}
