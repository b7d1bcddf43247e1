// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Section is a node in the section taxonomy.
type Section struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Description  string        `json:"description,omitempty"`
	ParentID     sql.NullInt64 `json:"-"`
	SortOrder    int64         `json:"sort_order"`
	IsActive     bool          `json:"is_active"`
	ArticleCount int64         `json:"article_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Children     []*Section    `json:"children,omitempty"`
}

// URL returns the public path of the section listing.
func (s *Section) URL() string {
	return "/section/" + s.Slug
}

// BuildSectionTree arranges a flat list into a forest keyed by ParentID.
// Sections whose parent is missing become roots. Input order is preserved
// among siblings.
func BuildSectionTree(sections []Section) []*Section {
	nodes := make(map[int64]*Section, len(sections))
	for i := range sections {
		s := sections[i]
		s.Children = nil
		nodes[s.ID] = &s
	}

	var roots []*Section
	for i := range sections {
		node := nodes[sections[i].ID]
		if node.ParentID.Valid {
			if parent, ok := nodes[node.ParentID.Int64]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
