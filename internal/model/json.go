// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// articleJSON exposes the nullable columns of Article as plain JSON values.
type articleJSON struct {
	articleAlias
	PublishedAt *time.Time `json:"published_at"`
}

type articleAlias Article

// MarshalJSON implements json.Marshaler.
func (a Article) MarshalJSON() ([]byte, error) {
	out := articleJSON{articleAlias: articleAlias(a)}
	if a.PublishedAt.Valid {
		t := a.PublishedAt.Time
		out.PublishedAt = &t
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Article) UnmarshalJSON(data []byte) error {
	var in articleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = Article(in.articleAlias)
	a.PublishedAt = sql.NullTime{}
	if in.PublishedAt != nil {
		a.PublishedAt = sql.NullTime{Time: *in.PublishedAt, Valid: true}
	}
	return nil
}

type sectionJSON struct {
	sectionAlias
	ParentID *int64 `json:"parent_id"`
}

type sectionAlias Section

// MarshalJSON implements json.Marshaler.
func (s Section) MarshalJSON() ([]byte, error) {
	out := sectionJSON{sectionAlias: sectionAlias(s)}
	if s.ParentID.Valid {
		id := s.ParentID.Int64
		out.ParentID = &id
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Section) UnmarshalJSON(data []byte) error {
	var in sectionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Section(in.sectionAlias)
	s.ParentID = sql.NullInt64{}
	if in.ParentID != nil {
		s.ParentID = sql.NullInt64{Int64: *in.ParentID, Valid: true}
	}
	return nil
}
