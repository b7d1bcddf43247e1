// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"on", true},
		{"0", false},
		{"", false},
		{"false", false},
		{"2", false},
	}
	for _, tt := range tests {
		if got := ParseBool(tt.in); got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFlagMetaKeyAndLabel(t *testing.T) {
	tests := []struct {
		flag  Flag
		key   string
		label string
	}{
		{FlagFeatured, MetaFeatured, "Featured"},
		{FlagBreaking, MetaBreaking, "Breaking"},
		{FlagExclusive, MetaExclusive, "Exclusive"},
		{FlagSponsored, MetaSponsored, "Sponsored"},
		{FlagLive, MetaIsLive, "Live"},
	}
	for _, tt := range tests {
		t.Run(string(tt.flag), func(t *testing.T) {
			if got := tt.flag.MetaKey(); got != tt.key {
				t.Errorf("MetaKey() = %q, want %q", got, tt.key)
			}
			if got := tt.flag.Label(); got != tt.label {
				t.Errorf("Label() = %q, want %q", got, tt.label)
			}
		})
	}
}

func TestParseFlag(t *testing.T) {
	for _, in := range []string{"live", "is_live", " Live "} {
		f, err := ParseFlag(in)
		if err != nil || f != FlagLive {
			t.Errorf("ParseFlag(%q) = %q, %v; want live", in, f, err)
		}
	}
	if _, err := ParseFlag("trending"); err == nil {
		t.Error("ParseFlag(trending) should fail")
	}
}

func TestArticleMetaSetAndValues(t *testing.T) {
	var m ArticleMeta
	m.Set(MetaFeatured, "1")
	m.Set(MetaBreaking, "0")
	m.Set(MetaIsLive, "true")
	m.Set(MetaByline, "Jane Roe")
	m.Set(MetaLastUpdated, " 2026-01-02 10:00:00 ")
	m.Set("unknown", "1")

	if !m.Featured || m.Breaking || !m.IsLive {
		t.Fatalf("unexpected flags: %+v", m)
	}
	if m.LastUpdated != "2026-01-02 10:00:00" {
		t.Errorf("LastUpdated = %q", m.LastUpdated)
	}

	got := m.ActiveFlags()
	if len(got) != 2 || got[0] != FlagFeatured || got[1] != FlagLive {
		t.Errorf("ActiveFlags() = %v", got)
	}

	values := m.Values()
	if values[MetaFeatured] != "1" || values[MetaBreaking] != "0" || values[MetaByline] != "Jane Roe" {
		t.Errorf("Values() = %v", values)
	}

	var back ArticleMeta
	for k, v := range values {
		back.Set(k, v)
	}
	if back != m {
		t.Errorf("round trip = %+v, want %+v", back, m)
	}
}

func TestParseMetaTime(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	for _, in := range []string{"2026-03-04T05:06:07Z", "2026-03-04 05:06:07"} {
		got, ok := ParseMetaTime(in)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseMetaTime(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseMetaTime("yesterday"); ok {
		t.Error("ParseMetaTime(yesterday) should fail")
	}
	if _, ok := ParseMetaTime(""); ok {
		t.Error("ParseMetaTime(empty) should fail")
	}
}

func TestArticleByline(t *testing.T) {
	a := Article{AuthorName: "Desk"}
	if a.Byline() != "Desk" {
		t.Errorf("Byline() = %q, want author fallback", a.Byline())
	}
	a.Meta.Byline = "By Jane Roe"
	if a.Byline() != "By Jane Roe" {
		t.Errorf("Byline() = %q", a.Byline())
	}
}
