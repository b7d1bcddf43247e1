// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"
)

// Metadata keys stored in article_meta.
const (
	MetaFeatured    = "featured"
	MetaBreaking    = "breaking"
	MetaExclusive   = "exclusive"
	MetaSponsored   = "sponsored"
	MetaIsLive      = "is_live"
	MetaLastUpdated = "last_updated"
	MetaByline      = "byline"
)

// LastUpdatedLayout is the legacy datetime layout accepted for last_updated.
const LastUpdatedLayout = "2006-01-02 15:04:05"

// Meta field kinds
const (
	MetaKindBool     = "boolean"
	MetaKindString   = "string"
	MetaKindDateTime = "datetime"
)

// MetaField describes one editorial metadata field.
type MetaField struct {
	Key   string `json:"key"`
	Kind  string `json:"type"`
	Label string `json:"label"`
}

// MetaFields is the registry of editorial fields, in panel order.
var MetaFields = []MetaField{
	{Key: MetaFeatured, Kind: MetaKindBool, Label: "Featured"},
	{Key: MetaBreaking, Kind: MetaKindBool, Label: "Breaking"},
	{Key: MetaExclusive, Kind: MetaKindBool, Label: "Exclusive"},
	{Key: MetaSponsored, Kind: MetaKindBool, Label: "Sponsored"},
	{Key: MetaIsLive, Kind: MetaKindBool, Label: "Live"},
	{Key: MetaLastUpdated, Kind: MetaKindDateTime, Label: "Last updated"},
	{Key: MetaByline, Kind: MetaKindString, Label: "Byline"},
}

// LookupMetaField returns the field registered under key.
func LookupMetaField(key string) (MetaField, bool) {
	for _, f := range MetaFields {
		if f.Key == key {
			return f, true
		}
	}
	return MetaField{}, false
}

// Flag is a boolean editorial flag that drives a badge.
type Flag string

// Editorial flags
const (
	FlagFeatured  Flag = "featured"
	FlagBreaking  Flag = "breaking"
	FlagExclusive Flag = "exclusive"
	FlagSponsored Flag = "sponsored"
	FlagLive      Flag = "live"
)

// Flags lists all flags in badge order.
var Flags = []Flag{FlagFeatured, FlagBreaking, FlagExclusive, FlagSponsored, FlagLive}

// MetaKey returns the article_meta key backing the flag.
func (f Flag) MetaKey() string {
	if f == FlagLive {
		return MetaIsLive
	}
	return string(f)
}

// Label returns the badge text for the flag.
func (f Flag) Label() string {
	switch f {
	case FlagFeatured:
		return "Featured"
	case FlagBreaking:
		return "Breaking"
	case FlagExclusive:
		return "Exclusive"
	case FlagSponsored:
		return "Sponsored"
	case FlagLive:
		return "Live"
	}
	return ""
}

// ParseFlag converts a flag name or its meta key into a Flag.
func ParseFlag(s string) (Flag, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == MetaIsLive {
		return FlagLive, nil
	}
	for _, f := range Flags {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown flag %q", s)
}

// ArticleMeta holds the editorial metadata of one article.
type ArticleMeta struct {
	Featured    bool   `json:"featured"`
	Breaking    bool   `json:"breaking"`
	Exclusive   bool   `json:"exclusive"`
	Sponsored   bool   `json:"sponsored"`
	IsLive      bool   `json:"is_live"`
	LastUpdated string `json:"last_updated"`
	Byline      string `json:"byline"`
}

// Flag reports whether the given flag is set.
func (m ArticleMeta) Flag(f Flag) bool {
	switch f {
	case FlagFeatured:
		return m.Featured
	case FlagBreaking:
		return m.Breaking
	case FlagExclusive:
		return m.Exclusive
	case FlagSponsored:
		return m.Sponsored
	case FlagLive:
		return m.IsLive
	}
	return false
}

// ActiveFlags returns the set flags in badge order.
func (m ArticleMeta) ActiveFlags() []Flag {
	var out []Flag
	for _, f := range Flags {
		if m.Flag(f) {
			out = append(out, f)
		}
	}
	return out
}

// Set assigns a raw stored value to the field named by key.
// Unknown keys are ignored.
func (m *ArticleMeta) Set(key, value string) {
	switch key {
	case MetaFeatured:
		m.Featured = ParseBool(value)
	case MetaBreaking:
		m.Breaking = ParseBool(value)
	case MetaExclusive:
		m.Exclusive = ParseBool(value)
	case MetaSponsored:
		m.Sponsored = ParseBool(value)
	case MetaIsLive:
		m.IsLive = ParseBool(value)
	case MetaLastUpdated:
		m.LastUpdated = strings.TrimSpace(value)
	case MetaByline:
		m.Byline = value
	}
}

// Values returns the storage representation keyed by meta key.
func (m ArticleMeta) Values() map[string]string {
	return map[string]string{
		MetaFeatured:    FormatBool(m.Featured),
		MetaBreaking:    FormatBool(m.Breaking),
		MetaExclusive:   FormatBool(m.Exclusive),
		MetaSponsored:   FormatBool(m.Sponsored),
		MetaIsLive:      FormatBool(m.IsLive),
		MetaLastUpdated: m.LastUpdated,
		MetaByline:      m.Byline,
	}
}

// LastUpdatedTime parses LastUpdated. ok is false when it is empty or invalid.
func (m ArticleMeta) LastUpdatedTime() (time.Time, bool) {
	return ParseMetaTime(m.LastUpdated)
}

// ParseMetaTime accepts RFC 3339 or the legacy "YYYY-MM-DD HH:MM:SS" layout.
func ParseMetaTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(LastUpdatedLayout, s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseBool treats "1", "true", "yes" and "on" as true.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// FormatBool returns the stored form of a boolean meta value.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
