// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package multiquery partitions one article query across several child
// templates. Each child gets a disjoint window of the result set, in
// declaration order.
package multiquery

import (
	"fmt"
	"strings"
)

// Kind is how many items a template claims.
type Kind string

// Template kinds
const (
	KindFeatured  Kind = "featured"  // exactly one item
	KindBreaking  Kind = "breaking"  // exactly one item
	KindRemainder Kind = "remainder" // every unclaimed item
)

// Unbounded is the page size of a remainder window.
const Unbounded int64 = -1

// roles maps accepted role names to their kind. The role doubles as the name
// of the partial used to render the child.
var roles = map[string]Kind{
	"featured":  KindFeatured,
	"hero":      KindFeatured,
	"breaking":  KindBreaking,
	"remainder": KindRemainder,
	"list":      KindRemainder,
	"grid":      KindRemainder,
}

// Template is one child of a multi-template query.
type Template struct {
	Role string `json:"role"`
	Kind Kind   `json:"kind"`
}

// ParseTemplate resolves a role name such as "hero" or "list".
func ParseTemplate(role string) (Template, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	kind, ok := roles[role]
	if !ok {
		return Template{}, fmt.Errorf("unknown template role %q", role)
	}
	return Template{Role: role, Kind: kind}, nil
}

// ParseTemplates resolves a list of role names, stopping at the first unknown one.
func ParseTemplates(names []string) ([]Template, error) {
	out := make([]Template, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		t, err := ParseTemplate(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ParseTemplateList splits a comma separated role list.
func ParseTemplateList(s string) ([]Template, error) {
	return ParseTemplates(strings.Split(s, ","))
}

// Assignment is the window one template renders.
type Assignment struct {
	Template Template
	Offset   int64
	PageSize int64
}

// Empty reports whether the window can never hold an item.
func (a Assignment) Empty() bool {
	return a.PageSize == 0
}

// Plan walks templates in order with a running offset. Featured and breaking
// children claim one item and advance the offset; a remainder child claims
// everything from the offset on. Once a remainder has been assigned, later
// children get an empty window and a warning is returned for each, so no
// item is ever assigned twice.
func Plan(templates []Template) ([]Assignment, []string) {
	out := make([]Assignment, 0, len(templates))
	var warnings []string

	var offset int64
	claimed := false
	for i, t := range templates {
		if claimed {
			out = append(out, Assignment{Template: t, Offset: offset, PageSize: 0})
			warnings = append(warnings, fmt.Sprintf(
				"template %d (%s) follows a remainder template and receives no items", i, t.Role))
			continue
		}

		switch t.Kind {
		case KindRemainder:
			out = append(out, Assignment{Template: t, Offset: offset, PageSize: Unbounded})
			claimed = true
		default:
			out = append(out, Assignment{Template: t, Offset: offset, PageSize: 1})
			offset++
		}
	}

	return out, warnings
}
