// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPagination_TotalPages(t *testing.T) {
	tests := []struct {
		name       string
		totalItems int64
		perPage    int
		want       int
	}{
		{"zero items", 0, 10, 1},
		{"less than one page", 5, 10, 1},
		{"exactly one page", 10, 10, 1},
		{"one item over", 11, 10, 2},
		{"multiple pages", 25, 10, 3},
		{"exact multiple", 30, 10, 3},
		{"zero per page", 3, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildPagination(1, tt.totalItems, tt.perPage, "/section/world", nil)
			assert.Equal(t, tt.want, p.TotalPages)
		})
	}
}

func TestBuildPagination_ClampsAndLinks(t *testing.T) {
	p := BuildPagination(9, 25, 10, "/section/world", url.Values{"page": {"9"}, "q": {"vote"}})

	assert.Equal(t, 3, p.CurrentPage, "current page is clamped")
	assert.True(t, p.HasPrev)
	assert.False(t, p.HasNext)
	assert.Equal(t, "/section/world?q=vote&page=2", p.PrevURL)
	assert.Equal(t, "/section/world?q=vote", p.PageURL(1))
	assert.EqualValues(t, 20, p.Offset())
	assert.Equal(t, "21-25", p.PageRange())
}

func TestBuildPagination_Window(t *testing.T) {
	p := BuildPagination(10, 200, 10, "/", nil)

	var numbers []int
	ellipses := 0
	for _, pg := range p.Pages {
		if pg.IsEllipsis {
			ellipses++
			continue
		}
		numbers = append(numbers, pg.Number)
	}
	assert.Equal(t, []int{1, 8, 9, 10, 11, 12, 20}, numbers)
	assert.Equal(t, 2, ellipses)
	assert.Equal(t, "/?page=11", p.NextURL)
}

func TestPagination_ShouldShowAndEmptyRange(t *testing.T) {
	p := BuildPagination(1, 0, 10, "/", nil)
	assert.False(t, p.ShouldShow())
	assert.Equal(t, "0", p.PageRange())
	assert.EqualValues(t, 0, p.Offset())
}

func TestParsePage(t *testing.T) {
	tests := map[string]int{"": 1, "abc": 1, "-2": 1, "0": 1, "4": 4}
	for in, want := range tests {
		assert.Equal(t, want, parsePage(url.Values{"page": {in}}), "page=%q", in)
	}
}
