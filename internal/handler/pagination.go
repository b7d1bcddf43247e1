// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/url"
	"strconv"
)

// Pagination holds pagination data for templates.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int64
	PerPage     int
	HasPrev     bool
	HasNext     bool
	PrevURL     string
	NextURL     string
	Pages       []PaginationPage
	BaseURL     string
	QueryString string
}

// PaginationPage represents a single page link.
type PaginationPage struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// BuildPagination creates pagination data. baseURL is the path without query
// string; query holds parameters to preserve (filters), page is dropped.
func BuildPagination(currentPage int, totalItems int64, perPage int, baseURL string, query url.Values) Pagination {
	if perPage < 1 {
		perPage = 1
	}
	totalPages := int((totalItems + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}
	currentPage = max(1, min(currentPage, totalPages))

	p := Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		PerPage:     perPage,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
		BaseURL:     baseURL,
	}

	if len(query) > 0 {
		params := make(url.Values)
		for k, v := range query {
			if k != "page" && len(v) > 0 && v[0] != "" {
				params[k] = v
			}
		}
		p.QueryString = params.Encode()
	}
	if p.HasPrev {
		p.PrevURL = p.PageURL(currentPage - 1)
	}
	if p.HasNext {
		p.NextURL = p.PageURL(currentPage + 1)
	}

	// Show at most 5 pages around the current one
	start := max(1, currentPage-2)
	end := min(totalPages, start+4)
	start = max(1, end-4)

	if start > 1 {
		p.Pages = append(p.Pages, PaginationPage{Number: 1, URL: p.PageURL(1)})
		if start > 2 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PaginationPage{Number: i, URL: p.PageURL(i), IsCurrent: i == currentPage})
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, PaginationPage{Number: totalPages, URL: p.PageURL(totalPages)})
	}
	return p
}

// PageURL returns the URL for a page number. Page 1 has no page parameter.
func (p Pagination) PageURL(page int) string {
	q := p.QueryString
	if page > 1 {
		if q != "" {
			q += "&"
		}
		q += "page=" + strconv.Itoa(page)
	}
	if q == "" {
		return p.BaseURL
	}
	return p.BaseURL + "?" + q
}

// ShouldShow reports whether there is more than one page.
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// Offset returns the offset of the first item on the current page.
func (p Pagination) Offset() int64 {
	return int64(p.CurrentPage-1) * int64(p.PerPage)
}

// PageRange describes the items shown, e.g. "11-20".
func (p Pagination) PageRange() string {
	if p.TotalItems == 0 {
		return "0"
	}
	start := p.Offset() + 1
	end := min(p.Offset()+int64(p.PerPage), p.TotalItems)
	return fmt.Sprintf("%d-%d", start, end)
}

// parsePage reads the page query parameter, defaulting to 1.
func parsePage(query url.Values) int {
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
