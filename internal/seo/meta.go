// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds meta tags, JSON-LD structured data, sitemaps, RSS feeds
// and robots.txt for the public site.
package seo

import (
	"encoding/json"
	"html/template"
	"strings"
	"time"

	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/security"
)

// DescriptionLength is the maximum length of generated descriptions.
const DescriptionLength = 160

// Meta holds all SEO meta tag data for a page.
type Meta struct {
	Title         string
	Description   string
	Canonical     string
	OGTitle       string
	OGDescription string
	OGImage       string // absolute
	OGType        string // website, article
	OGSiteName    string
	Robots        string
	TwitterCard   string
	FeedURL       string // alternate RSS link
	JSONLD        template.JS
}

// SiteConfig contains site-wide settings for SEO.
type SiteConfig struct {
	SiteName        string
	SiteURL         string // without trailing slash
	SiteDescription string
	Logo            string
}

// AbsURL resolves a site-relative path against the site URL.
func (s *SiteConfig) AbsURL(path string) string {
	return makeAbsoluteURL(path, s.SiteURL)
}

// BuildHomeMeta returns the meta data of the front page.
func BuildHomeMeta(site *SiteConfig) *Meta {
	return &Meta{
		Title:         site.SiteName,
		Description:   site.SiteDescription,
		Canonical:     site.SiteURL + "/",
		OGTitle:       site.SiteName,
		OGDescription: site.SiteDescription,
		OGType:        "website",
		OGSiteName:    site.SiteName,
		OGImage:       site.AbsURL(site.Logo),
		Robots:        "index,follow",
		TwitterCard:   "summary",
		FeedURL:       site.SiteURL + "/feed",
		JSONLD:        BuildWebSiteSchema(site),
	}
}

// BuildSectionMeta returns the meta data of a section listing. Pages after
// the first are not indexed.
func BuildSectionMeta(section *model.Section, page int, site *SiteConfig) *Meta {
	description := section.Description
	if description == "" {
		description = section.Name + " news from " + site.SiteName
	}
	m := &Meta{
		Title:         section.Name + " | " + site.SiteName,
		Description:   truncateText(description, DescriptionLength),
		Canonical:     site.AbsURL(section.URL()),
		OGTitle:       section.Name,
		OGDescription: description,
		OGType:        "website",
		OGSiteName:    site.SiteName,
		Robots:        "index,follow",
		TwitterCard:   "summary",
		FeedURL:       site.AbsURL(section.URL() + "/feed"),
	}
	if page > 1 {
		m.Robots = "noindex,follow"
	}
	return m
}

// BuildArticleMeta returns the meta data of an article page, including its
// NewsArticle JSON-LD.
func BuildArticleMeta(a *model.Article, site *SiteConfig) *Meta {
	description := a.Excerpt
	if description == "" {
		description = security.Excerpt(a.Body, DescriptionLength)
	}
	description = truncateText(description, DescriptionLength)

	m := &Meta{
		Title:         a.Title + " | " + site.SiteName,
		Description:   description,
		Canonical:     site.AbsURL(a.URL()),
		OGTitle:       a.Title,
		OGDescription: description,
		OGType:        "article",
		OGSiteName:    site.SiteName,
		Robots:        "index,follow",
		TwitterCard:   "summary_large_image",
		FeedURL:       site.SiteURL + "/feed",
		JSONLD:        BuildNewsArticleSchema(a, site),
	}
	if a.FeaturedImage != "" {
		m.OGImage = site.AbsURL(a.FeaturedImage)
	} else {
		m.OGImage = site.AbsURL(site.Logo)
		m.TwitterCard = "summary"
	}
	return m
}

// ArticleSchema represents JSON-LD NewsArticle structured data.
type ArticleSchema struct {
	Context          string         `json:"@context"`
	Type             string         `json:"@type"`
	Headline         string         `json:"headline"`
	Description      string         `json:"description,omitempty"`
	Image            []string       `json:"image,omitempty"`
	DatePublished    string         `json:"datePublished,omitempty"`
	DateModified     string         `json:"dateModified,omitempty"`
	Author           []PersonSchema `json:"author,omitempty"`
	Publisher        *OrgSchema     `json:"publisher,omitempty"`
	ArticleSection   []string       `json:"articleSection,omitempty"`
	MainEntityOfPage string         `json:"mainEntityOfPage,omitempty"`
	Coverage         *LiveCoverage  `json:"coverageStartTime,omitempty"`
}

// PersonSchema represents JSON-LD Person structured data.
type PersonSchema struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// OrgSchema represents JSON-LD Organization structured data.
type OrgSchema struct {
	Type string       `json:"@type"`
	Name string       `json:"name"`
	URL  string       `json:"url,omitempty"`
	Logo *ImageSchema `json:"logo,omitempty"`
}

// ImageSchema represents JSON-LD ImageObject structured data.
type ImageSchema struct {
	Type string `json:"@type"`
	URL  string `json:"url"`
}

// LiveCoverage is the start of live coverage. It marshals as a bare
// timestamp.
type LiveCoverage struct{ Start time.Time }

// MarshalJSON implements json.Marshaler.
func (c *LiveCoverage) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Start.UTC().Format(time.RFC3339))
}

// WebSiteSchema represents JSON-LD WebSite structured data for the home page.
type WebSiteSchema struct {
	Context     string     `json:"@context"`
	Type        string     `json:"@type"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	Publisher   *OrgSchema `json:"publisher,omitempty"`
}

func publisher(site *SiteConfig) *OrgSchema {
	org := &OrgSchema{Type: "Organization", Name: site.SiteName, URL: site.SiteURL}
	if site.Logo != "" {
		org.Logo = &ImageSchema{Type: "ImageObject", URL: site.AbsURL(site.Logo)}
	}
	return org
}

// BuildNewsArticleSchema creates NewsArticle JSON-LD for an article. The
// last_updated meta value, when set, becomes dateModified.
func BuildNewsArticleSchema(a *model.Article, site *SiteConfig) template.JS {
	if a == nil {
		return ""
	}

	schema := ArticleSchema{
		Context:          "https://schema.org",
		Type:             "NewsArticle",
		Headline:         a.Title,
		Description:      a.Excerpt,
		DatePublished:    a.DisplayTime().UTC().Format(time.RFC3339),
		DateModified:     a.UpdatedAt.UTC().Format(time.RFC3339),
		Publisher:        publisher(site),
		MainEntityOfPage: site.AbsURL(a.URL()),
	}
	if updated, ok := a.Meta.LastUpdatedTime(); ok {
		schema.DateModified = updated.UTC().Format(time.RFC3339)
	}
	if a.FeaturedImage != "" {
		schema.Image = []string{site.AbsURL(a.FeaturedImage)}
	}
	if byline := a.Byline(); byline != "" {
		schema.Author = []PersonSchema{{Type: "Person", Name: byline}}
	}
	for _, s := range a.Sections {
		schema.ArticleSection = append(schema.ArticleSection, s.Name)
	}
	if a.Meta.IsLive {
		schema.Coverage = &LiveCoverage{Start: a.DisplayTime()}
	}

	return marshalJSONLD(schema)
}

// BuildWebSiteSchema creates WebSite JSON-LD for the front page.
func BuildWebSiteSchema(site *SiteConfig) template.JS {
	return marshalJSONLD(WebSiteSchema{
		Context:     "https://schema.org",
		Type:        "WebSite",
		Name:        site.SiteName,
		URL:         site.SiteURL + "/",
		Description: site.SiteDescription,
		Publisher:   publisher(site),
	})
}

// marshalJSONLD marshals structured data to JSON-LD script tag content.
// encoding/json escapes <, > and & so the result cannot close the script.
func marshalJSONLD(v any) template.JS {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return template.JS(data) //nolint:gosec // JSON produced by encoding/json
}

// truncateText truncates text to maxLen runes at a word boundary.
func truncateText(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	truncated := string(runes[:maxLen])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated) + "..."
}

// makeAbsoluteURL ensures a URL is absolute by prepending site URL if needed.
func makeAbsoluteURL(url, siteURL string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	siteURL = strings.TrimSuffix(siteURL, "/")
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return siteURL + url
}
