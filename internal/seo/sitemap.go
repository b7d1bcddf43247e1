// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"time"

	"github.com/olegiv/newsroom/internal/model"
)

// Sitemap XML namespaces.
const (
	XMLNamespace     = "http://www.sitemaps.org/schemas/sitemap/0.9"
	NewsXMLNamespace = "http://www.google.com/schemas/sitemap-news/0.9"
)

// NewsSitemapWindow is how far back the news sitemap reaches.
const NewsSitemapWindow = 48 * time.Hour

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Valid change frequency values.
const (
	ChangeFreqHourly ChangeFreq = "hourly"
	ChangeFreqDaily  ChangeFreq = "daily"
	ChangeFreqWeekly ChangeFreq = "weekly"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
	News       *NewsEntry `xml:"news:news,omitempty"`
}

// NewsEntry is the Google News extension of a sitemap URL.
type NewsEntry struct {
	Publication     NewsPublication `xml:"news:publication"`
	PublicationDate string          `xml:"news:publication_date"`
	Title           string          `xml:"news:title"`
}

// NewsPublication names the publishing site.
type NewsPublication struct {
	Name     string `xml:"news:name"`
	Language string `xml:"news:language"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName   xml.Name     `xml:"urlset"`
	XMLNS     string       `xml:"xmlns,attr"`
	XMLNSNews string       `xml:"xmlns:news,attr,omitempty"`
	URLs      []SitemapURL `xml:"url"`
}

// SitemapBuilder builds sitemap XML from articles and sections.
type SitemapBuilder struct {
	site *SiteConfig
	urls []SitemapURL
}

// NewSitemapBuilder creates a new sitemap builder.
func NewSitemapBuilder(site *SiteConfig) *SitemapBuilder {
	return &SitemapBuilder{site: site, urls: make([]SitemapURL, 0)}
}

// AddHomepage adds the front page.
func (b *SitemapBuilder) AddHomepage() {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.site.SiteURL + "/",
		ChangeFreq: ChangeFreqHourly,
		Priority:   "1.0",
	})
}

// AddArticle adds an article page.
func (b *SitemapBuilder) AddArticle(a model.Article) {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.site.AbsURL(a.URL()),
		LastMod:    a.UpdatedAt.UTC().Format(time.RFC3339),
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "0.8",
	})
}

// AddSection adds a section listing.
func (b *SitemapBuilder) AddSection(s model.Section) {
	url := SitemapURL{
		Loc:        b.site.AbsURL(s.URL()),
		ChangeFreq: ChangeFreqDaily,
		Priority:   "0.6",
	}
	if !s.UpdatedAt.IsZero() {
		url.LastMod = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, url)
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	return marshalSitemap(Sitemap{XMLNS: XMLNamespace, URLs: b.urls})
}

// GenerateSitemap builds the full sitemap of the site.
func GenerateSitemap(site *SiteConfig, articles []model.Article, sections []model.Section) ([]byte, error) {
	b := NewSitemapBuilder(site)
	b.AddHomepage()
	for _, s := range sections {
		if s.IsActive {
			b.AddSection(s)
		}
	}
	for _, a := range articles {
		b.AddArticle(a)
	}
	return b.Build()
}

// GenerateNewsSitemap builds a Google News sitemap of the articles published
// within NewsSitemapWindow before now. Older articles are skipped.
func GenerateNewsSitemap(site *SiteConfig, language string, articles []model.Article, now time.Time) ([]byte, error) {
	if language == "" {
		language = "en"
	}
	cutoff := now.Add(-NewsSitemapWindow)

	urls := make([]SitemapURL, 0, len(articles))
	for _, a := range articles {
		published := a.DisplayTime()
		if published.Before(cutoff) || published.After(now) {
			continue
		}
		urls = append(urls, SitemapURL{
			Loc: site.AbsURL(a.URL()),
			News: &NewsEntry{
				Publication:     NewsPublication{Name: site.SiteName, Language: language},
				PublicationDate: published.UTC().Format(time.RFC3339),
				Title:           a.Title,
			},
		})
	}

	return marshalSitemap(Sitemap{XMLNS: XMLNamespace, XMLNSNews: NewsXMLNamespace, URLs: urls})
}

func marshalSitemap(s Sitemap) ([]byte, error) {
	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(output, xmlBytes...), nil
}
