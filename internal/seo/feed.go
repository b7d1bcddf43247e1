// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/security"
)

// RSS is an RSS 2.0 document.
type RSS struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	XMLNSDC string     `xml:"xmlns:dc,attr"`
	Channel RSSChannel `xml:"channel"`
}

// RSSChannel is the channel element of an RSS document.
type RSSChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Generator     string    `xml:"generator,omitempty"`
	Items         []RSSItem `xml:"item"`
}

// RSSItem is one feed entry.
type RSSItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	Creator     string   `xml:"dc:creator,omitempty"`
	Categories  []string `xml:"category,omitempty"`
	GUID        RSSGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
}

// RSSGUID is a feed item identifier.
type RSSGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// FeedOptions describes the channel of a feed.
type FeedOptions struct {
	Title       string
	Path        string // site-relative channel link
	Description string
	Language    string
	Generator   string
}

// ArticleGUID returns the stable feed identifier of an article. It is a
// name-based UUID of the article's canonical URL, so it survives re-renders
// but changes with the slug.
func ArticleGUID(site *SiteConfig, a *model.Article) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(site.AbsURL(a.URL()))).String()
}

// GenerateRSS builds an RSS 2.0 feed of articles in the given order.
func GenerateRSS(site *SiteConfig, opts FeedOptions, articles []model.Article) ([]byte, error) {
	if opts.Title == "" {
		opts.Title = site.SiteName
	}
	if opts.Description == "" {
		opts.Description = site.SiteDescription
	}

	ch := RSSChannel{
		Title:       opts.Title,
		Link:        site.AbsURL(opts.Path),
		Description: opts.Description,
		Language:    opts.Language,
		Generator:   opts.Generator,
		Items:       make([]RSSItem, 0, len(articles)),
	}

	var newest time.Time
	for i := range articles {
		a := &articles[i]
		published := a.DisplayTime()
		if published.After(newest) {
			newest = published
		}

		description := a.Excerpt
		if description == "" {
			description = security.Excerpt(a.Body, DescriptionLength*2)
		}
		item := RSSItem{
			Title:       a.Title,
			Link:        site.AbsURL(a.URL()),
			Description: description,
			Creator:     a.Byline(),
			GUID:        RSSGUID{Value: ArticleGUID(site, a)},
			PubDate:     published.UTC().Format(time.RFC1123Z),
		}
		for _, s := range a.Sections {
			item.Categories = append(item.Categories, s.Name)
		}
		ch.Items = append(ch.Items, item)
	}
	if !newest.IsZero() {
		ch.LastBuildDate = newest.UTC().Format(time.RFC1123Z)
	}

	doc := RSS{Version: "2.0", XMLNSDC: "http://purl.org/dc/elements/1.1/", Channel: ch}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
