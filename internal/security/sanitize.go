// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package security sanitizes user input and renders article bodies safely.
package security

import (
	"bytes"
	"html"
	"html/template"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/olegiv/newsroom/internal/model"
)

var (
	// ugcPolicy allows the markup editors use in bodies while stripping
	// <script>, event handlers and similar.
	ugcPolicy = bluemonday.UGCPolicy()

	// strictPolicy strips all markup from plain text fields.
	strictPolicy = bluemonday.StrictPolicy()

	// blockEnd matches the ends of block elements and line breaks, which
	// separate words once the markup is gone.
	blockEnd = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|li|dt|dd|blockquote|pre|figcaption|td|th|tr|section|article|aside|header|footer)\s*>|<(?:br|hr)\s*/?>`)

	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

// SanitizeHTML filters body HTML through the user generated content policy.
func SanitizeHTML(s string) string {
	return ugcPolicy.Sanitize(s)
}

// PlainText strips every tag from s, unescapes entities and trims space.
// Block boundaries become spaces. The result is meant to be escaped again
// at output time.
func PlainText(s string) string {
	s = blockEnd.ReplaceAllString(s, "$0 ")
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// RenderBody converts a stored body to safe HTML according to its format.
func RenderBody(body, format string) (template.HTML, error) {
	if format == model.BodyFormatMarkdown {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(body), &buf); err != nil {
			return "", err
		}
		body = buf.String()
	}
	return template.HTML(SanitizeHTML(body)), nil //nolint:gosec // sanitized by bluemonday
}

// Excerpt returns at most maxRunes runes of the text content of bodyHTML,
// cut at a word boundary and suffixed with an ellipsis when truncated.
func Excerpt(bodyHTML string, maxRunes int) string {
	text := strings.Join(strings.Fields(PlainText(bodyHTML)), " ")
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}

	cut := maxRunes
	for i := maxRunes; i > maxRunes/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…"
}
