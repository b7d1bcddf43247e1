// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"strings"
)

// RobotsConfig holds configuration for robots.txt generation.
type RobotsConfig struct {
	SiteURL       string   // base URL for sitemap references
	DisallowAll   bool     // block all crawlers (staging sites)
	DisallowPaths []string // in addition to the defaults
}

// defaultDisallow lists paths crawlers never need.
var defaultDisallow = []string{"/admin", "/api/"}

// GenerateRobots generates robots.txt content referencing both the full and
// the news sitemap.
func GenerateRobots(cfg RobotsConfig) string {
	var sb strings.Builder
	sb.WriteString("User-agent: *\n")

	if cfg.DisallowAll {
		sb.WriteString("Disallow: /\n")
		return sb.String()
	}

	for _, path := range append(defaultDisallow, cfg.DisallowPaths...) {
		sb.WriteString("Disallow: " + path + "\n")
	}
	sb.WriteString("Allow: /\n")

	if cfg.SiteURL != "" {
		base := strings.TrimSuffix(cfg.SiteURL, "/")
		sb.WriteString("\nSitemap: " + base + "/sitemap.xml\n")
		sb.WriteString("Sitemap: " + base + "/news-sitemap.xml\n")
	}
	return sb.String()
}
