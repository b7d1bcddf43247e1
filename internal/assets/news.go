// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package assets

// Handles of the news assets.
const (
	HandleNews       = "news"
	HandleNewsTicker = "news-ticker"
	HandleNewsAdmin  = "news-admin"
)

// NewsAssets are the stylesheets and scripts of the news pages.
var NewsAssets = []Asset{
	{Handle: HandleNews, Kind: KindStyle, Path: "css/news.css"},
	{Handle: HandleNewsTicker, Kind: KindScript, Path: "js/ticker.js", Deps: []string{HandleNews}, Defer: true},
	{Handle: HandleNewsAdmin, Kind: KindStyle, Path: "css/admin.css"},
}

// RegisterNews registers NewsAssets on m.
func RegisterNews(m *Manager) error {
	for _, a := range NewsAssets {
		if err := m.Register(a); err != nil {
			return err
		}
	}
	return nil
}
