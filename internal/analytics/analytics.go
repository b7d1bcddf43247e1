// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package analytics owns the optional article_views table and records
// anonymous article views.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
)

var installDDL = []string{
	`CREATE TABLE IF NOT EXISTS article_views (
		id TEXT PRIMARY KEY,
		article_id INTEGER NOT NULL,
		viewed_at DATETIME NOT NULL,
		device_type TEXT NOT NULL DEFAULT '',
		browser TEXT NOT NULL DEFAULT '',
		os TEXT NOT NULL DEFAULT '',
		country_code TEXT NOT NULL DEFAULT '',
		referrer_host TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_article_views_article ON article_views(article_id, viewed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_article_views_viewed_at ON article_views(viewed_at)`,
}

// Install creates the analytics table and its indexes. It is idempotent.
func Install(ctx context.Context, db *sql.DB) error {
	for _, stmt := range installDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("installing analytics schema: %w", err)
		}
	}
	return nil
}

// ParsedUA holds the parts of a user agent the log keeps.
type ParsedUA struct {
	Browser    string
	OS         string
	DeviceType string
}

// ParseUserAgent extracts browser, OS, and device type from a user agent string.
func ParseUserAgent(uaString string) ParsedUA {
	ua := useragent.Parse(uaString)

	result := ParsedUA{Browser: ua.Name, OS: ua.OS}
	if result.Browser == "" {
		result.Browser = "Unknown"
	}
	if result.OS == "" {
		result.OS = "Unknown"
	}

	switch {
	case ua.Bot:
		result.DeviceType = "bot"
	case ua.Mobile:
		result.DeviceType = "mobile"
	case ua.Tablet:
		result.DeviceType = "tablet"
	default:
		result.DeviceType = "desktop"
	}
	return result
}

// View is one logged article view.
type View struct {
	ID           string
	ArticleID    int64
	ViewedAt     time.Time
	DeviceType   string
	Browser      string
	OS           string
	CountryCode  string
	ReferrerHost string
}

// CountryLookup resolves a client IP to an ISO country code.
// *geoip.Lookup satisfies it.
type CountryLookup interface {
	Country(ip string) string
}

// Recorder writes article views. Bots are not recorded.
type Recorder struct {
	db        *sql.DB
	logger    *slog.Logger
	countries CountryLookup // optional
	now       func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(db *sql.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger, now: time.Now}
}

// SetCountryLookup enables country resolution of recorded views.
func (rec *Recorder) SetCountryLookup(l CountryLookup) {
	rec.countries = l
}

// ViewFromRequest builds the log row for a request to articleID.
func (rec *Recorder) ViewFromRequest(articleID int64, r *http.Request) View {
	ua := ParseUserAgent(r.UserAgent())
	v := View{
		ID:           uuid.NewString(),
		ArticleID:    articleID,
		ViewedAt:     rec.now().UTC(),
		DeviceType:   ua.DeviceType,
		Browser:      ua.Browser,
		OS:           ua.OS,
		ReferrerHost: referrerHost(r.Referer(), r.Host),
	}
	if rec.countries != nil {
		v.CountryCode = rec.countries.Country(clientIP(r.RemoteAddr))
	}
	return v
}

// clientIP strips the port from a RemoteAddr. chi's RealIP middleware has
// already replaced it with the forwarded address when present.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// Record inserts v unless it comes from a bot.
func (rec *Recorder) Record(ctx context.Context, v View) error {
	if v.DeviceType == "bot" {
		return nil
	}
	_, err := rec.db.ExecContext(ctx,
		`INSERT INTO article_views (id, article_id, viewed_at, device_type, browser, os, country_code, referrer_host)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ArticleID, v.ViewedAt, v.DeviceType, v.Browser, v.OS, v.CountryCode, v.ReferrerHost)
	if err != nil {
		return fmt.Errorf("recording article view: %w", err)
	}
	return nil
}

// RecordRequest logs a view in the background so the response is not delayed.
func (rec *Recorder) RecordRequest(articleID int64, r *http.Request) {
	v := rec.ViewFromRequest(articleID, r)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.Record(ctx, v); err != nil {
			rec.logger.Error("failed to record article view", "article_id", articleID, "error", err)
		}
	}()
}

// Prune deletes views older than before and returns how many were removed.
func (rec *Recorder) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := rec.db.ExecContext(ctx, "DELETE FROM article_views WHERE viewed_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning article views: %w", err)
	}
	return res.RowsAffected()
}

// ViewCounts returns the view totals of the given articles. Articles
// without views are absent from the map.
func (rec *Recorder) ViewCounts(ctx context.Context, articleIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(articleIDs))
	if len(articleIDs) == 0 {
		return counts, nil
	}

	args := make([]any, len(articleIDs))
	for i, id := range articleIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(articleIDs)), ",")
	rows, err := rec.db.QueryContext(ctx,
		`SELECT article_id, COUNT(*) FROM article_views WHERE article_id IN (`+placeholders+`)
		GROUP BY article_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("counting article views: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// ArticleViews is a per-article view total.
type ArticleViews struct {
	ArticleID int64 `json:"article_id"`
	Views     int64 `json:"views"`
}

// TopArticles returns the most viewed articles since the given time.
func (rec *Recorder) TopArticles(ctx context.Context, since time.Time, limit int) ([]ArticleViews, error) {
	rows, err := rec.db.QueryContext(ctx,
		`SELECT article_id, COUNT(*) AS views FROM article_views WHERE viewed_at >= ?
		GROUP BY article_id ORDER BY views DESC, article_id ASC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ArticleViews
	for rows.Next() {
		var av ArticleViews
		if err := rows.Scan(&av.ArticleID, &av.Views); err != nil {
			return nil, err
		}
		out = append(out, av)
	}
	return out, rows.Err()
}

// CountryViews is a per-country view total.
type CountryViews struct {
	CountryCode string `json:"country_code"`
	Views       int64  `json:"views"`
}

// TopCountries returns view totals by country since the given time. Views
// without a resolved country are left out.
func (rec *Recorder) TopCountries(ctx context.Context, since time.Time, limit int) ([]CountryViews, error) {
	rows, err := rec.db.QueryContext(ctx,
		`SELECT country_code, COUNT(*) AS views FROM article_views
		WHERE viewed_at >= ? AND country_code != ''
		GROUP BY country_code ORDER BY views DESC, country_code ASC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []CountryViews
	for rows.Next() {
		var cv CountryViews
		if err := rows.Scan(&cv.CountryCode, &cv.Views); err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}

// referrerHost keeps only the host of external referrers.
func referrerHost(referer, ownHost string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if own := strings.ToLower(strings.Split(ownHost, ":")[0]); own != "" && host == own {
		return ""
	}
	return host
}
