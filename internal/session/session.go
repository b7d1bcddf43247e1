// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures cookie sessions backed by SQLite and carries
// one-shot admin notices between redirects.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Lifetime of an admin session.
const Lifetime = 24 * time.Hour

// Cookie names. The __Host- prefix requires Secure and Path=/.
const (
	CookieNameDev  = "newsroom_session"
	CookieNameProd = "__Host-newsroom_session"
)

// New creates a session manager storing sessions in the sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)
	sm.Lifetime = Lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Name = CookieNameDev
	if !isDev {
		sm.Cookie.Secure = true
		sm.Cookie.Name = CookieNameProd
	}
	return sm
}

// Notice types
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

const (
	keyNotice     = "notice"
	keyNoticeType = "notice_type"
)

// Notice is a one-shot message shown on the next admin page.
type Notice struct {
	Message string
	Type    string
}

// PutNotice stores a notice for the next request.
func PutNotice(ctx context.Context, sm *scs.SessionManager, typ, message string) {
	sm.Put(ctx, keyNotice, message)
	sm.Put(ctx, keyNoticeType, typ)
}

// PopNotice returns and clears the pending notice. ok is false when there
// is none.
func PopNotice(ctx context.Context, sm *scs.SessionManager) (Notice, bool) {
	msg := sm.PopString(ctx, keyNotice)
	typ := sm.PopString(ctx, keyNoticeType)
	if msg == "" {
		return Notice{}, false
	}
	if typ == "" {
		typ = NoticeInfo
	}
	return Notice{Message: msg, Type: typ}, true
}
