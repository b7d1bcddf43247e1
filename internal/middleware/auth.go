// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olegiv/newsroom/internal/auth"
)

// AdminAuthConfig configures HTTP Basic authentication of the admin area.
type AdminAuthConfig struct {
	User         string
	PasswordHash string // argon2id
	Realm        string
	Protection   *LoginProtection // optional
}

// ContextKeyAdminUser holds the authenticated admin user name.
const ContextKeyAdminUser ContextKey = "admin_user"

// AdminAuth requires HTTP Basic credentials matching the configured admin
// account. Without a configured hash every request is refused.
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	realm := cfg.Realm
	if realm == "" {
		realm = "Newsroom admin"
	}
	challenge := `Basic realm=` + strconv.Quote(realm) + `, charset="UTF-8"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.PasswordHash == "" {
				http.Error(w, "Admin area is disabled", http.StatusForbidden)
				return
			}

			ip := getClientIP(r)
			if lp := cfg.Protection; lp != nil {
				if locked, _ := lp.IsLocked(ip); locked {
					http.Error(w, "Too many failed attempts. Try again later.", http.StatusTooManyRequests)
					return
				}
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Password checks are expensive; throttle IPs that already failed.
			if lp := cfg.Protection; lp != nil && lp.HasFailures(ip) && !lp.Allow(ip) {
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}

			if !auth.CheckCredentials(user, pass, cfg.User, cfg.PasswordHash) {
				slog.Warn("admin authentication failed", "category", "security", "ip", ip, "user", user)
				if cfg.Protection != nil {
					cfg.Protection.RecordFailure(ip)
				}
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if cfg.Protection != nil {
				cfg.Protection.RecordSuccess(ip)
			}
			next.ServeHTTP(w, r.WithContext(withAdminUser(r, user)))
		})
	}
}

func withAdminUser(r *http.Request, user string) context.Context {
	return context.WithValue(r.Context(), ContextKeyAdminUser, user)
}

// AdminUser returns the authenticated admin user name, or "".
func AdminUser(r *http.Request) string {
	user, _ := r.Context().Value(ContextKeyAdminUser).(string)
	return user
}
