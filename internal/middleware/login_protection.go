// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// LoginProtection rate limits admin sign-in attempts per client IP and
// locks an IP out after repeated failures.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	failedAttempts map[string]*loginAttempt
	attemptsMu     sync.RWMutex

	maxFailedAttempts int
	lockoutDuration   time.Duration // doubles with each lockout
	attemptWindow     time.Duration

	now  func() time.Time
	done chan struct{}
}

type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	IPRateLimit       float64       // attempts per second per IP (default 0.5)
	IPBurst           int           // default 5
	MaxFailedAttempts int           // failures before lockout (default 5)
	LockoutDuration   time.Duration // base lockout (default 15m)
	AttemptWindow     time.Duration // window for counting failures (default 15m)
}

// DefaultLoginProtectionConfig returns the defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a login protection instance and starts its
// cleanup goroutine. Call Close to stop it.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}

	lp := &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		failedAttempts:    make(map[string]*loginAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		now:               time.Now,
		done:              make(chan struct{}),
	}
	go lp.cleanup()
	return lp
}

// Close stops the cleanup goroutine.
func (lp *LoginProtection) Close() {
	close(lp.done)
}

// Allow reports whether ip is within its attempt rate.
func (lp *LoginProtection) Allow(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// HasFailures reports whether ip has failed attempts on record.
func (lp *LoginProtection) HasFailures(ip string) bool {
	lp.attemptsMu.RLock()
	defer lp.attemptsMu.RUnlock()
	_, exists := lp.failedAttempts[ip]
	return exists
}

// IsLocked reports whether ip is locked out and for how long.
func (lp *LoginProtection) IsLocked(ip string) (bool, time.Duration) {
	lp.attemptsMu.RLock()
	attempt, exists := lp.failedAttempts[ip]
	lp.attemptsMu.RUnlock()

	if exists && lp.now().Before(attempt.lockedUntil) {
		return true, attempt.lockedUntil.Sub(lp.now())
	}
	return false, 0
}

// RecordFailure records a failed attempt and reports whether ip is now
// locked.
func (lp *LoginProtection) RecordFailure(ip string) (bool, time.Duration) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	now := lp.now()
	attempt, exists := lp.failedAttempts[ip]
	if !exists || now.Sub(attempt.firstFailed) > lp.attemptWindow {
		if !exists {
			attempt = &loginAttempt{}
			lp.failedAttempts[ip] = attempt
		}
		attempt.count = 1
		attempt.firstFailed = now
	} else {
		attempt.count++
	}

	if attempt.count < lp.maxFailedAttempts {
		return false, 0
	}

	// Exponential backoff capped at 24 hours
	lockDuration := lp.lockoutDuration
	for i := 0; i < attempt.lockouts && lockDuration < 24*time.Hour; i++ {
		lockDuration *= 2
	}
	lockDuration = min(lockDuration, 24*time.Hour)

	attempt.lockedUntil = now.Add(lockDuration)
	attempt.lockouts++
	attempt.count = 0

	slog.Warn("admin sign-in locked due to failed attempts", "ip", ip, "lockouts", attempt.lockouts, "duration", lockDuration)
	return true, lockDuration
}

// RecordSuccess clears the failures of ip.
func (lp *LoginProtection) RecordSuccess(ip string) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()
	delete(lp.failedAttempts, ip)
}

func (lp *LoginProtection) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-lp.done:
			return
		case <-ticker.C:
			lp.cleanupStaleEntries()
		}
	}
}

func (lp *LoginProtection) cleanupStaleEntries() {
	now := lp.now()

	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared sign-in rate limiters due to size")
	}

	lp.attemptsMu.Lock()
	for ip, attempt := range lp.failedAttempts {
		if now.After(attempt.lockedUntil) && now.Sub(attempt.firstFailed) > lp.attemptWindow {
			delete(lp.failedAttempts, ip)
		}
	}
	lp.attemptsMu.Unlock()
}

// getClientIP extracts the client IP from the request. Proxy headers are
// trusted; run behind a proxy that sets them.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
