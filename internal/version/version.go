// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information and platform
// version checks.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string `json:"version"`    // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string `json:"git_commit"` // Short git commit hash (e.g., "abc1234")
	BuildTime string `json:"build_time"` // Build timestamp in RFC3339 format
}

// MinSQLite is the oldest SQLite release with RETURNING support.
const MinSQLite = "3.35.0"

// Canonical turns "3.45.1" or "v1.2" into a semver string such as "v3.45.1".
// It returns "" when v is not a version.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// AtLeast reports whether have >= want. Invalid versions never satisfy.
func AtLeast(have, want string) bool {
	h, w := Canonical(have), Canonical(want)
	if h == "" || w == "" {
		return false
	}
	return semver.Compare(h, w) >= 0
}

// RequireSQLite returns an error when have is older than MinSQLite.
func RequireSQLite(have string) error {
	if !AtLeast(have, MinSQLite) {
		return fmt.Errorf("sqlite %s is older than the required %s", have, MinSQLite)
	}
	return nil
}
