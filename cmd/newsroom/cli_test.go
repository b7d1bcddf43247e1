// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsroom/internal/auth"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/testutil"
)

func TestPrintPasswordHash(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPasswordHash(&buf, "correct horse"))

	hash := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"), "hash = %q", hash)

	ok, err := auth.CheckPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateAPIKey(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	var buf bytes.Buffer
	require.NoError(t, createAPIKey(context.Background(), db, "  ingest  ", &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"ingest"`)

	key, err := store.New(db).GetAPIKeyByHash(context.Background(), model.HashAPIKey(lines[1]))
	require.NoError(t, err)
	assert.Equal(t, "ingest", key.Name)
	for _, p := range model.AllPermissions() {
		assert.True(t, key.HasPermission(p), "missing %s", p)
	}

	assert.Error(t, createAPIKey(context.Background(), db, " ", &buf))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}
