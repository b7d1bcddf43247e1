// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsroom/internal/security"
)

var testSchema = Schema{
	"count":  {Type: TypeInteger, Default: int64(5)},
	"layout": {Type: TypeString, Default: "list", Enum: []string{"list", "grid"}},
	"scroll": {Type: TypeBoolean, Default: true},
	"query":  {Type: TypeObject},
	"roles":  {Type: TypeArray},
}

func TestSchema_NormalizeDefaults(t *testing.T) {
	got, err := testSchema.Normalize(map[string]any{"unknown": "dropped"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": int64(5), "layout": "list", "scroll": true}, got)
}

func TestSchema_NormalizeCoercion(t *testing.T) {
	got, err := testSchema.Normalize(map[string]any{
		"count":  float64(3), // JSON numbers decode as float64
		"layout": "grid",
		"scroll": "false",
		"query":  map[string]any{"section": "world"},
		"roles":  []string{"hero", "list"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got["count"])
	assert.Equal(t, "grid", got["layout"])
	assert.Equal(t, false, got["scroll"])
	assert.Equal(t, []string{"hero", "list"}, Strings(got, "roles"))

	got, err = testSchema.Normalize(map[string]any{"count": "7"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), Int(got, "count"))
}

func TestSchema_NormalizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]any
		field string
	}{
		{"fractional integer", map[string]any{"count": 2.5}, "count"},
		{"string for integer", map[string]any{"count": "many"}, "count"},
		{"enum", map[string]any{"layout": "carousel"}, "layout"},
		{"bool", map[string]any{"scroll": "sometimes"}, "scroll"},
		{"object", map[string]any{"query": "section=world"}, "query"},
		{"array", map[string]any{"roles": "hero"}, "roles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testSchema.Normalize(tt.attrs)
			ve, ok := security.AsValidationError(err)
			require.True(t, ok, "expected ValidationError, got %v", err)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestSchema_CheckRejectsUnknownType(t *testing.T) {
	assert.Error(t, Schema{"x": {Type: "float"}}.check())
	assert.NoError(t, testSchema.check())
}
