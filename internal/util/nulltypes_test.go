// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"testing"
	"time"
)

func TestNullInt64FromPtr(t *testing.T) {
	v := int64(42)
	if got := NullInt64FromPtr(&v); !got.Valid || got.Int64 != 42 {
		t.Errorf("NullInt64FromPtr(&42) = %+v", got)
	}
	if got := NullInt64FromPtr(nil); got.Valid {
		t.Errorf("NullInt64FromPtr(nil) = %+v", got)
	}
}

func TestParseNullInt64Positive(t *testing.T) {
	tests := []struct {
		input string
		want  sql.NullInt64
	}{
		{"", sql.NullInt64{}},
		{"0", sql.NullInt64{}},
		{"-5", sql.NullInt64{}},
		{"abc", sql.NullInt64{}},
		{"7", sql.NullInt64{Int64: 7, Valid: true}},
	}
	for _, tt := range tests {
		if got := ParseNullInt64Positive(tt.input); got != tt.want {
			t.Errorf("ParseNullInt64Positive(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	in := time.Date(2026, 1, 2, 3, 4, 5, 0, loc)

	nt := NullTimeFromPtr(&in)
	if !nt.Valid || nt.Time.Location() != time.UTC || !nt.Time.Equal(in) {
		t.Errorf("NullTimeFromPtr = %+v", nt)
	}
	if p := TimePtr(nt); p == nil || !p.Equal(in) {
		t.Errorf("TimePtr = %v", p)
	}
	if NullTimeFromPtr(nil).Valid || NullTimeFromPtr(&time.Time{}).Valid {
		t.Error("nil and zero times should be invalid")
	}
	if TimePtr(sql.NullTime{}) != nil {
		t.Error("TimePtr(invalid) should be nil")
	}
}
