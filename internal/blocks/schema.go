// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/olegiv/newsroom/internal/security"
)

// Attribute types
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Attribute describes one block attribute.
type Attribute struct {
	Type    string   `json:"type"`
	Default any      `json:"default,omitempty"`
	Enum    []string `json:"enum,omitempty"`
}

// Schema maps attribute names to their description.
type Schema map[string]Attribute

func (s Schema) check() error {
	for name, a := range s {
		switch a.Type {
		case TypeString, TypeBoolean, TypeInteger, TypeObject, TypeArray:
		default:
			return fmt.Errorf("attribute %q has unknown type %q", name, a.Type)
		}
	}
	return nil
}

// Normalize returns attrs with defaults applied and unknown keys dropped.
// Values are coerced to string, bool, int64, map[string]any or []any;
// values of the wrong type produce a validation error.
func (s Schema) Normalize(attrs map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s))
	ve := security.NewValidationError()

	for name, a := range s {
		raw, ok := attrs[name]
		if !ok || raw == nil {
			if a.Default != nil {
				out[name] = a.Default
			}
			continue
		}

		v, err := coerce(a.Type, raw)
		if err != nil {
			ve.Add(name, err.Error())
			continue
		}
		if len(a.Enum) > 0 {
			if str, _ := v.(string); !slices.Contains(a.Enum, str) {
				ve.Add(name, fmt.Sprintf("must be one of %v", a.Enum))
				continue
			}
		}
		out[name] = v
	}

	if err := ve.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func coerce(typ string, v any) (any, error) {
	switch typ {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			if p, err := strconv.ParseBool(b); err == nil {
				return p, nil
			}
		}
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n), nil
			}
		case string:
			if p, err := strconv.ParseInt(n, 10, 64); err == nil {
				return p, nil
			}
		}
	case TypeObject:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
	case TypeArray:
		switch a := v.(type) {
		case []any:
			return a, nil
		case []string:
			out := make([]any, len(a))
			for i, s := range a {
				out[i] = s
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("must be of type %s", typ)
}

// String returns attrs[name] as a string.
func String(attrs map[string]any, name string) string {
	s, _ := attrs[name].(string)
	return s
}

// Bool returns attrs[name] as a bool.
func Bool(attrs map[string]any, name string) bool {
	b, _ := attrs[name].(bool)
	return b
}

// Int returns attrs[name] as an int64.
func Int(attrs map[string]any, name string) int64 {
	switch n := attrs[name].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// Strings returns the string elements of attrs[name].
func Strings(attrs map[string]any, name string) []string {
	var out []string
	switch list := attrs[name].(type) {
	case []any:
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, list...)
	}
	return out
}
