// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"context"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoBlock(name string) Block {
	return Block{
		Name:   name,
		Title:  "Echo",
		Schema: Schema{"text": {Type: TypeString, Default: "hi"}},
		Render: func(_ context.Context, rc RenderContext) (template.HTML, error) {
			return template.HTML(template.HTMLEscapeString(String(rc.Attrs, "text"))), nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(testLogger())

	require.NoError(t, r.Register(echoBlock("test/echo")))
	assert.Error(t, r.Register(echoBlock("test/echo")), "duplicate")
	assert.Error(t, r.Register(echoBlock("echo")), "missing namespace")
	assert.Error(t, r.Register(echoBlock("Test/Echo")), "uppercase")
	assert.Error(t, r.Register(Block{Name: "test/none"}), "no renderer")

	require.NoError(t, r.Register(echoBlock("test/another")))
	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "test/another", list[0].Name)
}

func TestRegistry_Render(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(echoBlock("test/echo")))
	require.NoError(t, r.Register(Block{
		Name:   "test/broken",
		Schema: Schema{},
		Render: func(context.Context, RenderContext) (template.HTML, error) {
			return "partial", errors.New("boom")
		},
	}))
	ctx := context.Background()

	out, err := r.Render(ctx, "test/echo", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, template.HTML("hi"), out)

	out, err = r.Render(ctx, "test/echo", map[string]any{"text": "<b>"}, 0)
	require.NoError(t, err)
	assert.Equal(t, template.HTML("&lt;b&gt;"), out)

	_, err = r.Render(ctx, "test/echo", map[string]any{"text": 1}, 0)
	assert.Error(t, err)

	_, err = r.Render(ctx, "test/missing", nil, 0)
	var unknown *ErrUnknownBlock
	assert.ErrorAs(t, err, &unknown)

	out, err = r.Render(ctx, "test/broken", nil, 0)
	require.NoError(t, err, "renderer errors degrade to empty output")
	assert.Empty(t, out)
}
