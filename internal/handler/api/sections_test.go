// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/olegiv/newsroom/internal/model"
)

func TestSectionsCRUD(t *testing.T) {
	env := newTestEnv(t)
	key := env.createKey(t, model.PermissionSectionsWrite)

	w := env.do(t, http.MethodPost, "/sections", `{"name": "World", "description": "Global news"}`, key)
	assertStatusCode(t, w, http.StatusCreated)
	world := unmarshalData[model.Section](t, w)
	if world.Slug != "world" || !world.IsActive {
		t.Errorf("unexpected section %+v", world)
	}

	body := fmt.Sprintf(`{"name": "Europe", "parent_id": %d, "sort_order": 2}`, world.ID)
	w = env.do(t, http.MethodPost, "/sections", body, key)
	assertStatusCode(t, w, http.StatusCreated)
	europe := unmarshalData[model.Section](t, w)
	if !europe.ParentID.Valid || europe.ParentID.Int64 != world.ID {
		t.Errorf("expected parent %d, got %+v", world.ID, europe.ParentID)
	}

	w = env.do(t, http.MethodGet, "/sections?tree=1", "", "")
	assertStatusCode(t, w, http.StatusOK)
	tree := unmarshalData[[]model.Section](t, w)
	if len(tree) != 1 || len(tree[0].Children) != 1 || tree[0].Children[0].Slug != "europe" {
		t.Errorf("unexpected tree %+v", tree)
	}

	w = env.do(t, http.MethodGet, "/sections", "", "")
	if flat := unmarshalData[[]model.Section](t, w); len(flat) != 2 {
		t.Errorf("expected 2 sections, got %d", len(flat))
	}

	path := fmt.Sprintf("/sections/%d", europe.ID)
	w = env.do(t, http.MethodPut, path, `{"description": "EU and beyond", "parent_id": 0}`, key)
	assertStatusCode(t, w, http.StatusOK)
	updated := unmarshalData[model.Section](t, w)
	if updated.Name != "Europe" || updated.Description != "EU and beyond" || updated.ParentID.Valid {
		t.Errorf("unexpected update result %+v", updated)
	}
	if updated.SortOrder != 2 {
		t.Errorf("sort order should be kept, got %d", updated.SortOrder)
	}

	assertStatusCode(t, env.do(t, http.MethodDelete, path, "", key), http.StatusNoContent)
	assertStatusCode(t, env.do(t, http.MethodGet, path, "", ""), http.StatusNotFound)
}

func TestSections_ValidationAndPermissions(t *testing.T) {
	env := newTestEnv(t)
	key := env.createKey(t, model.PermissionSectionsWrite)

	w := env.do(t, http.MethodPost, "/sections", `{"description": "nameless"}`, key)
	assertStatusCode(t, w, http.StatusUnprocessableEntity)
	resp := assertErrorResponse(t, w, "validation_error")
	if _, ok := resp.Error.Details["name"]; !ok {
		t.Errorf("expected name detail, got %v", resp.Error.Details)
	}

	w = env.do(t, http.MethodPost, "/sections", `{"name": "Orphan", "parent_id": 404}`, key)
	assertStatusCode(t, w, http.StatusUnprocessableEntity)

	articlesOnly := env.createKey(t, model.PermissionArticlesWrite)
	w = env.do(t, http.MethodPost, "/sections", `{"name": "Sport"}`, articlesOnly)
	assertStatusCode(t, w, http.StatusForbidden)

	assertStatusCode(t, env.do(t, http.MethodDelete, "/sections/77", "", key), http.StatusNotFound)
}
