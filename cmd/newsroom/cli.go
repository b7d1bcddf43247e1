// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/newsroom/internal/auth"
	"github.com/olegiv/newsroom/internal/config"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/store"
)

// printPasswordHash writes the Argon2id hash of password, ready to be used
// as NEWSROOM_ADMIN_PASSWORD_HASH.
func printPasswordHash(w io.Writer, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

func runCreateAPIKey(name string) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return createAPIKey(context.Background(), db, name, os.Stdout)
}

// createAPIKey stores a new key with every permission and prints the raw key.
// Only its hash is kept, so this is the one chance to copy it.
func createAPIKey(ctx context.Context, db *sql.DB, name string, w io.Writer) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("api key name is required")
	}

	raw, prefix, err := model.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("generating api key: %w", err)
	}
	now := time.Now().UTC()
	key, err := store.New(db).CreateAPIKey(ctx, store.CreateAPIKeyParams{
		Name:        name,
		KeyHash:     model.HashAPIKey(raw),
		KeyPrefix:   prefix,
		Permissions: model.PermissionsToJSON(model.AllPermissions()),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("storing api key: %w", err)
	}

	_, err = fmt.Fprintf(w, "API key %q (id %d) created with permissions %s\n%s\n",
		key.Name, key.ID, strings.Join(key.GetPermissions(), ", "), raw)
	return err
}
