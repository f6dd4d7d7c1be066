/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"cardcraft/internal/config"
	"cardcraft/internal/storage"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	t.Setenv(config.EnvConfigDir, t.TempDir())
	t.Setenv(config.EnvDataDir, t.TempDir())
	keyring.MockInit()
	cfg := config.Defaults()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "templates.sqlite")
	return cfg
}

func runOK(t *testing.T, cfg config.AppConfig, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if code := run(args, cfg, &out); code != 0 {
		t.Fatalf("%v: exit %d\n%s", args, code, out.String())
	}
	return out.String()
}

func elementIDs(t *testing.T, dir string) []string {
	t.Helper()
	h, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ids := make([]string, len(h.Document.Elements))
	for i, e := range h.Document.Elements {
		ids[i] = e.ID
	}
	return ids
}

func TestRun_VersionAndUsage(t *testing.T) {
	cfg := testConfig(t)
	if out := runOK(t, cfg, "version"); !strings.HasPrefix(out, "cardcraft ") {
		t.Fatalf("unexpected version output %q", out)
	}
	var out bytes.Buffer
	if code := run([]string{"frobnicate"}, cfg, &out); code != 2 {
		t.Fatalf("unknown command should exit 2, got %d", code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("usage missing: %s", out.String())
	}
	out.Reset()
	if code := run([]string{"move", "x"}, cfg, &out); code != 2 {
		t.Fatalf("missing args should exit 2, got %d", code)
	}
}

func TestRun_EditAndSnap(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "card")

	runOK(t, cfg, "init", dir, "mint")
	runOK(t, cfg, "add", dir, "title", "Hello")
	runOK(t, cfg, "add", dir, "body", "Some words")
	ids := elementIDs(t, dir)
	if len(ids) != 2 {
		t.Fatalf("expected 2 elements, got %v", ids)
	}

	out := runOK(t, cfg, "move", dir, ids[1], "63", "600")
	if !strings.Contains(out, "vertical guide at x=60") || !strings.Contains(out, "to (60, 600), snapped") {
		t.Fatalf("unexpected move output:\n%s", out)
	}
	show := runOK(t, cfg, "show", dir)
	if !strings.Contains(show, "Theme: mint") || !strings.Contains(show, "Some words") {
		t.Fatalf("unexpected show output:\n%s", show)
	}

	runOK(t, cfg, "theme", dir, "sunset")
	if got := strings.TrimSpace(runOK(t, cfg, "theme", dir)); got != "sunset" {
		t.Fatalf("theme not persisted: %q", got)
	}
	var bad bytes.Buffer
	if code := run([]string{"theme", dir, "nope"}, cfg, &bad); code != 1 {
		t.Fatalf("unknown theme should fail, got %d", code)
	}

	runOK(t, cfg, "rm", dir, ids[0])
	if got := elementIDs(t, dir); len(got) != 1 || got[0] != ids[1] {
		t.Fatalf("rm failed: %v", got)
	}
}

func TestRun_ExportAndThemes(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "card")
	runOK(t, cfg, "init", dir)
	runOK(t, cfg, "add", dir, "tag", "SALE")

	runOK(t, cfg, "export", dir, "svg")
	if _, err := os.Stat(filepath.Join(dir, storage.ExportsDirName, "card.svg")); err != nil {
		t.Fatalf("svg not written: %v", err)
	}
	out := runOK(t, cfg, "export", dir, "web")
	if strings.Count(out, "Wrote") != 2 {
		t.Fatalf("web preset should write two files:\n%s", out)
	}
	var bad bytes.Buffer
	if code := run([]string{"export", dir, "gif"}, cfg, &bad); code != 2 {
		t.Fatalf("unknown format should exit 2, got %d", code)
	}

	themes := runOK(t, cfg, "themes")
	for _, id := range []string{"classic", "midnight", "sunset", "mint"} {
		if !strings.Contains(themes, id) {
			t.Fatalf("themes missing %s:\n%s", id, themes)
		}
	}
}

func TestRun_Templates(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "src")
	dst := filepath.Join(t.TempDir(), "dst")
	runOK(t, cfg, "init", src, "midnight")
	runOK(t, cfg, "add", src, "title", "Promo")
	runOK(t, cfg, "init", dst)

	runOK(t, cfg, "template", "save", src, "promo")
	if list := runOK(t, cfg, "template", "list"); !strings.Contains(list, "promo") || !strings.Contains(list, "midnight") {
		t.Fatalf("unexpected list:\n%s", list)
	}
	st, err := storage.OpenSQLite(context.Background(), cfg.Storage.SQLitePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	thumb, err := st.Thumbnail(context.Background(), "promo")
	_ = st.Close()
	if err != nil || !bytes.HasPrefix(thumb, []byte("\x89PNG")) {
		t.Fatalf("expected a png thumbnail, err=%v", err)
	}

	runOK(t, cfg, "template", "load", dst, "promo")
	h, err := storage.Open(dst)
	if err != nil {
		t.Fatalf("open dst: %v", err)
	}
	if h.Document.ThemeID != "midnight" || len(h.Document.Elements) != 1 || h.Document.Elements[0].Text != "Promo" {
		t.Fatalf("template not applied: %+v", h.Document)
	}
	runOK(t, cfg, "template", "rm", "promo")
	var out bytes.Buffer
	if code := run([]string{"template", "load", dst, "promo"}, cfg, &out); code != 1 {
		t.Fatalf("loading a deleted template should fail, got %d", code)
	}
}
