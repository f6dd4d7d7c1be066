/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

// isolate points config and data dirs at a temp dir and uses the in-memory keyring.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvDataDir, filepath.Join(dir, "data"))
	keyring.MockInit()
	return dir
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.Editor.SnapTolerance != 10 || d.Editor.CanvasWidth != 600 || d.Editor.CanvasHeight != 800 {
		t.Fatalf("unexpected editor defaults: %#v", d.Editor)
	}
	if d.Storage.Backend != StoreSQLite || d.General.Theme != "classic" || !d.Editor.ShowGuides {
		t.Fatalf("unexpected defaults: %#v", d)
	}
}

func TestLoad_NoFileGivesDefaults(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("expected no token, got %q", tok)
	}
	if cfg.Editor.SnapTolerance != 10 {
		t.Fatalf("expected default tolerance, got %v", cfg.Editor.SnapTolerance)
	}
}

func TestSaveLoad_RoundTripWithToken(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.General.Theme = "midnight"
	cfg.Editor.SnapTolerance = 6
	cfg.Editor.ShowGuides = false
	cfg.Storage.Backend = StoreRemote
	if err := Save(cfg, "tok-123"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.General.Theme != "midnight" || got.Editor.SnapTolerance != 6 || got.Editor.ShowGuides || got.Storage.Backend != StoreRemote {
		t.Fatalf("config not round-tripped: %#v", got)
	}
	if tok != "tok-123" {
		t.Fatalf("token = %q", tok)
	}
	if err := DeleteToken(); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if err := DeleteToken(); err != nil {
		t.Fatalf("second DeleteToken should be a no-op: %v", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("editor: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Editor.SnapTolerance != 10 {
		t.Fatalf("defaults should still be returned")
	}
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
	if env, ok := EnvOverrideFor("backend.base_url"); !ok || env != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("backend.timeout_ms"); ok {
		t.Fatalf("timeout is not overridden")
	}
}

func TestEnvOverridesEditorAndStorage(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSnapTolerance, "4.5")
	t.Setenv(EnvShowGuides, "off")
	t.Setenv(EnvStoreBackend, "POSTGRES")
	t.Setenv(EnvPGDSN, "postgres://x")
	t.Setenv(EnvQuotaBytes, "1024")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.SnapTolerance != 4.5 || cfg.Editor.ShowGuides {
		t.Fatalf("editor overrides not applied: %#v", cfg.Editor)
	}
	if cfg.Storage.Backend != StorePostgres || cfg.Storage.PostgresDSN != "postgres://x" || cfg.Storage.QuotaBytes != 1024 {
		t.Fatalf("storage overrides not applied: %#v", cfg.Storage)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/cc.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/cc.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/cc.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/cc.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestCanvasFallback(t *testing.T) {
	if c := (EditorConfig{CanvasWidth: -1, CanvasHeight: 800}).Canvas(); c.W != 600 || c.H != 800 {
		t.Fatalf("expected default canvas, got %#v", c)
	}
	if c := (EditorConfig{CanvasWidth: 300, CanvasHeight: 400}).Canvas(); c.W != 300 || c.H != 400 {
		t.Fatalf("expected configured canvas, got %#v", c)
	}
}

func TestResolvedSQLitePath(t *testing.T) {
	dir := isolate(t)
	p, err := StorageConfig{}.ResolvedSQLitePath()
	if err != nil || p != filepath.Join(dir, "data", "templates.sqlite") {
		t.Fatalf("ResolvedSQLitePath = %q %v", p, err)
	}
}

type memTokens map[string]string

func (m memTokens) Get(s, k string) (string, error) {
	v, ok := m[s+"/"+k]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memTokens) Set(s, k, v string) error { m[s+"/"+k] = v; return nil }
func (m memTokens) Delete(s, k string) error { delete(m, s+"/"+k); return nil }

func TestSetTokenStore(t *testing.T) {
	mem := memTokens{}
	restore := SetTokenStore(mem)
	defer restore()
	if err := SaveToken("abc"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if mem["CardCraft/backend_token"] != "abc" {
		t.Fatalf("token not written to swapped store: %v", mem)
	}
	if tok, err := LoadToken(); err != nil || tok != "abc" {
		t.Fatalf("LoadToken = %q %v", tok, err)
	}
}
