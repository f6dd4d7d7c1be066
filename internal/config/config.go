/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cardcraft/internal/domain"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	Theme string `yaml:"theme"` // default theme for new cards
}

type EditorConfig struct {
	SnapTolerance float64 `yaml:"snap_tolerance"` // 0 disables snapping
	CanvasWidth   float64 `yaml:"canvas_width"`
	CanvasHeight  float64 `yaml:"canvas_height"`
	ShowGuides    bool    `yaml:"show_guides"`
}

// Template store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRemote   = "remote"
)

type StorageConfig struct {
	Backend     string `yaml:"backend"` // sqlite | postgres | remote
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	QuotaBytes  int64  `yaml:"quota_bytes"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	Addr        string `yaml:"addr"` // bind address for `cardcraft serve`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "classic"},
		Editor:        EditorConfig{SnapTolerance: 10, CanvasWidth: domain.DefaultCanvas.W, CanvasHeight: domain.DefaultCanvas.H, ShowGuides: true},
		Storage:       StorageConfig{Backend: StoreSQLite, QuotaBytes: 64 << 20},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, Addr: ":8080"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir        = "CC_CONFIG_DIR"
	EnvDataDir          = "CC_DATA_DIR"
	EnvTheme            = "CC_THEME"
	EnvSnapTolerance    = "CC_SNAP_TOLERANCE"
	EnvShowGuides       = "CC_SHOW_GUIDES"
	EnvStoreBackend     = "CC_STORE"
	EnvSQLitePath       = "CC_SQLITE_PATH"
	EnvPGDSN            = "CC_PG_DSN"
	EnvQuotaBytes       = "CC_QUOTA_BYTES"
	EnvBackendURL       = "CC_BACKEND_URL"
	EnvBackendTimeoutMs = "CC_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "CC_TLS_INSECURE"
	EnvServerAddr       = "CC_ADDR"
	EnvAuthSecret       = "CC_AUTH_SECRET"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "CC_LOG_LEVEL"
	EnvLogFormat = "CC_LOG_FORMAT"
	EnvLogSource = "CC_LOG_SOURCE"
	EnvLogFile   = "CC_LOG_FILE"
)

// overrides maps dotted config keys to the env vars that shadow them.
var overrides = map[string]string{
	"general.theme":         EnvTheme,
	"editor.snap_tolerance": EnvSnapTolerance,
	"editor.show_guides":    EnvShowGuides,
	"storage.backend":       EnvStoreBackend,
	"storage.sqlite_path":   EnvSQLitePath,
	"storage.postgres_dsn":  EnvPGDSN,
	"storage.quota_bytes":   EnvQuotaBytes,
	"backend.base_url":      EnvBackendURL,
	"backend.timeout_ms":    EnvBackendTimeoutMs,
	"backend.tls_insecure":  EnvBackendTLSInsec,
	"backend.addr":          EnvServerAddr,
	"logging.level":         EnvLogLevel,
	"logging.format":        EnvLogFormat,
	"logging.source":        EnvLogSource,
	"logging.file":          EnvLogFile,
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if d := strings.TrimSpace(os.Getenv(EnvConfigDir)); d != "" {
		return filepath.Join(d, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CardCraft")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CardCraft")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "cardcraft")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "cardcraft")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir returns the per-user data directory (template database, crash reports).
func DataDir() (string, error) {
	if d := strings.TrimSpace(os.Getenv(EnvDataDir)); d != "" {
		return d, nil
	}
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("LocalAppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
		return filepath.Join(base, "CardCraft"), nil
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CardCraft"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "cardcraft"), nil
		}
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve data directory")
		}
		return filepath.Join(home, ".local", "share", "cardcraft"), nil
	}
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The backend token comes from the keychain and is
// returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	tok, _ := LoadToken()
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keychain (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return SaveToken(token)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.General.Theme); s != "" {
		dst.General.Theme = s
	}
	// editor: zero values mean "unset" except for the guides toggle
	if src.Editor.SnapTolerance != 0 {
		dst.Editor.SnapTolerance = src.Editor.SnapTolerance
	}
	if src.Editor.CanvasWidth > 0 {
		dst.Editor.CanvasWidth = src.Editor.CanvasWidth
	}
	if src.Editor.CanvasHeight > 0 {
		dst.Editor.CanvasHeight = src.Editor.CanvasHeight
	}
	dst.Editor.ShowGuides = src.Editor.ShowGuides
	if s := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); s != "" {
		dst.Storage.Backend = s
	}
	if s := strings.TrimSpace(src.Storage.SQLitePath); s != "" {
		dst.Storage.SQLitePath = s
	}
	if s := strings.TrimSpace(src.Storage.PostgresDSN); s != "" {
		dst.Storage.PostgresDSN = s
	}
	if src.Storage.QuotaBytes != 0 {
		dst.Storage.QuotaBytes = src.Storage.QuotaBytes
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	if src.Backend.Addr != "" {
		dst.Backend.Addr = src.Backend.Addr
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	get := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	if v := get(EnvTheme); v != "" {
		cfg.General.Theme = v
	}
	if v := get(EnvSnapTolerance); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.SnapTolerance = f
		}
	}
	if v := get(EnvShowGuides); v != "" {
		cfg.Editor.ShowGuides = envBool(v)
	}
	if v := get(EnvStoreBackend); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := get(EnvSQLitePath); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := get(EnvPGDSN); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := get(EnvQuotaBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Storage.QuotaBytes = n
		}
	}
	if v := get(EnvBackendURL); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := get(EnvBackendTimeoutMs); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := get(EnvBackendTLSInsec); v != "" {
		cfg.Backend.TLSInsecure = envBool(v)
	}
	if v := get(EnvServerAddr); v != "" {
		cfg.Backend.Addr = v
	}
	// logging overrides
	if v := get(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := get(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := get(EnvLogSource); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := get(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrides[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// AuthSecret returns the server signing secret. It is only read from the environment.
func AuthSecret() string { return os.Getenv(EnvAuthSecret) }

// Canvas returns the configured canvas, falling back to the default for bad values.
func (e EditorConfig) Canvas() domain.Size {
	s := domain.Size{W: e.CanvasWidth, H: e.CanvasHeight}
	if !(s.W > 0) || !(s.H > 0) {
		return domain.DefaultCanvas
	}
	return s
}

// Timeout returns the backend HTTP timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// ResolvedSQLitePath returns the configured template database path or the default under DataDir.
func (s StorageConfig) ResolvedSQLitePath() (string, error) {
	if s.SQLitePath != "" {
		return s.SQLitePath, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "templates.sqlite"), nil
}
