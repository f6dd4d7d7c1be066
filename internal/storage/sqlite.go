/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	TemplatesFileName = "templates.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump it together with a
	// new step in runMigrations.
	schemaVersion = 2

	// DefaultQuotaBytes caps the summed size of stored template bodies and thumbnails.
	DefaultQuotaBytes int64 = 64 << 20
)

// SQLiteStore keeps templates in a single-file SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	quota int64
	log   *slog.Logger
}

var _ TemplateStore = (*SQLiteStore)(nil)

// SQLiteOption customizes OpenSQLite.
type SQLiteOption func(*SQLiteStore)

// WithQuota sets the byte quota; zero or negative disables it.
func WithQuota(n int64) SQLiteOption { return func(s *SQLiteStore) { s.quota = n } }

// DefaultSQLitePath returns the template database path under dataDir.
func DefaultSQLitePath(dataDir string) string { return filepath.Join(dataDir, TemplatesFileName) }

// OpenSQLite opens (creating if needed) the template database at path,
// enables WAL mode and brings the schema up to date.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "templates_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	s := &SQLiteStore{db: db, path: path, quota: DefaultQuotaBytes, log: applog.WithComponent("storage")}
	for _, o := range opts {
		o(s)
	}
	l.Info("template store ready")
	return s, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database: migrations create everything from step 1
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 0, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

var migrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS templates (
			name       TEXT PRIMARY KEY,
			id         TEXT NOT NULL,
			theme      TEXT NOT NULL,
			body       TEXT NOT NULL,
			elements   INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
	},
	2: {
		`ALTER TABLE templates ADD COLUMN size INTEGER NOT NULL DEFAULT 0;`,
		`ALTER TABLE templates ADD COLUMN thumb BLOB;`,
		`UPDATE templates SET size = length(body);`,
		`CREATE INDEX IF NOT EXISTS idx_templates_updated ON templates(updated_at);`,
	},
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	// newer databases are left alone
	for next := cur + 1; next <= schemaVersion; next++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// Put stores t under its name, replacing any existing entry. The write is
// refused with ErrQuotaExceeded when it would push the store over quota.
func (s *SQLiteStore) Put(ctx context.Context, t domain.Template) error {
	t, err := PrepareTemplate(t)
	if err != nil {
		return err
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.quota > 0 {
		var others int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size + COALESCE(length(thumb),0)),0) FROM templates WHERE name <> ?`, t.Name).Scan(&others); err != nil {
			return fmt.Errorf("sum template sizes: %w", err)
		}
		thumb, err := thumbSize(ctx, tx, t.Name)
		if err != nil {
			return err
		}
		if need := others + thumb + int64(len(body)); need > s.quota {
			s.log.Warn("template quota exceeded", slog.String("name", t.Name), slog.Int64("need", need), slog.Int64("quota", s.quota))
			return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, need, s.quota)
		}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO templates(name, id, theme, body, elements, size, updated_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET id=excluded.id, theme=excluded.theme, body=excluded.body,
			elements=excluded.elements, size=excluded.size, updated_at=excluded.updated_at`,
		t.Name, t.ID, t.ThemeID, string(body), len(t.Elements), len(body), t.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put: %w", err)
	}
	s.log.Debug("template stored", slog.String("name", t.Name), slog.Int("bytes", len(body)))
	return nil
}

// Get returns the template stored under name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (domain.Template, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return domain.Template{}, err
	}
	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE name = ?`, n).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, n)
	}
	if err != nil {
		return domain.Template{}, fmt.Errorf("query template: %w", err)
	}
	var t domain.Template
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return domain.Template{}, fmt.Errorf("decode template %q: %w", n, err)
	}
	return t, nil
}

// List returns all templates ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]TemplateInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, id, theme, elements, size + COALESCE(length(thumb),0), updated_at FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	var out []TemplateInfo
	for rows.Next() {
		var (
			ti      TemplateInfo
			updated string
		)
		if err := rows.Scan(&ti.Name, &ti.ID, &ti.ThemeID, &ti.Elements, &ti.Size, &updated); err != nil {
			return nil, err
		}
		ti.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, ti)
	}
	return out, rows.Err()
}

// Delete removes the template stored under name.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	n, err := NormalizeName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, n)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return fmt.Errorf("%w: %q", ErrTemplateNotFound, n)
	}
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// thumbSize is the stored thumbnail length for name, 0 when the template is new.
func thumbSize(ctx context.Context, q rowQuerier, name string) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(length(thumb),0) FROM templates WHERE name = ?`, name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query thumbnail size: %w", err)
	}
	return n, nil
}

// PutThumbnail attaches a PNG preview to an existing template. Thumbnails
// count toward the quota.
func (s *SQLiteStore) PutThumbnail(ctx context.Context, name string, png []byte) error {
	n, err := NormalizeName(name)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	var own int64
	err = tx.QueryRowContext(ctx, `SELECT size FROM templates WHERE name = ?`, n).Scan(&own)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrTemplateNotFound, n)
	}
	if err != nil {
		return fmt.Errorf("query template: %w", err)
	}
	if s.quota > 0 {
		var others int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size + COALESCE(length(thumb),0)),0) FROM templates WHERE name <> ?`, n).Scan(&others); err != nil {
			return err
		}
		if need := others + own + int64(len(png)); need > s.quota {
			return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, need, s.quota)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE templates SET thumb = ? WHERE name = ?`, png, n); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}
	return tx.Commit()
}

// Thumbnail returns the PNG preview of a template, or nil when none is stored.
func (s *SQLiteStore) Thumbnail(ctx context.Context, name string) ([]byte, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	var blob []byte
	err = s.db.QueryRowContext(ctx, `SELECT thumb FROM templates WHERE name = ?`, n).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, n)
	}
	return blob, err
}

// UsedBytes returns the bytes counted against the quota.
func (s *SQLiteStore) UsedBytes(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size + COALESCE(length(thumb),0)),0) FROM templates`).Scan(&total)
	return total, err
}

// SetMeta stores a free-form key/value pair in the meta table.
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// Meta reads a meta value; ok is false when the key is absent.
func (s *SQLiteStore) Meta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return value, err == nil, err
}
