/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGStore is a shared template library in Postgres.
type PGStore struct {
	db    *sql.DB
	quota int64
	log   *slog.Logger
}

var _ storage.TemplateStore = (*PGStore)(nil)

// OpenPG connects to dsn, pings it and applies the embedded migrations.
// quota caps the summed body size; zero disables it.
func OpenPG(ctx context.Context, dsn string, quota int64) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGStore{db: db, quota: quota, log: applog.WithComponent("backend")}, nil
}

// Close releases the pool.
func (s *PGStore) Close() error { return s.db.Close() }

// Ping checks connectivity; the server uses it for /readyz.
func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) Put(ctx context.Context, t domain.Template) error {
	t, err := storage.PrepareTemplate(t)
	if err != nil {
		return err
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if s.quota > 0 {
		// serialize quota checks across writers
		if _, err := tx.ExecContext(ctx, `LOCK TABLE templates IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("lock templates: %w", err)
		}
		var others int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM templates WHERE name <> $1`, t.Name).Scan(&others); err != nil {
			return fmt.Errorf("sum template sizes: %w", err)
		}
		if need := others + int64(len(body)); need > s.quota {
			return fmt.Errorf("%w: %d of %d bytes", storage.ErrQuotaExceeded, need, s.quota)
		}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO templates(name, id, theme, body, elements, size, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT(name) DO UPDATE SET id=EXCLUDED.id, theme=EXCLUDED.theme, body=EXCLUDED.body,
			elements=EXCLUDED.elements, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at`,
		t.Name, t.ID, t.ThemeID, string(body), len(t.Elements), len(body), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("template stored", slog.String("name", t.Name))
	return nil
}

func (s *PGStore) Get(ctx context.Context, name string) (domain.Template, error) {
	n, err := storage.NormalizeName(name)
	if err != nil {
		return domain.Template{}, err
	}
	var body []byte
	err = s.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE name = $1`, n).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Template{}, fmt.Errorf("%w: %q", storage.ErrTemplateNotFound, n)
	case err != nil:
		return domain.Template{}, fmt.Errorf("query template: %w", err)
	}
	var t domain.Template
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.Template{}, fmt.Errorf("decode template %q: %w", n, err)
	}
	return t, nil
}

func (s *PGStore) List(ctx context.Context) ([]storage.TemplateInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, id, theme, elements, size, updated_at FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	var out []storage.TemplateInfo
	for rows.Next() {
		var ti storage.TemplateInfo
		if err := rows.Scan(&ti.Name, &ti.ID, &ti.ThemeID, &ti.Elements, &ti.Size, &ti.UpdatedAt); err != nil {
			return nil, err
		}
		ti.UpdatedAt = ti.UpdatedAt.UTC()
		out = append(out, ti)
	}
	return out, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, name string) error {
	n, err := storage.NormalizeName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = $1`, n)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return fmt.Errorf("%w: %q", storage.ErrTemplateNotFound, n)
	}
	return nil
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
