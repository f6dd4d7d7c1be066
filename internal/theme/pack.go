/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package theme

import (
	"archive/zip"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	applog "cardcraft/internal/log"
)

//go:embed theme.schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// ErrInvalidPack marks a theme file that does not satisfy the pack schema.
var ErrInvalidPack = errors.New("invalid theme pack")

const manifestName = "themepack.manifest.txt"

// Parse decodes a YAML or JSON theme document and validates it.
func Parse(data []byte) (Theme, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Theme{}, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return Theme{}, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Theme{}, fmt.Errorf("%w: %s", ErrInvalidPack, strings.Join(msgs, "; "))
	}
	// re-encode the validated map so YAML and JSON share one decoding path
	b, err := json.Marshal(raw)
	if err != nil {
		return Theme{}, err
	}
	var t Theme
	if err := json.Unmarshal(b, &t); err != nil {
		return Theme{}, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}
	return t, nil
}

// LoadDir loads every *.yaml, *.yml and *.json file in dir into the catalog.
// Invalid files are skipped and reported together; a missing dir is not an error.
func (c *Catalog) LoadDir(dir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("theme"), "load").With(slog.String("dir", dir))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read theme dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var errs []error
	loaded := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		t, err := Parse(data)
		if err == nil {
			err = c.Add(t)
		}
		if err != nil {
			l.Warn("skip theme file", slog.String("file", name), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		loaded++
	}
	l.Debug("themes loaded", slog.Int("count", loaded))
	return loaded, errors.Join(errs...)
}

// WriteFile stores t as YAML in dir/<id>.yaml.
func WriteFile(dir string, t Theme) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure theme dir: %w", err)
	}
	b, err := yaml.Marshal(t)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, t.ID+".yaml")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write theme: %w", err)
	}
	return path, nil
}

// ExportPack zips the theme files found in themesDir into destZip with a
// small manifest at the root.
func ExportPack(themesDir, destZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("theme"), "export").With(slog.String("dir", themesDir))
	if strings.TrimSpace(themesDir) == "" || strings.TrimSpace(destZip) == "" {
		return 0, errors.New("themes dir and destination are required")
	}
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("CardCraft Theme Pack\nCreated: %s\n", time.Now().Format(time.RFC3339))
	w, err := zw.Create(manifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := io.WriteString(w, manifest); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}

	entries, err := os.ReadDir(themesDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read theme dir: %w", err)
	}
	added := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml" && ext != ".json") {
			continue
		}
		if err := addFile(zw, filepath.Join(themesDir, e.Name()), e.Name()); err != nil {
			l.Error("zip build failed", slog.Any("err", err))
			return added, fmt.Errorf("build zip: %w", err)
		}
		added++
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finalize zip: %w", err)
	}
	l.Info("theme pack exported", slog.Int("files", added), slog.String("zip", destZip))
	return added, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fw, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

// InstallPack extracts validated theme files from packZip into themesDir.
// Existing files are kept; invalid files and nested paths are skipped.
// Returns the number of files installed.
func InstallPack(themesDir, packZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("theme"), "install").With(slog.String("dir", themesDir))
	if err := os.MkdirAll(themesDir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure theme dir: %w", err)
	}
	r, err := zip.OpenReader(packZip)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		name := f.Name
		if name == manifestName || f.FileInfo().IsDir() {
			continue
		}
		if strings.ContainsAny(name, `/\`) || name == ".." {
			l.Warn("skip nested entry", slog.String("name", name))
			continue
		}
		target := filepath.Join(themesDir, name)
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return installed, err
		}
		if _, err := Parse(data); err != nil {
			l.Warn("skip invalid theme", slog.String("name", name), slog.Any("err", err))
			continue
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("theme pack installed", slog.Int("files", installed))
	return installed, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, 1<<20))
}
