/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
)

const (
	ManifestFileName = "card.json"
	BackupsDirName   = "backups"
	AssetsDirName    = "assets"
	ExportsDirName   = "exports"
	ThemesDirName    = "themes"

	// MaxBackups bounds the number of timestamped manifest backups kept.
	MaxBackups = 20
)

var standardSubDirs = []string{
	AssetsDirName,
	ExportsDirName,
	ThemesDirName,
	BackupsDirName,
}

// Handle is an open card workspace.
// Root is the directory containing card.json and the standard subfolders.
type Handle struct {
	Root         string
	ManifestPath string
	Document     domain.Document
}

func (h *Handle) AssetsDir() string  { return filepath.Join(h.Root, AssetsDirName) }
func (h *Handle) ExportsDir() string { return filepath.Join(h.Root, ExportsDirName) }
func (h *Handle) ThemesDir() string  { return filepath.Join(h.Root, ThemesDirName) }
func (h *Handle) BackupsDir() string { return filepath.Join(h.Root, BackupsDirName) }

// InitWorkspace creates root (if needed), scaffolds the standard subfolders and
// writes doc as the initial manifest.
func InitWorkspace(root string, doc domain.Document) (*Handle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	h := &Handle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Document:     doc,
	}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads the workspace at root. An unreadable, unparsable or invalid
// manifest is replaced in memory by the latest backup that loads cleanly.
func Open(root string) (*Handle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	mpath := filepath.Join(root, ManifestFileName)
	doc, err := readDocument(mpath)
	if err != nil {
		bdoc, bpath, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		l.Warn("manifest unusable, recovered from backup", slog.Any("err", err), slog.String("backup", bpath))
		doc = bdoc
	}
	return &Handle{Root: root, ManifestPath: mpath, Document: doc}, nil
}

func readDocument(path string) (domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	var d domain.Document
	if err := json.Unmarshal(b, &d); err != nil {
		return domain.Document{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := d.Validate(); err != nil {
		return domain.Document{}, fmt.Errorf("validate %s: %w", filepath.Base(path), err)
	}
	return d, nil
}

// Save writes h.Document transactionally after backing up the previous manifest.
func Save(h *Handle) error {
	if h == nil {
		return errors.New("nil Handle")
	}
	if h.Root == "" || h.ManifestPath == "" {
		return errors.New("invalid Handle: missing paths")
	}
	if err := h.Document.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid document: %w", err)
	}
	if h.Document.Elements == nil {
		h.Document.Elements = []domain.Element{}
	}
	data, err := json.MarshalIndent(h.Document, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.ManifestPath); statErr == nil {
		bpath := filepath.Join(bdir, backupName(time.Now(), "bak"))
		if cerr := copyFile(h.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
		pruneBackups(bdir, MaxBackups)
	}

	if err := replaceFile(h.ManifestPath, data); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// SaveAs scaffolds newRoot, points the handle there and saves.
func SaveAs(h *Handle, newRoot string) error {
	if h == nil {
		return errors.New("nil Handle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	h.Root = newRoot
	h.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(h)
}

// AutosaveCrashSnapshot writes the in-memory document to a timestamped
// .autosave file in backups/ without touching card.json. It returns the path.
func AutosaveCrashSnapshot(h *Handle) (string, error) {
	if h == nil {
		return "", errors.New("nil Handle")
	}
	data, err := json.MarshalIndent(h.Document, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, backupName(time.Now(), "autosave"))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// backupName embeds a sortable timestamp with sub-second precision so two
// saves within the same second keep distinct backups.
func backupName(t time.Time, ext string) string {
	return fmt.Sprintf("%s.%s.%s", ManifestFileName, t.Format("20060102-150405.000000"), ext)
}

func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	// Windows rename does not replace
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

func listBackups(bdir string) []string {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") &&
			(strings.HasSuffix(name, ".bak") || strings.HasSuffix(name, ".autosave")) {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

// pruneBackups keeps the newest keep .bak files; autosaves are left alone.
func pruneBackups(bdir string, keep int) {
	var baks []string
	for _, p := range listBackups(bdir) {
		if strings.HasSuffix(p, ".bak") {
			baks = append(baks, p)
		}
	}
	for len(baks) > keep {
		_ = os.Remove(baks[0])
		baks = baks[1:]
	}
}

// openFromLatestBackup returns the newest backup or autosave that loads cleanly.
func openFromLatestBackup(root string) (domain.Document, string, error) {
	candidates := listBackups(filepath.Join(root, BackupsDirName))
	if len(candidates) == 0 {
		return domain.Document{}, "", errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		d, err := readDocument(candidates[i])
		if err == nil {
			return d, candidates[i], nil
		}
		lastErr = err
	}
	return domain.Document{}, "", fmt.Errorf("no usable backup: %w", lastErr)
}
