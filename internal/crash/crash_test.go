/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardcraft/internal/domain"
	"cardcraft/internal/storage"
)

func TestWriteReportWithoutWorkspace(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"), "")
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected report in temp dir, got %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "CardCraft Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "Workspace:") {
		t.Fatalf("unexpected workspace line: %s", s)
	}
}

func TestWriteReportInWorkspaceBackups(t *testing.T) {
	root := t.TempDir()
	h := &storage.Handle{
		Root:         root,
		ManifestPath: filepath.Join(root, storage.ManifestFileName),
		Document:     domain.Document{ThemeID: "mint", Elements: []domain.Element{{ID: "a", Kind: domain.KindTitle}}},
	}
	path, err := writeReport(h, "kaboom", []byte("stack"), "/tmp/x.autosave")
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, storage.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"Theme: mint", "Elements: 1", "Autosave: /tmp/x.autosave"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("report missing %q:\n%s", want, b)
		}
	}
}
