/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosave of the
// open card so the session can be recovered on the next launch.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "cardcraft/internal/log"
	"cardcraft/internal/storage"
	"cardcraft/internal/version"
)

// exitFn is swapped in tests so Recover does not end the process.
var exitFn = os.Exit

// ExitCode is the process status used after a recovered panic.
const ExitCode = 2

// Recover must be deferred directly:
//
//	defer crash.Recover(h)
//
// h may be nil when no workspace is open.
func Recover(h *storage.Handle) {
	r := recover()
	if r == nil {
		return
	}
	handle(h, r, debug.Stack())
	exitFn(ExitCode)
}

// RecoverWith is Recover for a handle that is opened after the defer
// statement runs; get is called only when a panic is being handled.
//
//	defer crash.RecoverWith(func() *storage.Handle { return h })
func RecoverWith(get func() *storage.Handle) {
	r := recover()
	if r == nil {
		return
	}
	var h *storage.Handle
	if get != nil {
		h = get()
	}
	handle(h, r, debug.Stack())
	exitFn(ExitCode)
}

// Go runs fn on a new goroutine with the same panic handling as Recover.
func Go(h *storage.Handle, fn func()) {
	go func() {
		defer Recover(h)
		fn()
	}()
}

func handle(h *storage.Handle, r any, stack []byte) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	var snapshot string
	if h != nil {
		path, err := storage.AutosaveCrashSnapshot(h)
		if err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			snapshot = path
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	reportPath, err := writeReport(h, r, stack, snapshot)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err), slog.String("path", reportPath))
	}
	if _, err := fmt.Fprintf(os.Stderr, "CardCraft stopped unexpectedly. Crash report: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if snapshot != "" {
		_, _ = fmt.Fprintf(os.Stderr, "Unsaved changes were kept in: %s\n", snapshot)
	}
}

// writeReport writes crash-<stamp>.log into the workspace backups dir, or the
// system temp dir without a workspace.
func writeReport(h *storage.Handle, panicVal any, stack []byte, snapshot string) (string, error) {
	dir := os.TempDir()
	if h != nil && h.Root != "" {
		dir = h.BackupsDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			dir = os.TempDir()
		}
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405.000")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "CardCraft Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h != nil {
		fmt.Fprintf(&buf, "Workspace: %s\n", h.Root)
		fmt.Fprintf(&buf, "Manifest: %s\n", h.ManifestPath)
		fmt.Fprintf(&buf, "Theme: %s\n", h.Document.ThemeID)
		fmt.Fprintf(&buf, "Elements: %d\n", len(h.Document.Elements))
	}
	if snapshot != "" {
		fmt.Fprintf(&buf, "Autosave: %s\n", snapshot)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	return path, f.Sync()
}
