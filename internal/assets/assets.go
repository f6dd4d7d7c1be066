/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets imports user images into a card workspace and decodes them
// for the exporters.
package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	applog "cardcraft/internal/log"
)

// Dir is the workspace-relative directory holding imported images.
const Dir = "assets"

// MaxBytes bounds a single upload.
const MaxBytes = 20 << 20

var ErrUnsupportedImage = errors.New("unsupported image")

// Info describes an imported image.
type Info struct {
	// Ref is the workspace-relative path stored in Element.ImageRef.
	Ref    string
	Format string
	Width  int
	Height int
}

// Import copies src into <root>/assets/ under a content-addressed name after
// checking that it decodes as png, jpeg, gif or webp. Nothing is written when
// the image is rejected.
func Import(root, src string) (Info, error) {
	f, err := os.Open(src)
	if err != nil {
		return Info{}, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ImportReader(root, filepath.Base(src), f)
}

// ImportReader is Import for an in-memory upload; name only supplies a hint
// for logging.
func ImportReader(root, name string, r io.Reader) (Info, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "import").With(slog.String("name", name))
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return Info{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxBytes {
		return Info{}, fmt.Errorf("%w: larger than %d bytes", ErrUnsupportedImage, MaxBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		l.Warn("decode failed", slog.Any("err", err))
		return Info{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	sum := sha256.Sum256(data)
	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	rel := filepath.ToSlash(filepath.Join(Dir, hex.EncodeToString(sum[:8])+"."+ext))
	dst := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Info{}, fmt.Errorf("ensure assets dir: %w", err)
	}
	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		tmp := dst + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return Info{}, fmt.Errorf("write asset: %w", err)
		}
		if err := os.Rename(tmp, dst); err != nil {
			_ = os.Remove(tmp)
			return Info{}, fmt.Errorf("commit asset: %w", err)
		}
	}
	l.Info("image imported", slog.String("ref", rel), slog.String("format", format),
		slog.Int("w", cfg.Width), slog.Int("h", cfg.Height))
	return Info{Ref: rel, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Resolve maps an ImageRef to a file path under root. References that would
// leave the workspace are rejected.
func Resolve(root, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrUnsupportedImage)
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: reference %q outside workspace", ErrUnsupportedImage, ref)
	}
	return filepath.Join(root, clean), nil
}

// Decode loads the referenced image.
func Decode(root, ref string) (image.Image, error) {
	path, err := Resolve(root, ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

// DataURI returns the referenced file as a base64 data URI for self-contained
// SVG output.
func DataURI(root, ref string) (string, error) {
	path, err := Resolve(root, ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
