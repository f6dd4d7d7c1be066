/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"cardcraft/internal/assets"
	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/scene"
	"cardcraft/internal/textlayout"
	"cardcraft/internal/theme"
	"cardcraft/internal/vector"
)

// ExportPNG rasterizes doc at the options' pixel ratio (2x by default) and
// writes the encoded PNG to w.
func ExportPNG(doc domain.Document, th theme.Theme, assetsRoot string, w io.Writer, opt Options) error {
	img, err := RenderImage(doc, th, assetsRoot, opt)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if err := png.Encode(bw, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// RenderImage rasterizes doc without guides or selection. Missing or
// undecodable images are drawn as translucent placeholders.
func RenderImage(doc domain.Document, th theme.Theme, assetsRoot string, opt Options) (image.Image, error) {
	c, err := prepare(doc, th, opt)
	if err != nil {
		return nil, err
	}
	l := applog.WithOperation(applog.WithComponent("export"), "render")
	ratio := opt.ratio()
	pw := int(math.Ceil(c.canvas.W * ratio))
	ph := int(math.Ceil(c.canvas.H * ratio))

	dc := gg.NewContext(pw, ph)
	defer func() { _ = dc.Close() }()
	dc.ClearWithColor(gg.FromColor(c.pal.Background.NRGBA()))
	dc.Scale(ratio, ratio)

	faces := map[textlayout.FontSpec]text.Face{}
	faceFor := func(spec textlayout.FontSpec) text.Face {
		if f, ok := faces[spec]; ok {
			return f
		}
		var f text.Face
		if src, err := text.NewFontSource(fontBytes(spec)); err == nil {
			f = src.Face(spec.SizePt)
		} else {
			l.Warn("font source failed", slog.String("family", spec.Family), slog.Any("err", err))
		}
		faces[spec] = f
		return f
	}

	for _, it := range c.scene.Items() {
		dc.Push()
		dc.Transform(toMatrix(it.Node.Transform()))
		w, h := it.Size.W, it.Size.H
		if it.Element.Kind == domain.KindImage {
			drawPNGImage(dc, l, assetsRoot, it)
		}
		if f := it.Node.Fill(); f.Enabled {
			shape(dc, it.Node, w, h)
			dc.SetColor(f.Color.NRGBA())
			_ = dc.Fill()
		}
		if s := it.Node.Stroke(); s.Enabled && s.Width > 0 {
			shape(dc, it.Node, w, h)
			dc.SetColor(s.Color.NRGBA())
			dc.SetLineWidth(s.Width)
			_ = dc.Stroke()
		}
		if it.Element.Kind.IsText() {
			dc.SetColor(c.textColor(it).NRGBA())
			for _, ln := range lines(it) {
				if face := faceFor(ln.Font); face != nil {
					dc.SetFont(face)
					dc.DrawString(ln.Text, ln.X, ln.Baseline)
				}
			}
		}
		dc.Pop()
	}

	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	l.Debug("card rendered", slog.Int("w", pw), slog.Int("h", ph), slog.Int("elements", len(c.scene.Items())))
	return dc.Image(), nil
}

// ExportPNGFile writes ExportPNG output to path, creating parent directories.
func ExportPNGFile(doc domain.Document, th theme.Theme, assetsRoot, path string, opt Options) error {
	return writeFile(path, func(w io.Writer) error { return ExportPNG(doc, th, assetsRoot, w, opt) })
}

func drawPNGImage(dc *gg.Context, l *slog.Logger, root string, it *scene.Item) {
	img, err := assets.Decode(root, it.Element.ImageRef)
	if err != nil {
		l.Warn("image unavailable, drawing placeholder", slog.String("id", it.Element.ID), slog.Any("err", err))
		dc.DrawRectangle(0, 0, it.Size.W, it.Size.H)
		dc.SetRGBA(0.5, 0.5, 0.5, 0.25)
		_ = dc.Fill()
		return
	}
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		DstWidth:      it.Size.W,
		DstHeight:     it.Size.H,
		Interpolation: gg.InterpBilinear,
	})
}

func shape(dc *gg.Context, n vector.Node, w, h float64) {
	if r := radius(n); r > 0 {
		dc.DrawRoundedRectangle(0, 0, w, h, r)
		return
	}
	dc.DrawRectangle(0, 0, w, h)
}

// toMatrix converts the canvas-style affine (a b c d e f) to gg's row layout.
func toMatrix(m vector.Affine2D) gg.Matrix {
	return gg.Matrix{A: m.A, B: m.C, C: m.E, D: m.B, E: m.D, F: m.F}
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}
