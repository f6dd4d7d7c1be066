/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"cardcraft/internal/assets"
	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/textlayout"
	"cardcraft/internal/theme"
	"cardcraft/internal/vector"
)

// ExportSVG writes a self-contained SVG: images are inlined as data URIs and
// each element is a group carrying its transform.
func ExportSVG(doc domain.Document, th theme.Theme, assetsRoot string, w io.Writer, opt Options) error {
	c, err := prepare(doc, th, opt)
	if err != nil {
		return err
	}
	l := applog.WithOperation(applog.WithComponent("export"), "svg")
	cw := &countingWriter{w: w}
	canvas := svg.New(cw)
	W, H := iround(c.canvas.W), iround(c.canvas.H)
	canvas.Start(W, H, fmt.Sprintf(`viewBox="0 0 %d %d"`, W, H))
	canvas.Title("CardCraft card")
	canvas.Rect(0, 0, W, H, "fill:"+c.pal.Background.Hex())

	for _, it := range c.scene.Items() {
		m := it.Node.Transform()
		canvas.Gtransform(fmt.Sprintf("matrix(%g %g %g %g %g %g)", m.A, m.B, m.C, m.D, m.E, m.F))
		w, h := iround(it.Size.W), iround(it.Size.H)
		if it.Element.Kind == domain.KindImage {
			uri, err := assets.DataURI(assetsRoot, it.Element.ImageRef)
			if err != nil {
				l.Warn("image unavailable, drawing placeholder", slog.String("id", it.Element.ID), slog.Any("err", err))
				canvas.Rect(0, 0, w, h, "fill:#c8c8c8")
			} else {
				canvas.Image(0, 0, w, h, uri, `preserveAspectRatio="none"`)
			}
		}
		if st := svgStyle(it.Node.Fill(), it.Node.Stroke()); st != "" {
			if r := iround(radius(it.Node)); r > 0 {
				canvas.Roundrect(0, 0, w, h, r, r, st)
			} else {
				canvas.Rect(0, 0, w, h, st)
			}
		}
		if it.Element.Kind.IsText() {
			col := c.textColor(it)
			for _, ln := range lines(it) {
				canvas.Text(iround(ln.X), iround(ln.Baseline), ln.Text, textStyle(ln.Font, ln.Tracking, col))
			}
		}
		canvas.Gend()
	}
	canvas.End()
	if cw.err != nil {
		return fmt.Errorf("write svg: %w", cw.err)
	}
	l.Debug("svg exported", slog.Int64("bytes", cw.n))
	return nil
}

// ExportSVGFile writes ExportSVG output to path, creating parent directories.
func ExportSVGFile(doc domain.Document, th theme.Theme, assetsRoot, path string, opt Options) error {
	return writeFile(path, func(w io.Writer) error { return ExportSVG(doc, th, assetsRoot, w, opt) })
}

func svgStyle(f vector.Fill, s vector.Stroke) string {
	var parts []string
	if f.Enabled {
		parts = append(parts, "fill:"+f.Color.Hex())
	} else {
		parts = append(parts, "fill:none")
	}
	if s.Enabled && s.Width > 0 {
		parts = append(parts, "stroke:"+s.Color.Hex(), fmt.Sprintf("stroke-width:%g", s.Width))
	} else if !f.Enabled {
		return ""
	}
	return strings.Join(parts, ";")
}

func textStyle(f textlayout.FontSpec, tracking float64, col vector.Color) string {
	st := fmt.Sprintf("font-family:%s,sans-serif;font-size:%gpx;font-weight:%d;fill:%s", f.Family, f.SizePt, f.Weight, col.Hex())
	if f.Italic {
		st += ";font-style:italic"
	}
	if tracking != 0 {
		st += fmt.Sprintf(";letter-spacing:%gpx", tracking)
	}
	return st
}

func iround(v float64) int { return int(math.Round(v)) }

// countingWriter keeps the first write error since svgo does not report them.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
