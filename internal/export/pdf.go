/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"log/slog"

	"github.com/jung-kurt/gofpdf"

	"cardcraft/internal/assets"
	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/scene"
	"cardcraft/internal/textlayout"
	"cardcraft/internal/theme"
	"cardcraft/internal/vector"
	"cardcraft/internal/version"
)

// pdfFamily is the family the Go fonts are embedded under.
const pdfFamily = "gofont"

// kappa approximates a quarter circle with a cubic Bezier.
const kappa = 0.5522847498

// ExportPDF writes a single-page vector PDF. One canvas pixel maps to one
// point. Text is embedded with the Go fonts so it stays selectable.
func ExportPDF(doc domain.Document, th theme.Theme, assetsRoot string, w io.Writer, opt Options) error {
	c, err := prepare(doc, th, opt)
	if err != nil {
		return err
	}
	l := applog.WithOperation(applog.WithComponent("export"), "pdf")
	size := gofpdf.SizeType{Wd: c.canvas.W, Ht: c.canvas.H}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle("CardCraft card", true)
	pdf.SetCreator("cardcraft "+version.String(), true)
	for _, st := range []struct {
		style  string
		weight int
		italic bool
	}{{"", 400, false}, {"B", 700, false}, {"I", 400, true}, {"BI", 700, true}} {
		pdf.AddUTF8FontFromBytes(pdfFamily, st.style, fontBytes(textlayout.FontSpec{Family: textlayout.GoFamily, Weight: st.weight, Italic: st.italic}))
	}
	pdf.AddPageFormat("", size)

	setFillColor(pdf, c.pal.Background)
	pdf.Rect(0, 0, c.canvas.W, c.canvas.H, "F")

	for i, it := range c.scene.Items() {
		g := it.Element.Geometry
		sx, sy := g.EffectiveScale()
		pdf.TransformBegin()
		if g.Rotation != 0 {
			// gofpdf rotates counter-clockwise; canvas rotation is clockwise
			pdf.TransformRotate(-g.Rotation, g.X+it.Size.W*sx/2, g.Y+it.Size.H*sy/2)
		}
		if sx != 1 || sy != 1 {
			pdf.TransformScale(sx*100, sy*100, g.X, g.Y)
		}
		if it.Element.Kind == domain.KindImage {
			drawPDFImage(pdf, l, assetsRoot, it, fmt.Sprintf("img%d", i))
		}
		style := ""
		if f := it.Node.Fill(); f.Enabled {
			setFillColor(pdf, f.Color)
			style += "F"
		}
		if s := it.Node.Stroke(); s.Enabled && s.Width > 0 {
			setDrawColor(pdf, s.Color)
			pdf.SetLineWidth(s.Width)
			style += "D"
		}
		if style != "" {
			pdfShape(pdf, g.X, g.Y, it.Size.W, it.Size.H, radius(it.Node), style)
		}
		if it.Element.Kind.IsText() {
			col := c.textColor(it)
			pdf.SetTextColor(int(col.R), int(col.G), int(col.B))
			for _, ln := range lines(it) {
				pdf.SetFont(pdfFamily, pdfStyle(ln.Font), ln.Font.SizePt)
				pdf.Text(g.X+ln.X, g.Y+ln.Baseline, ln.Text)
			}
		}
		pdf.TransformEnd()
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Debug("pdf exported", slog.Int("elements", len(c.scene.Items())))
	return nil
}

// ExportPDFFile writes ExportPDF output to path, creating parent directories.
func ExportPDFFile(doc domain.Document, th theme.Theme, assetsRoot, path string, opt Options) error {
	return writeFile(path, func(w io.Writer) error { return ExportPDF(doc, th, assetsRoot, w, opt) })
}

func pdfStyle(f textlayout.FontSpec) string {
	s := ""
	if f.Weight >= 600 {
		s += "B"
	}
	if f.Italic {
		s += "I"
	}
	return s
}

// drawPDFImage re-encodes the decoded asset as PNG since gofpdf cannot read webp.
func drawPDFImage(pdf *gofpdf.Fpdf, l *slog.Logger, root string, it *scene.Item, name string) {
	g := it.Element.Geometry
	img, err := assets.Decode(root, it.Element.ImageRef)
	var buf bytes.Buffer
	if err == nil {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		l.Warn("image unavailable, drawing placeholder", slog.String("id", it.Element.ID), slog.Any("err", err))
		pdf.SetFillColor(200, 200, 200)
		pdf.Rect(g.X, g.Y, it.Size.W, it.Size.H, "F")
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, &buf)
	pdf.ImageOptions(name, g.X, g.Y, it.Size.W, it.Size.H, false, opts, 0, "")
}

// pdfShape draws a rectangle, with Bezier-approximated corners when r > 0.
func pdfShape(pdf *gofpdf.Fpdf, x, y, w, h, r float64, style string) {
	r = min(r, w/2, h/2)
	if r <= 0 {
		pdf.Rect(x, y, w, h, style)
		return
	}
	k := r * kappa
	pdf.MoveTo(x+r, y)
	pdf.LineTo(x+w-r, y)
	pdf.CurveBezierCubicTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	pdf.LineTo(x+w, y+h-r)
	pdf.CurveBezierCubicTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	pdf.LineTo(x+r, y+h)
	pdf.CurveBezierCubicTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	pdf.LineTo(x, y+r)
	pdf.CurveBezierCubicTo(x, y+r-k, x+r-k, y, x+r, y)
	pdf.ClosePath()
	pdf.DrawPath(style)
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
