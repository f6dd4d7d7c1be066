/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a card document to PNG, PDF and SVG. All exporters
// lay the card out through scene so geometry and text wrapping match the editor.
package export

import (
	"errors"
	"fmt"
	"math"

	"cardcraft/internal/domain"
	"cardcraft/internal/scene"
	"cardcraft/internal/textlayout"
	"cardcraft/internal/theme"
	"cardcraft/internal/vector"
)

// PixelRatio is the fixed upscale applied to raster output.
const PixelRatio = 2.0

var ErrEmptyCanvas = errors.New("export: canvas size must be positive")

// Options controls all exporters. Zero values pick defaults.
type Options struct {
	Canvas     domain.Size         // defaults to domain.DefaultCanvas
	PixelRatio float64             // PNG only; defaults to PixelRatio
	Provider   textlayout.Provider // text measurement; defaults to the Go fonts
}

func (o Options) canvas() domain.Size {
	if o.Canvas.W == 0 && o.Canvas.H == 0 {
		return domain.DefaultCanvas
	}
	return o.Canvas
}

func (o Options) ratio() float64 {
	if o.PixelRatio > 0 && !math.IsInf(o.PixelRatio, 0) {
		return o.PixelRatio
	}
	return PixelRatio
}

// card is a laid-out document ready to draw.
type card struct {
	scene  *scene.Scene
	pal    theme.Palette
	canvas domain.Size
}

func prepare(doc domain.Document, th theme.Theme, opt Options) (*card, error) {
	c := opt.canvas()
	if !(c.W > 0) || !(c.H > 0) {
		return nil, ErrEmptyCanvas
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	pal, err := th.Palette()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	sopts := []scene.Option{scene.WithCanvas(vector.Size{W: c.W, H: c.H})}
	if opt.Provider != nil {
		sopts = append(sopts, scene.WithProvider(opt.Provider))
	}
	return &card{scene: scene.New(doc, th, sopts...), pal: pal, canvas: c}, nil
}

// textColor is the ink for an item's text.
func (c *card) textColor(it *scene.Item) vector.Color {
	if it.Element.Kind == domain.KindTag {
		return c.pal.AccentText
	}
	return c.pal.Text
}

// placedLine is a line of text positioned in the item's local space.
type placedLine struct {
	Text     string
	X        float64
	Baseline float64
	Font     textlayout.FontSpec
	Tracking float64
}

// lines positions the item's wrapped text. Tags are centered, other kinds
// are left aligned; all start one padding from the top.
func lines(it *scene.Item) []placedLine {
	var out []placedLine
	y := it.Padding
	for _, ln := range it.Text.Lines {
		txt := ln.Text()
		if txt == "" || len(ln.Spans) == 0 {
			y += ln.Ascent + ln.Descent + ln.Leading
			continue
		}
		x := it.Padding
		if it.Element.Kind == domain.KindTag {
			x = (it.Size.W - ln.Width) / 2
		}
		out = append(out, placedLine{
			Text:     txt,
			X:        x,
			Baseline: y + ln.Ascent,
			Font:     ln.Spans[0].Font,
			Tracking: ln.Spans[0].Tracking,
		})
		y += ln.Ascent + ln.Descent + ln.Leading
	}
	return out
}

// radius returns the corner radius of rounded nodes, zero otherwise.
func radius(n vector.Node) float64 {
	if rr, ok := n.(*vector.RoundedRectNode); ok {
		return rr.Radius()
	}
	return 0
}

// fontBytes resolves the TTF data for spec from the Go font library.
func fontBytes(spec textlayout.FontSpec) []byte {
	lib := textlayout.GoFonts()
	if b, ok := lib.Bytes(spec); ok {
		return b
	}
	b, _ := lib.Bytes(textlayout.FontSpec{Family: textlayout.GoFamily, Weight: spec.Weight, Italic: spec.Italic})
	return b
}
