/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and line breaking behind small interfaces so the scene,
// the exporters and tests can swap font engines.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float64
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is ascent plus descent plus gap.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Span is a run of text with the same font/style. Tracking is added between
// glyphs; Leading is extra space below each line.
type Span struct {
	Text     string
	Font     FontSpec
	Tracking float64
	Leading  float64
}

// Line is a single laid out line.
type Line struct {
	Spans   []Span
	Width   float64
	Ascent  float64
	Descent float64
	Leading float64
}

// Text joins the line's span texts.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return strings.TrimRight(b.String(), " ")
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines  []Line
	Width  float64
	Height float64
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// Layouter performs line-breaking and measurement.
type Layouter interface {
	Layout(spans []Span, maxWidth float64) (TextBox, error)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	return basicfont.Face7x13, metricsOf(basicfont.Face7x13)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	asc, desc := float64(m.Ascent.Round()), float64(m.Descent.Round())
	gap := float64(m.Height.Round()) - asc - desc
	if gap < 0 {
		gap = 0
	}
	return Metrics{Ascent: asc, Descent: desc, LineGap: gap}
}

// WordWrapLayouter breaks on spaces and newlines; no shaping or hyphenation.
// Words wider than maxWidth overflow on their own line.
type WordWrapLayouter struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float64) (TextBox, error) {
	p := l.Provider
	if p == nil {
		p = BasicProvider{}
	}
	var (
		box      TextBox
		cur      Line
		pending  *Span // separating space, emitted only if another word follows on the line
		pendingW float64
	)
	grow := func(met Metrics, leading float64) {
		cur.Ascent = max(cur.Ascent, met.Ascent)
		cur.Descent = max(cur.Descent, met.Descent+met.LineGap)
		cur.Leading = max(cur.Leading, leading)
	}
	flush := func() {
		box.Lines = append(box.Lines, cur)
		box.Width = max(box.Width, cur.Width)
		box.Height += cur.Ascent + cur.Descent + cur.Leading
		cur, pending = Line{}, nil
	}
	var (
		lastMet     Metrics
		lastLeading float64
		resolved    bool
	)
	for _, sp := range spans {
		face, met := p.Resolve(sp.Font)
		lastMet, lastLeading, resolved = met, sp.Leading, true
		d := &font.Drawer{Face: face}
		spaceW := advance(d, " ", sp.Tracking)
		for pi, para := range strings.Split(sp.Text, "\n") {
			if pi > 0 {
				grow(met, sp.Leading)
				flush()
			}
			words := strings.Split(para, " ")
			for wi, word := range words {
				if word != "" {
					w := advance(d, word, sp.Tracking)
					if len(cur.Spans) > 0 && maxWidth > 0 && cur.Width+pendingW+w > maxWidth {
						flush()
					}
					if pending != nil && len(cur.Spans) > 0 {
						cur.Spans = append(cur.Spans, *pending)
						cur.Width += pendingW
					}
					pending = nil
					cur.Spans = append(cur.Spans, Span{Text: word, Font: sp.Font, Tracking: sp.Tracking, Leading: sp.Leading})
					cur.Width += w
					grow(met, sp.Leading)
				}
				if wi < len(words)-1 && len(cur.Spans) > 0 {
					pending = &Span{Text: " ", Font: sp.Font, Tracking: sp.Tracking, Leading: sp.Leading}
					pendingW = spaceW
				}
			}
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		if !resolved {
			_, lastMet = p.Resolve(FontSpec{})
		}
		grow(lastMet, lastLeading)
		flush()
	}
	return box, nil
}

func advance(d *font.Drawer, s string, tracking float64) float64 {
	if s == "" {
		return 0
	}
	w := float64(d.MeasureString(s)) / 64
	if n := len([]rune(s)); n > 1 {
		w += tracking * float64(n-1)
	}
	return w
}

// Measure returns the single-line width and line height of spans.
func Measure(provider Provider, spans []Span) (w, h float64) {
	if provider == nil {
		provider = BasicProvider{}
	}
	if len(spans) == 0 {
		_, met := provider.Resolve(FontSpec{})
		return 0, met.Ascent + met.Descent
	}
	for _, sp := range spans {
		face, met := provider.Resolve(sp.Font)
		w += advance(&font.Drawer{Face: face}, sp.Text, sp.Tracking)
		h = max(h, met.Ascent+met.Descent)
	}
	return w, h
}
