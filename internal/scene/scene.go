/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene keeps the live, rendered geometry of a card: one node per
// element with its transform and measured text. It answers the geometry
// queries the snap engine needs and is what the exporters draw.
package scene

import (
	"log/slog"
	"math"

	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/textlayout"
	"cardcraft/internal/theme"
	"cardcraft/internal/vector"
)

// Item is an element as rendered.
type Item struct {
	Element domain.Element
	Node    vector.Node
	// Size is the unscaled local size after measurement.
	Size    vector.Size
	Style   textlayout.TextStyle
	Text    textlayout.TextBox
	Padding float64
}

// Scene is not safe for concurrent use; the editor drives it from one goroutine.
type Scene struct {
	canvas   vector.Size
	theme    theme.Theme
	provider textlayout.Provider
	items    []*Item
	byID     map[string]*Item
	root     *vector.Group
}

type Option func(*Scene)

// WithProvider overrides the font provider used for measurement.
func WithProvider(p textlayout.Provider) Option { return func(s *Scene) { s.provider = p } }

// WithCanvas overrides the canvas size.
func WithCanvas(c vector.Size) Option { return func(s *Scene) { s.canvas = c } }

// New builds a scene for doc styled by th.
func New(doc domain.Document, th theme.Theme, opts ...Option) *Scene {
	s := &Scene{canvas: vector.Size{W: domain.DefaultCanvas.W, H: domain.DefaultCanvas.H}, theme: th}
	for _, o := range opts {
		o(s)
	}
	if s.provider == nil {
		s.provider = textlayout.DefaultProvider()
	}
	s.Rebuild(doc, th)
	return s
}

// Canvas returns the canvas size.
func (s *Scene) Canvas() vector.Size { return s.canvas }

// Theme returns the theme the scene was last built with.
func (s *Scene) Theme() theme.Theme { return s.theme }

// Provider returns the font provider used for measurement.
func (s *Scene) Provider() textlayout.Provider { return s.provider }

// Rebuild re-syncs every node with doc. Live drag offsets are discarded.
func (s *Scene) Rebuild(doc domain.Document, th theme.Theme) {
	s.theme = th
	s.items = make([]*Item, 0, len(doc.Elements))
	s.byID = make(map[string]*Item, len(doc.Elements))
	nodes := make([]vector.Node, 0, len(doc.Elements))
	for _, e := range doc.Elements {
		it := s.build(e)
		s.items = append(s.items, it)
		s.byID[e.ID] = it
		nodes = append(nodes, it.Node)
	}
	s.root = vector.NewGroup(nodes...)
	applog.WithComponent("scene").Debug("scene rebuilt", slog.Int("elements", len(s.items)), slog.String("theme", th.ID))
}

func (s *Scene) build(e domain.Element) *Item {
	it := &Item{Element: e, Padding: s.theme.Padding}
	pal, _ := s.theme.Palette()
	w := e.Geometry.Width
	if w <= 0 {
		w = domain.DefaultSize(e.Kind).W
	}
	h := e.StoredHeight()
	if st, ok := textlayout.StyleFor(e.Kind); ok {
		it.Style = st.WithSize(s.theme.FontSize(e.Kind))
		inner := w - 2*it.Padding
		if inner < 1 {
			inner = 1
		}
		box, err := textlayout.NewWordWrap(s.provider).Layout(it.Style.Spans(e.Text), inner)
		if err == nil {
			it.Text = box
			if e.Geometry.Height == nil && box.Height > 0 {
				h = vector.FloatRound(box.Height+2*it.Padding, 3)
			}
		}
	}
	if h <= 0 {
		h = domain.DefaultSize(e.Kind).H
	}
	it.Size = vector.Size{W: w, H: h}

	local := vector.R(0, 0, w, h)
	fill := vector.Fill{Color: pal.Surface, Enabled: e.Kind != domain.KindImage}
	stroke := vector.Stroke{Color: pal.Border, Width: 1, Enabled: e.Kind == domain.KindImage}
	switch e.Kind {
	case domain.KindTag:
		fill.Color = pal.Accent
		it.Node = vector.NewRoundedRect(local, min(s.theme.Radius, h/2), fill, stroke)
	case domain.KindBody:
		it.Node = vector.NewRoundedRect(local, s.theme.Radius, fill, stroke)
	case domain.KindTitle:
		fill.Enabled = false
		it.Node = vector.NewRect(local, fill, stroke)
	default:
		it.Node = vector.NewRect(local, fill, stroke)
	}
	it.Node.SetTransform(Transform(e.Geometry, it.Size))
	return it
}

// Transform places a local box of size sz at g: scale about the top-left,
// then rotation about the scaled box's center, then translation.
func Transform(g domain.Geometry, sz vector.Size) vector.Affine2D {
	sx, sy := g.EffectiveScale()
	m := vector.Translate(g.X, g.Y)
	if g.Rotation != 0 {
		cx, cy := sz.W*sx/2, sz.H*sy/2
		m = m.Mul(vector.Translate(cx, cy)).Mul(vector.Rotate(vector.Deg(g.Rotation))).Mul(vector.Translate(-cx, -cy))
	}
	return m.Mul(vector.Scale(sx, sy))
}

// Items returns the rendered items in z-order.
func (s *Scene) Items() []*Item { return s.items }

// Item returns the rendered item for id.
func (s *Scene) Item(id string) (*Item, bool) {
	it, ok := s.byID[id]
	return it, ok
}

// RenderedBox returns the on-canvas bounding box of an element. Unmeasured or
// degenerate nodes fall back to the stored size, then to the kind default.
func (s *Scene) RenderedBox(id string) (vector.Rect, bool) {
	it, ok := s.byID[id]
	if !ok {
		return vector.Rect{}, false
	}
	b := it.Node.Bounds()
	if b.Finite() && !b.Empty() {
		return b, true
	}
	return s.fallbackBox(it), true
}

func (s *Scene) fallbackBox(it *Item) vector.Rect {
	e := it.Element
	g := e.Geometry
	sx, sy := g.EffectiveScale()
	def := domain.DefaultSize(e.Kind)
	w, h := g.Width, e.StoredHeight()
	if !(w > 0) {
		w = def.W
	}
	if !(h > 0) {
		h = def.H
	}
	x, y, _ := s.Position(e.ID)
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		x, y = g.X, g.Y
	}
	return vector.R(x, y, w*sx, h*sy)
}

// DragBox is the unrotated, scaled box of id placed at (x, y); the snap
// engine aligns this box, not the rotated bounds.
func (s *Scene) DragBox(id string, x, y float64) (vector.Box, bool) {
	it, ok := s.byID[id]
	if !ok {
		return vector.Box{}, false
	}
	sx, sy := it.Element.Geometry.EffectiveScale()
	w, h := it.Size.W*sx, it.Size.H*sy
	if !(w > 0) || !(h > 0) {
		fb := s.fallbackBox(it)
		w, h = fb.W, fb.H
	}
	return vector.Box{ID: id, Rect: vector.R(x, y, w, h)}, true
}

// Siblings returns the rendered boxes of every element except id, in
// document order.
func (s *Scene) Siblings(id string) []vector.Box {
	out := make([]vector.Box, 0, len(s.items))
	for _, it := range s.items {
		if it.Element.ID == id {
			continue
		}
		b, _ := s.RenderedBox(it.Element.ID)
		out = append(out, vector.Box{ID: it.Element.ID, Rect: b})
	}
	return out
}

// MoveTo updates the live transform of id without touching the document.
func (s *Scene) MoveTo(id string, x, y float64) bool {
	it, ok := s.byID[id]
	if !ok {
		return false
	}
	g := it.Element.Geometry
	g.X, g.Y = x, y
	it.Node.SetTransform(Transform(g, it.Size))
	return true
}

// Position returns the live top-left of id.
func (s *Scene) Position(id string) (x, y float64, ok bool) {
	it, ok := s.byID[id]
	if !ok {
		return 0, 0, false
	}
	g := it.Element.Geometry
	// the live transform may differ from the stored geometry during a drag
	t := Transform(domain.Geometry{Rotation: g.Rotation, ScaleX: g.ScaleX, ScaleY: g.ScaleY}, it.Size)
	xf := it.Node.Transform()
	return xf.E - t.E, xf.F - t.F, true
}

// HitTest returns the top-most element under p.
func (s *Scene) HitTest(p vector.Pt) (string, bool) {
	i := s.root.HitIndex(p)
	if i < 0 {
		return "", false
	}
	return s.items[i].Element.ID, true
}
