/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"math"

	"cardcraft/internal/domain"
	"cardcraft/internal/editor"
	"cardcraft/internal/vector"
)

const (
	minZoom = 0.25
	maxZoom = 4.0

	guideDash = 6.0
	guideGap  = 4.0
)

// Viewport maps card coordinates to widget coordinates: the card is centered
// in the widget, scaled by Zoom and shifted by the pan offset.
type Viewport struct {
	Zoom             float64
	OffsetX, OffsetY float64
	Card             vector.Size
}

// NewViewport returns a viewport at 100% for a card of the given size.
func NewViewport(card vector.Size) Viewport { return Viewport{Zoom: 1, Card: card} }

// Origin is the widget position of the card's top-left corner.
func (v Viewport) Origin(widgetW, widgetH float64) vector.Pt {
	return vector.Pt{
		X: widgetW/2 - v.Card.W*v.Zoom/2 + v.OffsetX,
		Y: widgetH/2 - v.Card.H*v.Zoom/2 + v.OffsetY,
	}
}

func (v Viewport) ToScreen(p vector.Pt, widgetW, widgetH float64) vector.Pt {
	o := v.Origin(widgetW, widgetH)
	return vector.Pt{X: o.X + p.X*v.Zoom, Y: o.Y + p.Y*v.Zoom}
}

func (v Viewport) ToCard(p vector.Pt, widgetW, widgetH float64) vector.Pt {
	o := v.Origin(widgetW, widgetH)
	return vector.Pt{X: (p.X - o.X) / v.Zoom, Y: (p.Y - o.Y) / v.Zoom}
}

// ZoomBy adjusts the zoom by step, clamped to [minZoom, maxZoom].
func (v *Viewport) ZoomBy(step float64) {
	if math.IsNaN(step) || math.IsInf(step, 0) {
		return
	}
	v.Zoom = math.Min(maxZoom, math.Max(minZoom, v.Zoom+step))
}

// Fit picks the largest zoom that shows the whole card with margin pixels
// on every side.
func (v *Viewport) Fit(widgetW, widgetH, margin float64) {
	if v.Card.W <= 0 || v.Card.H <= 0 {
		return
	}
	z := math.Min((widgetW-2*margin)/v.Card.W, (widgetH-2*margin)/v.Card.H)
	v.Zoom = math.Min(maxZoom, math.Max(minZoom, z))
	v.OffsetX, v.OffsetY = 0, 0
}

// Segment is one dash of a guide line.
type Segment struct{ From, To vector.Pt }

// DashSegments splits a guide into dash/gap runs.
func DashSegments(g vector.GuideLine, dash, gap float64) []Segment {
	dx, dy := g.To.X-g.From.X, g.To.Y-g.From.Y
	length := math.Hypot(dx, dy)
	if length == 0 || dash <= 0 {
		return nil
	}
	if gap < 0 {
		gap = 0
	}
	ux, uy := dx/length, dy/length
	var out []Segment
	for t := 0.0; t < length; t += dash + gap {
		end := math.Min(t+dash, length)
		out = append(out, Segment{
			From: vector.Pt{X: g.From.X + ux*t, Y: g.From.Y + uy*t},
			To:   vector.Pt{X: g.From.X + ux*end, Y: g.From.Y + uy*end},
		})
	}
	return out
}

// GuideSegments returns the dashed segments of the session's current guides
// in card coordinates.
func GuideSegments(s *editor.Session) []Segment {
	var out []Segment
	for _, g := range s.Guides().Lines(s.Canvas()) {
		out = append(out, DashSegments(g, guideDash, guideGap)...)
	}
	return out
}

var errNoPress = errors.New("ui: no element under pointer")

// DragController turns pointer events in card coordinates into editor drag
// calls. Offsets are measured from the press point so the element does not
// jump under the cursor.
type DragController struct {
	s      *editor.Session
	start  vector.Pt
	active bool
}

func NewDragController(s *editor.Session) *DragController { return &DragController{s: s} }

// Active reports whether a pointer drag owns the session drag.
func (c *DragController) Active() bool { return c.active }

// Press starts a drag on the top-most element under p.
func (c *DragController) Press(p vector.Pt) (string, error) {
	id, ok := c.s.Scene().HitTest(p)
	if !ok {
		_ = c.s.Select("")
		return "", errNoPress
	}
	if err := c.s.BeginDrag(id); err != nil {
		return "", err
	}
	c.start, c.active = p, true
	return id, nil
}

// Move follows the pointer to p.
func (c *DragController) Move(p vector.Pt) (vector.SnapResult, error) {
	if !c.active {
		return vector.SnapResult{}, editor.ErrNoDrag
	}
	return c.s.DragBy(p.X-c.start.X, p.Y-c.start.Y)
}

// Release commits the drag.
func (c *DragController) Release() (domain.Element, error) {
	if !c.active {
		return domain.Element{}, editor.ErrNoDrag
	}
	c.active = false
	return c.s.EndDrag()
}

// Cancel abandons the drag.
func (c *DragController) Cancel() {
	if c.active {
		c.active = false
		c.s.CancelDrag()
	}
}
