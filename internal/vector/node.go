/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Node is a scene item with a transform, paint, bounds and hit-testing.
// Bounds are the axis-aligned box of the transformed shape; that is what
// the snap engine sees as a sibling's rendered geometry.
type Node interface {
	Bounds() Rect
	Transform() Affine2D
	SetTransform(Affine2D)
	Fill() Fill
	Stroke() Stroke
	SetFill(Fill)
	SetStroke(Stroke)
	Hit(p Pt) bool
}

type baseNode struct {
	xf     Affine2D
	fill   Fill
	stroke Stroke
}

func (b *baseNode) Transform() Affine2D     { return b.xf }
func (b *baseNode) SetTransform(m Affine2D) { b.xf = m }
func (b *baseNode) Fill() Fill              { return b.fill }
func (b *baseNode) Stroke() Stroke          { return b.stroke }
func (b *baseNode) SetFill(f Fill)          { b.fill = f }
func (b *baseNode) SetStroke(s Stroke)      { b.stroke = s }

// RectNode draws an axis-aligned rectangle before transform.
type RectNode struct {
	baseNode
	rect Rect
}

func NewRect(r Rect, f Fill, s Stroke) *RectNode {
	return &RectNode{baseNode: baseNode{xf: Identity, fill: f, stroke: s}, rect: r}
}

// Local returns the untransformed rectangle.
func (n *RectNode) Local() Rect { return n.rect }

// SetLocal replaces the untransformed rectangle, e.g. after re-measuring text.
func (n *RectNode) SetLocal(r Rect) { n.rect = r }

func (n *RectNode) Bounds() Rect { return n.xf.ApplyRect(n.rect) }

func (n *RectNode) Hit(p Pt) bool {
	return n.rect.Contains(n.xf.Invert().Apply(p))
}

// RoundedRectNode uses uniform radii for simplicity.
type RoundedRectNode struct {
	RectNode
	r float64
}

func NewRoundedRect(r Rect, radius float64, f Fill, s Stroke) *RoundedRectNode {
	return &RoundedRectNode{RectNode: *NewRect(r, f, s), r: radius}
}

// Radius returns the corner radius.
func (n *RoundedRectNode) Radius() float64 { return n.r }

func (n *RoundedRectNode) Hit(p Pt) bool {
	q := n.xf.Invert().Apply(p)
	if !n.rect.Contains(q) {
		return false
	}
	core := n.rect.Inset(n.r, n.r)
	if core.W > 0 && core.H > 0 && core.Contains(q) {
		return true
	}
	// bands between the corners
	if n.rect.Inset(n.r, 0).Contains(q) || n.rect.Inset(0, n.r).Contains(q) {
		return true
	}
	cx := []float64{n.rect.X + n.r, n.rect.X + n.rect.W - n.r}
	cy := []float64{n.rect.Y + n.r, n.rect.Y + n.rect.H - n.r}
	r2 := n.r * n.r
	for _, x := range cx {
		for _, y := range cy {
			dx := q.X - x
			dy := q.Y - y
			if dx*dx+dy*dy <= r2 {
				return true
			}
		}
	}
	return false
}

// Group is a container for child nodes with its own transform.
type Group struct {
	baseNode
	Children []Node
}

func NewGroup(children ...Node) *Group {
	g := &Group{baseNode: baseNode{xf: Identity}}
	g.Children = append(g.Children, children...)
	return g
}

func (g *Group) Bounds() Rect {
	var b Rect
	for i, c := range g.Children {
		if i == 0 {
			b = c.Bounds()
			continue
		}
		b = b.Union(c.Bounds())
	}
	return g.xf.ApplyRect(b)
}

func (g *Group) Hit(p Pt) bool { return g.HitIndex(p) >= 0 }

// HitIndex returns the index of the top-most child under p, or -1.
func (g *Group) HitIndex(p Pt) int {
	q := g.xf.Invert().Apply(p)
	for i := len(g.Children) - 1; i >= 0; i-- {
		if g.Children[i].Hit(q) {
			return i
		}
	}
	return -1
}
