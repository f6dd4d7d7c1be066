/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Smart guides: drag-time snapping of a moving box against the canvas midlines
// and sibling boxes. Pure and allocation-light so it can run on every
// pointer move.

import "math"

// DefaultTolerance is the snap distance used by the editor when none is configured.
const DefaultTolerance = 10.0

// Box is an element's rendered rectangle tagged with its identifier.
type Box struct {
	ID string
	Rect
}

// SnapResult is the position for the live transform plus the guide on each
// axis. A nil guide means no snap happened on that axis.
type SnapResult struct {
	X, Y       float64
	Vertical   *float64
	Horizontal *float64
}

// Snapped reports whether either axis snapped.
func (r SnapResult) Snapped() bool { return r.Vertical != nil || r.Horizontal != nil }

// ComputeSnap aligns moving to the nearest candidate line on each axis.
//
// Candidates per axis are the canvas midline followed by every sibling's near
// edge, center and far edge in the order given. The moving box's near edge,
// center and far edge are tried in that order against each candidate; the
// first pair that improves on the best distance wins, so ties go to the
// earlier reference and then the earlier candidate. Nothing farther than
// tolerance snaps.
func ComputeSnap(moving Box, siblings []Box, canvas Size, tolerance float64) SnapResult {
	res := SnapResult{X: moving.X, Y: moving.Y}
	if !(tolerance > 0) || !canvas.Valid() || !moving.Finite() {
		return res
	}

	xs := make([]float64, 0, 1+3*len(siblings))
	ys := make([]float64, 0, 1+3*len(siblings))
	xs = append(xs, canvas.W/2)
	ys = append(ys, canvas.H/2)
	for _, s := range siblings {
		if moving.ID != "" && s.ID == moving.ID {
			continue
		}
		if !s.Finite() {
			continue
		}
		xs = append(xs, s.X, s.X+s.W/2, s.X+s.W)
		ys = append(ys, s.Y, s.Y+s.H/2, s.Y+s.H)
	}

	res.X, res.Vertical = snapAxis(moving.X, moving.W, xs, tolerance)
	res.Y, res.Horizontal = snapAxis(moving.Y, moving.H, ys, tolerance)
	return res
}

// snapAxis returns the adjusted start coordinate and the winning line.
func snapAxis(start, extent float64, lines []float64, tolerance float64) (float64, *float64) {
	offsets := [3]float64{0, extent / 2, extent}
	best := tolerance + 1
	pos := start
	var guide *float64
	for _, off := range offsets {
		ref := start + off
		for _, line := range lines {
			d := math.Abs(ref - line)
			if d < best && d <= tolerance {
				best = d
				pos = line - off
				l := line
				guide = &l
			}
		}
	}
	return pos, guide
}

// GuideLine is a renderable guide spanning the canvas.
// Orientation is "vertical" or "horizontal".
type GuideLine struct {
	Orientation string
	Position    float64
	From        Pt
	To          Pt
}

// Guides expands the snap result into full-canvas guide lines for drawing.
func (r SnapResult) Guides(canvas Size) []GuideLine {
	return GuidesFor(r.Vertical, r.Horizontal, canvas)
}

// GuidesFor builds guide lines for the optional vertical and horizontal coordinates.
func GuidesFor(vertical, horizontal *float64, canvas Size) []GuideLine {
	var out []GuideLine
	if vertical != nil {
		x := *vertical
		out = append(out, GuideLine{Orientation: "vertical", Position: x, From: Pt{x, 0}, To: Pt{x, canvas.H}})
	}
	if horizontal != nil {
		y := *horizontal
		out = append(out, GuideLine{Orientation: "horizontal", Position: y, From: Pt{0, y}, To: Pt{canvas.W, y}})
	}
	return out
}
