/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"
	"math"

	"cardcraft/internal/domain"
	"cardcraft/internal/vector"
)

// BeginDrag starts dragging id from its current position.
func (s *Session) BeginDrag(id string) error {
	if s.drag != nil {
		return ErrDragInProgress
	}
	x, y, ok := s.scene.Position(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, id)
	}
	s.drag = &drag{id: id, originX: x, originY: y, last: vector.SnapResult{X: x, Y: y}}
	s.selected = id
	s.guides.Clear()
	s.log.Debug("drag begin", slog.String("id", id), slog.Float64("x", x), slog.Float64("y", y))
	return nil
}

// DragMove proposes a new top-left for the dragged element, snaps it against
// the canvas midlines and the other elements' rendered boxes, applies the
// result to the live scene and updates the guides.
//
// Positions are kept on the canvas's non-negative quadrant; an axis whose
// snapped position had to be clamped drops its guide.
func (s *Session) DragMove(x, y float64) (vector.SnapResult, error) {
	if s.drag == nil {
		return vector.SnapResult{}, ErrNoDrag
	}
	id := s.drag.id
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return s.drag.last, nil
	}
	moving, _ := s.scene.DragBox(id, math.Max(0, x), math.Max(0, y))
	res := vector.ComputeSnap(moving, s.scene.Siblings(id), s.canvas, s.tolerance)
	if res.X < 0 {
		res.X, res.Vertical = 0, nil
	}
	if res.Y < 0 {
		res.Y, res.Horizontal = 0, nil
	}
	s.scene.MoveTo(id, res.X, res.Y)
	s.guides.Set(res)
	s.drag.last = res
	s.drag.moved = true
	s.log.Debug("drag move", slog.String("id", id),
		slog.Float64("x", res.X), slog.Float64("y", res.Y),
		guideAttr("vguide", res.Vertical), guideAttr("hguide", res.Horizontal))
	return res, nil
}

// DragBy moves the dragged element by a delta from where the drag began.
func (s *Session) DragBy(dx, dy float64) (vector.SnapResult, error) {
	if s.drag == nil {
		return vector.SnapResult{}, ErrNoDrag
	}
	return s.DragMove(s.drag.originX+dx, s.drag.originY+dy)
}

// EndDrag commits the last snapped position to the document and clears the
// guides. Guides are cleared even when no drag was active.
func (s *Session) EndDrag() (domain.Element, error) {
	s.guides.Clear()
	d := s.drag
	s.drag = nil
	if d == nil {
		return domain.Element{}, ErrNoDrag
	}
	e, ok := s.doc.Find(d.id)
	if !ok {
		return domain.Element{}, fmt.Errorf("%w: %s", domain.ErrElementNotFound, d.id)
	}
	if !d.moved {
		return e, nil
	}
	e.Geometry.X, e.Geometry.Y = d.last.X, d.last.Y
	if err := s.replace(e); err != nil {
		s.rebuild()
		return domain.Element{}, fmt.Errorf("commit drag: %w", err)
	}
	s.log.Debug("drag end", slog.String("id", e.ID), slog.Float64("x", e.Geometry.X), slog.Float64("y", e.Geometry.Y))
	return e, nil
}

// CancelDrag abandons the drag, restoring the live position and clearing guides.
func (s *Session) CancelDrag() {
	s.guides.Clear()
	if s.drag == nil {
		return
	}
	s.scene.MoveTo(s.drag.id, s.drag.originX, s.drag.originY)
	s.drag = nil
}

func guideAttr(key string, g *float64) slog.Attr {
	if g == nil {
		return slog.String(key, "none")
	}
	return slog.Float64(key, *g)
}
