//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests need the Fyne test driver and run only with -tags fyne:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"cardcraft/internal/vector"
)

func TestCardCanvas_FitsOnFirstLayout(t *testing.T) {
	test.NewTempApp(t)
	cc := NewCardCanvas(newTestSession(t), t.TempDir())
	r, ok := test.WidgetRenderer(cc).(*cardCanvasRenderer)
	if !ok {
		t.Fatalf("unexpected renderer %T", test.WidgetRenderer(cc))
	}
	cc.Resize(fyne.NewSize(624, 448))
	r.Layout(fyne.NewSize(624, 448))
	if cc.view.Zoom != 0.5 {
		t.Fatalf("expected fit zoom 0.5, got %v", cc.view.Zoom)
	}
	if got := r.img.Size(); got.Width != 300 || got.Height != 400 {
		t.Fatalf("unexpected card image size %v", got)
	}
	if r.img.Image == nil {
		t.Fatalf("raster should be rendered on first layout")
	}
}

func TestCardCanvas_DragShowsGuidesAndCommits(t *testing.T) {
	test.NewTempApp(t)
	s := newTestSession(t)
	cc := NewCardCanvas(s, t.TempDir())
	r := test.WidgetRenderer(cc).(*cardCanvasRenderer)
	cc.Resize(fyne.NewSize(648, 848))
	r.Layout(fyne.NewSize(648, 848))
	if cc.view.Zoom != 1 {
		t.Fatalf("expected zoom 1, got %v", cc.view.Zoom)
	}

	start := cc.toScreen(vector.Pt{X: 100, Y: 120})
	cc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: start.AddXY(3, 0)}, Dragged: fyne.NewDelta(3, 0)})
	visible := 0
	for _, ln := range r.guides {
		if ln.Visible() {
			visible++
		}
	}
	if visible == 0 {
		t.Fatalf("expected dashed guide while snapping")
	}

	var msg string
	cc.OnChanged = func(m string) { msg = m }
	cc.DragEnd()
	if e, _ := s.Document().Find("A"); e.Geometry.X != 60 {
		t.Fatalf("expected snapped x 60, got %v", e.Geometry.X)
	}
	if msg == "" {
		t.Fatalf("OnChanged should report the move")
	}
	for _, ln := range r.guides {
		if ln.Visible() {
			t.Fatalf("guides must be hidden after the drag")
		}
	}
}

func TestCardCanvas_DragOnEmptySpacePans(t *testing.T) {
	test.NewTempApp(t)
	cc := NewCardCanvas(newTestSession(t), t.TempDir())
	cc.Resize(fyne.NewSize(648, 848))
	test.WidgetRenderer(cc).Layout(fyne.NewSize(648, 848))
	cc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(5, 5)}, Dragged: fyne.NewDelta(10, 20)})
	cc.DragEnd()
	if cc.view.OffsetX != 10 || cc.view.OffsetY != 20 {
		t.Fatalf("expected pan offset (10,20), got (%v,%v)", cc.view.OffsetX, cc.view.OffsetY)
	}
	if _, dragging := cc.session.Dragging(); dragging {
		t.Fatalf("pan must not start an element drag")
	}
}
