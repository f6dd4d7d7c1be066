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
	"testing"

	"cardcraft/internal/domain"
	"cardcraft/internal/editor"
	"cardcraft/internal/textlayout"
	"cardcraft/internal/vector"
)

func newTestSession(t *testing.T) *editor.Session {
	t.Helper()
	doc := domain.Document{ThemeID: "classic", Elements: []domain.Element{
		{ID: "A", Kind: domain.KindTitle, Text: "Title", Geometry: domain.Geometry{X: 60, Y: 100, Width: 480, Height: domain.Ptr(50)}},
		{ID: "B", Kind: domain.KindBody, Text: "Body", Geometry: domain.Geometry{X: 200, Y: 500, Width: 200, Height: domain.Ptr(40)}},
	}}
	s, err := editor.New(doc, editor.Options{Provider: textlayout.BasicProvider{}})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return s
}

func TestViewport_RoundTrip(t *testing.T) {
	v := NewViewport(vector.Size{W: 600, H: 800})
	v.Zoom, v.OffsetX, v.OffsetY = 0.5, 40, -20
	o := v.Origin(1000, 1000)
	if o.X != 1000/2-150+40 || o.Y != 1000/2-200-20 {
		t.Fatalf("unexpected origin %+v", o)
	}
	p := vector.Pt{X: 123, Y: 456}
	back := v.ToCard(v.ToScreen(p, 1000, 1000), 1000, 1000)
	if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestViewport_ZoomClampAndFit(t *testing.T) {
	v := NewViewport(vector.Size{W: 600, H: 800})
	v.ZoomBy(100)
	if v.Zoom != maxZoom {
		t.Fatalf("zoom should clamp to %v, got %v", maxZoom, v.Zoom)
	}
	v.ZoomBy(-100)
	if v.Zoom != minZoom {
		t.Fatalf("zoom should clamp to %v, got %v", minZoom, v.Zoom)
	}
	v.ZoomBy(math.NaN())
	if v.Zoom != minZoom {
		t.Fatalf("NaN step must be ignored")
	}
	v.OffsetX = 50
	v.Fit(620, 420, 10)
	if v.Zoom != 0.5 || v.OffsetX != 0 {
		t.Fatalf("fit: zoom=%v offset=%v", v.Zoom, v.OffsetX)
	}
}

func TestDashSegments(t *testing.T) {
	g := vector.GuideLine{Orientation: "vertical", Position: 300, From: vector.Pt{X: 300}, To: vector.Pt{X: 300, Y: 800}}
	segs := DashSegments(g, 6, 4)
	if len(segs) != 80 {
		t.Fatalf("expected 80 dashes, got %d", len(segs))
	}
	last := segs[len(segs)-1]
	if last.From.Y != 790 || last.To.Y != 796 || last.From.X != 300 {
		t.Fatalf("unexpected last dash %+v", last)
	}
	if DashSegments(vector.GuideLine{}, 6, 4) != nil {
		t.Fatalf("zero-length guide should have no dashes")
	}
	short := DashSegments(vector.GuideLine{To: vector.Pt{X: 8}}, 6, 4)
	if len(short) != 1 || short[0].To.X != 6 {
		t.Fatalf("unexpected short dashes %+v", short)
	}
}

func TestDragController_SnapsAndCommits(t *testing.T) {
	s := newTestSession(t)
	c := NewDragController(s)

	id, err := c.Press(vector.Pt{X: 100, Y: 120})
	if err != nil || id != "A" {
		t.Fatalf("press: id=%q err=%v", id, err)
	}
	if !c.Active() {
		t.Fatalf("controller should be active after press")
	}
	res, err := c.Move(vector.Pt{X: 103, Y: 120})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.X != 60 || res.Vertical == nil || *res.Vertical != 300 {
		t.Fatalf("expected snap to canvas midline, got %+v", res)
	}
	if segs := GuideSegments(s); len(segs) != 80 {
		t.Fatalf("expected dashed vertical guide, got %d segments", len(segs))
	}
	e, err := c.Release()
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if e.Geometry.X != 60 || e.Geometry.Y != 100 {
		t.Fatalf("unexpected committed geometry %+v", e.Geometry)
	}
	if len(GuideSegments(s)) != 0 {
		t.Fatalf("guides must clear on release")
	}
	if _, err := c.Release(); !errors.Is(err, editor.ErrNoDrag) {
		t.Fatalf("second release: %v", err)
	}
}

func TestDragController_MissAndCancel(t *testing.T) {
	s := newTestSession(t)
	c := NewDragController(s)
	if _, err := c.Press(vector.Pt{X: 5, Y: 5}); err == nil {
		t.Fatalf("press on empty canvas should fail")
	}
	if _, err := c.Move(vector.Pt{X: 10, Y: 10}); !errors.Is(err, editor.ErrNoDrag) {
		t.Fatalf("move without press: %v", err)
	}
	if _, err := c.Press(vector.Pt{X: 250, Y: 510}); err != nil {
		t.Fatalf("press B: %v", err)
	}
	if _, err := c.Move(vector.Pt{X: 200, Y: 400}); err != nil {
		t.Fatalf("move: %v", err)
	}
	c.Cancel()
	x, y, _ := s.Scene().Position("B")
	if x != 200 || y != 500 || c.Active() {
		t.Fatalf("cancel should restore (200,500), got (%v,%v)", x, y)
	}
}
