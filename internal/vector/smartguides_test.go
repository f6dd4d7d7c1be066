/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

var card = Size{W: 600, H: 800}

func guideEq(g *float64, want float64) bool { return g != nil && *g == want }

func TestComputeSnap_EndToEnd(t *testing.T) {
	a := Box{ID: "A", Rect: R(60, 100, 480, 50)}
	b := Box{ID: "B", Rect: R(58, 300, 200, 40)}
	res := ComputeSnap(b, []Box{a}, card, DefaultTolerance)
	if res.X != 60 {
		t.Fatalf("expected snapped x=60, got %v", res.X)
	}
	if !guideEq(res.Vertical, 60) {
		t.Fatalf("expected vertical guide at 60, got %v", res.Vertical)
	}
}

func TestComputeSnap_ExactSnapToSiblingLeft(t *testing.T) {
	sib := Box{ID: "s", Rect: R(100, 500, 50, 50)}
	mv := Box{ID: "m", Rect: R(105, 20, 30, 30)}
	res := ComputeSnap(mv, []Box{sib}, card, 10)
	if res.X != 100 || !guideEq(res.Vertical, 100) {
		t.Fatalf("expected x=100 guide 100, got x=%v guide=%v", res.X, res.Vertical)
	}
	if res.Horizontal != nil || res.Y != 20 {
		t.Fatalf("y axis should be untouched, got y=%v guide=%v", res.Y, res.Horizontal)
	}
}

func TestComputeSnap_NoOpBeyondTolerance(t *testing.T) {
	sib := Box{ID: "s", Rect: R(100, 500, 50, 50)}
	mv := Box{ID: "m", Rect: R(170, 20, 4, 4)}
	res := ComputeSnap(mv, []Box{sib}, card, 10)
	if res.X != 170 || res.Y != 20 || res.Snapped() {
		t.Fatalf("expected unchanged position and no guides, got %+v", res)
	}

	// distance in (tolerance, tolerance+1) must not snap either
	mv = Box{ID: "m", Rect: R(160.5, 20, 4, 4)}
	res = ComputeSnap(mv, []Box{sib}, card, 10)
	if res.X != 160.5 || res.Vertical != nil {
		t.Fatalf("snapped beyond tolerance: %+v", res)
	}
}

func TestComputeSnap_SelfExclusion(t *testing.T) {
	mv := Box{ID: "m", Rect: R(33, 47, 20, 20)}
	res := ComputeSnap(mv, []Box{mv}, card, 10)
	if res.Snapped() || res.X != 33 || res.Y != 47 {
		t.Fatalf("moving box snapped to itself: %+v", res)
	}
}

func TestComputeSnap_AxisIndependence(t *testing.T) {
	sib := Box{ID: "s", Rect: R(100, 200, 50, 50)}
	// x within tolerance, y far away
	res := ComputeSnap(Box{ID: "m", Rect: R(97, 620, 40, 10)}, []Box{sib}, card, 5)
	if res.X != 100 || res.Horizontal != nil || res.Y != 620 {
		t.Fatalf("unexpected result: %+v", res)
	}
	// y within tolerance, x far away
	res = ComputeSnap(Box{ID: "m", Rect: R(520, 203, 10, 10)}, []Box{sib}, card, 5)
	if res.Y != 200 || res.Vertical != nil || res.X != 520 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestComputeSnap_MidlineAndCenters(t *testing.T) {
	// zero siblings: only canvas midlines participate
	mv := Box{ID: "m", Rect: R(253, 352, 100, 100)} // center (303, 402)
	res := ComputeSnap(mv, nil, card, 5)
	if res.X != 250 || res.Y != 350 {
		t.Fatalf("expected centered at midlines, got %+v", res)
	}
	if !guideEq(res.Vertical, 300) || !guideEq(res.Horizontal, 400) {
		t.Fatalf("expected guides at midlines, got v=%v h=%v", res.Vertical, res.Horizontal)
	}
}

func TestComputeSnap_FarEdge(t *testing.T) {
	sib := Box{ID: "s", Rect: R(400, 10, 100, 20)} // right edge 500
	mv := Box{ID: "m", Rect: R(150, 700, 348, 20)} // right edge 498, left 150 center 324
	res := ComputeSnap(mv, []Box{sib}, card, 5)
	if res.X != 152 || !guideEq(res.Vertical, 500) {
		t.Fatalf("expected far edge alignment, got %+v", res)
	}
}

func TestComputeSnap_TieBreakDeterminism(t *testing.T) {
	// Near edge (97) is 3 from the sibling's left edge; far edge (297) is 3
	// from the canvas midline. References are tried near first, so the
	// sibling wins even though the midline is the first candidate.
	a := Box{ID: "a", Rect: R(100, 600, 10, 10)}
	mv := Box{ID: "m", Rect: R(97, 20, 200, 10)}
	for i := 0; i < 3; i++ {
		res := ComputeSnap(mv, []Box{a}, card, 5)
		if res.X != 100 || !guideEq(res.Vertical, 100) {
			t.Fatalf("run %d: expected near-edge winner at 100, got %+v", i, res)
		}
	}

	// Same reference equally close to the midline and a sibling edge: the
	// midline comes first among candidates and wins.
	e := Box{ID: "e", Rect: R(294, 600, 200, 2)} // lines 294, 394, 494
	near := Box{ID: "m", Rect: R(297, 20, 100, 2)}
	res0 := ComputeSnap(near, []Box{e}, card, 5)
	if res0.X != 300 || !guideEq(res0.Vertical, 300) {
		t.Fatalf("expected midline to beat an equally close sibling, got %+v", res0)
	}

	// Same reference, two siblings at equal distance: document order decides.
	c := Box{ID: "c", Rect: R(80, 650, 14, 2)}  // lines 80, 87, 94
	d := Box{ID: "d", Rect: R(100, 660, 40, 2)} // lines 100, 120, 140
	res := ComputeSnap(mv, []Box{c, d}, card, 5)
	if res.X != 94 || !guideEq(res.Vertical, 94) {
		t.Fatalf("expected earlier sibling to win, got %+v", res)
	}
	res = ComputeSnap(mv, []Box{d, c}, card, 5)
	if res.X != 100 || !guideEq(res.Vertical, 100) {
		t.Fatalf("expected earlier sibling to win after reorder, got %+v", res)
	}
}

func TestComputeSnap_IdempotentCommit(t *testing.T) {
	a := Box{ID: "A", Rect: R(60, 100, 480, 50)}
	b := Box{ID: "B", Rect: R(58, 303, 200, 40)}
	first := ComputeSnap(b, []Box{a}, card, DefaultTolerance)
	b.X, b.Y = first.X, first.Y
	second := ComputeSnap(b, []Box{a}, card, DefaultTolerance)
	if second.X != first.X || second.Y != first.Y {
		t.Fatalf("recompute moved the box: first=%+v second=%+v", first, second)
	}
}

func TestComputeSnap_DegenerateInputs(t *testing.T) {
	mv := Box{ID: "m", Rect: R(298, 398, 4, 4)}
	for _, tc := range []struct {
		name   string
		canvas Size
		tol    float64
	}{
		{"zero tolerance", card, 0},
		{"negative tolerance", card, -3},
		{"NaN tolerance", card, math.NaN()},
		{"zero canvas", Size{}, 10},
		{"negative canvas", Size{W: -600, H: 800}, 10},
	} {
		res := ComputeSnap(mv, nil, tc.canvas, tc.tol)
		if res.Snapped() || res.X != 298 || res.Y != 398 {
			t.Fatalf("%s: expected unchanged, got %+v", tc.name, res)
		}
	}
}

func TestComputeSnap_NonFiniteSiblingsExcluded(t *testing.T) {
	bad := Box{ID: "bad", Rect: R(math.NaN(), math.Inf(1), 10, 10)}
	good := Box{ID: "good", Rect: R(40, 40, 10, 10)}
	res := ComputeSnap(Box{ID: "m", Rect: R(42, 700, 10, 10)}, []Box{bad, good}, card, 5)
	if res.X != 40 || math.IsNaN(res.Y) || math.IsInf(res.Y, 0) {
		t.Fatalf("unexpected result: %+v", res)
	}
	res = ComputeSnap(Box{ID: "m", Rect: R(math.NaN(), 0, 10, 10)}, []Box{good}, card, 5)
	if res.Snapped() {
		t.Fatalf("non-finite moving box must not snap: %+v", res)
	}
}

func TestGuidesSpanCanvas(t *testing.T) {
	v, h := 60.0, 400.0
	gs := GuidesFor(&v, &h, card)
	if len(gs) != 2 {
		t.Fatalf("expected two guides, got %d", len(gs))
	}
	if gs[0].Orientation != "vertical" || gs[0].From != (Pt{60, 0}) || gs[0].To != (Pt{60, 800}) {
		t.Fatalf("unexpected vertical guide: %+v", gs[0])
	}
	if gs[1].Orientation != "horizontal" || gs[1].To != (Pt{600, 400}) {
		t.Fatalf("unexpected horizontal guide: %+v", gs[1])
	}
	if len((SnapResult{}).Guides(card)) != 0 {
		t.Fatalf("no guides expected for empty result")
	}
}
