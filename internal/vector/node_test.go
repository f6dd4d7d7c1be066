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

func TestRectNode_HitAndBounds(t *testing.T) {
	n := NewRect(R(0, 0, 100, 50), Fill{Enabled: true, Color: White}, Stroke{Enabled: true, Width: 1})
	n.SetTransform(Translate(10, 20))
	if !n.Hit(Pt{50 + 10, 25 + 20}) {
		t.Fatalf("expected hit after translation")
	}
	b := n.Bounds()
	if b.X != 10 || b.Y != 20 || b.W != 100 || b.H != 50 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	n.SetTransform(Translate(10, 20).Mul(Scale(2, 0.5)))
	b = n.Bounds()
	if b.W != 200 || b.H != 25 {
		t.Fatalf("scale not reflected in bounds: %+v", b)
	}
	n.SetLocal(R(0, 0, 10, 10))
	if n.Local().W != 10 {
		t.Fatalf("SetLocal not applied")
	}
}

func TestRoundedRectNode_Hit(t *testing.T) {
	n := NewRoundedRect(R(0, 0, 100, 100), 20, Fill{Enabled: true}, Stroke{})
	if !n.Hit(Pt{10, 10}) {
		t.Fatalf("expected hit near corner")
	}
	if n.Hit(Pt{1, 1}) {
		t.Fatalf("corner outside the arc should miss")
	}
	if !n.Hit(Pt{50, 2}) {
		t.Fatalf("top band should hit")
	}
	if b := n.Bounds(); b != R(0, 0, 100, 100) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestGroup_BoundsAndHitIndex(t *testing.T) {
	r1 := NewRect(R(0, 0, 10, 10), Fill{}, Stroke{})
	r2 := NewRect(R(5, 0, 10, 10), Fill{}, Stroke{})
	g := NewGroup(r1, r2)
	if b := g.Bounds(); b != R(0, 0, 15, 10) {
		t.Fatalf("unexpected group bounds: %+v", b)
	}
	if i := g.HitIndex(Pt{7, 5}); i != 1 {
		t.Fatalf("expected top-most child 1, got %d", i)
	}
	if i := g.HitIndex(Pt{2, 5}); i != 0 {
		t.Fatalf("expected child 0, got %d", i)
	}
	if g.Hit(Pt{-5, -5}) {
		t.Fatalf("did not expect hit outside")
	}
	g.SetTransform(Rotate(math.Pi / 2))
	if !g.Hit(Pt{-5, 5}) {
		t.Fatalf("expected hit after rotation")
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff8000")
	if err != nil || c != (Color{255, 128, 0, 255}) {
		t.Fatalf("unexpected: %+v %v", c, err)
	}
	if c, _ := ParseHex("#fff"); c != White {
		t.Fatalf("short form: %+v", c)
	}
	if c, _ := ParseHex("00000080"); c.A != 0x80 || c.Hex() != "#00000080" {
		t.Fatalf("alpha: %+v", c)
	}
	if _, err := ParseHex("#12345"); err == nil {
		t.Fatalf("expected error for bad length")
	}
	if _, err := ParseHex("#gggggg"); err == nil {
		t.Fatalf("expected error for bad digits")
	}
	if MustHex("nope") != Black || White.Hex() != "#ffffff" {
		t.Fatalf("MustHex/Hex wrong")
	}
}
