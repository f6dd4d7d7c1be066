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

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
	if c := r.Center(); c.X != 60 || c.Y != 45 {
		t.Fatalf("unexpected center: %+v", c)
	}
}

func TestRectFiniteAndEmpty(t *testing.T) {
	if !R(0, 0, 1, 1).Finite() || R(math.NaN(), 0, 1, 1).Finite() || R(0, 0, math.Inf(1), 1).Finite() {
		t.Fatalf("finite check wrong")
	}
	if !R(0, 0, 0, 10).Empty() || R(0, 0, 1, 1).Empty() {
		t.Fatalf("empty check wrong")
	}
	if (Size{W: 600, H: 800}).Valid() != true || (Size{W: 0, H: 800}).Valid() {
		t.Fatalf("size validity wrong")
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
	back := m.Invert().Apply(p)
	if math.Abs(back.X-1) > 1e-9 || math.Abs(back.Y-1) > 1e-9 {
		t.Fatalf("invert did not round-trip: %+v", back)
	}
}

func TestApplyRectRotated(t *testing.T) {
	b := Rotate(Deg(90)).ApplyRect(R(0, 0, 10, 20))
	if math.Abs(b.W-20) > 1e-9 || math.Abs(b.H-10) > 1e-9 {
		t.Fatalf("unexpected rotated bounds: %+v", b)
	}
}

func TestGeometry_Union_Rotate_FloatRound(t *testing.T) {
	a := R(0, 0, 10, 10)
	b := R(5, -5, 5, 10)
	u := a.Union(b)
	if u.X != 0 || u.Y != -5 || u.W != 10 || u.H != 15 {
		t.Fatalf("unexpected union: %+v", u)
	}
	if m := a.Max(); m.X != 10 || m.Y != 10 {
		t.Fatalf("max wrong: %+v", m)
	}
	p := Rotate(math.Pi).Apply(Pt{1, 0})
	if math.Abs(p.X+1) > 1e-9 || math.Abs(p.Y) > 1e-9 {
		t.Fatalf("unexpected rotate result: %+v", p)
	}
	if FloatRound(1.23456, 2) != 1.23 {
		t.Fatalf("float round fail")
	}
	if FloatRound(1.23456, -1) != 1.23456 {
		t.Fatalf("negative places should be no-op")
	}
	if s := R(1, 2, 3, 4).Scaled(2); s != R(2, 4, 6, 8) {
		t.Fatalf("scaled wrong: %+v", s)
	}
}
