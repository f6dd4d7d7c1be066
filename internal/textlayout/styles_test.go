/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"testing"

	"cardcraft/internal/domain"
)

func TestBuiltinStyles(t *testing.T) {
	for _, k := range ListStyles() {
		s, ok := StyleFor(k)
		if !ok {
			t.Fatalf("style for %s missing", k)
		}
		if s.Font.SizePt <= 0 || s.Font.Family != GoFamily {
			t.Fatalf("unexpected style for %s: %+v", k, s)
		}
	}
	if _, ok := StyleFor(domain.KindImage); ok {
		t.Fatalf("image kind should have no text style")
	}
	s, _ := StyleFor(domain.KindBody)
	if s.WithSize(20).Font.SizePt != 20 || s.WithSize(0).Font.SizePt != s.Font.SizePt {
		t.Fatalf("WithSize wrong")
	}
}

func TestTrackingIncreasesWidth(t *testing.T) {
	w0, _ := Measure(BasicProvider{}, []Span{{Text: "ABCD"}})
	w1, _ := Measure(BasicProvider{}, []Span{{Text: "ABCD", Tracking: 1}})
	if w1 != w0+3 {
		t.Fatalf("expected three tracking gaps: w0=%v w1=%v", w0, w1)
	}
}

func TestLeadingIncreasesHeight(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	b0, err := l.Layout([]Span{{Text: "Hello world from Go", Leading: 0}}, 50)
	if err != nil {
		t.Fatalf("layout0: %v", err)
	}
	b1, err := l.Layout([]Span{{Text: "Hello world from Go", Leading: 4}}, 50)
	if err != nil {
		t.Fatalf("layout1: %v", err)
	}
	if b1.Height != b0.Height+4*float64(len(b0.Lines)) {
		t.Fatalf("expected leading per line: h0=%v h1=%v lines=%d", b0.Height, b1.Height, len(b0.Lines))
	}
}
