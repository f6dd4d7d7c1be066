/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"testing"
)

func TestWordWrap_Basic(t *testing.T) {
	// basicfont glyphs are 7px wide, so "from Go" (49px) does not fit in 45
	l := NewWordWrap(BasicProvider{})
	box, err := l.Layout([]Span{{Text: "Hello world from Go"}}, 45)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	var got []string
	for _, ln := range box.Lines {
		got = append(got, ln.Text())
	}
	if strings.Join(got, "|") != "Hello|world|from|Go" {
		t.Fatalf("unexpected lines: %q", got)
	}
	if box.Width != 35 {
		t.Fatalf("trailing spaces must not count toward width, got %v", box.Width)
	}
	if box.Height != 4*13 {
		t.Fatalf("unexpected height %v", box.Height)
	}

	box, _ = l.Layout([]Span{{Text: "Hello world from Go"}}, 50)
	got = got[:0]
	for _, ln := range box.Lines {
		got = append(got, ln.Text())
	}
	if strings.Join(got, "|") != "Hello|world|from Go" || box.Width != 49 || box.Height != 3*13 {
		t.Fatalf("a line exactly under the limit should stay together: %q w=%v h=%v", got, box.Width, box.Height)
	}
}

func TestWordWrap_FitsAndNewlines(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	box, _ := l.Layout([]Span{{Text: "ab cd"}}, 0)
	if len(box.Lines) != 1 || box.Width != 35 {
		t.Fatalf("unbounded width should keep one line: %+v", box)
	}
	box, _ = l.Layout([]Span{{Text: "ab\n\ncd"}}, 0)
	if len(box.Lines) != 3 || box.Lines[1].Text() != "" {
		t.Fatalf("expected blank middle line, got %d lines", len(box.Lines))
	}
	box, _ = l.Layout(nil, 100)
	if len(box.Lines) != 1 || box.Height <= 0 {
		t.Fatalf("empty text still occupies one line: %+v", box)
	}
}

func TestMeasure_Deterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, []Span{{Text: "ABC"}})
	w2, h2 := Measure(BasicProvider{}, []Span{{Text: "A"}, {Text: "BC"}})
	if w1 != w2 || h1 != h2 {
		t.Fatalf("expected same measure, got w1=%v h1=%v vs w2=%v h2=%v", w1, h1, w2, h2)
	}
}

func TestOTProvider_GoFontsAndFallback(t *testing.T) {
	p := DefaultProvider()
	w, h := Measure(p, []Span{{Text: "Hello", Font: FontSpec{Family: GoFamily, SizePt: 20, Weight: 700}}})
	if w <= 0 || h <= 0 {
		t.Fatalf("expected positive measure: w=%v h=%v", w, h)
	}
	w2, _ := Measure(p, []Span{{Text: "Hello", Font: FontSpec{Family: GoFamily, SizePt: 40, Weight: 700}}})
	if w2 <= w {
		t.Fatalf("larger size should be wider: %v vs %v", w2, w)
	}
	if _, ok := GoFonts().Bytes(FontSpec{Family: GoFamily, Weight: 600}); !ok {
		t.Fatalf("nearest-weight lookup failed")
	}

	empty := &OTProvider{Lib: NewFontLibrary()}
	w, h = Measure(empty, []Span{{Text: "Hello", Font: FontSpec{Family: "Nonexistent", SizePt: 12}}})
	if w != 35 || h <= 0 {
		t.Fatalf("expected basicfont fallback: w=%v h=%v", w, h)
	}
}

func TestFontLibrary_LoadErrors(t *testing.T) {
	fl := NewFontLibrary()
	if err := fl.LoadBytes("Broken", 400, false, []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := fl.LoadTTF("Missing", 400, false, "/does/not/exist.ttf"); err == nil {
		t.Fatalf("expected read error")
	}
}
