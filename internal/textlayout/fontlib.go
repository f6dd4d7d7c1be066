/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// GoFamily is the family name under which the bundled Go fonts are registered.
const GoFamily = "Go"

// FontLibrary stores parsed OpenType fonts keyed by family/weight/italic
// together with their raw bytes, which the raster exporter needs to build
// its own faces.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]entry
}

type fontKey struct {
	family string
	weight int
	italic bool
}

type entry struct {
	font *opentype.Font
	data []byte
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]entry)} }

var (
	goLibOnce sync.Once
	goLib     *FontLibrary
)

// GoFonts returns a shared library seeded with the Go font family.
func GoFonts() *FontLibrary {
	goLibOnce.Do(func() {
		goLib = NewFontLibrary()
		for _, f := range []struct {
			weight int
			italic bool
			data   []byte
		}{
			{400, false, goregular.TTF},
			{700, false, gobold.TTF},
			{400, true, goitalic.TTF},
			{700, true, gobolditalic.TTF},
		} {
			// bundled fonts always parse
			_ = goLib.LoadBytes(GoFamily, f.weight, f.italic, f.data)
		}
	})
	return goLib
}

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadBytes(family, weight, italic, data)
}

// LoadBytes parses and registers an in-memory font.
func (fl *FontLibrary) LoadBytes(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s/%d: %w", family, weight, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]entry)
	}
	fl.fonts[fontKey{family: family, weight: weight, italic: italic}] = entry{font: f, data: data}
	return nil
}

// Bytes returns the raw font data that best matches spec.
func (fl *FontLibrary) Bytes(spec FontSpec) ([]byte, bool) {
	e, ok := fl.find(spec)
	return e.data, ok
}

// find returns the exact match or the same-family font closest in weight,
// preferring the requested slant.
func (fl *FontLibrary) find(spec FontSpec) (entry, bool) {
	if fl == nil {
		return entry{}, false
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if e, ok := fl.fonts[fontKey{family: spec.Family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return e, true
	}
	var (
		best     entry
		bestCost = -1
	)
	for k, e := range fl.fonts {
		if k.family != spec.Family {
			continue
		}
		cost := abs(k.weight - spec.Weight)
		if k.italic != spec.Italic {
			cost += 1000
		}
		if bestCost < 0 || cost < bestCost {
			best, bestCost = e, cost
		}
	}
	return best, bestCost >= 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.
// Faces are cached per spec; opentype faces are not safe for concurrent use,
// so callers that share a provider across goroutines must serialize.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider

	mu    sync.Mutex
	faces map[FontSpec]font.Face
}

func (p *OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}

	if e, ok := p.Lib.find(spec); ok {
		p.mu.Lock()
		face, cached := p.faces[spec]
		if !cached {
			f, err := opentype.NewFace(e.font, &opentype.FaceOptions{Size: spec.SizePt, DPI: dpi, Hinting: font.HintingNone})
			if err == nil {
				if p.faces == nil {
					p.faces = make(map[FontSpec]font.Face)
				}
				p.faces[spec] = f
				face, cached = f, true
			}
		}
		p.mu.Unlock()
		if cached {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

// DefaultProvider resolves against the bundled Go fonts.
func DefaultProvider() *OTProvider { return &OTProvider{Lib: GoFonts()} }
