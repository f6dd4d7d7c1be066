/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package theme holds the card color/typography presets and user theme packs.
package theme

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"cardcraft/internal/domain"
	"cardcraft/internal/vector"
)

var ErrUnknownTheme = errors.New("unknown theme")

// DefaultID is used for new documents and when a stored theme id is unknown
// to the renderer.
const DefaultID = "classic"

// Theme is a named palette plus typography sizes. Colors are hex strings so
// theme packs stay hand-editable.
type Theme struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Background string  `json:"background" yaml:"background"`
	Surface    string  `json:"surface" yaml:"surface"`
	Text       string  `json:"text" yaml:"text"`
	Accent     string  `json:"accent" yaml:"accent"`
	AccentText string  `json:"accentText,omitempty" yaml:"accentText,omitempty"`
	Border     string  `json:"border,omitempty" yaml:"border,omitempty"`
	Radius     float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Padding    float64 `json:"padding,omitempty" yaml:"padding,omitempty"`
	TitleSize  float64 `json:"titleSize,omitempty" yaml:"titleSize,omitempty"`
	BodySize   float64 `json:"bodySize,omitempty" yaml:"bodySize,omitempty"`
	TagSize    float64 `json:"tagSize,omitempty" yaml:"tagSize,omitempty"`
}

// Palette is the parsed form of a theme's colors.
type Palette struct {
	Background, Surface, Text, Accent, AccentText, Border vector.Color
}

// Palette parses the hex colors. Optional colors fall back to Text/Background.
func (t Theme) Palette() (Palette, error) {
	var p Palette
	for _, c := range []struct {
		name string
		hex  string
		dst  *vector.Color
	}{
		{"background", t.Background, &p.Background},
		{"surface", t.Surface, &p.Surface},
		{"text", t.Text, &p.Text},
		{"accent", t.Accent, &p.Accent},
	} {
		v, err := vector.ParseHex(c.hex)
		if err != nil {
			return Palette{}, fmt.Errorf("theme %s %s: %w", t.ID, c.name, err)
		}
		*c.dst = v
	}
	p.AccentText, p.Border = p.Background, p.Text
	if t.AccentText != "" {
		v, err := vector.ParseHex(t.AccentText)
		if err != nil {
			return Palette{}, fmt.Errorf("theme %s accentText: %w", t.ID, err)
		}
		p.AccentText = v
	}
	if t.Border != "" {
		v, err := vector.ParseHex(t.Border)
		if err != nil {
			return Palette{}, fmt.Errorf("theme %s border: %w", t.ID, err)
		}
		p.Border = v
	}
	return p, nil
}

// FontSize returns the theme's size for a text kind, or 0 to keep the style default.
func (t Theme) FontSize(k domain.Kind) float64 {
	switch k {
	case domain.KindTitle:
		return t.TitleSize
	case domain.KindBody:
		return t.BodySize
	case domain.KindTag:
		return t.TagSize
	}
	return 0
}

var builtins = []Theme{
	{
		ID: "classic", Name: "Classic",
		Background: "#ffffff", Surface: "#f4f4f5", Text: "#18181b", Accent: "#2563eb", AccentText: "#ffffff",
		Border: "#d4d4d8", Radius: 8, Padding: 12, TitleSize: 32, BodySize: 16, TagSize: 13,
	},
	{
		ID: "midnight", Name: "Midnight",
		Background: "#0f172a", Surface: "#1e293b", Text: "#e2e8f0", Accent: "#a78bfa", AccentText: "#0f172a",
		Border: "#334155", Radius: 10, Padding: 14, TitleSize: 34, BodySize: 16, TagSize: 13,
	},
	{
		ID: "sunset", Name: "Sunset",
		Background: "#fff7ed", Surface: "#ffedd5", Text: "#431407", Accent: "#ea580c", AccentText: "#fff7ed",
		Border: "#fdba74", Radius: 16, Padding: 12, TitleSize: 36, BodySize: 17, TagSize: 14,
	},
	{
		ID: "mint", Name: "Mint",
		Background: "#f0fdf4", Surface: "#dcfce7", Text: "#052e16", Accent: "#16a34a", AccentText: "#f0fdf4",
		Border: "#86efac", Radius: 4, Padding: 10, TitleSize: 30, BodySize: 15, TagSize: 12,
	},
}

// Catalog is the set of themes known to a session: builtins plus any packs
// loaded from a workspace or user theme directory.
type Catalog struct {
	mu     sync.RWMutex
	themes map[string]Theme
	order  []string
}

// NewCatalog returns a catalog holding the builtin themes.
func NewCatalog() *Catalog {
	c := &Catalog{themes: make(map[string]Theme, len(builtins))}
	for _, t := range builtins {
		c.add(t)
	}
	return c
}

func (c *Catalog) add(t Theme) {
	if _, exists := c.themes[t.ID]; !exists {
		c.order = append(c.order, t.ID)
	}
	c.themes[t.ID] = t
}

// Add registers or replaces a theme after validating its colors.
func (c *Catalog) Add(t Theme) error {
	if t.ID == "" {
		return errors.New("theme id is required")
	}
	if _, err := t.Palette(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(t)
	return nil
}

// Get returns the theme with id.
func (c *Catalog) Get(id string) (Theme, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.themes[id]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, id)
	}
	return t, nil
}

// Resolve returns the theme with id, or the default theme when id is unknown.
func (c *Catalog) Resolve(id string) Theme {
	if t, err := c.Get(id); err == nil {
		return t
	}
	t, _ := c.Get(DefaultID)
	return t
}

// List returns builtins first, then loaded packs in load order.
func (c *Catalog) List() []Theme {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Theme, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.themes[id])
	}
	return out
}

// IDs returns the theme identifiers in List order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

var builtinCatalog = NewCatalog()

// Get looks up a builtin theme.
func Get(id string) (Theme, error) { return builtinCatalog.Get(id) }

// List returns the builtin themes.
func List() []Theme { return builtinCatalog.List() }
