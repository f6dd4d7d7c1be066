/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the card document model. A Document is what gets written
// to card.json and what templates are built from; transient editor state
// (drag, guides, selection) never lives here.

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the element variants. All kinds share Geometry; kind
// specific fields (Text, ImageRef) are optional.
type Kind string

const (
	KindTitle Kind = "title"
	KindBody  Kind = "body"
	KindTag   Kind = "tag"
	KindImage Kind = "image"
)

// Kinds lists the element kinds in toolbar order.
func Kinds() []Kind { return []Kind{KindTitle, KindBody, KindTag, KindImage} }

// Valid reports whether k is a known element kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTitle, KindBody, KindTag, KindImage:
		return true
	}
	return false
}

// IsText reports whether the kind carries text content.
func (k Kind) IsText() bool { return k == KindTitle || k == KindBody || k == KindTag }

// Size is a width/height pair in canvas pixels.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// DefaultCanvas is the fixed card canvas.
var DefaultCanvas = Size{W: 600, H: 800}

// Geometry positions an element on the canvas. Height is optional: text
// elements are auto-sized by the renderer when it is nil.
// ScaleX/ScaleY of zero are read as 1.
type Geometry struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   *float64 `json:"height,omitempty"`
	Rotation float64  `json:"rotation,omitempty"`
	ScaleX   float64  `json:"scaleX,omitempty"`
	ScaleY   float64  `json:"scaleY,omitempty"`
}

// Element is a single item on the card.
type Element struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Geometry Geometry `json:"geometry"`
	Text     string   `json:"text,omitempty"`
	ImageRef string   `json:"imageRef,omitempty"`
}

// Document is the persisted card: an ordered element sequence plus a theme.
// Sequence order is z-order.
type Document struct {
	ThemeID  string    `json:"theme"`
	Elements []Element `json:"elements"`
}

// Template is a named, reusable document.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ThemeID   string    `json:"theme"`
	Elements  []Element `json:"elements"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// NewElementID returns a fresh unique element identifier.
func NewElementID() string { return uuid.NewString() }

// Ptr returns a pointer to v; handy for optional geometry fields.
func Ptr(v float64) *float64 { return &v }

// EffectiveScale returns the scale factors with zero read as 1.
func (g Geometry) EffectiveScale() (sx, sy float64) {
	sx, sy = g.ScaleX, g.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// StoredHeight returns the stored height or the kind default when unset.
func (e Element) StoredHeight() float64 {
	if e.Geometry.Height != nil {
		return *e.Geometry.Height
	}
	return DefaultSize(e.Kind).H
}

// DefaultSize returns the size given to a freshly added element of kind k.
func DefaultSize(k Kind) Size {
	switch k {
	case KindTitle:
		return Size{W: 480, H: 60}
	case KindBody:
		return Size{W: 480, H: 120}
	case KindTag:
		return Size{W: 120, H: 36}
	case KindImage:
		return Size{W: 240, H: 180}
	default:
		return Size{W: 100, H: 40}
	}
}

// Clone returns a deep copy of the document so callers can hold a snapshot.
func (d Document) Clone() Document {
	out := Document{ThemeID: d.ThemeID, Elements: make([]Element, len(d.Elements))}
	for i, e := range d.Elements {
		if e.Geometry.Height != nil {
			e.Geometry.Height = Ptr(*e.Geometry.Height)
		}
		out.Elements[i] = e
	}
	return out
}

// ToDocument converts the template into an editable document.
func (t Template) ToDocument() Document {
	return Document{ThemeID: t.ThemeID, Elements: t.Elements}.Clone()
}

// TemplateFromDocument captures doc under the given display name.
func TemplateFromDocument(name string, doc Document) Template {
	d := doc.Clone()
	return Template{
		ID:        uuid.NewString(),
		Name:      name,
		ThemeID:   d.ThemeID,
		Elements:  d.Elements,
		UpdatedAt: time.Now().UTC(),
	}
}
