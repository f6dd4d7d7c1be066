/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns an editing session: the persistent card document and
// the transient drag/guide state, kept apart so that only explicit user
// actions change what gets saved.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"cardcraft/internal/assets"
	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/scene"
	"cardcraft/internal/textlayout"
	"cardcraft/internal/theme"
	"cardcraft/internal/vector"
)

var (
	ErrDragInProgress = errors.New("drag in progress")
	ErrNoDrag         = errors.New("no drag in progress")
	ErrNotText        = errors.New("element does not hold text")
	ErrNotImage       = errors.New("element is not an image")
)

// Placement of newly added elements: a left-aligned column stepping down by
// sequence order.
const (
	placeX    = 60.0
	placeY    = 100.0
	placeStep = 70.0
)

// GuideState holds at most one vertical and one horizontal guide. It is set
// while a drag snaps and cleared when the drag ends; it is never persisted.
type GuideState struct {
	Vertical   *float64
	Horizontal *float64
}

// Set copies the guides of a snap result.
func (g *GuideState) Set(r vector.SnapResult) { g.Vertical, g.Horizontal = r.Vertical, r.Horizontal }

// Clear removes both guides.
func (g *GuideState) Clear() { g.Vertical, g.Horizontal = nil, nil }

// Empty reports whether no guide is shown.
func (g GuideState) Empty() bool { return g.Vertical == nil && g.Horizontal == nil }

// Lines returns the guides as full-canvas lines for drawing.
func (g GuideState) Lines(canvas vector.Size) []vector.GuideLine {
	return vector.GuidesFor(g.Vertical, g.Horizontal, canvas)
}

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Tolerance float64
	Canvas    domain.Size
	Catalog   *theme.Catalog
	Provider  textlayout.Provider
	// AssetsRoot is the workspace that image uploads are copied into.
	AssetsRoot string
}

type drag struct {
	id               string
	originX, originY float64
	last             vector.SnapResult
	moved            bool
}

// Session is single-threaded: the UI or CLI calls it from one goroutine.
type Session struct {
	doc       domain.Document
	guides    GuideState
	scene     *scene.Scene
	catalog   *theme.Catalog
	canvas    vector.Size
	tolerance float64
	assets    string
	drag      *drag
	selected  string
	log       *slog.Logger
}

// New opens a session over doc. The document is validated and copied.
func New(doc domain.Document, opts Options) (*Session, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = vector.DefaultTolerance
	}
	if opts.Canvas == (domain.Size{}) {
		opts.Canvas = domain.DefaultCanvas
	}
	if opts.Catalog == nil {
		opts.Catalog = theme.NewCatalog()
	}
	d := doc.Clone()
	if d.ThemeID == "" {
		d.ThemeID = theme.DefaultID
	}
	s := &Session{
		doc:       d,
		catalog:   opts.Catalog,
		canvas:    vector.Size{W: opts.Canvas.W, H: opts.Canvas.H},
		tolerance: opts.Tolerance,
		assets:    opts.AssetsRoot,
		log:       applog.WithComponent("editor"),
	}
	sopts := []scene.Option{scene.WithCanvas(s.canvas)}
	if opts.Provider != nil {
		sopts = append(sopts, scene.WithProvider(opts.Provider))
	}
	s.scene = scene.New(s.doc, s.theme(), sopts...)
	return s, nil
}

func (s *Session) theme() theme.Theme { return s.catalog.Resolve(s.doc.ThemeID) }

func (s *Session) rebuild() { s.scene.Rebuild(s.doc, s.theme()) }

// Scene exposes the live geometry for drawing.
func (s *Session) Scene() *scene.Scene { return s.scene }

// Theme returns the resolved theme of the document.
func (s *Session) Theme() theme.Theme { return s.theme() }

// Catalog returns the theme catalog.
func (s *Session) Catalog() *theme.Catalog { return s.catalog }

// Canvas returns the canvas size.
func (s *Session) Canvas() vector.Size { return s.canvas }

// Tolerance returns the snap distance.
func (s *Session) Tolerance() float64 { return s.tolerance }

// Document returns a copy of the current document for display. Use Snapshot
// for anything that is written out.
func (s *Session) Document() domain.Document { return s.doc.Clone() }

// Preview is Document with the live drag position applied, for redrawing
// the card while a drag is in progress.
func (s *Session) Preview() domain.Document {
	d := s.doc.Clone()
	if s.drag == nil || !s.drag.moved {
		return d
	}
	if i := d.Index(s.drag.id); i >= 0 {
		d.Elements[i].Geometry.X, d.Elements[i].Geometry.Y = s.drag.last.X, s.drag.last.Y
	}
	return d
}

// Guides returns the current guide state.
func (s *Session) Guides() GuideState { return s.guides }

// Dragging reports whether a drag is active, and on which element.
func (s *Session) Dragging() (string, bool) {
	if s.drag == nil {
		return "", false
	}
	return s.drag.id, true
}

// Selected returns the selected element id, if any.
func (s *Session) Selected() string { return s.selected }

// Select marks id as selected; an empty id clears the selection.
func (s *Session) Select(id string) error {
	if id != "" && s.doc.Index(id) < 0 {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, id)
	}
	s.selected = id
	return nil
}

func (s *Session) mutable() error {
	if s.drag != nil {
		return ErrDragInProgress
	}
	return nil
}

// defaultPlacement returns the top-left for a new element of height h.
func (s *Session) defaultPlacement(h float64) (float64, float64) {
	y := placeY + placeStep*float64(len(s.doc.Elements))
	if maxY := s.canvas.H - h; y > maxY {
		y = maxY
	}
	return placeX, math.Max(0, y)
}

// AddElement appends a new element of kind. For text kinds content is the
// text; for images it is the ImageRef. Text elements start auto-sized.
func (s *Session) AddElement(kind domain.Kind, content string) (domain.Element, error) {
	if err := s.mutable(); err != nil {
		return domain.Element{}, err
	}
	if !kind.Valid() {
		return domain.Element{}, fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}
	size := domain.DefaultSize(kind)
	e := domain.Element{ID: domain.NewElementID(), Kind: kind, Geometry: domain.Geometry{Width: size.W}}
	if kind.IsText() {
		e.Text = content
	} else {
		if content == "" {
			return domain.Element{}, domain.ErrMissingImageData
		}
		e.ImageRef = content
		e.Geometry.Height = domain.Ptr(size.H)
	}
	return s.add(e)
}

// AddImage imports src into the session's workspace and adds it as an image
// element sized to its natural aspect ratio. A rejected image leaves the
// document unchanged.
func (s *Session) AddImage(src string) (domain.Element, error) {
	if err := s.mutable(); err != nil {
		return domain.Element{}, err
	}
	if s.assets == "" {
		return domain.Element{}, errors.New("no workspace for image uploads")
	}
	info, err := assets.Import(s.assets, src)
	if err != nil {
		return domain.Element{}, err
	}
	w := domain.DefaultSize(domain.KindImage).W
	h := vector.FloatRound(w*float64(info.Height)/float64(info.Width), 3)
	if h > s.canvas.H {
		w, h = vector.FloatRound(w*s.canvas.H/h, 3), s.canvas.H
	}
	return s.add(domain.Element{
		ID:       domain.NewElementID(),
		Kind:     domain.KindImage,
		Geometry: domain.Geometry{Width: w, Height: domain.Ptr(h)},
		ImageRef: info.Ref,
	})
}

// add places e by sequence order and appends it.
func (s *Session) add(e domain.Element) (domain.Element, error) {
	e.Geometry.X, e.Geometry.Y = s.defaultPlacement(e.StoredHeight())
	if err := s.doc.Append(e); err != nil {
		return domain.Element{}, err
	}
	s.rebuild()
	s.selected = e.ID
	s.log.Info("element added", slog.String("id", e.ID), slog.String("kind", string(e.Kind)))
	return e, nil
}

func (s *Session) replace(e domain.Element) error {
	if err := s.doc.Replace(e); err != nil {
		return err
	}
	s.rebuild()
	return nil
}

// UpdateText replaces the text of a title, body or tag element.
func (s *Session) UpdateText(id, text string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	e, ok := s.doc.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, id)
	}
	if !e.Kind.IsText() {
		return fmt.Errorf("%w: %s", ErrNotText, id)
	}
	e.Text = text
	return s.replace(e)
}

// SetImage points an image element at a new asset reference.
func (s *Session) SetImage(id, ref string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	e, ok := s.doc.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, id)
	}
	if e.Kind != domain.KindImage {
		return fmt.Errorf("%w: %s", ErrNotImage, id)
	}
	if ref == "" {
		return domain.ErrMissingImageData
	}
	e.ImageRef = ref
	return s.replace(e)
}

// SetGeometry replaces an element's geometry, e.g. from a resize handle.
func (s *Session) SetGeometry(id string, g domain.Geometry) error {
	if err := s.mutable(); err != nil {
		return err
	}
	e, ok := s.doc.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, id)
	}
	e.Geometry = g
	return s.replace(e)
}

// DeleteElement removes id from the document.
func (s *Session) DeleteElement(id string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if err := s.doc.Remove(id); err != nil {
		return err
	}
	if s.selected == id {
		s.selected = ""
	}
	s.rebuild()
	s.log.Info("element deleted", slog.String("id", id))
	return nil
}

// SetTheme switches the document theme.
func (s *Session) SetTheme(id string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if _, err := s.catalog.Get(id); err != nil {
		return err
	}
	s.doc.ThemeID = id
	s.rebuild()
	return nil
}

// Snapshot returns a copy of the document for export or persistence. It is
// refused while a drag is in progress.
func (s *Session) Snapshot() (domain.Document, error) {
	if s.drag != nil {
		return domain.Document{}, ErrDragInProgress
	}
	return s.doc.Clone(), nil
}

// Load replaces the whole document, e.g. after reopening from disk.
func (s *Session) Load(doc domain.Document) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	s.doc = doc.Clone()
	if s.doc.ThemeID == "" {
		s.doc.ThemeID = theme.DefaultID
	}
	if s.selected != "" && s.doc.Index(s.selected) < 0 {
		s.selected = ""
	}
	s.rebuild()
	return nil
}

// ApplyTemplate replaces the document with the template's elements and theme.
func (s *Session) ApplyTemplate(t domain.Template) error {
	if err := s.Load(t.ToDocument()); err != nil {
		return fmt.Errorf("apply template %q: %w", t.Name, err)
	}
	s.selected = ""
	s.log.Info("template applied", slog.String("name", t.Name), slog.Int("elements", len(t.Elements)))
	return nil
}

// AsTemplate captures the current document as a named template.
func (s *Session) AsTemplate(name string) (domain.Template, error) {
	doc, err := s.Snapshot()
	if err != nil {
		return domain.Template{}, err
	}
	return domain.TemplateFromDocument(name, doc), nil
}
