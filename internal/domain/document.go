/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDuplicateID      = errors.New("duplicate element id")
	ErrElementNotFound  = errors.New("element not found")
	ErrInvalidGeometry  = errors.New("invalid geometry")
	ErrInvalidKind      = errors.New("invalid element kind")
	ErrEmptyElementID   = errors.New("element id is empty")
	ErrMissingImageData = errors.New("image element without image reference")
)

// Validate checks the element invariants: known kind, non-empty id, finite
// non-negative position and size, positive scale factors.
func (e Element) Validate() error {
	if e.ID == "" {
		return ErrEmptyElementID
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
	}
	g := e.Geometry
	for _, f := range []struct {
		name string
		v    float64
	}{{"x", g.X}, {"y", g.Y}, {"width", g.Width}} {
		if !finiteNonNegative(f.v) {
			return fmt.Errorf("%w: element %s %s=%v", ErrInvalidGeometry, e.ID, f.name, f.v)
		}
	}
	if g.Height != nil && !finiteNonNegative(*g.Height) {
		return fmt.Errorf("%w: element %s height=%v", ErrInvalidGeometry, e.ID, *g.Height)
	}
	if math.IsNaN(g.Rotation) || math.IsInf(g.Rotation, 0) {
		return fmt.Errorf("%w: element %s rotation=%v", ErrInvalidGeometry, e.ID, g.Rotation)
	}
	if g.ScaleX < 0 || g.ScaleY < 0 || math.IsNaN(g.ScaleX) || math.IsNaN(g.ScaleY) ||
		math.IsInf(g.ScaleX, 0) || math.IsInf(g.ScaleY, 0) {
		return fmt.Errorf("%w: element %s scale=(%v,%v)", ErrInvalidGeometry, e.ID, g.ScaleX, g.ScaleY)
	}
	return nil
}

// Validate checks every element and identifier uniqueness.
func (d Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Elements))
	for _, e := range d.Elements {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// Index returns the position of the element with id, or -1.
func (d Document) Index(id string) int {
	for i, e := range d.Elements {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the element with id.
func (d Document) Find(id string) (Element, bool) {
	if i := d.Index(id); i >= 0 {
		return d.Elements[i], true
	}
	return Element{}, false
}

// Replace swaps the stored element with the same id for e, wholesale.
func (d *Document) Replace(e Element) error {
	i := d.Index(e.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, e.ID)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	d.Elements[i] = e
	return nil
}

// Append adds e at the top of the z-order.
func (d *Document) Append(e Element) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if d.Index(e.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	d.Elements = append(d.Elements, e)
	return nil
}

// Remove deletes the element with id, preserving the order of the rest.
func (d *Document) Remove(id string) error {
	i := d.Index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	d.Elements = append(d.Elements[:i:i], d.Elements[i+1:]...)
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
