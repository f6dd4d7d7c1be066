/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "cardcraft/internal/domain"

// TextStyle is a per-kind text preset. Sizes are in points at 72 DPI, so one
// point is one canvas pixel. Leading is extra pixels below each line.
type TextStyle struct {
	Name     string
	Font     FontSpec
	Tracking float64
	Leading  float64
}

var builtinStyles = map[domain.Kind]TextStyle{
	domain.KindTitle: {
		Name:    "title",
		Font:    FontSpec{Family: GoFamily, SizePt: 32, Weight: 700},
		Leading: 4,
	},
	domain.KindBody: {
		Name:    "body",
		Font:    FontSpec{Family: GoFamily, SizePt: 16, Weight: 400},
		Leading: 4,
	},
	domain.KindTag: {
		Name:     "tag",
		Font:     FontSpec{Family: GoFamily, SizePt: 13, Weight: 700},
		Tracking: 0.5,
	},
}

// StyleFor returns the builtin style for a text kind.
func StyleFor(k domain.Kind) (TextStyle, bool) { s, ok := builtinStyles[k]; return s, ok }

// WithSize returns a copy with the font size replaced when size > 0.
func (s TextStyle) WithSize(size float64) TextStyle {
	if size > 0 {
		s.Font.SizePt = size
	}
	return s
}

// Spans wraps text into a single span carrying this style.
func (s TextStyle) Spans(text string) []Span {
	return []Span{{Text: text, Font: s.Font, Tracking: s.Tracking, Leading: s.Leading}}
}

// ListStyles lists the kinds that carry a text style, in toolbar order.
func ListStyles() []domain.Kind {
	return []domain.Kind{domain.KindTitle, domain.KindBody, domain.KindTag}
}
