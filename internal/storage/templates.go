/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cardcraft/internal/domain"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrQuotaExceeded    = errors.New("template storage quota exceeded")
	ErrInvalidName      = errors.New("invalid template name")
)

// MaxNameLen bounds template display names (in runes).
const MaxNameLen = 80

// TemplateInfo is a listing entry.
type TemplateInfo struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	ThemeID   string    `json:"theme"`
	Elements  int       `json:"elements"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TemplateStore is a key-value store of templates keyed by display name.
// Put replaces an existing template of the same name.
type TemplateStore interface {
	Put(ctx context.Context, t domain.Template) error
	Get(ctx context.Context, name string) (domain.Template, error)
	List(ctx context.Context) ([]TemplateInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// NormalizeName trims and checks a template name.
func NormalizeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(n) > MaxNameLen {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLen)
	}
	if strings.ContainsAny(n, "/\\\x00") {
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, n)
	}
	return n, nil
}

// PrepareTemplate normalizes the name, validates the elements and fills ID and
// timestamp. Every store runs it before writing.
func PrepareTemplate(t domain.Template) (domain.Template, error) {
	name, err := NormalizeName(t.Name)
	if err != nil {
		return domain.Template{}, err
	}
	t.Name = name
	if err := (domain.Document{ThemeID: t.ThemeID, Elements: t.Elements}).Validate(); err != nil {
		return domain.Template{}, fmt.Errorf("template %q: %w", name, err)
	}
	if t.ID == "" {
		t.ID = domain.NewElementID()
	}
	if t.Elements == nil {
		t.Elements = []domain.Element{}
	}
	t.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return t, nil
}
