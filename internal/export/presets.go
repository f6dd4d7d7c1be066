/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"cardcraft/internal/domain"
	"cardcraft/internal/theme"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export across multiple formats.
//
// Path semantics: OutDir defaults to <workspace>/exports/<preset>/ and relative
// values are placed under <workspace>/exports. Each format writes <Name>.<ext>.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: png, pdf, svg; empty means preset defaults
	OutDir  string
	Name    string // base file name, default "card"
	Options Options
}

// BatchExport runs the exporters for a preset and returns the written paths.
func BatchExport(root string, doc domain.Document, th theme.Theme, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = PresetFormats(opt.Preset)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("unknown preset %q", opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(root, "exports", baseOut)
	}
	name := opt.Name
	if name == "" {
		name = "card"
	}
	assetsRoot := root

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(baseOut, name+"."+f)
		var err error
		switch f {
		case "png":
			err = ExportPNGFile(doc, th, assetsRoot, out, opt.Options)
		case "pdf":
			err = ExportPDFFile(doc, th, assetsRoot, out, opt.Options)
		case "svg":
			err = ExportSVGFile(doc, th, assetsRoot, out, opt.Options)
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

// PresetFormats lists the formats a preset produces; nil for unknown presets.
func PresetFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return nil
	}
}
