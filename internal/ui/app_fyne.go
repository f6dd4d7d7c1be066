//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	fynetheme "fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"cardcraft/internal/backend"
	"cardcraft/internal/config"
	"cardcraft/internal/crash"
	"cardcraft/internal/domain"
	"cardcraft/internal/editor"
	"cardcraft/internal/export"
	applog "cardcraft/internal/log"
	"cardcraft/internal/storage"
	"cardcraft/internal/theme"
	"cardcraft/internal/vector"
	"cardcraft/internal/version"
)

// Run starts the desktop editor on workspaceDir, or on the default workspace
// under the data dir when it is empty. A missing workspace is created.
func Run(workspaceDir string, cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	h, err := openOrInit(workspaceDir)
	if err != nil {
		return err
	}
	defer crash.Recover(h)

	catalog := loadCatalog(h, l)
	session, err := newSession(h, cfg, catalog)
	if err != nil {
		return err
	}

	fyneApp := app.NewWithID("cardcraft")
	w := fyneApp.NewWindow("CardCraft")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1100)
	winH := prefs.IntWithFallback("window.height", 900)
	w.Resize(fyne.NewSize(float32(max(winW, 800)), float32(max(winH, 600))))
	addRecentWorkspace(prefs, h.Root)

	status := widget.NewLabel("Ready")
	dirty := false
	setTitle := func() {
		mark := ""
		if dirty {
			mark = "*"
		}
		w.SetTitle(fmt.Sprintf("CardCraft - %s%s", filepath.Base(h.Root), mark))
	}
	setTitle()

	cardCanvas := NewCardCanvas(session, h.Root)
	cardCanvas.showGuides = cfg.Editor.ShowGuides

	// Inspector (right)
	selLabel := widget.NewLabel("No selection")
	textEntry := widget.NewMultiLineEntry()
	textEntry.SetPlaceHolder("Element text")
	xEntry, yEntry, wEntry, rotEntry := widget.NewEntry(), widget.NewEntry(), widget.NewEntry(), widget.NewEntry()
	refreshInspector := func() {
		id := session.Selected()
		e, ok := session.Document().Find(id)
		if !ok {
			selLabel.SetText("No selection")
			textEntry.SetText("")
			for _, en := range []*widget.Entry{xEntry, yEntry, wEntry, rotEntry} {
				en.SetText("")
			}
			textEntry.Disable()
			return
		}
		selLabel.SetText(fmt.Sprintf("%s (%s)", e.ID, e.Kind))
		if e.Kind.IsText() {
			textEntry.Enable()
			textEntry.SetText(e.Text)
		} else {
			textEntry.SetText(e.ImageRef)
			textEntry.Disable()
		}
		xEntry.SetText(fmtNum(e.Geometry.X))
		yEntry.SetText(fmtNum(e.Geometry.Y))
		wEntry.SetText(fmtNum(e.Geometry.Width))
		rotEntry.SetText(fmtNum(e.Geometry.Rotation))
	}
	cardCanvas.OnSelect = func(string) { refreshInspector() }
	cardCanvas.OnChanged = func(msg string) {
		dirty = true
		setTitle()
		status.SetText(msg)
		refreshInspector()
	}

	changed := func(msg string) {
		cardCanvas.Invalidate()
		cardCanvas.OnChanged(msg)
	}
	fail := func(op string, err error) {
		l.Error(op+" failed", slog.Any("err", err))
		dialog.ShowError(err, w)
	}

	applyText := widget.NewButton("Apply Text", func() {
		id := session.Selected()
		if id == "" {
			return
		}
		if err := session.UpdateText(id, textEntry.Text); err != nil {
			fail("update text", err)
			return
		}
		changed("Text updated")
	})
	applyGeom := widget.NewButton("Apply Geometry", func() {
		id := session.Selected()
		e, ok := session.Document().Find(id)
		if !ok {
			return
		}
		g := e.Geometry
		for _, f := range []struct {
			en  *widget.Entry
			dst *float64
		}{{xEntry, &g.X}, {yEntry, &g.Y}, {wEntry, &g.Width}, {rotEntry, &g.Rotation}} {
			v, err := strconv.ParseFloat(strings.TrimSpace(f.en.Text), 64)
			if err != nil {
				dialog.ShowError(fmt.Errorf("invalid number %q", f.en.Text), w)
				return
			}
			*f.dst = v
		}
		if err := session.SetGeometry(id, g); err != nil {
			fail("set geometry", err)
			return
		}
		changed("Geometry updated")
	})
	inspector := container.NewVBox(
		widget.NewLabelWithStyle("Inspector", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		selLabel,
		textEntry, applyText,
		widget.NewSeparator(),
		widget.NewForm(
			widget.NewFormItem("X", xEntry),
			widget.NewFormItem("Y", yEntry),
			widget.NewFormItem("Width", wEntry),
			widget.NewFormItem("Rotation", rotEntry),
		),
		applyGeom,
	)
	refreshInspector()

	themeSelect := widget.NewSelect(catalog.IDs(), nil)
	themeSelect.SetSelected(session.Theme().ID)
	themeSelect.OnChanged = func(id string) {
		if id == session.Document().ThemeID {
			return
		}
		if err := session.SetTheme(id); err != nil {
			fail("set theme", err)
			return
		}
		changed("Theme: " + id)
	}
	guidesCheck := widget.NewCheck("Show guides", func(v bool) {
		cardCanvas.showGuides = v
		cardCanvas.Refresh()
	})
	guidesCheck.SetChecked(cfg.Editor.ShowGuides)

	addText := func(kind domain.Kind, text string) func() {
		return func() {
			l.Info("toolbar: add", slog.String("kind", string(kind)))
			e, err := session.AddElement(kind, text)
			if err != nil {
				fail("add element", err)
				return
			}
			_ = session.Select(e.ID)
			changed(fmt.Sprintf("Added %s %s", kind, e.ID))
		}
	}
	addImage := func() {
		fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			defer func() { _ = r.Close() }()
			e, err := session.AddImage(r.URI().Path())
			if err != nil {
				fail("add image", err)
				return
			}
			_ = session.Select(e.ID)
			changed("Added image " + e.ID)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".webp"}))
		fd.Show()
	}
	deleteSelected := func() {
		id := session.Selected()
		if id == "" {
			return
		}
		if err := session.DeleteElement(id); err != nil {
			fail("delete element", err)
			return
		}
		changed("Deleted " + id)
	}
	save := func() {
		doc, err := session.Snapshot()
		if err != nil {
			fail("save", err)
			return
		}
		h.Document = doc
		if err := storage.Save(h); err != nil {
			fail("save", err)
			return
		}
		dirty = false
		setTitle()
		status.SetText("Saved " + h.ManifestPath)
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(fynetheme.DocumentSaveIcon(), save),
		widget.NewToolbarSeparator(),
		newTextAction("Title", addText(domain.KindTitle, "Title")),
		newTextAction("Body", addText(domain.KindBody, "Body text")),
		newTextAction("Tag", addText(domain.KindTag, "TAG")),
		widget.NewToolbarAction(fynetheme.FileImageIcon(), addImage),
		widget.NewToolbarAction(fynetheme.DeleteIcon(), deleteSelected),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(fynetheme.ZoomFitIcon(), func() { cardCanvas.FitToWidget() }),
	)
	topBar := container.NewBorder(nil, nil, toolbar, container.NewHBox(guidesCheck, widget.NewLabel("Theme"), themeSelect))
	w.SetContent(container.NewBorder(topBar, status, nil, container.NewPadded(inspector), cardCanvas))

	// Templates go through the configured store, opened on first use.
	var (
		storeMu sync.Mutex
		store   storage.TemplateStore
	)
	withStore := func(fn func(ctx context.Context, st storage.TemplateStore) error, done func(error)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			storeMu.Lock()
			defer storeMu.Unlock()
			var err error
			if store == nil {
				tok, _ := config.LoadToken()
				var st storage.TemplateStore
				if st, err = backend.OpenTemplateStore(ctx, cfg, tok); err == nil {
					store = st
				}
			}
			if err == nil {
				err = fn(ctx, store)
			}
			fyne.Do(func() { done(err) })
		}()
	}

	saveTemplateItem := fyne.NewMenuItem("Save as Template…", func() {
		l.Info("menu: save template")
		name := widget.NewEntry()
		dialog.ShowForm("Save Template", "Save", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", name)}, func(ok bool) {
			if !ok {
				return
			}
			t, err := session.AsTemplate(name.Text)
			if err != nil {
				fail("save template", err)
				return
			}
			doc, th, root := session.Preview(), session.Theme(), h.Root
			withStore(func(ctx context.Context, st storage.TemplateStore) error {
				if err := st.Put(ctx, t); err != nil {
					return err
				}
				if ts, ok := st.(interface {
					PutThumbnail(context.Context, string, []byte) error
				}); ok {
					var buf bytes.Buffer
					opt := export.Options{Canvas: cfg.Editor.Canvas(), PixelRatio: 0.25}
					if err := export.ExportPNG(doc, th, root, &buf, opt); err == nil {
						if err := ts.PutThumbnail(ctx, t.Name, buf.Bytes()); err != nil {
							l.Warn("thumbnail not stored", slog.Any("err", err))
						}
					}
				}
				return nil
			}, func(err error) {
				if err != nil {
					fail("save template", err)
					return
				}
				status.SetText("Template saved: " + strings.TrimSpace(name.Text))
			})
		}, w)
	})
	loadTemplateItem := fyne.NewMenuItem("Load Template…", func() {
		l.Info("menu: load template")
		var infos []storage.TemplateInfo
		withStore(func(ctx context.Context, st storage.TemplateStore) (err error) {
			infos, err = st.List(ctx)
			return err
		}, func(err error) {
			if err != nil {
				fail("list templates", err)
				return
			}
			if len(infos) == 0 {
				dialog.ShowInformation("Templates", "No templates saved yet.", w)
				return
			}
			names := make([]string, len(infos))
			for i, in := range infos {
				names[i] = in.Name
			}
			sel := widget.NewSelect(names, nil)
			sel.SetSelectedIndex(0)
			dialog.ShowCustomConfirm("Load Template", "Load", "Cancel", sel, func(ok bool) {
				if !ok || sel.Selected == "" {
					return
				}
				var t domain.Template
				withStore(func(ctx context.Context, st storage.TemplateStore) (err error) {
					t, err = st.Get(ctx, sel.Selected)
					return err
				}, func(err error) {
					if err == nil {
						err = session.ApplyTemplate(t)
					}
					if err != nil {
						fail("load template", err)
						return
					}
					themeSelect.SetSelected(session.Theme().ID)
					changed("Template loaded: " + t.Name)
				})
			}, w)
		})
	})
	deleteTemplateItem := fyne.NewMenuItem("Delete Template…", func() {
		name := widget.NewEntry()
		dialog.ShowForm("Delete Template", "Delete", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", name)}, func(ok bool) {
			if !ok {
				return
			}
			withStore(func(ctx context.Context, st storage.TemplateStore) error { return st.Delete(ctx, name.Text) }, func(err error) {
				if err != nil {
					fail("delete template", err)
					return
				}
				status.SetText("Template deleted")
			})
		}, w)
	})

	exportTo := func(ext string, fn func(domain.Document, theme.Theme, string, io.Writer, export.Options) error) func() {
		return func() {
			l.Info("menu: export", slog.String("format", ext))
			doc, err := session.Snapshot()
			if err != nil {
				fail("export", err)
				return
			}
			fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
				if err != nil || wc == nil {
					return
				}
				err = fn(doc, session.Theme(), h.Root, wc, export.Options{Canvas: cfg.Editor.Canvas()})
				if cerr := wc.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					fail("export "+ext, err)
					return
				}
				status.SetText("Exported " + wc.URI().Path())
			}, w)
			fd.SetFileName("card." + ext)
			fd.SetFilter(fstorage.NewExtensionFileFilter([]string{"." + ext}))
			fd.Show()
		}
	}
	exportPreset := func(p export.PresetName) func() {
		return func() {
			doc, err := session.Snapshot()
			if err != nil {
				fail("export", err)
				return
			}
			out, err := export.BatchExport(h.Root, doc, session.Theme(), export.BatchOptions{Preset: p, Options: export.Options{Canvas: cfg.Editor.Canvas()}})
			if err != nil {
				fail("batch export", err)
				return
			}
			dialog.ShowInformation("Export", "Wrote:\n"+strings.Join(out, "\n"), w)
		}
	}

	switchTo := func(dir string) {
		nh, err := openOrInit(dir)
		if err != nil {
			fail("open workspace", err)
			return
		}
		if err := session.Load(nh.Document); err != nil {
			fail("open workspace", err)
			return
		}
		*h = *nh
		if _, err := catalog.LoadDir(h.ThemesDir()); err != nil {
			l.Warn("some workspace themes were skipped", slog.Any("err", err))
		}
		cardCanvas.assetsRoot = h.Root
		addRecentWorkspace(prefs, h.Root)
		dirty = false
		setTitle()
		themeSelect.Options = catalog.IDs()
		themeSelect.SetSelected(session.Theme().ID)
		cardCanvas.Invalidate()
		refreshInspector()
		status.SetText("Opened " + h.Root)
	}
	openItem := fyne.NewMenuItem("Open Workspace…", func() {
		l.Info("menu: open workspace")
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			switchTo(uri.Path())
		}, w)
		fd.Show()
	})
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = fyne.NewMenu("")
	for _, p := range loadRecentWorkspaces(prefs) {
		recentItem.ChildMenu.Items = append(recentItem.ChildMenu.Items, fyne.NewMenuItem(p, func() { switchTo(p) }))
	}
	recentItem.Disabled = len(recentItem.ChildMenu.Items) == 0
	saveItem := fyne.NewMenuItem("Save", save)
	fileMenu := fyne.NewMenu("File", openItem, recentItem, saveItem)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Add Title", addText(domain.KindTitle, "Title")),
		fyne.NewMenuItem("Add Body", addText(domain.KindBody, "Body text")),
		fyne.NewMenuItem("Add Tag", addText(domain.KindTag, "TAG")),
		fyne.NewMenuItem("Add Image…", addImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete Selected", deleteSelected),
	)
	templateMenu := fyne.NewMenu("Templates", saveTemplateItem, loadTemplateItem, deleteTemplateItem)
	exportMenu := fyne.NewMenu("Export",
		fyne.NewMenuItem("PNG…", exportTo("png", export.ExportPNG)),
		fyne.NewMenuItem("PDF…", exportTo("pdf", export.ExportPDF)),
		fyne.NewMenuItem("SVG…", exportTo("svg", export.ExportSVG)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Web Preset", exportPreset(export.PresetWeb)),
		fyne.NewMenuItem("Print Preset", exportPreset(export.PresetPrint)),
	)
	aboutItem := fyne.NewMenuItem("About CardCraft", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("CardCraft\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nWorkspace: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, h.Root)
		dialog.ShowInformation("About", info, w)
	})
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, templateMenu, exportMenu, fyne.NewMenu("Help", aboutItem)))

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			if cardCanvas.drag.Active() {
				cardCanvas.drag.Cancel()
				cardCanvas.Invalidate()
				status.SetText("Drag cancelled")
			}
		case fyne.KeyDelete:
			deleteSelected()
		}
	})

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		storeMu.Lock()
		if store != nil {
			_ = store.Close()
			store = nil
		}
		storeMu.Unlock()
		if dirty {
			dialog.ShowConfirm("Unsaved changes", "Save before closing?", func(ok bool) {
				if ok {
					save()
				}
				w.Close()
			}, w)
			return
		}
		w.Close()
	})

	w.ShowAndRun()
	return nil
}

// newTextAction is a toolbar button with a label instead of an icon.
func newTextAction(label string, fn func()) widget.ToolbarItem {
	return &textToolbarItem{btn: widget.NewButton(label, fn)}
}

type textToolbarItem struct{ btn *widget.Button }

func (t *textToolbarItem) ToolbarObject() fyne.CanvasObject { return t.btn }

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// openOrInit opens dir as a workspace, creating an empty card when there is
// no manifest yet.
func openOrInit(dir string) (*storage.Handle, error) {
	if strings.TrimSpace(dir) == "" {
		data, err := config.DataDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(data, "workspace")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(abs, storage.ManifestFileName)); errors.Is(err, os.ErrNotExist) {
		return storage.InitWorkspace(abs, domain.Document{ThemeID: theme.DefaultID, Elements: []domain.Element{}})
	}
	return storage.Open(abs)
}

func loadCatalog(h *storage.Handle, l *slog.Logger) *theme.Catalog {
	c := theme.NewCatalog()
	if n, err := c.LoadDir(h.ThemesDir()); err != nil {
		l.Warn("some workspace themes were skipped", slog.Any("err", err))
	} else if n > 0 {
		l.Info("workspace themes loaded", slog.Int("count", n))
	}
	return c
}

func newSession(h *storage.Handle, cfg config.AppConfig, c *theme.Catalog) (*editor.Session, error) {
	doc := h.Document
	if doc.ThemeID == "" && cfg.General.Theme != "" {
		doc.ThemeID = cfg.General.Theme
	}
	return editor.New(doc, editor.Options{
		Tolerance:  cfg.Editor.SnapTolerance,
		Canvas:     cfg.Editor.Canvas(),
		Catalog:    c,
		AssetsRoot: h.Root,
	})
}

// CardCanvas shows the rendered card with the selection box and dashed snap
// guides on top. Dragging an element snaps it; dragging empty space pans.
type CardCanvas struct {
	widget.BaseWidget

	session    *editor.Session
	view       Viewport
	drag       *DragController
	assetsRoot string
	showGuides bool
	panning    bool
	fitted     bool

	stale  bool
	raster image.Image

	OnChanged func(msg string)
	OnSelect  func(id string)

	log *slog.Logger
}

func NewCardCanvas(s *editor.Session, assetsRoot string) *CardCanvas {
	c := &CardCanvas{
		session:    s,
		view:       NewViewport(s.Canvas()),
		drag:       NewDragController(s),
		assetsRoot: assetsRoot,
		showGuides: true,
		stale:      true,
		log:        applog.WithComponent("ui.canvas"),
	}
	c.ExtendBaseWidget(c)
	return c
}

// Invalidate marks the raster stale and redraws.
func (c *CardCanvas) Invalidate() {
	c.stale = true
	c.Refresh()
}

// FitToWidget zooms so the whole card is visible.
func (c *CardCanvas) FitToWidget() {
	sz := c.Size()
	c.view.Fit(float64(sz.Width), float64(sz.Height), 24)
	c.Refresh()
}

func (c *CardCanvas) MinSize() fyne.Size { return fyne.NewSize(320, 400) }

func (c *CardCanvas) toCard(p fyne.Position) vector.Pt {
	sz := c.Size()
	return c.view.ToCard(vector.Pt{X: float64(p.X), Y: float64(p.Y)}, float64(sz.Width), float64(sz.Height))
}

func (c *CardCanvas) toScreen(p vector.Pt) fyne.Position {
	sz := c.Size()
	s := c.view.ToScreen(p, float64(sz.Width), float64(sz.Height))
	return fyne.NewPos(float32(s.X), float32(s.Y))
}

// Tapped selects the top-most element under the pointer.
func (c *CardCanvas) Tapped(e *fyne.PointEvent) {
	id, _ := c.session.Scene().HitTest(c.toCard(e.Position))
	_ = c.session.Select(id)
	if c.OnSelect != nil {
		c.OnSelect(id)
	}
	c.Refresh()
}

// Dragged starts a snap drag on the first event of a gesture and follows the
// pointer afterwards.
func (c *CardCanvas) Dragged(e *fyne.DragEvent) {
	if !c.drag.Active() && !c.panning {
		start := c.toCard(e.Position.SubtractXY(e.Dragged.DX, e.Dragged.DY))
		id, err := c.drag.Press(start)
		if err != nil {
			c.panning = true
		} else if c.OnSelect != nil {
			c.OnSelect(id)
		}
	}
	if c.panning {
		c.view.OffsetX += float64(e.Dragged.DX)
		c.view.OffsetY += float64(e.Dragged.DY)
		c.Refresh()
		return
	}
	if _, err := c.drag.Move(c.toCard(e.Position)); err != nil {
		c.log.Warn("drag move", slog.Any("err", err))
	}
	c.Invalidate()
}

func (c *CardCanvas) DragEnd() {
	if c.panning {
		c.panning = false
		return
	}
	if !c.drag.Active() {
		return
	}
	e, err := c.drag.Release()
	c.Invalidate()
	if err != nil {
		c.log.Error("drag commit failed", slog.Any("err", err))
		return
	}
	if c.OnChanged != nil {
		c.OnChanged(fmt.Sprintf("Moved %s to (%s, %s)", e.ID, fmtNum(e.Geometry.X), fmtNum(e.Geometry.Y)))
	}
}

func (c *CardCanvas) Scrolled(e *fyne.ScrollEvent) {
	c.view.ZoomBy(float64(e.Scrolled.DY) * 0.005)
	c.Refresh()
}

func (c *CardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.NRGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth
	sel := canvas.NewRectangle(color.Transparent)
	sel.StrokeColor = color.NRGBA{R: 0, G: 170, B: 255, A: 255}
	sel.StrokeWidth = 1
	sel.Hide()
	return &cardCanvasRenderer{cc: c, bg: bg, img: img, sel: sel, objects: []fyne.CanvasObject{bg, img, sel}}
}

type cardCanvasRenderer struct {
	cc      *CardCanvas
	objects []fyne.CanvasObject
	bg      *canvas.Rectangle
	img     *canvas.Image
	sel     *canvas.Rectangle
	guides  []*canvas.Line
}

func (r *cardCanvasRenderer) Destroy()                     {}
func (r *cardCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *cardCanvasRenderer) MinSize() fyne.Size           { return r.cc.MinSize() }
func (r *cardCanvasRenderer) Refresh()                     { r.Layout(r.cc.Size()); canvas.Refresh(r.cc) }

var guideColor = color.NRGBA{R: 236, G: 72, B: 153, A: 255}

func (r *cardCanvasRenderer) Layout(size fyne.Size) {
	c := r.cc
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	if !c.fitted && size.Width > 0 && size.Height > 0 {
		c.view.Fit(float64(size.Width), float64(size.Height), 24)
		c.fitted = true
	}

	if c.stale {
		img, err := export.RenderImage(c.session.Preview(), c.session.Theme(), c.assetsRoot, export.Options{
			Canvas:     domain.Size{W: c.view.Card.W, H: c.view.Card.H},
			PixelRatio: math.Max(1, c.view.Zoom),
		})
		if err != nil {
			c.log.Warn("render failed, keeping previous frame", slog.Any("err", err))
		} else {
			c.raster = img
		}
		c.stale = false
		r.img.Image = c.raster
		r.img.Refresh()
	}
	origin := c.toScreen(vector.Pt{})
	r.img.Move(origin)
	r.img.Resize(fyne.NewSize(float32(c.view.Card.W*c.view.Zoom), float32(c.view.Card.H*c.view.Zoom)))

	if b, ok := c.session.Scene().RenderedBox(c.session.Selected()); ok {
		p0 := c.toScreen(vector.Pt{X: b.X, Y: b.Y})
		p1 := c.toScreen(vector.Pt{X: b.X + b.W, Y: b.Y + b.H})
		r.sel.Move(p0)
		r.sel.Resize(fyne.NewSize(p1.X-p0.X, p1.Y-p0.Y))
		r.sel.Show()
	} else {
		r.sel.Hide()
	}

	var segs []Segment
	if c.showGuides {
		segs = GuideSegments(c.session)
	}
	for len(r.guides) < len(segs) {
		ln := canvas.NewLine(guideColor)
		ln.StrokeWidth = 1
		r.guides = append(r.guides, ln)
		r.objects = append(r.objects, ln)
	}
	for i, ln := range r.guides {
		if i >= len(segs) {
			ln.Hide()
			continue
		}
		ln.Position1 = c.toScreen(segs[i].From)
		ln.Position2 = c.toScreen(segs[i].To)
		ln.Show()
		ln.Refresh()
	}
}

// Recent workspaces are kept in the app preferences as a JSON list.
const (
	recentPrefsKey = "recent.workspaces"
	recentMax      = 10
)

func loadRecentWorkspaces(p fyne.Preferences) []string {
	var items []string
	if raw := p.StringWithFallback(recentPrefsKey, ""); strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, storage.ManifestFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentWorkspace(p fyne.Preferences, path string) {
	abs, err := filepath.Abs(path)
	if err != nil || strings.TrimSpace(path) == "" {
		return
	}
	out := []string{abs}
	for _, s := range loadRecentWorkspaces(p) {
		if !strings.EqualFold(s, abs) {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
