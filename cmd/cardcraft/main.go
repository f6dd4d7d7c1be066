/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"cardcraft/internal/backend"
	"cardcraft/internal/config"
	"cardcraft/internal/crash"
	"cardcraft/internal/domain"
	"cardcraft/internal/editor"
	"cardcraft/internal/export"
	applog "cardcraft/internal/log"
	"cardcraft/internal/storage"
	"cardcraft/internal/theme"
	"cardcraft/internal/ui"
	"cardcraft/internal/version"
)

// errUsage makes run print usage and exit with status 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "CardCraft - card editor with smart snapping")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cardcraft version                          Show version")
	fmt.Fprintln(w, "  cardcraft init <dir> [theme]               Create an empty card workspace")
	fmt.Fprintln(w, "  cardcraft show <dir>                       Print the card's elements")
	fmt.Fprintln(w, "  cardcraft add <dir> <kind> <content>       Add title|body|tag text, or an image file")
	fmt.Fprintln(w, "  cardcraft move <dir> <id> <x> <y>          Drag an element with snapping")
	fmt.Fprintln(w, "  cardcraft rm <dir> <id>                    Delete an element")
	fmt.Fprintln(w, "  cardcraft theme <dir> [id]                 Show or set the card theme")
	fmt.Fprintln(w, "  cardcraft themes [dir]                     List available themes")
	fmt.Fprintln(w, "  cardcraft template save <dir> <name>       Store the card as a template")
	fmt.Fprintln(w, "  cardcraft template load <dir> <name>       Replace the card with a template")
	fmt.Fprintln(w, "  cardcraft template list                    List stored templates")
	fmt.Fprintln(w, "  cardcraft template rm <name>               Delete a template")
	fmt.Fprintln(w, "  cardcraft export <dir> [png|pdf|svg|web|print] [out]")
	fmt.Fprintln(w, "  cardcraft login [subject]                  Fetch a backend token into the keychain")
	fmt.Fprintln(w, "  cardcraft serve [addr]                     Serve the template library over HTTP")
	fmt.Fprintln(w, "  cardcraft ui [<dir>]                       Launch desktop UI (build with -tags fyne)")
}

func main() {
	cfg, _, err := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	if err != nil {
		applog.WithComponent("cli").Warn("config unreadable, using defaults", slog.Any("err", err))
	}
	os.Exit(run(os.Args[1:], cfg, os.Stdout))
}

// cli carries what every command needs.
type cli struct {
	cfg config.AppConfig
	out io.Writer
	l   *slog.Logger
	h   *storage.Handle
}

func run(args []string, cfg config.AppConfig, out io.Writer) int {
	c := &cli{cfg: cfg, out: out, l: applog.WithComponent("cli")}
	defer crash.RecoverWith(func() *storage.Handle { return c.h })
	c.l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(out)
		return 0
	}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, "cardcraft", version.String())
	case "help", "--help", "-h":
		usage(out)
	case "init":
		err = c.init(args[1:])
	case "show":
		err = c.show(args[1:])
	case "add":
		err = c.add(args[1:])
	case "move":
		err = c.move(args[1:])
	case "rm":
		err = c.remove(args[1:])
	case "theme":
		err = c.theme(args[1:])
	case "themes":
		err = c.themes(args[1:])
	case "template":
		err = c.template(args[1:])
	case "export":
		err = c.export(args[1:])
	case "login":
		err = c.login(args[1:])
	case "serve":
		err = c.serve(args[1:])
	case "ui":
		var dir string
		if len(args) > 1 {
			dir = args[1]
		}
		err = ui.Run(dir, c.cfg)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(out, err)
		usage(out)
		return 2
	default:
		c.l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
}

func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s", errUsage, what)
	}
	return nil
}

// open loads the workspace at dir and starts an editing session on it.
func (c *cli) open(dir string) (*editor.Session, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	h, err := storage.Open(abs)
	if err != nil {
		return nil, err
	}
	c.h = h
	cat := theme.NewCatalog()
	if _, err := cat.LoadDir(h.ThemesDir()); err != nil {
		c.l.Warn("some workspace themes were skipped", slog.Any("err", err))
	}
	return editor.New(h.Document, editor.Options{
		Tolerance:  c.cfg.Editor.SnapTolerance,
		Canvas:     c.cfg.Editor.Canvas(),
		Catalog:    cat,
		AssetsRoot: h.Root,
	})
}

func (c *cli) save(s *editor.Session) error {
	doc, err := s.Snapshot()
	if err != nil {
		return err
	}
	c.h.Document = doc
	return storage.Save(c.h)
}

func (c *cli) init(args []string) error {
	if err := need(args, 1, "init requires <dir>"); err != nil {
		return err
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(abs, storage.ManifestFileName)); err == nil {
		return fmt.Errorf("workspace already exists at %s", abs)
	}
	th := c.cfg.General.Theme
	if len(args) > 1 {
		th = args[1]
	}
	if th == "" {
		th = theme.DefaultID
	}
	if _, err := theme.Get(th); err != nil {
		return err
	}
	c.l.Info("init workspace", slog.String("root", abs), slog.String("theme", th))
	h, err := storage.InitWorkspace(abs, domain.Document{ThemeID: th, Elements: []domain.Element{}})
	if err != nil {
		return err
	}
	c.h = h
	fmt.Fprintln(c.out, "Created card workspace at", abs)
	return nil
}

func (c *cli) show(args []string) error {
	if err := need(args, 1, "show requires <dir>"); err != nil {
		return err
	}
	s, err := c.open(args[0])
	if err != nil {
		return err
	}
	doc := s.Document()
	fmt.Fprintf(c.out, "Workspace: %s\nTheme: %s\nElements: %d\n", c.h.Root, doc.ThemeID, len(doc.Elements))
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tX\tY\tW\tH\tCONTENT")
	for _, e := range doc.Elements {
		b, _ := s.Scene().RenderedBox(e.ID)
		content := e.Text
		if e.Kind == domain.KindImage {
			content = e.ImageRef
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Kind,
			num(e.Geometry.X), num(e.Geometry.Y), num(b.W), num(b.H), ellipsis(content, 40))
	}
	return tw.Flush()
}

func (c *cli) add(args []string) error {
	if err := need(args, 3, "add requires <dir> <kind> <content>"); err != nil {
		return err
	}
	s, err := c.open(args[0])
	if err != nil {
		return err
	}
	kind := domain.Kind(strings.ToLower(args[1]))
	var e domain.Element
	if kind == domain.KindImage {
		e, err = s.AddImage(args[2])
	} else {
		e, err = s.AddElement(kind, args[2])
	}
	if err != nil {
		return err
	}
	if err := c.save(s); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added %s %s at (%s, %s)\n", e.Kind, e.ID, num(e.Geometry.X), num(e.Geometry.Y))
	return nil
}

func (c *cli) move(args []string) error {
	if err := need(args, 4, "move requires <dir> <id> <x> <y>"); err != nil {
		return err
	}
	x, errX := strconv.ParseFloat(args[2], 64)
	y, errY := strconv.ParseFloat(args[3], 64)
	if errX != nil || errY != nil {
		return fmt.Errorf("%w: <x> and <y> must be numbers", errUsage)
	}
	s, err := c.open(args[0])
	if err != nil {
		return err
	}
	if err := s.BeginDrag(args[1]); err != nil {
		return err
	}
	res, err := s.DragMove(x, y)
	if err != nil {
		s.CancelDrag()
		return err
	}
	for _, g := range s.Guides().Lines(s.Canvas()) {
		axis := "x"
		if g.Orientation == "horizontal" {
			axis = "y"
		}
		fmt.Fprintf(c.out, "  %s guide at %s=%s\n", g.Orientation, axis, num(g.Position))
	}
	e, err := s.EndDrag()
	if err != nil {
		return err
	}
	if err := c.save(s); err != nil {
		return err
	}
	if res.Snapped() {
		fmt.Fprintf(c.out, "Moved %s to (%s, %s), snapped\n", e.ID, num(e.Geometry.X), num(e.Geometry.Y))
	} else {
		fmt.Fprintf(c.out, "Moved %s to (%s, %s)\n", e.ID, num(e.Geometry.X), num(e.Geometry.Y))
	}
	return nil
}

func (c *cli) remove(args []string) error {
	if err := need(args, 2, "rm requires <dir> <id>"); err != nil {
		return err
	}
	s, err := c.open(args[0])
	if err != nil {
		return err
	}
	if err := s.DeleteElement(args[1]); err != nil {
		return err
	}
	if err := c.save(s); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Deleted", args[1])
	return nil
}

func (c *cli) theme(args []string) error {
	if err := need(args, 1, "theme requires <dir>"); err != nil {
		return err
	}
	s, err := c.open(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		fmt.Fprintln(c.out, s.Theme().ID)
		return nil
	}
	if err := s.SetTheme(args[1]); err != nil {
		return err
	}
	if err := c.save(s); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Theme set to", args[1])
	return nil
}

func (c *cli) themes(args []string) error {
	cat := theme.NewCatalog()
	if len(args) > 0 {
		if _, err := cat.LoadDir(filepath.Join(args[0], storage.ThemesDirName)); err != nil {
			c.l.Warn("some workspace themes were skipped", slog.Any("err", err))
		}
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBACKGROUND\tACCENT")
	for _, t := range cat.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Background, t.Accent)
	}
	return tw.Flush()
}

func (c *cli) openStore(ctx context.Context) (storage.TemplateStore, error) {
	tok, err := config.LoadToken()
	if err != nil {
		c.l.Warn("keychain unavailable", slog.Any("err", err))
	}
	return backend.OpenTemplateStore(ctx, c.cfg, tok)
}

func (c *cli) template(args []string) error {
	if err := need(args, 1, "template requires save|load|list|rm"); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sub, rest := args[0], args[1:]
	switch sub {
	case "save", "load":
		if err := need(rest, 2, "template "+sub+" requires <dir> <name>"); err != nil {
			return err
		}
	case "rm":
		if err := need(rest, 1, "template rm requires <name>"); err != nil {
			return err
		}
	case "list":
	default:
		return fmt.Errorf("%w: unknown template command %q", errUsage, sub)
	}

	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	switch sub {
	case "save":
		s, err := c.open(rest[0])
		if err != nil {
			return err
		}
		t, err := s.AsTemplate(rest[1])
		if err != nil {
			return err
		}
		if err := st.Put(ctx, t); err != nil {
			return err
		}
		if ts, ok := st.(thumbnailer); ok {
			c.saveThumbnail(ctx, ts, s, t.Name)
		}
		fmt.Fprintf(c.out, "Saved template %q (%d elements)\n", strings.TrimSpace(rest[1]), len(t.Elements))
	case "load":
		s, err := c.open(rest[0])
		if err != nil {
			return err
		}
		t, err := st.Get(ctx, rest[1])
		if err != nil {
			return err
		}
		if err := s.ApplyTemplate(t); err != nil {
			return err
		}
		if err := c.save(s); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Applied template %q to %s\n", t.Name, c.h.Root)
	case "list":
		infos, err := st.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTHEME\tELEMENTS\tBYTES\tUPDATED")
		for _, in := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", in.Name, in.ThemeID, in.Elements, in.Size, in.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	case "rm":
		if err := st.Delete(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Deleted template", strings.TrimSpace(rest[0]))
	}
	return nil
}

// thumbnailer is implemented by stores that keep a preview per template.
type thumbnailer interface {
	PutThumbnail(ctx context.Context, name string, png []byte) error
}

const thumbRatio = 0.25

// saveThumbnail is best effort; a template without a preview is still usable.
func (c *cli) saveThumbnail(ctx context.Context, ts thumbnailer, s *editor.Session, name string) {
	doc, err := s.Snapshot()
	if err != nil {
		return
	}
	var buf bytes.Buffer
	opt := export.Options{Canvas: c.cfg.Editor.Canvas(), PixelRatio: thumbRatio}
	if err := export.ExportPNG(doc, s.Theme(), c.h.Root, &buf, opt); err != nil {
		c.l.Warn("thumbnail render failed", slog.Any("err", err))
		return
	}
	if err := ts.PutThumbnail(ctx, name, buf.Bytes()); err != nil {
		c.l.Warn("thumbnail not stored", slog.String("template", name), slog.Any("err", err))
	}
}

func (c *cli) export(args []string) error {
	if err := need(args, 1, "export requires <dir>"); err != nil {
		return err
	}
	format := "png"
	if len(args) > 1 {
		format = strings.ToLower(args[1])
	}
	s, err := c.open(args[0])
	if err != nil {
		return err
	}
	doc, err := s.Snapshot()
	if err != nil {
		return err
	}
	opt := export.Options{Canvas: c.cfg.Editor.Canvas()}
	switch format {
	case string(export.PresetWeb), string(export.PresetPrint):
		bo := export.BatchOptions{Preset: export.PresetName(format), Options: opt}
		if len(args) > 2 {
			bo.OutDir = args[2]
		}
		paths, err := export.BatchExport(c.h.Root, doc, s.Theme(), bo)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(c.out, "Wrote", p)
		}
		return nil
	}
	out := filepath.Join(c.h.ExportsDir(), "card."+format)
	if len(args) > 2 {
		out = args[2]
	}
	switch format {
	case "png":
		err = export.ExportPNGFile(doc, s.Theme(), c.h.Root, out, opt)
	case "pdf":
		err = export.ExportPDFFile(doc, s.Theme(), c.h.Root, out, opt)
	case "svg":
		err = export.ExportSVGFile(doc, s.Theme(), c.h.Root, out, opt)
	default:
		return fmt.Errorf("%w: unknown export format %q", errUsage, format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Wrote", out)
	return nil
}

func (c *cli) login(args []string) error {
	subject := os.Getenv("USER")
	if len(args) > 0 {
		subject = args[0]
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Backend.Timeout())
	defer cancel()
	cl := backend.NewClient(c.cfg.Backend.BaseURL, "")
	cl.Secret = config.AuthSecret()
	tr, err := cl.IssueToken(ctx, subject, 24*time.Hour)
	if err != nil {
		return err
	}
	if err := config.SaveToken(tr.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Fprintf(c.out, "Token for %q stored in the keychain (expires %s)\n", subject, tr.ExpiresAt)
	return nil
}

func (c *cli) serve(args []string) error {
	if c.cfg.Storage.Backend == config.StoreRemote {
		return errors.New("serve needs a sqlite or postgres template store, not remote")
	}
	addr := c.cfg.Backend.Addr
	if len(args) > 0 {
		addr = args[0]
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	st, err := backend.OpenTemplateStore(ctx, c.cfg, "")
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	secret := config.AuthSecret()
	if secret == "" {
		c.l.Warn("no " + config.EnvAuthSecret + " set, using the development secret")
	}
	fmt.Fprintf(c.out, "Serving templates on %s (%s store)\n", addr, c.cfg.Storage.Backend)
	return backend.NewServer(st, secret).ListenAndServe(ctx, addr)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func ellipsis(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
