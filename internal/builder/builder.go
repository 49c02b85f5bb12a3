package builder

import (
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/monokrome/astrogonia/internal/config"
)

// Builder turns markdown content into HTML pages under the output
// directory. The pages it writes still carry their directive attributes;
// the transform pipeline runs over the output as a separate pass.
type Builder struct {
	cfg       *config.Config
	layout    *template.Template
	sanitizer *bluemonday.Policy
	log       *slog.Logger
}

func New(cfg *config.Config, directiveNames []string, logger *slog.Logger) (*Builder, error) {
	layout, err := template.ParseGlob(filepath.Join(cfg.LayoutDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}
	if layout.Lookup("main") == nil {
		return nil, fmt.Errorf("layout dir %s defines no \"main\" template", cfg.LayoutDir)
	}

	var sanitizer *bluemonday.Policy
	if !cfg.Unsafe {
		sanitizer = sanitizerFor(directiveNames)
	}

	return &Builder{
		cfg:       cfg,
		layout:    layout,
		sanitizer: sanitizer,
		log:       logger,
	}, nil
}

// Build renders every content file and copies static assets. It returns
// the number of pages written.
func (b *Builder) Build() (int, error) {
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	pages := 0
	err := filepath.WalkDir(b.cfg.ContentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}
		wrote, err := b.buildPage(path)
		if err != nil {
			return fmt.Errorf("build %s: %w", path, err)
		}
		if wrote {
			pages++
		}
		return nil
	})
	if err != nil {
		return pages, err
	}

	if err := b.copyStatic(); err != nil {
		return pages, err
	}
	return pages, nil
}

func (b *Builder) buildPage(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	meta, content, err := renderContent(raw, b.sanitizer)
	if err != nil {
		return false, err
	}
	if meta.Draft {
		b.log.Debug("skipping draft", "path", path)
		return false, nil
	}

	rel, err := filepath.Rel(b.cfg.ContentDir, path)
	if err != nil {
		return false, err
	}
	outPath := filepath.Join(b.cfg.OutputDir, outputName(rel))

	title := meta.Title
	if title == "" {
		title = b.cfg.Title
	}

	data := PageData{
		Content:     template.HTML(content),
		Title:       title,
		Description: meta.Description,
		BaseHref:    baseHref(rel),
		BodyAttrs:   bodyAttrs(meta),
		Site:        b.cfg,
		Params:      meta.Params,
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return false, err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return false, err
	}
	if err := b.layout.ExecuteTemplate(out, "main", data); err != nil {
		_ = out.Close()
		return false, fmt.Errorf("execute layout: %w", err)
	}
	if err := out.Close(); err != nil {
		return false, err
	}

	b.log.Debug("built page", "source", path, "output", outPath)
	return true, nil
}

// bodyAttrs encodes the page's template name and scope as the directive
// attributes the transform pass looks for on the body tag.
func bodyAttrs(meta PageMeta) template.HTMLAttr {
	var parts []string
	if meta.Template != "" {
		parts = append(parts, `g-template="`+html.EscapeString(meta.Template)+`"`)
	}
	if len(meta.Scope) > 0 {
		raw, err := json.Marshal(meta.Scope)
		if err == nil {
			parts = append(parts, `g-scope="`+html.EscapeString(string(raw))+`"`)
		}
	}
	return template.HTMLAttr(strings.Join(parts, " "))
}

func outputName(rel string) string {
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + ".html"
}

// baseHref computes the relative prefix back to the site root for a
// page, so layouts can reference assets without absolute URLs.
func baseHref(rel string) string {
	depth := strings.Count(filepath.ToSlash(rel), "/")
	if depth == 0 {
		return "./"
	}
	return strings.Repeat("../", depth)
}

func (b *Builder) copyStatic() error {
	info, err := os.Stat(b.cfg.StaticDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(b.cfg.StaticDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.cfg.StaticDir, path)
		if err != nil {
			return err
		}
		return copyFile(path, filepath.Join(b.cfg.OutputDir, rel))
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
