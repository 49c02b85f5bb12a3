package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxSitemapURLs = 50000

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name          `xml:"sitemapindex"`
	XMLNS    string            `xml:"xmlns,attr"`
	Sitemaps []sitemapIndexRef `xml:"sitemap"`
}

type sitemapIndexRef struct {
	XMLName xml.Name `xml:"sitemap"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

// Generator writes sitemap XML by walking the built site for HTML pages.
type Generator struct {
	Root    string // output directory holding the built pages
	SiteURL string // e.g. "https://example.com"
	Logger  *slog.Logger
}

// Generate walks the output tree and writes sitemap.xml at its root.
// When the page count exceeds the per-file limit it writes chunked
// sitemaps plus a sitemap index instead. Missing SiteURL disables
// generation, since sitemap entries must be absolute URLs.
func (g *Generator) Generate(ctx context.Context) error {
	if g.SiteURL == "" {
		if g.Logger != nil {
			g.Logger.Debug("no site_url configured, skipping sitemap")
		}
		return nil
	}
	base := strings.TrimSuffix(g.SiteURL, "/")

	urls, err := g.collectURLs(ctx, base)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}

	if len(urls) <= maxSitemapURLs {
		return writeXML(filepath.Join(g.Root, "sitemap.xml"), sitemapURLSet{
			XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
			URLs:  urls,
		})
	}

	now := time.Now().UTC().Format("2006-01-02")
	var refs []sitemapIndexRef
	for i, chunk := range splitURLs(urls, maxSitemapURLs) {
		name := fmt.Sprintf("sitemap-%d.xml", i+1)
		if err := writeXML(filepath.Join(g.Root, name), sitemapURLSet{
			XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
			URLs:  chunk,
		}); err != nil {
			return err
		}
		refs = append(refs, sitemapIndexRef{Loc: base + "/" + name, LastMod: now})
	}
	return writeXML(filepath.Join(g.Root, "sitemap.xml"), sitemapIndex{
		XMLNS:    "http://www.sitemaps.org/schemas/sitemap/0.9",
		Sitemaps: refs,
	})
}

func (g *Generator) collectURLs(ctx context.Context, base string) ([]sitemapURL, error) {
	var urls []sitemapURL
	err := filepath.WalkDir(g.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if d.Name() == ".astrogonia" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(g.Root, path)
		if err != nil {
			return err
		}

		urlPath := "/" + filepath.ToSlash(rel)
		// index.html addresses its directory.
		urlPath = strings.TrimSuffix(urlPath, "index.html")

		var lastmod string
		if info, err := d.Info(); err == nil {
			lastmod = info.ModTime().UTC().Format("2006-01-02")
		}

		urls = append(urls, sitemapURL{Loc: base + urlPath, LastMod: lastmod})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("walk output dir: %w", err)
	}
	return urls, nil
}

func writeXML(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func splitURLs(urls []sitemapURL, maxPerFile int) [][]sitemapURL {
	if len(urls) <= maxPerFile {
		return [][]sitemapURL{urls}
	}
	var chunks [][]sitemapURL
	for i := 0; i < len(urls); i += maxPerFile {
		end := i + maxPerFile
		if end > len(urls) {
			end = len(urls)
		}
		chunks = append(chunks, urls[i:end])
	}
	return chunks
}
