package sitemap

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	docsDir := filepath.Join(dir, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		filepath.Join(dir, "index.html"),
		filepath.Join(docsDir, "intro.html"),
		filepath.Join(docsDir, "setup.html"),
	} {
		if err := os.WriteFile(name, []byte("<p>test</p>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Non-HTML assets and the internal work dir must not appear.
	if err := os.WriteFile(filepath.Join(dir, "site.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	workDir := filepath.Join(dir, ".astrogonia")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "cache.html"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	gen := &Generator{
		Root:    dir,
		SiteURL: "https://example.com",
		Logger:  logger,
	}
	if err := gen.Generate(context.Background()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sitemap.xml"))
	if err != nil {
		t.Fatalf("missing sitemap: %v", err)
	}
	var urlset sitemapURLSet
	if err := xml.Unmarshal(data, &urlset); err != nil {
		t.Fatalf("invalid sitemap XML: %v", err)
	}
	if len(urlset.URLs) != 3 {
		t.Fatalf("expected 3 URLs, got %d", len(urlset.URLs))
	}

	locs := make(map[string]bool)
	for _, u := range urlset.URLs {
		locs[u.Loc] = true
	}
	// index.html addresses the directory itself.
	if !locs["https://example.com/"] {
		t.Error("missing homepage URL")
	}
	if !locs["https://example.com/docs/intro.html"] {
		t.Error("missing nested page URL")
	}
	for loc := range locs {
		if strings.Contains(loc, ".astrogonia") || strings.Contains(loc, ".css") {
			t.Errorf("unexpected URL in sitemap: %s", loc)
		}
	}
}

func TestGenerator_NoSiteURL(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>x</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	gen := &Generator{Root: dir, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := gen.Generate(context.Background()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sitemap.xml")); !os.IsNotExist(err) {
		t.Error("sitemap written without a site URL")
	}
}

func TestGenerator_EmptyOutput(t *testing.T) {
	gen := &Generator{
		Root:    t.TempDir(),
		SiteURL: "https://example.com",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if err := gen.Generate(context.Background()); err != nil {
		t.Fatalf("Generate failed for empty output: %v", err)
	}
}

func TestSplitURLs(t *testing.T) {
	urls := make([]sitemapURL, 5)
	for i := range urls {
		urls[i] = sitemapURL{Loc: "http://example.com/" + string(rune('a'+i))}
	}

	chunks := splitURLs(urls, 2)
	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 2 {
		t.Errorf("first chunk: expected 2 URLs, got %d", len(chunks[0]))
	}
	if len(chunks[2]) != 1 {
		t.Errorf("last chunk: expected 1 URL, got %d", len(chunks[2]))
	}

	single := splitURLs(urls, 10)
	if len(single) != 1 {
		t.Errorf("expected 1 chunk for under-limit, got %d", len(single))
	}
}
