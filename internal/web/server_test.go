package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/monokrome/astrogonia/internal/config"
	"github.com/monokrome/astrogonia/internal/search"
)

func testServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Title:       "Test",
		ContentDir:  filepath.Join(root, "content"),
		LayoutDir:   filepath.Join(root, "layouts"),
		TemplateDir: filepath.Join(root, "templates"),
		StaticDir:   filepath.Join(root, "static"),
		OutputDir:   filepath.Join(root, "dist"),
		RenderMode:  "hydrate",
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, logger, nil), cfg
}

func writeOutput(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	path := filepath.Join(cfg.OutputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestServeRendersDirectivesInHydrateMode(t *testing.T) {
	srv, cfg := testServer(t)
	writeOutput(t, cfg, "index.html", `<!DOCTYPE html>
<html><head><title>Home</title></head>
<body g-scope="{&quot;message&quot;:&quot;hello&quot;}"><p g-text="message">fallback</p></body>
</html>`)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, ">hello</p>") {
		t.Errorf("directive not rendered:\n%s", body)
	}
	if !strings.Contains(body, `g-text="message"`) {
		t.Errorf("hydrate mode must keep directive attributes:\n%s", body)
	}
	if !strings.Contains(body, "/ws") {
		t.Errorf("live-reload script not injected:\n%s", body)
	}
	if cl := rec.Header().Get("Content-Length"); cl != strconv.Itoa(rec.Body.Len()) {
		t.Errorf("Content-Length %s does not match body length %d", cl, rec.Body.Len())
	}
}

func TestServeNonHTMLUntouched(t *testing.T) {
	srv, cfg := testServer(t)
	writeOutput(t, cfg, "site.css", "body { color: red; }")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/site.css", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "body { color: red; }" {
		t.Errorf("asset body rewritten: %q", got)
	}
}

func TestServeMissingPage(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.html", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "WebSocket") {
		t.Error("live-reload script injected into error response")
	}
}

func TestServePlainPageGetsReloadScript(t *testing.T) {
	srv, cfg := testServer(t)
	writeOutput(t, cfg, "about.html", "<!DOCTYPE html>\n<html><body><p>about</p></body></html>")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about.html", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<p>about</p>") {
		t.Errorf("page content lost:\n%s", body)
	}
	if !strings.Contains(body, "/ws") {
		t.Errorf("live-reload script not injected:\n%s", body)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestHandleSearchUnavailable(t *testing.T) {
	srv, cfg := testServer(t)
	// A directory at the index path makes the database unopenable.
	cfg.SearchIndex = t.TempDir()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleSearchReturnsResults(t *testing.T) {
	srv, cfg := testServer(t)

	indexer, err := search.NewSQLiteIndexer(cfg.IndexPath())
	if err != nil {
		t.Fatal(err)
	}
	err = indexer.IndexPage(context.Background(), search.Document{
		Path:    "/docs/intro.html",
		Title:   "Introduction",
		Content: "getting started with the site",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := indexer.Close(); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=started", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp search.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("unexpected results: %+v", resp)
	}
	if resp.Results[0].Path != "/docs/intro.html" {
		t.Errorf("path = %q", resp.Results[0].Path)
	}
}
