// Package pipeline runs the post-build transform pass: it walks the
// emitted site, renders directive markup in each page and feeds the
// results to the search indexer and sitemap generator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/monokrome/astrogonia/internal/render"
	"github.com/monokrome/astrogonia/internal/search"
	"github.com/monokrome/astrogonia/internal/sitemap"
	"github.com/monokrome/astrogonia/internal/storage"
	"github.com/monokrome/astrogonia/internal/transform"
)

var (
	titlePattern      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescPattern   = regexp.MustCompile(`(?is)<meta\s[^>]*name\s*=\s*["']description["'][^>]*content\s*=\s*["']([^"']*)["']`)
	blockTagPattern   = regexp.MustCompile(`(?is)<(script|style)\b.*?</(script|style)\s*>`)
	anyTagPattern     = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

type Runner struct {
	Storage      *storage.FSStorage
	Indexer      search.Indexer
	Engine       render.Engine
	Registry     *render.Registry
	Templates    *transform.Resolver
	Scope        render.Scope
	Mode         transform.Mode
	Sitemap      *sitemap.Generator
	Logger       *slog.Logger
	Workers      int
	FailuresPath string

	mu       sync.Mutex
	status   Status
	failures []string
}

// Run transforms every page under the output root. Per-page renderer
// failures are recorded and leave the page's original bytes on disk;
// only infrastructure errors (listing, indexing, storage) are fatal.
func (r *Runner) Run(ctx context.Context) error {
	if r.Storage == nil || r.Engine == nil || r.Registry == nil {
		return errors.New("pipeline runner missing dependencies")
	}

	pages, err := r.Storage.ListPages(ctx)
	if err != nil {
		r.setStage("error")
		return err
	}

	r.mu.Lock()
	r.status = Status{Stage: "processing", Total: len(pages), FailuresPath: r.FailuresPath}
	r.failures = nil
	r.mu.Unlock()

	// Create the failure log up front so users can tail it during the run.
	if r.FailuresPath != "" {
		_ = os.MkdirAll(filepath.Dir(r.FailuresPath), 0o755)
		_ = os.WriteFile(r.FailuresPath, nil, 0o644)
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pages) && len(pages) > 0 {
		workers = len(pages)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				if err := r.processPage(ctx, page); err != nil {
					r.recordFailure(page, err)
				}
				r.mu.Lock()
				r.status.Done++
				r.mu.Unlock()
			}
		}()
	}
	for _, page := range pages {
		jobs <- page
	}
	close(jobs)
	wg.Wait()

	if r.Indexer != nil {
		if err := r.Indexer.Close(); err != nil {
			r.setStage("error")
			return fmt.Errorf("close indexer: %w", err)
		}
	}

	if r.Sitemap != nil {
		if err := r.Sitemap.Generate(ctx); err != nil {
			// Non-fatal: a sitemap error should not fail the whole pass.
			r.Logger.Error("sitemap generation failed", "error", err)
		}
	}

	r.mu.Lock()
	s := r.status
	r.mu.Unlock()
	if s.Errors > 0 && r.Logger != nil {
		r.Logger.Warn("transform completed with failures", "count", s.Errors, "total", s.Total)
	}

	if err := ctx.Err(); err != nil {
		r.setStage("error")
		return err
	}
	r.setStage("done")
	return nil
}

// Status returns a snapshot of the current run progress.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) setStage(stage string) {
	r.mu.Lock()
	r.status.Stage = stage
	r.mu.Unlock()
}

func (r *Runner) processPage(ctx context.Context, page string) error {
	raw, err := r.Storage.ReadPage(ctx, page)
	if err != nil {
		return err
	}

	doc := string(raw)
	out, err := transform.Document(ctx, doc, transform.Options{
		Scope:     r.Scope,
		Registry:  r.Registry,
		Engine:    r.Engine,
		Templates: r.Templates,
		Mode:      r.Mode,
	})
	if err != nil {
		// Original bytes stay on disk untouched.
		return fmt.Errorf("render %s: %w", page, err)
	}

	if out != doc {
		if err := r.Storage.WritePage(ctx, page, []byte(out)); err != nil {
			return err
		}
	} else {
		r.mu.Lock()
		r.status.Unchanged++
		r.mu.Unlock()
	}

	if r.Indexer != nil {
		if err := r.indexPage(ctx, page, out); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) indexPage(ctx context.Context, page, doc string) error {
	title := extractTitle(doc)
	if title == "" {
		title = strings.TrimSuffix(page, ".html")
	}
	return r.Indexer.IndexPage(ctx, search.Document{
		Path:        "/" + page,
		Title:       title,
		Description: extractDescription(doc),
		Content:     stripTags(doc),
	})
}

func (r *Runner) recordFailure(page string, err error) {
	message := strings.TrimSpace(fmt.Sprintf("%s: %v", page, err))
	r.mu.Lock()
	r.failures = append(r.failures, message)
	r.status.Errors++
	failPath := r.status.FailuresPath
	r.mu.Unlock()

	// Append to the failure log immediately so users can tail it.
	if failPath != "" {
		f, ferr := os.OpenFile(failPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if ferr == nil {
			_, _ = fmt.Fprintln(f, message)
			_ = f.Close()
		}
	}

	if r.Logger != nil {
		r.Logger.Warn("transform failure", "page", page, "error", err)
	}
}

func extractTitle(doc string) string {
	if m := titlePattern.FindStringSubmatch(doc); m != nil {
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(m[1], " "))
	}
	return ""
}

func extractDescription(doc string) string {
	if m := metaDescPattern.FindStringSubmatch(doc); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// stripTags reduces a page to its visible text for search indexing.
func stripTags(doc string) string {
	doc = blockTagPattern.ReplaceAllString(doc, " ")
	doc = anyTagPattern.ReplaceAllString(doc, " ")
	doc = transform.DecodeEntities(doc)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(doc, " "))
}
