package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/monokrome/astrogonia/internal/render"
)

// stubEngine records what the orchestrator hands to the directive engine
// and echoes the markup back unless told otherwise.
type stubEngine struct {
	gotMarkup string
	gotScope  render.Scope
	out       string
	err       error
}

func (e *stubEngine) Render(ctx context.Context, markup string, scope render.Scope, reg *render.Registry) (string, error) {
	e.gotMarkup = markup
	e.gotScope = scope
	if e.err != nil {
		return "", e.err
	}
	if e.out != "" {
		return e.out, nil
	}
	return markup, nil
}

func TestDocumentFragmentPassesThroughRenderer(t *testing.T) {
	eng := &stubEngine{}
	got, err := Document(context.Background(), `<p g-text="count">?</p>`,
		Options{Scope: render.Scope{"count": float64(2)}, Engine: eng})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got != `<p g-text="count">?</p>` {
		t.Fatalf("unexpected fragment output: %s", got)
	}
	if eng.gotScope["count"] != float64(2) {
		t.Fatalf("expected caller scope handed to engine, got: %v", eng.gotScope)
	}
}

func TestDocumentPlainBodyNoWrapper(t *testing.T) {
	doc := `<!DOCTYPE html>
<html><head><title>t</title></head><body class="x"><p>Hi</p></body></html>`
	eng := &stubEngine{}

	got, err := Document(context.Background(), doc, Options{Scope: render.Scope{"a": true}, Engine: eng})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	// No directive attributes on body: the engine must see the bare
	// content, with no synthetic wrapper leaking in.
	if eng.gotMarkup != `<p>Hi</p>` {
		t.Fatalf("expected unwrapped content handed to engine, got: %s", eng.gotMarkup)
	}
	if got != doc {
		t.Fatalf("expected byte-identical document, got: %s", got)
	}
}

func TestDocumentScopeAttributeMerged(t *testing.T) {
	doc := `<html><body g-scope="{&quot;count&quot;:1}"><p g-text="count"></p></body></html>`
	eng := &stubEngine{}

	got, err := Document(context.Background(), doc,
		Options{Scope: render.Scope{"count": float64(0), "base": "kept"}, Engine: eng})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if eng.gotScope["count"] != float64(1) {
		t.Fatalf("expected embedded scope override, got: %v", eng.gotScope)
	}
	if eng.gotScope["base"] != "kept" {
		t.Fatalf("expected default scope key, got: %v", eng.gotScope)
	}
	// The scope attribute survives for re-hydration.
	if !strings.Contains(got, `g-scope="{&quot;count&quot;:1}"`) {
		t.Fatalf("expected g-scope retained, got: %s", got)
	}
}

func TestDocumentBodyDirectivesWrapped(t *testing.T) {
	doc := `<html><body g-text="count" class="x">old</body></html>`
	eng := &stubEngine{out: `<div g-text="count">42</div>`}

	got, err := Document(context.Background(), doc,
		Options{Scope: render.Scope{"count": float64(42)}, Engine: eng, Mode: ModeStatic})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if eng.gotMarkup != `<div g-text="count">old</div>` {
		t.Fatalf("expected carrier wrapper handed to engine, got: %s", eng.gotMarkup)
	}
	if got != `<html><body class="x">42</body></html>` {
		t.Fatalf("unexpected reassembly: %s", got)
	}
}

func TestDocumentUnwrapFallback(t *testing.T) {
	// Engine replaced the carrier tag entirely; the full output is used.
	doc := `<html><body g-if="no">x</body></html>`
	eng := &stubEngine{out: `gone`}

	got, err := Document(context.Background(), doc, Options{Engine: eng, Mode: ModeStatic})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got != `<html><body>gone</body></html>` {
		t.Fatalf("unexpected output: %s", got)
	}
}

func TestDocumentTemplateSplice(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.html"),
		[]byte(`<main><slot></slot></main>`), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	doc := `<html><body g-template="base"><p>Hi</p></body></html>`
	eng := &stubEngine{}

	got, err := Document(context.Background(), doc, Options{
		Engine:    eng,
		Templates: &Resolver{Root: dir},
		Mode:      ModeStatic,
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if eng.gotMarkup != `<main><p>Hi</p></main>` {
		t.Fatalf("expected spliced pre-render content, got: %s", eng.gotMarkup)
	}
	// The template attribute is fully consumed.
	if strings.Contains(got, "g-template") {
		t.Fatalf("template attribute leaked to output: %s", got)
	}
}

func TestDocumentTemplateMissingKeepsContent(t *testing.T) {
	doc := `<html><body g-template="ghost"><p>Hi</p></body></html>`
	eng := &stubEngine{}

	_, err := Document(context.Background(), doc, Options{
		Engine:    eng,
		Templates: &Resolver{Root: t.TempDir()},
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if eng.gotMarkup != `<p>Hi</p>` {
		t.Fatalf("expected original content on missing template, got: %s", eng.gotMarkup)
	}
}

func TestDocumentMissingBodyPassesThrough(t *testing.T) {
	doc := `<!DOCTYPE html><html><head></head></html>`
	got, err := Document(context.Background(), doc, Options{Engine: &stubEngine{}})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got != doc {
		t.Fatalf("expected pass-through, got: %s", got)
	}
}

func TestDocumentEngineErrorPropagates(t *testing.T) {
	doc := `<html><body><p>Hi</p></body></html>`
	wantErr := errors.New("boom")
	_, err := Document(context.Background(), doc, Options{Engine: &stubEngine{err: wantErr}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected engine error surfaced to the caller, got: %v", err)
	}
}

func TestDocumentBodyCasingPreserved(t *testing.T) {
	doc := `<HTML><BODY CLASS="x">hi</BODY></HTML>`
	got, err := Document(context.Background(), doc, Options{Engine: &stubEngine{}})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got != doc {
		t.Fatalf("casing not preserved: %s", got)
	}
}

func TestDocumentStaticModeIdempotent(t *testing.T) {
	doc := `<html><body g-scope="{&quot;n&quot;:1}" g-text="n" g-template="ghost">x</body></html>`
	opts := Options{
		Scope:     render.Scope{},
		Engine:    render.NewEngine(),
		Registry:  render.DefaultRegistry(),
		Templates: &Resolver{Root: t.TempDir()},
		Mode:      ModeStatic,
	}

	once, err := Document(context.Background(), doc, opts)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := Document(context.Background(), once, opts)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if once != twice {
		t.Fatalf("static transformation drifted:\nfirst:  %s\nsecond: %s", once, twice)
	}
}

func TestDocumentStateScriptAndScopeAttributeCoexist(t *testing.T) {
	// Precedence between the two state carriers is undefined upstream;
	// assert only that both payloads merge without failure.
	doc := `<html><head><script id="gonia-state" type="application/json">{"a":1,"b":2}</script></head>` +
		`<body g-scope="{&quot;b&quot;:3}">x</body></html>`
	eng := &stubEngine{}

	if _, err := Document(context.Background(), doc, Options{Engine: eng}); err != nil {
		t.Fatalf("Document: %v", err)
	}
	if eng.gotScope["a"] != float64(1) {
		t.Fatalf("expected state script key present, got: %v", eng.gotScope)
	}
	if _, ok := eng.gotScope["b"]; !ok {
		t.Fatalf("expected conflicting key present, got: %v", eng.gotScope)
	}
}

func TestDocumentStaticModeStripsInnerDirectives(t *testing.T) {
	doc := `<html><body g-scope="{&quot;msg&quot;:&quot;hi&quot;}"><p g-text="msg" class="x">fallback</p></body></html>`
	got, err := Document(context.Background(), doc, Options{
		Engine:   render.NewEngine(),
		Registry: render.DefaultRegistry(),
		Mode:     ModeStatic,
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if !strings.Contains(got, `>hi</p>`) {
		t.Fatalf("directive content not rendered: %s", got)
	}
	if strings.Contains(got, "g-text") {
		t.Fatalf("inner directive attribute survived static mode: %s", got)
	}
	if !strings.Contains(got, `class="x"`) {
		t.Fatalf("ordinary attribute lost: %s", got)
	}
	if !strings.Contains(got, ScopeAttr) {
		t.Fatalf("body scope attribute must survive: %s", got)
	}
}

func TestDocumentHydrateModeKeepsInnerDirectives(t *testing.T) {
	doc := `<html><body g-scope="{&quot;msg&quot;:&quot;hi&quot;}"><p g-text="msg">fallback</p></body></html>`
	got, err := Document(context.Background(), doc, Options{
		Engine:   render.NewEngine(),
		Registry: render.DefaultRegistry(),
		Mode:     ModeHydrate,
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if !strings.Contains(got, `>hi</p>`) {
		t.Fatalf("directive content not rendered: %s", got)
	}
	if !strings.Contains(got, `g-text="msg"`) {
		t.Fatalf("directive attribute must survive hydrate mode: %s", got)
	}
}
