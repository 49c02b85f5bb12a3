// Package transform implements the document pipeline that evaluates
// Gonia directives embedded in generated HTML pages.
//
// A page passes through these stages:
//  1. Classify input as full document or fragment
//  2. Locate the <body> region
//  3. Extract and merge the embedded scope (state script, then attribute)
//  4. Split directive attributes off the body tag
//  5. Resolve the named page template and splice the slot
//  6. Wrap content so the engine sees the body's directives
//  7. Render through the directive engine
//  8. Unwrap, strip consumed attributes, reassemble
//
// Everything outside the body region is reproduced byte for byte.
package transform

import (
	"context"
	"regexp"

	"github.com/monokrome/astrogonia/internal/render"
)

// Mode selects the attribute-survival policy applied after rendering.
type Mode int

const (
	// ModeHydrate keeps directive attributes in the output so the client
	// runtime can re-attach behavior on load.
	ModeHydrate Mode = iota
	// ModeStatic strips directive attributes after rendering; the output
	// is final, non-reactive markup.
	ModeStatic
)

// Options configures one document transformation. Scope and Registry are
// shared read-only across concurrent transformations.
type Options struct {
	Scope     render.Scope // integration-level default state
	Registry  *render.Registry
	Engine    render.Engine
	Templates *Resolver // optional named page templates
	Mode      Mode
}

var (
	fullDocPattern = regexp.MustCompile(`(?i)^\s*(?:<!doctype\b|<html\b)`)
	// Greedy content match: the pipeline assumes one body element per
	// document. Multiple or self-closing bodies are unsupported.
	bodyPattern         = regexp.MustCompile(`(?is)(<body)([^>]*)(>)(.*)(</body\s*>)`)
	templateAttrPattern = regexp.MustCompile(
		`(?i)(?:^|\s)` + TemplateAttr + `\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// Document runs the directive-evaluation pass over one HTML page. A
// missing or malformed body region passes the document through
// unmodified; an engine failure returns an error and callers emit the
// original bytes instead.
func Document(ctx context.Context, doc string, opts Options) (string, error) {
	if opts.Engine == nil {
		return doc, nil
	}

	if !fullDocPattern.MatchString(doc) {
		// Fragments carry no body tag to extract scope from; they render
		// against whatever scope the caller already merged in.
		out, err := opts.Engine.Render(ctx, doc, opts.Scope.Merge(nil), opts.Registry)
		if err != nil {
			return "", err
		}
		if opts.Mode == ModeStatic {
			out = StripAllDirectives(out)
		}
		return out, nil
	}

	m := bodyPattern.FindStringSubmatchIndex(doc)
	if m == nil {
		return doc, nil
	}
	bodyOpen := doc[m[2]:m[3]] // "<body" in original casing
	attrs := doc[m[4]:m[5]]
	content := doc[m[8]:m[9]]
	bodyClose := doc[m[10]:m[11]]

	scope := ExtractStateScript(doc, opts.Scope)
	scope = ExtractScope(attrs, scope)

	directives := ExtractDirectives(attrs, TemplateAttr)

	if name, ok := templateName(attrs); ok {
		if spliced, ok := opts.Templates.Resolve(name, content); ok {
			content = spliced
		}
	}

	wrapped, didWrap := wrapDirectives(directives, content)
	rendered, err := opts.Engine.Render(ctx, wrapped, scope, opts.Registry)
	if err != nil {
		return "", err
	}
	rendered = unwrapDirectives(rendered, didWrap)
	if opts.Mode == ModeStatic {
		rendered = StripAllDirectives(rendered)
	}

	finalAttrs := StripDirectives(attrs, opts.Mode == ModeHydrate)

	return doc[:m[0]] + bodyOpen + finalAttrs + ">" + rendered + bodyClose + doc[m[1]:], nil
}

// templateName returns the value of the template attribute, if present.
func templateName(attrs string) (string, bool) {
	m := templateAttrPattern.FindStringSubmatch(attrs)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], m[2] != ""
}
