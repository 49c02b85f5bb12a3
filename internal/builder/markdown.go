package builder

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Footnote),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		// Raw HTML must pass through so inline directive markup in
		// content survives into the generated page.
		html.WithUnsafe(),
	),
)

var anyAttrValue = regexp.MustCompile(`(?s).*`)

// sanitizerFor builds a UGC policy that additionally admits the given
// directive attribute names, so sanitization does not strip the very
// attributes the engine consumes.
func sanitizerFor(directiveNames []string) *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	if len(directiveNames) > 0 {
		p.AllowAttrs(directiveNames...).Matching(anyAttrValue).Globally()
	}
	return p
}

// renderContent splits front matter from a content file, renders the
// markdown body and optionally sanitizes the result.
func renderContent(raw []byte, sanitizer *bluemonday.Policy) (PageMeta, string, error) {
	meta := PageMeta{}

	parts := bytes.SplitN(raw, []byte("---"), 3)
	var body []byte
	if len(parts) >= 3 {
		if err := yaml.Unmarshal(parts[1], &meta); err != nil {
			return PageMeta{}, "", fmt.Errorf("parse front matter: %w", err)
		}
		body = parts[2]
	} else {
		body = raw
	}

	var buf bytes.Buffer
	if err := markdownRenderer.Convert(body, &buf); err != nil {
		return meta, "", fmt.Errorf("render markdown: %w", err)
	}

	if sanitizer != nil {
		return meta, string(sanitizer.SanitizeBytes(buf.Bytes())), nil
	}
	return meta, buf.String(), nil
}
