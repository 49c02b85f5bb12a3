package transform

import (
	"encoding/json"
	"regexp"

	"github.com/monokrome/astrogonia/internal/render"
)

const (
	// ScopeAttr carries entity-encoded JSON state on the body tag. It is
	// never treated as a directive attribute.
	ScopeAttr = "g-scope"
	// TemplateAttr names the page template whose slot receives the body
	// content. Consumed at build time; never reaches the client.
	TemplateAttr = "g-template"
	// StateScriptID identifies the JSON state payload script element.
	StateScriptID = "gonia-state"
)

var (
	scopeAttrPattern = regexp.MustCompile(
		`(?i)(?:^|\s)` + ScopeAttr + `\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	stateScriptPattern = regexp.MustCompile(
		`(?is)<script\s[^>]*id\s*=\s*(?:"` + StateScriptID + `"|'` + StateScriptID + `')[^>]*>(.*?)</script>`)
)

// ExtractScope locates the scope attribute in a tag's attribute string,
// decodes its entity-encoded JSON and merges it over base. Extraction is
// best effort: an absent attribute or malformed payload yields a copy of
// base unchanged, never an error.
func ExtractScope(attrs string, base render.Scope) render.Scope {
	m := scopeAttrPattern.FindStringSubmatch(attrs)
	if m == nil {
		return base.Merge(nil)
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	var override map[string]any
	if err := json.Unmarshal([]byte(DecodeEntities(raw)), &override); err != nil {
		return base.Merge(nil)
	}
	return base.Merge(override)
}

// ExtractStateScript merges the JSON payload of a <script id="gonia-state">
// element over base. Same best-effort contract as ExtractScope.
func ExtractStateScript(doc string, base render.Scope) render.Scope {
	m := stateScriptPattern.FindStringSubmatch(doc)
	if m == nil {
		return base.Merge(nil)
	}
	var override map[string]any
	if err := json.Unmarshal([]byte(m[1]), &override); err != nil {
		return base.Merge(nil)
	}
	return base.Merge(override)
}
