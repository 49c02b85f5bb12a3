package transform

import (
	"regexp"
	"strings"
)

// directiveAttrPattern matches one directive attribute together with its
// leading separator: g-<word> or g-<word>:<word>, optionally followed by
// a quoted value. The boundary requirement keeps unrelated names that
// merely contain the prefix (e.g. svg-foo) from matching.
var directiveAttrPattern = regexp.MustCompile(
	`(?:^|\s)(g-[a-zA-Z][a-zA-Z0-9-]*(?::[a-zA-Z0-9-]+)?(?:\s*=\s*(?:"[^"]*"|'[^']*'))?)`)

// ExtractDirectives returns the directive attributes found in an
// attribute string, in order of appearance and exactly as written. The
// scope attribute and any additional excluded names are skipped.
func ExtractDirectives(attrs string, exclude ...string) []string {
	skip := map[string]bool{ScopeAttr: true}
	for _, name := range exclude {
		skip[name] = true
	}
	var out []string
	for _, m := range directiveAttrPattern.FindAllStringSubmatch(attrs, -1) {
		if skip[attrName(m[1])] {
			continue
		}
		out = append(out, m[1])
	}
	return out
}

// StripDirectives removes consumed attributes from a rendered body's
// attribute string. The template attribute never reaches the client; the
// scope attribute always survives; other directive attributes survive
// only when keepDirectives is set (hydration builds).
func StripDirectives(attrs string, keepDirectives bool) string {
	return directiveAttrPattern.ReplaceAllStringFunc(attrs, func(match string) string {
		name := attrName(strings.TrimLeft(match, " \t\r\n"))
		switch {
		case name == ScopeAttr:
			return match
		case name == TemplateAttr:
			return ""
		case keepDirectives:
			return match
		}
		return ""
	})
}

// elementTagPattern matches whole open tags so directive stripping can
// be confined to attribute position.
var elementTagPattern = regexp.MustCompile(`(?s)<[a-zA-Z][a-zA-Z0-9-]*(?:\s+[^<>]*?)?/?>`)

// StripAllDirectives removes every directive attribute from every
// element in a rendered region. Static builds apply it after rendering
// so the emitted markup carries no reactive surface.
func StripAllDirectives(markup string) string {
	if !strings.Contains(markup, "g-") {
		return markup
	}
	return elementTagPattern.ReplaceAllStringFunc(markup, func(tag string) string {
		return directiveAttrPattern.ReplaceAllString(tag, "")
	})
}

// attrName returns the attribute name (modifier included) of a directive
// attribute substring.
func attrName(attr string) string {
	if i := strings.IndexAny(attr, "= \t\r\n"); i >= 0 {
		return attr[:i]
	}
	return attr
}
