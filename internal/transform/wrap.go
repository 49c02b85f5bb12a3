package transform

import (
	"regexp"
	"strings"
)

// The engine never sees the body tag itself, so its directive attributes
// ride on a synthetic carrier element instead. A div is used as a neutral
// non-semantic container.
var wrapperPattern = regexp.MustCompile(`(?is)\A\s*<div\b[^>]*>(.*)</div>\s*\z`)

// wrapDirectives attaches extracted directive attributes to a carrier
// element around content. No wrapper is added when there is nothing to
// carry, so a synthetic element never leaks into output unnecessarily.
func wrapDirectives(directives []string, content string) (string, bool) {
	if len(directives) == 0 {
		return content, false
	}
	return "<div " + strings.Join(directives, " ") + ">" + content + "</div>", true
}

// unwrapDirectives removes the carrier added by wrapDirectives, tolerating
// attributes the engine may have added or reordered on it. If the engine
// replaced or dropped the carrier the full output is used as-is.
func unwrapDirectives(rendered string, wrapped bool) string {
	if !wrapped {
		return rendered
	}
	if m := wrapperPattern.FindStringSubmatch(rendered); m != nil {
		return m[1]
	}
	return rendered
}
