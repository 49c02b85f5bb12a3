package render

import (
	"context"
	"fmt"
	htmlutil "html"
	"regexp"
	"strconv"
	"strings"
)

// Engine evaluates directive attributes in a markup string against a
// scope. Implementations must treat markup outside directive-bearing
// elements as opaque and return it unchanged.
type Engine interface {
	Render(ctx context.Context, markup string, scope Scope, reg *Registry) (string, error)
}

// Error wraps an engine failure so callers can distinguish it from
// filesystem errors at the per-document boundary.
type Error struct{ Err error }

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

var (
	openTagPattern = regexp.MustCompile(`(?s)<([a-zA-Z][a-zA-Z0-9-]*)((?:\s+[^<>]*?)?)(/?)>`)
	// Directive occurrences inside an attribute string. The leading
	// boundary keeps names like svg-foo from matching.
	engineAttrPattern = regexp.MustCompile(`(?:^|\s)(g-[a-zA-Z][a-zA-Z0-9-]*(?::[a-zA-Z0-9-]+)?)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'))?`)
)

// voidTags are elements that never carry inner content.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Gonia is a server-side implementation of the directive engine. It
// resolves plain state paths only; the full expression language belongs
// to the client runtime, which re-evaluates directives on hydration.
type Gonia struct{}

// NewEngine returns the server-side directive engine.
func NewEngine() *Gonia {
	return &Gonia{}
}

func (g *Gonia) Render(ctx context.Context, markup string, scope Scope, reg *Registry) (string, error) {
	if reg == nil {
		return markup, nil
	}
	return g.renderRegion(ctx, markup, scope, reg)
}

func (g *Gonia) renderRegion(ctx context.Context, markup string, scope Scope, reg *Registry) (string, error) {
	var out strings.Builder
	out.Grow(len(markup))
	pos := 0

	for pos < len(markup) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		loc := openTagPattern.FindStringSubmatchIndex(markup[pos:])
		if loc == nil {
			out.WriteString(markup[pos:])
			break
		}
		tagStart := pos + loc[0]
		tagEnd := pos + loc[1]
		tag := markup[pos+loc[2] : pos+loc[3]]
		attrs := ""
		if loc[4] >= 0 {
			attrs = markup[pos+loc[4] : pos+loc[5]]
		}
		selfClosed := loc[6] < loc[7]

		directives := matchDirectives(attrs, reg)
		if len(directives) == 0 {
			out.WriteString(markup[pos:tagEnd])
			pos = tagEnd
			continue
		}

		el := &Element{Tag: tag, Attrs: attrs}
		elementEnd := tagEnd
		if !selfClosed && !voidTags[strings.ToLower(tag)] {
			closeStart, closeEnd := findMatchingClose(markup, tagEnd, tag)
			if closeStart >= 0 {
				el.Inner = markup[tagEnd:closeStart]
				elementEnd = closeEnd
			}
		}

		for _, d := range directives {
			handler, ok := reg.Handler(d.name)
			if !ok || handler == nil {
				continue
			}
			if err := handler(el, d.modifier, htmlutil.UnescapeString(d.expr), scope); err != nil {
				return "", &Error{Err: fmt.Errorf("directive %s: %w", d.name, err)}
			}
			if el.Drop {
				break
			}
		}

		out.WriteString(markup[pos:tagStart])
		pos = elementEnd

		if el.Drop {
			continue
		}

		if !el.innerFinal && el.Inner != "" {
			inner, err := g.renderRegion(ctx, el.Inner, scope, reg)
			if err != nil {
				return "", err
			}
			el.Inner = inner
		}

		out.WriteByte('<')
		out.WriteString(el.Tag)
		out.WriteString(el.Attrs)
		if selfClosed {
			out.WriteString("/>")
			continue
		}
		out.WriteByte('>')
		if elementEnd != tagEnd {
			out.WriteString(el.Inner)
			out.WriteString("</")
			out.WriteString(el.Tag)
			out.WriteByte('>')
		}
	}

	return out.String(), nil
}

type directiveMatch struct {
	name     string
	modifier string
	expr     string
}

// matchDirectives returns the registered directives present in an
// attribute string, in order of appearance.
func matchDirectives(attrs string, reg *Registry) []directiveMatch {
	var out []directiveMatch
	for _, m := range engineAttrPattern.FindAllStringSubmatch(attrs, -1) {
		name := m[1]
		if _, ok := reg.Handler(name); !ok {
			continue
		}
		d := directiveMatch{name: name}
		if i := strings.IndexByte(name, ':'); i >= 0 {
			d.name, d.modifier = name[:i], name[i+1:]
		}
		if m[2] != "" {
			d.expr = m[2]
		} else {
			d.expr = m[3]
		}
		out = append(out, d)
	}
	return out
}

// findMatchingClose locates the close tag balancing the element opened
// just before from, tolerating nested elements of the same tag. Returns
// the close tag's start and end offsets, or -1 when unbalanced.
func findMatchingClose(markup string, from int, tag string) (int, int) {
	lower := strings.ToLower(markup)
	open := "<" + strings.ToLower(tag)
	closeTok := "</" + strings.ToLower(tag)
	depth := 1
	pos := from

	for pos < len(lower) {
		next := strings.Index(lower[pos:], closeTok)
		if next < 0 {
			return -1, -1
		}
		next += pos
		if after := next + len(closeTok); after < len(lower) && isNameByte(lower[after]) {
			// A longer tag name that merely starts with ours.
			pos = after
			continue
		}

		// Count same-tag opens between pos and the candidate close.
		scan := pos
		for {
			i := strings.Index(lower[scan:next], open)
			if i < 0 {
				break
			}
			i += scan
			after := i + len(open)
			if after >= len(lower) || !isNameByte(lower[after]) {
				depth++
			}
			scan = after
		}

		depth--
		end := strings.IndexByte(lower[next:], '>')
		if end < 0 {
			return -1, -1
		}
		if depth == 0 {
			return next, next + end + 1
		}
		pos = next + end + 1
	}
	return -1, -1
}

func isNameByte(b byte) bool {
	return b == '-' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// evaluate resolves a directive expression: quoted string literals,
// numeric literals, booleans, or a dotted state path.
func evaluate(expr string, scope Scope) any {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	if len(expr) >= 2 && expr[0] == '\'' && expr[len(expr)-1] == '\'' {
		return expr[1 : len(expr)-1]
	}
	switch expr {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(expr, 64); err == nil {
		return n
	}
	v, _ := scope.Lookup(expr)
	return v
}

func directiveText(el *Element, modifier, expr string, scope Scope) error {
	el.SetInner(htmlutil.EscapeString(Stringify(evaluate(expr, scope))))
	return nil
}

func directiveHTML(el *Element, modifier, expr string, scope Scope) error {
	el.SetInner(Stringify(evaluate(expr, scope)))
	return nil
}

func directiveIf(el *Element, modifier, expr string, scope Scope) error {
	if !Truthy(evaluate(expr, scope)) {
		el.Drop = true
	}
	return nil
}

var styleAttrPattern = regexp.MustCompile(`(?i)\bstyle\s*=\s*"([^"]*)"`)

func directiveShow(el *Element, modifier, expr string, scope Scope) error {
	if Truthy(evaluate(expr, scope)) {
		return nil
	}
	if styleAttrPattern.MatchString(el.Attrs) {
		el.Attrs = styleAttrPattern.ReplaceAllString(el.Attrs, `style="display:none;$1"`)
	} else {
		el.Attrs += ` style="display:none"`
	}
	return nil
}

func directiveBind(el *Element, modifier, expr string, scope Scope) error {
	if modifier == "" {
		return fmt.Errorf("g-bind requires an attribute modifier")
	}
	value := htmlutil.EscapeString(Stringify(evaluate(expr, scope)))
	attrPattern, err := regexp.Compile(`(?i)(^|\s)` + regexp.QuoteMeta(modifier) + `\s*=\s*"[^"]*"`)
	if err != nil {
		return err
	}
	if attrPattern.MatchString(el.Attrs) {
		el.Attrs = attrPattern.ReplaceAllString(el.Attrs, `${1}`+modifier+`="`+value+`"`)
	} else {
		el.Attrs += ` ` + modifier + `="` + value + `"`
	}
	return nil
}
