package transform

import "strings"

// entityReplacements lists the character references the embedded-scope
// protocol uses, in decode order. &amp; decodes last so that &amp;quot;
// yields the literal text &quot; rather than a quote character.
var entityReplacements = [][2]string{
	{"&quot;", `"`},
	{"&#34;", `"`},
	{"&#39;", "'"},
	{"&apos;", "'"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&amp;", "&"},
}

// DecodeEntities reverses the fixed set of character references used to
// embed JSON in attribute values.
func DecodeEntities(s string) string {
	for _, r := range entityReplacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}
