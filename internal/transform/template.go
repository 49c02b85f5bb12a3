package transform

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// slotPattern matches the placeholder element marking the splice point:
// either an empty paired tag or a self-closing one.
var slotPattern = regexp.MustCompile(`(?i)<slot\s*(?:/\s*>|>\s*</slot\s*>)`)

// Resolver loads named page templates from a root directory. Templates
// are reloaded on every lookup so edits apply without a restart.
type Resolver struct {
	Root string
}

// Resolve loads <root>/<name>.html and splices content into the first
// slot placeholder. ok is false when the template cannot be read, in
// which case callers proceed with their original content; a template
// without a placeholder is returned verbatim, which is the documented
// templating contract rather than an error.
func (r *Resolver) Resolve(name, content string) (string, bool) {
	if r == nil || r.Root == "" || name == "" {
		return "", false
	}
	if strings.Contains(name, "..") {
		return "", false
	}
	raw, err := os.ReadFile(filepath.Join(r.Root, name+".html"))
	if err != nil {
		return "", false
	}
	tpl := string(raw)
	if loc := slotPattern.FindStringIndex(tpl); loc != nil {
		return tpl[:loc[0]] + content + tpl[loc[1]:], true
	}
	return tpl, true
}
