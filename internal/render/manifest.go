package render

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest declares project-level directives to register in addition to
// the builtin set. Handlers cannot be supplied from configuration, so
// manifest directives are registered as client-side passthroughs: the
// server recognizes them and leaves their elements for hydration.
type Manifest struct {
	Directives []string `yaml:"directives"`
}

// LoadManifest reads a custom-directive manifest. A missing or unreadable
// file is not an error; the integration proceeds with no custom
// directives, so ok reports whether anything was loaded.
func LoadManifest(path string) (Manifest, bool) {
	if path == "" {
		return Manifest{}, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, false
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, false
	}
	return m, len(m.Directives) > 0
}

// Apply registers the manifest's directives on a registry. Names are
// normalized to the directive prefix; blanks are skipped.
func (m Manifest) Apply(reg *Registry) {
	for _, name := range m.Directives {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		reg.Register(name, Passthrough)
	}
}
