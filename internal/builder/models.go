package builder

import (
	"html/template"

	"github.com/monokrome/astrogonia/internal/config"
)

// PageMeta holds metadata from a content file's front matter. Scope and
// Template are emitted as g-scope / g-template attributes on the page's
// body tag, which is how a page hands state to the directive engine.
type PageMeta struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Draft       bool           `yaml:"draft"`
	Template    string         `yaml:"template"`
	Scope       map[string]any `yaml:"scope"`
	Params      map[string]any `yaml:",inline"`
}

// PageData is the struct passed to the layout template.
type PageData struct {
	Content     template.HTML
	Title       string
	Description string
	BaseHref    string
	BodyAttrs   template.HTMLAttr
	Site        *config.Config
	Params      map[string]any
}
