package render

import (
	"sort"
	"strings"
)

// Prefix is the attribute prefix that marks a directive for the engine.
const Prefix = "g-"

// Element is the engine's view of one markup element carrying directives.
// Handlers mutate it in place; the engine re-serializes it afterwards.
type Element struct {
	Tag   string
	Attrs string // raw attribute string, directive attributes included
	Inner string // inner markup, empty for void elements
	Drop  bool   // set by a handler to remove the element from output

	innerFinal bool
}

// SetInner replaces the element's inner markup. The engine will not
// descend into replaced content.
func (e *Element) SetInner(s string) {
	e.Inner = s
	e.innerFinal = true
}

// Handler evaluates one directive occurrence. modifier is the part after
// the colon in names like g-bind:href, empty otherwise. expr is the
// attribute value as written in the markup.
type Handler func(el *Element, modifier, expr string, scope Scope) error

// Registry maps directive names (without modifier) to their handlers. It
// is built once at startup and never mutated after rendering begins, so
// concurrent readers need no locking.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// DefaultRegistry returns a registry pre-populated with the builtin
// directive set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("g-text", directiveText)
	r.Register("g-html", directiveHTML)
	r.Register("g-show", directiveShow)
	r.Register("g-if", directiveIf)
	r.Register("g-bind", directiveBind)
	// Client-side behavior only; recognized so their host elements are
	// still walked, but the server leaves them untouched.
	r.Register("g-on", Passthrough)
	r.Register("g-model", Passthrough)
	r.Register("g-for", Passthrough)
	r.Register("g-cloak", Passthrough)
	r.Register("g-effect", Passthrough)
	return r
}

// Passthrough is the handler for directives that only act in the client.
func Passthrough(el *Element, modifier, expr string, scope Scope) error {
	return nil
}

// Register adds or replaces a directive handler. Registration is additive
// and must complete before any rendering starts.
func (r *Registry) Register(name string, h Handler) {
	if !strings.HasPrefix(name, Prefix) {
		name = Prefix + name
	}
	r.handlers[name] = h
}

// Handler returns the handler for a directive name, stripped of any
// modifier suffix.
func (r *Registry) Handler(name string) (Handler, bool) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered directive names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
