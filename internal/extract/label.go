package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domscout-cli/api/schemas"
	"github.com/xkilldash9x/domscout-cli/internal/dom"
)

const maxLabelLen = 80

// Labeler resolves a best-effort human-readable label for an element.
type Labeler struct{}

// NewLabeler creates the default label resolver.
func NewLabeler() *Labeler { return &Labeler{} }

// Label runs the cascade: aria-label, aria-labelledby, an associated <label>,
// then the descriptive attributes, then trimmed text content.
func (l *Labeler) Label(d *dom.Document, n *html.Node) string {
	if !dom.IsElement(n) {
		return ""
	}

	if v := strings.TrimSpace(dom.Attr(n, "aria-label")); v != "" {
		return clip(v)
	}
	if id := strings.TrimSpace(dom.Attr(n, "aria-labelledby")); id != "" {
		// Multiple ids concatenate in order.
		var parts []string
		for _, ref := range strings.Fields(id) {
			if target := d.ByID(ref); target != nil {
				if t := strings.TrimSpace(dom.InnerText(target)); t != "" {
					parts = append(parts, t)
				}
			}
		}
		if len(parts) > 0 {
			return clip(strings.Join(parts, " "))
		}
	}
	if v := labelledByFor(d, n); v != "" {
		return clip(v)
	}
	if v := wrappingLabel(d, n); v != "" {
		return clip(v)
	}
	for _, attr := range []string{"placeholder", "title", "alt"} {
		if v := strings.TrimSpace(dom.Attr(n, attr)); v != "" {
			return clip(v)
		}
	}
	// Button-like inputs carry their label in value.
	if dom.TagName(n) == "input" {
		switch strings.ToLower(dom.Attr(n, "type")) {
		case "submit", "button", "reset":
			if v := strings.TrimSpace(dom.Attr(n, "value")); v != "" {
				return clip(v)
			}
		}
	}
	return clip(strings.TrimSpace(dom.InnerText(n)))
}

// labelledByFor finds a <label for="id"> matching the node's id anywhere in
// the node's own container.
func labelledByFor(d *dom.Document, n *html.Node) string {
	id := dom.Attr(n, "id")
	if id == "" {
		return ""
	}
	for _, root := range d.Roots() {
		labels, err := htmlquery.QueryAll(root, "//label[@for]")
		if err != nil {
			return ""
		}
		for _, lbl := range labels {
			if dom.Attr(lbl, "for") == id {
				return strings.TrimSpace(dom.InnerText(lbl))
			}
		}
	}
	return ""
}

// wrappingLabel walks ancestors looking for an enclosing <label>.
func wrappingLabel(d *dom.Document, n *html.Node) string {
	for cur := d.Parent(n); cur != nil; cur = d.Parent(cur) {
		if dom.TagName(cur) == "label" {
			return strings.TrimSpace(dom.InnerText(cur))
		}
	}
	return ""
}

func clip(s string) string {
	if len(s) <= maxLabelLen {
		return s
	}
	cut := maxLabelLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// FormResolver resolves the enclosing form metadata for a node.
type FormResolver struct{}

// NewFormResolver creates the default form-context resolver.
func NewFormResolver() *FormResolver { return &FormResolver{} }

// FormContext walks ancestors to the nearest <form> and describes it, or
// returns nil when the node is not inside a form.
func (f *FormResolver) FormContext(d *dom.Document, n *html.Node) *schemas.FormRef {
	var form *html.Node
	for cur := d.Parent(n); cur != nil; cur = d.Parent(cur) {
		if dom.TagName(cur) == "form" {
			form = cur
			break
		}
	}
	if form == nil {
		return nil
	}

	fields := 0
	controls, err := htmlquery.QueryAll(form, ".//input | .//select | .//textarea")
	if err == nil {
		fields = len(controls)
	}
	return &schemas.FormRef{
		Path:   d.StructuralPath(form),
		ID:     dom.Attr(form, "id"),
		Name:   dom.Attr(form, "name"),
		Action: dom.Attr(form, "action"),
		Method: strings.ToLower(dom.Attr(form, "method")),
		Fields: fields,
	}
}
