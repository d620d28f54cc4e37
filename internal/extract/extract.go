// Package extract provides the default collaborators of the exploration
// engine: the attribute/style extractor, the label resolver and the
// form-context resolver. All of them are pure functions over the document.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domscout-cli/api/schemas"
	"github.com/xkilldash9x/domscout-cli/internal/dom"
)

// styleSubset is the set of computed-style properties carried into the
// capture record.
var styleSubset = map[string]bool{
	"display": true, "visibility": true, "position": true, "opacity": true,
}

// implicitRoles maps tags to their default ARIA role when none is declared.
var implicitRoles = map[string]string{
	"a": "link", "button": "button", "select": "listbox",
	"textarea": "textbox", "summary": "button", "details": "group",
	"form": "form", "nav": "navigation", "main": "main",
}

// naturallyFocusable lists tags that take focus without a tabindex.
var naturallyFocusable = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
}

// Extractor computes the geometry/visibility/style/accessibility snapshot
// for a node from its attributes and inline style declarations.
type Extractor struct{}

// New creates the default extractor.
func New() *Extractor { return &Extractor{} }

// Extract returns the snapshot for an element node. Non-element nodes are an
// error; the scanner converts it into an ErrorRecord.
func (x *Extractor) Extract(d *dom.Document, n *html.Node) (schemas.Extraction, error) {
	if !dom.IsElement(n) {
		return schemas.Extraction{}, fmt.Errorf("extract: node is not an element")
	}

	style := InlineStyle(n)
	return schemas.Extraction{
		Geometry:      geometry(n, style),
		Visible:       Visible(d, n),
		Style:         subset(style),
		Accessibility: accessibility(n),
	}, nil
}

// InlineStyle parses the element's style attribute into a declaration map.
// Property names are lowercased; an "!important" suffix is stripped.
func InlineStyle(n *html.Node) map[string]string {
	raw := dom.Attr(n, "style")
	if raw == "" {
		return nil
	}
	decls := make(map[string]string)
	for _, decl := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		decls[name] = strings.ToLower(value)
	}
	if len(decls) == 0 {
		return nil
	}
	return decls
}

func subset(style map[string]string) map[string]string {
	var out map[string]string
	for k, v := range style {
		if styleSubset[k] {
			if out == nil {
				out = make(map[string]string, len(styleSubset))
			}
			out[k] = v
		}
	}
	return out
}

// geometry derives best-effort dimensions from width/height attributes and
// inline pixel declarations.
func geometry(n *html.Node, style map[string]string) schemas.Geometry {
	g := schemas.Geometry{}
	if w, ok := dimension(dom.Attr(n, "width")); ok {
		g.Width, g.Declared = w, true
	}
	if h, ok := dimension(dom.Attr(n, "height")); ok {
		g.Height, g.Declared = h, true
	}
	if w, ok := dimension(style["width"]); ok {
		g.Width, g.Declared = w, true
	}
	if h, ok := dimension(style["height"]); ok {
		g.Height, g.Declared = h, true
	}
	return g
}

// dimension parses "120", "120px" or "120.5px" into a pixel count.
func dimension(raw string) (float64, bool) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "px"))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Visible reports whether an element would render: no hidden attribute,
// no display:none / visibility:hidden / zero opacity on itself or any
// ancestor, and not an input of type hidden.
func Visible(d *dom.Document, n *html.Node) bool {
	if dom.TagName(n) == "input" && strings.EqualFold(dom.Attr(n, "type"), "hidden") {
		return false
	}
	for cur := n; cur != nil; cur = d.Parent(cur) {
		if !dom.IsElement(cur) {
			continue
		}
		if dom.HasAttr(cur, "hidden") {
			return false
		}
		if dom.Attr(cur, "aria-hidden") == "true" {
			return false
		}
		style := InlineStyle(cur)
		if style["display"] == "none" {
			return false
		}
		if v := style["visibility"]; v == "hidden" || v == "collapse" {
			return false
		}
		if o, err := strconv.ParseFloat(style["opacity"], 64); err == nil && o == 0 {
			return false
		}
	}
	return true
}

// accessibility gathers role, tabindex, focusability and the aria-* mapping.
func accessibility(n *html.Node) schemas.Accessibility {
	tag := dom.TagName(n)
	a := schemas.Accessibility{Role: dom.Attr(n, "role")}
	if a.Role == "" {
		a.Role = implicitRoles[tag]
	}

	if ti, err := strconv.Atoi(dom.Attr(n, "tabindex")); err == nil {
		a.TabIndex = ti
	}
	a.Focusable = a.TabIndex >= 0 &&
		(dom.HasAttr(n, "tabindex") || naturallyFocusable[tag]) &&
		!dom.HasAttr(n, "disabled")

	for _, attr := range n.Attr {
		if strings.HasPrefix(attr.Key, "aria-") {
			if a.Aria == nil {
				a.Aria = make(map[string]string)
			}
			a.Aria[attr.Key] = attr.Val
		}
	}
	return a
}
