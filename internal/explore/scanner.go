package explore

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domscout-cli/api/schemas"
	"github.com/xkilldash9x/domscout-cli/internal/dom"
)

// scan walks root and every reachable descendant in pre-order: the node
// itself, then its shadow content, then its children. Element nodes are
// captured at most once per run; a node already in the captured set is
// skipped silently while its subtree is still traversed, so late-discovered
// descendants are never missed. Extraction failures are logged per node and
// never abort the surrounding walk.
func (e *Engine) scan(r *run, root *html.Node) {
	if root == nil {
		return
	}

	switch root.Type {
	case html.ElementNode:
		if !r.reg.HasCaptured(root) {
			r.reg.MarkCaptured(root)
			e.capture(r, root)
		}
	case html.DocumentNode:
		// Main tree root or a shadow root; nothing to capture, descend.
	default:
		// Text, comments, doctypes: no capture, no recursion into content.
		return
	}

	if sr := r.doc.ShadowRoot(root); sr != nil {
		e.scan(r, sr)
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		e.scan(r, c)
	}
}

// capture produces the immutable record for one element and appends it to
// the ordered result collection.
func (e *Engine) capture(r *run, n *html.Node) {
	path := r.doc.StructuralPath(n)

	extraction, err := e.extractor.Extract(r.doc, n)
	if err != nil {
		r.recordError(e, fmt.Errorf("extract %s: %w", path, err), path)
		return
	}

	attrs := dom.Attrs(n)
	el := schemas.CapturedElement{
		Tag:         dom.TagName(n),
		Type:        strings.ToLower(dom.Attr(n, "type")),
		ID:          dom.Attr(n, "id"),
		Name:        dom.Attr(n, "name"),
		Classes:     strings.Fields(dom.Attr(n, "class")),
		Label:       e.labels.Label(r.doc, n),
		Text:        truncate(strings.TrimSpace(dom.InnerText(n)), 120),
		Value:       dom.Attr(n, "value"),
		Placeholder: dom.Attr(n, "placeholder"),
		Title:       dom.Attr(n, "title"),
		Required:    dom.HasAttr(n, "required"),
		Disabled:    dom.HasAttr(n, "disabled"),
		ReadOnly:    dom.HasAttr(n, "readonly"),
		Checked:     dom.HasAttr(n, "checked"),
		Selected:    dom.HasAttr(n, "selected"),
		Href:        dom.Attr(n, "href"),
		Target:      dom.Attr(n, "target"),
		Path:        path,
		Form:        e.forms.FormContext(r.doc, n),
		Attributes:  attrs,
		Extraction:  extraction,
		CapturedAt:  time.Now(),
	}
	r.elements = append(r.elements, el)

	if e.cfg.Debug {
		e.log.Debug("Captured element.", zap.String("tag", el.Tag), zap.String("path", path))
	}
}

// onInserted is the change watcher callback: re-scan each inserted subtree
// for captures, then enqueue its not-yet-done triggers. Runs between queue
// steps from the engine goroutine, so appends are visible to the scheduler
// before it considers the queue empty.
func (e *Engine) onInserted(r *run, inserted []*html.Node) {
	for _, n := range inserted {
		if !dom.IsElement(n) {
			continue
		}
		e.scan(r, n)
		for _, t := range e.findTriggers(n) {
			if !r.reg.HasDoneTrigger(t) {
				r.queue = append(r.queue, t)
			}
		}
	}
}

// truncate clips s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// forEachMatch evaluates an XPath expression against a subtree and applies fn
// to each match. The error return feeds the bulk-query failure taxonomy.
func forEachMatch(root *html.Node, expr string, fn func(*html.Node)) error {
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		fn(n)
	}
	return nil
}
