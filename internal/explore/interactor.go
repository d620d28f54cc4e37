package explore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domscout-cli/internal/dom"
)

// TriggerSelectorVersion identifies the fixed predicate set below. Changing
// the set changes what is discovered, not how it is processed.
const TriggerSelectorVersion = "2025.1"

// triggerXPath is the bulk form of the trigger classification: anchors with
// an href, form controls, disclosure elements, contenteditable regions and
// the interactive ARIA roles. This form is evaluated against container roots
// (the document and shadow roots).
const triggerXPath = `
    //a[@href] | //button | //input | //textarea | //select |
    //summary | //details |
    //*[normalize-space(@contenteditable)='true' or normalize-space(@contenteditable)=''] |
    //*[@role='button' or @role='link' or @role='tab' or @role='menuitem' or @role='checkbox' or @role='radio']
`

// triggerSubtreeXPath is the relative form, evaluated against an inserted
// subtree node. An absolute // query from an attached node would walk back up
// to the document root and re-match the whole page.
const triggerSubtreeXPath = `
    .//a[@href] | .//button | .//input | .//textarea | .//select |
    .//summary | .//details |
    .//*[normalize-space(@contenteditable)='true' or normalize-space(@contenteditable)=''] |
    .//*[@role='button' or @role='link' or @role='tab' or @role='menuitem' or @role='checkbox' or @role='radio']
`

// probeText is the fixed value typed into free-text inputs. The original
// value is restored after the settle delay.
const probeText = "automation test input"

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "tab": true,
	"menuitem": true, "checkbox": true, "radio": true,
}

// isTrigger is the per-node form of the trigger selector, used where the
// XPath query cannot match a subtree's own root.
func isTrigger(n *html.Node) bool {
	if !dom.IsElement(n) {
		return false
	}
	switch dom.TagName(n) {
	case "a":
		return dom.HasAttr(n, "href")
	case "button", "input", "textarea", "select", "summary", "details":
		return true
	}
	if dom.HasAttr(n, "contenteditable") {
		v := strings.TrimSpace(strings.ToLower(dom.Attr(n, "contenteditable")))
		if v == "true" || v == "" {
			return true
		}
	}
	return interactiveRoles[dom.Attr(n, "role")]
}

// findTriggers returns the trigger nodes within a subtree, including the
// subtree root itself, in document order.
func (e *Engine) findTriggers(root *html.Node) []*html.Node {
	var out []*html.Node
	if isTrigger(root) {
		out = append(out, root)
	}
	if err := forEachMatch(root, triggerSubtreeXPath, func(n *html.Node) {
		out = append(out, n)
	}); err != nil {
		// Static expression; an error here means a broken build, but the
		// contract is that bulk queries never abort the run.
		e.log.Warn("Trigger query failed.", zap.Error(err))
	}
	return out
}

// act processes one dequeued trigger: classify, perform the minimal safe
// action, then wait out the settle interval unconditionally before returning
// control to the scheduler. Failures are logged and still count as
// completion.
func (e *Engine) act(ctx context.Context, r *run, n *html.Node) {
	r.triggers++
	path := r.doc.StructuralPath(n)

	if err := e.performAction(r, n, path); err != nil {
		r.recordError(e, fmt.Errorf("interact %s: %w", path, err), path)
	}
	e.settle(ctx)
}

// performAction runs the classification table in priority order.
func (e *Engine) performAction(r *run, n *html.Node, path string) error {
	doc := r.doc

	// A trigger disconnected since enqueuing is a no-op; it still counted
	// toward the iteration budget.
	if !doc.Connected(n) {
		e.log.Debug("Trigger disconnected before action; skipping.", zap.String("path", path))
		return nil
	}

	tag := dom.TagName(n)
	typ := strings.ToLower(dom.Attr(n, "type"))

	switch {
	case tag == "summary" && n.Parent != nil && dom.TagName(n.Parent) == "details":
		// Disclosure toggle: force the container open and leave it open.
		dom.SetAttr(n.Parent, "open", "")
		return doc.Dispatch(n.Parent, "toggle")

	case tag == "details":
		dom.SetAttr(n, "open", "")
		return doc.Dispatch(n, "toggle")

	case tag == "select":
		// Expand the option list and give focus; no reversal needed since
		// selection never changes.
		if err := doc.Dispatch(n, "pointerdown"); err != nil {
			return err
		}
		return doc.Dispatch(n, "focus")

	case tag == "a" && dom.HasAttr(n, "href"):
		if !e.safeToActivate(r, n) {
			e.log.Debug("Anchor not same-origin/same-path; never activated.", zap.String("path", path))
			return nil
		}
		return doc.Dispatch(n, "click")

	case tag == "input" && (typ == "checkbox" || typ == "radio"):
		return e.toggleCheckable(r, n)

	case tag == "input" && isFreeTextType(typ):
		return e.probeTextInput(r, n)

	case tag == "button" && typ != "submit":
		if err := doc.Dispatch(n, "pointerdown"); err != nil {
			return err
		}
		return doc.Dispatch(n, "click")

	default:
		// Least invasive generic probe for everything else that matched the
		// trigger selector (submit buttons, ARIA widgets, contenteditable).
		if err := doc.Dispatch(n, "pointerdown"); err != nil {
			return err
		}
		return doc.Dispatch(n, "focus")
	}
}

// isFreeTextType reports whether an input type gets the text probe:
// text/email/search and untyped inputs.
func isFreeTextType(typ string) bool {
	switch typ {
	case "", "text", "email", "search":
		return true
	}
	return false
}

// safeToActivate allows synthetic clicks only on anchors that resolve to the
// document's own origin and path, so activation can never navigate away.
func (e *Engine) safeToActivate(r *run, n *html.Node) bool {
	base := r.doc.BaseURL()
	if base == nil {
		// No base URL to compare against: treat every target as foreign.
		return false
	}
	ref, err := base.Parse(dom.Attr(n, "href"))
	if err != nil {
		return false
	}
	if ref.Scheme != base.Scheme || ref.Host != base.Host {
		return false
	}
	refPath, basePath := ref.EscapedPath(), base.EscapedPath()
	if refPath == "" {
		refPath = "/"
	}
	if basePath == "" {
		basePath = "/"
	}
	return refPath == basePath
}

// toggleCheckable flips a checkbox/radio, announces the change, and schedules
// restoration of the original state after the settle delay.
func (e *Engine) toggleCheckable(r *run, n *html.Node) error {
	doc := r.doc
	wasChecked := dom.HasAttr(n, "checked")

	if wasChecked {
		dom.RemoveAttr(n, "checked")
	} else {
		dom.SetAttr(n, "checked", "")
	}
	err := doc.Dispatch(n, "change")

	doc.Defer(e.cfg.SettleInterval, func() {
		if !doc.Connected(n) {
			return
		}
		if wasChecked {
			dom.SetAttr(n, "checked", "")
		} else {
			dom.RemoveAttr(n, "checked")
		}
	})
	return err
}

// probeTextInput focuses a free-text input, sets the fixed probe value with
// input/change notifications, and schedules restoration of the original
// value after the settle delay.
func (e *Engine) probeTextInput(r *run, n *html.Node) error {
	doc := r.doc
	hadValue := dom.HasAttr(n, "value")
	original := dom.Attr(n, "value")

	if err := doc.Dispatch(n, "focus"); err != nil {
		return err
	}
	dom.SetAttr(n, "value", probeText)
	if err := doc.Dispatch(n, "input"); err != nil {
		return err
	}
	err := doc.Dispatch(n, "change")

	doc.Defer(e.cfg.SettleInterval, func() {
		if !doc.Connected(n) {
			return
		}
		if hadValue {
			dom.SetAttr(n, "value", original)
		} else {
			dom.RemoveAttr(n, "value")
		}
	})
	return err
}

// settle waits the fixed settle interval, giving the page's handlers time to
// render revealed content before the next trigger is processed.
func (e *Engine) settle(ctx context.Context) {
	select {
	case <-time.After(e.cfg.SettleInterval):
	case <-ctx.Done():
	}
}
