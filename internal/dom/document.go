// Package dom owns a mutable HTML document tree for a single exploration run.
//
// The tree is built on golang.org/x/net/html nodes, extended with shadow
// roots, event dispatch, structural mutation observation and a timer task
// queue. A Document is not safe for concurrent use: one goroutine owns it for
// the lifetime of a run, and everything that looks asynchronous (page
// scripts, deferred reversals) is modeled as timed tasks executed from that
// same goroutine.
package dom

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Event is delivered to handlers registered with On. Target is the node the
// event was dispatched on, not the node the handler is attached to.
type Event struct {
	Type   string
	Target *html.Node
	Doc    *Document
}

// Handler reacts to a dispatched event. Handlers run synchronously on the
// dispatching goroutine and may mutate the document.
type Handler func(Event)

// Observer receives batches of inserted element nodes until disconnected.
type Observer struct {
	doc    *Document
	fn     func(inserted []*html.Node)
	active bool
}

// Disconnect stops delivery. Insertions after Disconnect are dropped.
func (o *Observer) Disconnect() { o.active = false }

type timerTask struct {
	seq int
	due time.Time
	fn  func()
}

// Document is the live tree plus its host-environment state.
type Document struct {
	root *html.Node
	base *url.URL

	shadows    map[*html.Node]*html.Node // host element -> shadow root
	hosts      map[*html.Node]*html.Node // shadow root -> host element
	shadowList []*html.Node              // attach order, for deterministic queries

	handlers  map[*html.Node]map[string][]Handler
	observers []*Observer

	tasks   []timerTask
	taskSeq int
}

// Load parses an HTML document. Children of <template shadowrootmode=...>
// elements are adopted as attached shadow roots (declarative shadow DOM).
// rawURL, when non-empty, becomes the document's base URL.
func Load(r io.Reader, rawURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := &Document{
		root:     root,
		shadows:  make(map[*html.Node]*html.Node),
		hosts:    make(map[*html.Node]*html.Node),
		handlers: make(map[*html.Node]map[string][]Handler),
	}
	if rawURL != "" {
		base, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url %q: %w", rawURL, err)
		}
		d.base = base
	}
	d.adoptDeclarativeShadows(root)
	return d, nil
}

// Parse is a convenience wrapper around Load for string input.
func Parse(markup, rawURL string) (*Document, error) {
	return Load(strings.NewReader(markup), rawURL)
}

// Root returns the document node at the top of the main tree.
func (d *Document) Root() *html.Node { return d.root }

// BaseURL returns the document's base URL, or nil if none was provided.
func (d *Document) BaseURL() *url.URL { return d.base }

// Roots returns the main tree root followed by every shadow root in attach
// order. Together they cover every container the document holds.
func (d *Document) Roots() []*html.Node {
	roots := make([]*html.Node, 0, 1+len(d.shadowList))
	roots = append(roots, d.root)
	roots = append(roots, d.shadowList...)
	return roots
}

// -- Shadow trees --

// AttachShadow attaches (or returns the existing) shadow root for host.
func (d *Document) AttachShadow(host *html.Node) *html.Node {
	if sr, ok := d.shadows[host]; ok {
		return sr
	}
	sr := &html.Node{Type: html.DocumentNode, Data: "#shadow-root"}
	d.shadows[host] = sr
	d.hosts[sr] = host
	d.shadowList = append(d.shadowList, sr)
	return sr
}

// ShadowRoot returns the shadow root attached to n, or nil.
func (d *Document) ShadowRoot(n *html.Node) *html.Node { return d.shadows[n] }

// Host returns the host element of a shadow root, or nil.
func (d *Document) Host(root *html.Node) *html.Node { return d.hosts[root] }

// adoptDeclarativeShadows rewrites <template shadowrootmode> subtrees into
// attached shadow roots. Runs at load time, before any observer exists.
func (d *Document) adoptDeclarativeShadows(n *html.Node) {
	var templates []*html.Node
	var collect func(*html.Node)
	collect = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "template" && HasAttr(c, "shadowrootmode") {
				templates = append(templates, c)
				continue // nested templates are adopted once their content moves
			}
			collect(c)
		}
	}
	collect(n)

	for _, tpl := range templates {
		host := tpl.Parent
		if host == nil || host.Type != html.ElementNode {
			continue
		}
		sr := d.AttachShadow(host)
		for c := tpl.FirstChild; c != nil; {
			next := c.NextSibling
			tpl.RemoveChild(c)
			sr.AppendChild(c)
			c = next
		}
		host.RemoveChild(tpl)
		d.adoptDeclarativeShadows(sr)
	}
}

// -- Structural mutation --

// AppendChild appends child to parent and notifies observers. A child that is
// already attached elsewhere is detached first.
func (d *Document) AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
	d.notifyInserted(child)
}

// InsertBefore inserts child into parent before ref and notifies observers.
// A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	if ref == nil {
		parent.AppendChild(child)
	} else {
		parent.InsertBefore(child, ref)
	}
	d.notifyInserted(child)
}

// RemoveChild detaches child from parent. Removals are not observed; only
// structural insertions are.
func (d *Document) RemoveChild(parent, child *html.Node) {
	parent.RemoveChild(child)
}

// Observe registers a structural-insertion observer. The callback receives
// inserted element nodes; text and comment insertions are not reported.
func (d *Document) Observe(fn func(inserted []*html.Node)) *Observer {
	o := &Observer{doc: d, fn: fn, active: true}
	d.observers = append(d.observers, o)
	return o
}

func (d *Document) notifyInserted(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	// Insertions into detached subtrees are not part of the page yet; the
	// subtree is observed as a whole if it later connects.
	if !d.Connected(n) {
		return
	}
	batch := []*html.Node{n}
	// Snapshot: an observer callback may register further observers.
	active := make([]*Observer, 0, len(d.observers))
	for _, o := range d.observers {
		if o.active {
			active = append(active, o)
		}
	}
	for _, o := range active {
		if o.active {
			o.fn(batch)
		}
	}
}

// -- Connectivity --

// Parent returns the structural parent of n, crossing a shadow boundary to
// the host element when n is a shadow root.
func (d *Document) Parent(n *html.Node) *html.Node {
	if n.Parent != nil {
		return n.Parent
	}
	return d.hosts[n]
}

// Connected reports whether n is still reachable from the document root.
func (d *Document) Connected(n *html.Node) bool {
	for cur := n; cur != nil; cur = d.Parent(cur) {
		if cur == d.root {
			return true
		}
	}
	return false
}

// -- Events --

// On registers a handler for events of the given type dispatched on (or
// bubbling through) n.
func (d *Document) On(n *html.Node, typ string, h Handler) {
	m := d.handlers[n]
	if m == nil {
		m = make(map[string][]Handler)
		d.handlers[n] = m
	}
	m[typ] = append(m[typ], h)
}

// Dispatch delivers a synthetic event to n and bubbles it through ancestors,
// crossing shadow boundaries via the host. A panicking handler is recovered
// into the returned error so a misbehaving page cannot abort the run.
func (d *Document) Dispatch(n *html.Node, typ string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic on %q: %v", typ, r)
		}
	}()
	ev := Event{Type: typ, Target: n, Doc: d}
	for cur := n; cur != nil; cur = d.Parent(cur) {
		if m := d.handlers[cur]; m != nil {
			for _, h := range m[typ] {
				h(ev)
			}
		}
	}
	return nil
}

// -- Timer tasks --
//
// Defer models host-scheduled work: page scripts firing after load and the
// interactor's delayed state reversals. Tasks run on the goroutine that calls
// RunDue or DrainTasks, never concurrently with it.

// Defer schedules fn to run once delay has elapsed.
func (d *Document) Defer(delay time.Duration, fn func()) {
	d.taskSeq++
	d.tasks = append(d.tasks, timerTask{seq: d.taskSeq, due: time.Now().Add(delay), fn: fn})
}

// RunDue executes every task whose deadline has passed, in deadline order,
// and returns how many ran. Tasks scheduled by a running task are not
// executed until the next call.
func (d *Document) RunDue(now time.Time) int {
	return d.runTasks(func(t timerTask) bool { return !t.due.After(now) })
}

// DrainTasks executes all pending tasks regardless of deadline. Used at run
// teardown so connectivity-guarded reversals still get their chance to fire.
func (d *Document) DrainTasks() int {
	return d.runTasks(func(timerTask) bool { return true })
}

func (d *Document) runTasks(ready func(timerTask) bool) int {
	var due, rest []timerTask
	for _, t := range d.tasks {
		if ready(t) {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	d.tasks = rest
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// PendingTasks reports how many scheduled tasks have not yet run.
func (d *Document) PendingTasks() int { return len(d.tasks) }
