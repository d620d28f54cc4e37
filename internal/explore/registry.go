package explore

import (
	"weak"

	"golang.org/x/net/html"
)

// Registry tracks which nodes have been captured and which triggers have been
// acted upon. Membership is keyed by node identity, never by computed path:
// two distinct nodes can share a path after structural mutations.
//
// Keys are weak pointers, so the registry does not keep subtrees alive once
// the page drops them. Membership is monotonic for the lifetime of a run:
// there is no removal operation.
type Registry struct {
	captured map[weak.Pointer[html.Node]]struct{}
	done     map[weak.Pointer[html.Node]]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		captured: make(map[weak.Pointer[html.Node]]struct{}),
		done:     make(map[weak.Pointer[html.Node]]struct{}),
	}
}

// HasCaptured reports whether the scanner already produced a record for n.
func (r *Registry) HasCaptured(n *html.Node) bool {
	_, ok := r.captured[weak.Make(n)]
	return ok
}

// MarkCaptured records that a CapturedElement exists for n.
func (r *Registry) MarkCaptured(n *html.Node) {
	r.captured[weak.Make(n)] = struct{}{}
}

// HasDoneTrigger reports whether the interactor already processed n.
func (r *Registry) HasDoneTrigger(n *html.Node) bool {
	_, ok := r.done[weak.Make(n)]
	return ok
}

// MarkDoneTrigger records that n was handed to the interactor. A done trigger
// is never re-enqueued, even if a mutation event rediscovers it.
func (r *Registry) MarkDoneTrigger(n *html.Node) {
	r.done[weak.Make(n)] = struct{}{}
}

// CapturedCount returns the number of captured nodes.
func (r *Registry) CapturedCount() int { return len(r.captured) }

// DoneTriggerCount returns the number of processed triggers.
func (r *Registry) DoneTriggerCount() int { return len(r.done) }
