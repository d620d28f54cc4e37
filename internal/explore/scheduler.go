package explore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// seedTriggers populates the work queue by running the trigger selector over
// every container of the document, main tree first, shadow trees in attach
// order. Discovery order is the FIFO processing order.
func (e *Engine) seedTriggers(r *run) {
	for _, root := range r.doc.Roots() {
		if err := forEachMatch(root, triggerXPath, func(n *html.Node) {
			r.queue = append(r.queue, n)
		}); err != nil {
			r.recordError(e, fmt.Errorf("trigger discovery: %w", err), "")
		}
	}
	e.log.Debug("Seeded trigger queue.", zap.Int("triggers", len(r.queue)))
}

// drain processes the queue until it empties or the iteration ceiling is
// reached, whichever comes first. Every dequeue attempt counts toward the
// ceiling, including skips, so the run is bounded no matter how many triggers
// a misbehaving page keeps injecting.
func (e *Engine) drain(ctx context.Context, r *run) {
	for len(r.queue) > 0 {
		if r.iterations >= e.cfg.MaxIterations {
			r.ceilingHit = true
			e.log.Warn("Iteration ceiling reached; terminating drain loop.",
				zap.Int("iterations", r.iterations),
				zap.Int("queued", len(r.queue)),
			)
			return
		}
		if ctx.Err() != nil {
			return
		}

		n := r.queue[0]
		r.queue = r.queue[1:]
		r.iterations++

		if !r.doc.Connected(n) || r.reg.HasDoneTrigger(n) {
			continue
		}
		r.reg.MarkDoneTrigger(n)

		e.act(ctx, r, n)

		// Host tasks due by now (page scripts and reversals) fire between
		// dequeues, atomically from the scheduler's point of view.
		r.doc.RunDue(time.Now())
	}
}
