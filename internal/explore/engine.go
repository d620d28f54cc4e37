// Package explore implements the traversal-and-exploration engine: a
// recursive tree scanner, an interaction state machine, and a FIFO scheduler
// with a structural-change watcher, all operating on one mutable document.
//
// The engine is single-threaded by design. The goroutine running Explore owns
// the document for the whole run; page scripts and deferred reversals are
// timer tasks executed between queue steps, so queue and registries never
// need locking.
package explore

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domscout-cli/api/schemas"
	"github.com/xkilldash9x/domscout-cli/internal/config"
	"github.com/xkilldash9x/domscout-cli/internal/dom"
	"github.com/xkilldash9x/domscout-cli/internal/extract"
)

// Extractor returns the geometry/visibility/style/accessibility snapshot for
// a node. Implementations must be pure; a failing node yields an error that
// the scanner converts into an ErrorRecord.
type Extractor interface {
	Extract(d *dom.Document, n *html.Node) (schemas.Extraction, error)
}

// LabelResolver returns a best-effort human-readable label for a node.
type LabelResolver interface {
	Label(d *dom.Document, n *html.Node) string
}

// FormResolver returns the enclosing form's metadata for a node, or nil.
type FormResolver interface {
	FormContext(d *dom.Document, n *html.Node) *schemas.FormRef
}

// Engine runs one exploration per document. An Engine is reusable across
// documents; all per-run state lives in the run context.
type Engine struct {
	cfg     config.ExplorerConfig
	log     *zap.Logger
	version string

	extractor Extractor
	labels    LabelResolver
	forms     FormResolver
}

// Option customizes an Engine.
type Option func(*Engine)

// WithExtractor replaces the default attribute/style extractor.
func WithExtractor(x Extractor) Option { return func(e *Engine) { e.extractor = x } }

// WithLabelResolver replaces the default label resolver.
func WithLabelResolver(l LabelResolver) Option { return func(e *Engine) { e.labels = l } }

// WithFormResolver replaces the default form-context resolver.
func WithFormResolver(f FormResolver) Option { return func(e *Engine) { e.forms = f } }

// WithVersion sets the engine version recorded in report metadata.
func WithVersion(v string) Option { return func(e *Engine) { e.version = v } }

// New creates an exploration engine with the default collaborators.
func New(cfg config.ExplorerConfig, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:       cfg,
		log:       logger.Named("explore"),
		version:   "dev",
		extractor: extract.New(),
		labels:    extract.NewLabeler(),
		forms:     extract.NewFormResolver(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run bundles all mutable state of one exploration: queue, registry, results,
// errors and counters. It is passed explicitly to every component; there is
// no ambient run state.
type run struct {
	doc *dom.Document
	reg *Registry

	queue []*html.Node // FIFO trigger queue

	elements []schemas.CapturedElement
	errors   []schemas.ErrorRecord

	iterations int // dequeue attempts, including skips
	triggers   int // triggers delegated to the interactor
	ceilingHit bool

	start time.Time
}

// recordError appends an ErrorRecord; failures never propagate out of a run.
func (r *run) recordError(e *Engine, err error, path string) {
	rec := schemas.ErrorRecord{
		Timestamp: time.Now(),
		Message:   err.Error(),
		Path:      path,
	}
	if e.cfg.Debug {
		rec.Trace = string(debug.Stack())
	}
	r.errors = append(r.errors, rec)
	e.log.Debug("Recorded run error.", zap.String("path", path), zap.Error(err))
}

// Explore runs the full inventory pass over doc and returns the snapshot.
// The only early-termination path is the iteration ceiling; individual node
// failures are collected, never fatal. The returned error is reserved for
// context cancellation.
func (e *Engine) Explore(ctx context.Context, doc *dom.Document) (*schemas.Snapshot, error) {
	r := &run{doc: doc, reg: NewRegistry(), start: time.Now()}

	e.log.Info("Starting exploration run.",
		zap.Int("max_iterations", e.cfg.MaxIterations),
		zap.Duration("settle_interval", e.cfg.SettleInterval),
	)

	// Page normalization surfaces content hidden behind static state before
	// the first scan.
	e.normalize(r)

	// Seed the result collection with a full tree scan, then the work queue
	// with every trigger currently in the document.
	e.scan(r, doc.Root())
	e.seedTriggers(r)

	// The watcher keeps both collections growing while the queue drains:
	// inserted subtrees are scanned and their triggers enqueued.
	watcher := doc.Observe(func(inserted []*html.Node) {
		e.onInserted(r, inserted)
	})

	e.drain(ctx, r)
	watcher.Disconnect()

	// Pending reversals still get their connectivity-guarded chance to fire;
	// reversals for nodes that disappeared are lost by design.
	doc.DrainTasks()

	snap := e.snapshot(r)
	e.log.Info("Exploration run finished.",
		zap.Int("elements", len(snap.Elements)),
		zap.Int("triggers", snap.TriggerCount),
		zap.Int("iterations", snap.IterationCount),
		zap.Int("errors", len(snap.Errors)),
		zap.Bool("ceiling_hit", snap.CeilingHit),
	)
	return snap, ctx.Err()
}

// normalize forces open collapsible sections and unhides [hidden] elements so
// the first scan sees as much of the page as possible.
func (e *Engine) normalize(r *run) {
	for _, root := range r.doc.Roots() {
		if err := forEachMatch(root, "//details", func(n *html.Node) {
			dom.SetAttr(n, "open", "")
		}); err != nil {
			r.recordError(e, fmt.Errorf("normalize details: %w", err), "")
		}
		if err := forEachMatch(root, "//*[@hidden]", func(n *html.Node) {
			dom.RemoveAttr(n, "hidden")
		}); err != nil {
			r.recordError(e, fmt.Errorf("normalize hidden: %w", err), "")
		}
	}
}

// snapshot assembles the in-memory report structure from whatever the run
// collected, regardless of how the run ended.
func (e *Engine) snapshot(r *run) *schemas.Snapshot {
	finished := time.Now()
	snap := &schemas.Snapshot{
		RunID:      uuid.New().String(),
		StartedAt:  r.start,
		FinishedAt: finished,
		DurationMs: finished.Sub(r.start).Milliseconds(),
		Environment: schemas.Environment{
			EngineVersion:  e.version,
			ViewportWidth:  e.cfg.ViewportWidth,
			ViewportHeight: e.cfg.ViewportHeight,
		},
		Config: schemas.RunConfig{
			MaxIterations:          e.cfg.MaxIterations,
			SettleIntervalMs:       e.cfg.SettleInterval.Milliseconds(),
			Debug:                  e.cfg.Debug,
			TriggerSelectorVersion: TriggerSelectorVersion,
		},
		Elements:       r.elements,
		Errors:         r.errors,
		TriggerCount:   r.triggers,
		IterationCount: r.iterations,
		CeilingHit:     r.ceilingHit,
	}
	if base := r.doc.BaseURL(); base != nil {
		snap.URL = base.String()
	}
	return snap
}
