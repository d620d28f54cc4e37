package explore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domscout-cli/internal/dom"
)

func TestSeedTriggersDocumentOrder(t *testing.T) {
	d := mustParse(t, `
		<a id="first" href="/x">x</a>
		<div><button id="second">b</button></div>
		<input id="third" type="text">
	`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	e.seedTriggers(r)
	require.Len(t, r.queue, 3)
	assert.Equal(t, "first", dom.Attr(r.queue[0], "id"))
	assert.Equal(t, "second", dom.Attr(r.queue[1], "id"))
	assert.Equal(t, "third", dom.Attr(r.queue[2], "id"))
}

func TestSeedTriggersCoversShadowRoots(t *testing.T) {
	d := mustParse(t, `
		<button id="light">l</button>
		<div id="host"><template shadowrootmode="open"><button id="shadowed">s</button></template></div>
	`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	e.seedTriggers(r)
	require.Len(t, r.queue, 2)
	assert.Equal(t, "light", dom.Attr(r.queue[0], "id"))
	assert.Equal(t, "shadowed", dom.Attr(r.queue[1], "id"))
}

func TestDrainSkipsDisconnectedAndDone(t *testing.T) {
	d := mustParse(t, `
		<div id="box">
			<button id="a">a</button>
			<button id="victim">v</button>
		</div>
	`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	victim := d.ByID("victim")
	d.On(d.ByID("a"), "click", func(ev dom.Event) {
		ev.Doc.RemoveChild(d.ByID("box"), victim)
	})

	e.seedTriggers(r)
	// The victim is also enqueued a second time, as a rediscovery would do.
	r.queue = append(r.queue, victim)

	e.drain(context.Background(), r)

	assert.Equal(t, 3, r.iterations, "skips still consume iterations")
	assert.Equal(t, 1, r.triggers, "only the connected, not-done trigger acts")
	assert.False(t, r.ceilingHit)
}

func TestDrainStopsAtIterationCeiling(t *testing.T) {
	d := mustParse(t, `<div id="stage"><button id="seed">go</button></div>`, "")

	cfg := testCfg()
	cfg.MaxIterations = 10
	e := newTestEngine(t, cfg)
	r := newRun(d)

	// Every click spawns another live trigger, so the queue never drains on
	// its own.
	stage := d.ByID("stage")
	var wire func(b *html.Node)
	wire = func(b *html.Node) {
		d.On(b, "click", func(ev dom.Event) {
			next := &html.Node{Type: html.ElementNode, Data: "button"}
			wire(next)
			ev.Doc.AppendChild(stage, next)
		})
	}
	wire(d.ByID("seed"))

	e.seedTriggers(r)
	watcher := d.Observe(func(inserted []*html.Node) { e.onInserted(r, inserted) })
	defer watcher.Disconnect()

	e.drain(context.Background(), r)

	assert.True(t, r.ceilingHit)
	assert.Equal(t, cfg.MaxIterations, r.iterations)
	assert.NotEmpty(t, r.queue, "the ceiling fires with work still queued")
}

func TestDrainHonorsContextCancellation(t *testing.T) {
	d := mustParse(t, `<button id="a">a</button><button id="b">b</button>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e.seedTriggers(r)
	e.drain(ctx, r)

	assert.Zero(t, r.triggers)
	assert.False(t, r.ceilingHit)
}
