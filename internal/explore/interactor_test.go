package explore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/domscout-cli/internal/dom"
)

func TestIsTriggerClassification(t *testing.T) {
	d := mustParse(t, `
		<a id="with-href" href="/x">x</a>
		<a id="no-href">x</a>
		<button id="btn">b</button>
		<input id="inp" type="text">
		<textarea id="ta"></textarea>
		<select id="sel"></select>
		<summary id="sum">s</summary>
		<details id="det"></details>
		<div id="editable" contenteditable="true"></div>
		<div id="editable-empty" contenteditable></div>
		<div id="editable-off" contenteditable="false"></div>
		<span id="role-button" role="button"></span>
		<span id="role-none" role="presentation"></span>
		<p id="plain">text</p>
	`, "")

	cases := map[string]bool{
		"with-href": true, "no-href": false,
		"btn": true, "inp": true, "ta": true, "sel": true,
		"sum": true, "det": true,
		"editable": true, "editable-empty": true, "editable-off": false,
		"role-button": true, "role-none": false,
		"plain": false,
	}
	for id, want := range cases {
		n := d.ByID(id)
		require.NotNil(t, n, id)
		assert.Equal(t, want, isTrigger(n), id)
	}
}

func TestFindTriggersIncludesSubtreeRoot(t *testing.T) {
	d := mustParse(t, `<div id="wrap"></div>`, "")
	e := newTestEngine(t, testCfg())

	sub := mustParse(t, `<button id="root-btn"><span></span></button>`, "")
	btn := sub.ByID("root-btn")
	require.NotNil(t, btn)

	// Detach from the scratch document so it behaves like a built subtree.
	btn.Parent.RemoveChild(btn)
	d.AppendChild(d.ByID("wrap"), btn)

	triggers := e.findTriggers(btn)
	require.Len(t, triggers, 1, "the subtree root itself must be classified")
	assert.Same(t, btn, triggers[0])
}

func TestFindTriggersStaysInsideSubtree(t *testing.T) {
	// A relative query from an attached node must not re-match the page.
	d := mustParse(t, `
		<button id="outside">o</button>
		<div id="wrap"><div id="sub"><a href="/x" id="inside">i</a></div></div>
	`, "")
	e := newTestEngine(t, testCfg())

	triggers := e.findTriggers(d.ByID("sub"))
	require.Len(t, triggers, 1)
	assert.Equal(t, "inside", dom.Attr(triggers[0], "id"))
}

func TestSafeToActivate(t *testing.T) {
	e := newTestEngine(t, testCfg())

	cases := []struct {
		name string
		href string
		want bool
	}{
		{"same path relative", "/home", true},
		{"same path with query", "/home?tab=2", true},
		{"fragment only", "#section", true},
		{"absolute same origin same path", "https://app.example/home", true},
		{"different path", "/logout", false},
		{"different host", "https://evil.example/home", false},
		{"different scheme", "http://app.example/home", false},
		{"unparseable", "https://%zz", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := mustParse(t, `<a id="a" href="`+tc.href+`">x</a>`, "https://app.example/home")
			r := newRun(d)
			assert.Equal(t, tc.want, e.safeToActivate(r, d.ByID("a")))
		})
	}
}

func TestSafeToActivateWithoutBaseURL(t *testing.T) {
	e := newTestEngine(t, testCfg())
	d := mustParse(t, `<a id="a" href="/home">x</a>`, "")
	r := newRun(d)
	assert.False(t, e.safeToActivate(r, d.ByID("a")), "no base URL means every target is foreign")
}

func TestIsFreeTextType(t *testing.T) {
	for _, typ := range []string{"", "text", "email", "search"} {
		assert.True(t, isFreeTextType(typ), typ)
	}
	for _, typ := range []string{"password", "hidden", "checkbox", "radio", "file", "submit", "number"} {
		assert.False(t, isFreeTextType(typ), typ)
	}
}

func TestPerformActionSummaryOpensDetails(t *testing.T) {
	d := mustParse(t, `<details id="det"><summary id="sum">more</summary><p>body</p></details>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	det := d.ByID("det")
	toggles := 0
	d.On(det, "toggle", func(dom.Event) { toggles++ })

	require.NoError(t, e.performAction(r, d.ByID("sum"), ""))
	assert.True(t, dom.HasAttr(det, "open"), "container must be forced open")
	assert.Equal(t, 1, toggles)
}

func TestPerformActionSelectNeverChangesSelection(t *testing.T) {
	d := mustParse(t, `
		<select id="sel">
			<option value="a" selected>a</option>
			<option value="b">b</option>
		</select>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	sel := d.ByID("sel")
	var events []string
	for _, typ := range []string{"pointerdown", "focus", "change", "click"} {
		typ := typ
		d.On(sel, typ, func(dom.Event) { events = append(events, typ) })
	}

	require.NoError(t, e.performAction(r, sel, ""))
	assert.Equal(t, []string{"pointerdown", "focus"}, events)

	opt := firstTag(sel, "option")
	assert.True(t, dom.HasAttr(opt, "selected"), "selection must be untouched")
}

func TestPerformActionAnchors(t *testing.T) {
	d := mustParse(t, `
		<a id="same" href="/home?x=1">same</a>
		<a id="foreign" href="https://other.example/home">foreign</a>
		<a id="elsewhere" href="/admin">elsewhere</a>
	`, "https://app.example/home")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	clicks := make(map[string]int)
	for _, id := range []string{"same", "foreign", "elsewhere"} {
		id := id
		d.On(d.ByID(id), "click", func(dom.Event) { clicks[id]++ })
	}

	for _, id := range []string{"same", "foreign", "elsewhere"} {
		require.NoError(t, e.performAction(r, d.ByID(id), ""))
	}
	assert.Equal(t, 1, clicks["same"])
	assert.Zero(t, clicks["foreign"])
	assert.Zero(t, clicks["elsewhere"])
}

func TestToggleCheckableRestoresState(t *testing.T) {
	d := mustParse(t, `
		<input id="off" type="checkbox">
		<input id="on" type="radio" checked>
	`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	changes := 0
	d.On(d.ByID("off"), "change", func(dom.Event) { changes++ })
	d.On(d.ByID("on"), "change", func(dom.Event) { changes++ })

	require.NoError(t, e.performAction(r, d.ByID("off"), ""))
	require.NoError(t, e.performAction(r, d.ByID("on"), ""))

	// Toggled immediately, announced once each.
	assert.True(t, dom.HasAttr(d.ByID("off"), "checked"))
	assert.False(t, dom.HasAttr(d.ByID("on"), "checked"))
	assert.Equal(t, 2, changes)

	// The reversal fires once the settle delay elapses.
	d.RunDue(time.Now().Add(e.cfg.SettleInterval + time.Millisecond))
	assert.False(t, dom.HasAttr(d.ByID("off"), "checked"))
	assert.True(t, dom.HasAttr(d.ByID("on"), "checked"))
}

func TestToggleCheckableSkipsDisconnectedRestore(t *testing.T) {
	d := mustParse(t, `<div id="box"><input id="cb" type="checkbox"></div>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	cb := d.ByID("cb")
	require.NoError(t, e.performAction(r, cb, ""))
	assert.True(t, dom.HasAttr(cb, "checked"))

	// The node leaves the document before the reversal fires; the reversal
	// is lost rather than resurrecting detached state.
	box := d.ByID("box")
	d.RemoveChild(box, cb)
	d.DrainTasks()
	assert.True(t, dom.HasAttr(cb, "checked"))
}

func TestProbeTextInputRestoresValue(t *testing.T) {
	d := mustParse(t, `
		<input id="filled" type="text" value="original">
		<input id="empty" type="email">
	`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	var seen []string
	d.On(d.ByID("filled"), "input", func(ev dom.Event) {
		seen = append(seen, dom.Attr(ev.Target, "value"))
	})

	require.NoError(t, e.performAction(r, d.ByID("filled"), ""))
	require.NoError(t, e.performAction(r, d.ByID("empty"), ""))

	// The probe value is visible to the page's own handlers.
	require.Equal(t, []string{"automation test input"}, seen)

	d.RunDue(time.Now().Add(e.cfg.SettleInterval + time.Millisecond))
	assert.Equal(t, "original", dom.Attr(d.ByID("filled"), "value"))
	assert.False(t, dom.HasAttr(d.ByID("empty"), "value"), "an absent value attribute stays absent")
}

func TestPerformActionButtons(t *testing.T) {
	d := mustParse(t, `
		<button id="plain">ok</button>
		<button id="submit" type="submit">send</button>
	`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	events := make(map[string][]string)
	for _, id := range []string{"plain", "submit"} {
		id := id
		for _, typ := range []string{"pointerdown", "click", "focus"} {
			typ := typ
			d.On(d.ByID(id), typ, func(dom.Event) { events[id] = append(events[id], typ) })
		}
	}

	require.NoError(t, e.performAction(r, d.ByID("plain"), ""))
	require.NoError(t, e.performAction(r, d.ByID("submit"), ""))

	assert.Equal(t, []string{"pointerdown", "click"}, events["plain"])
	assert.Equal(t, []string{"pointerdown", "focus"}, events["submit"], "submit buttons get the generic probe, never a click")
}

func TestPerformActionDisconnectedIsNoop(t *testing.T) {
	d := mustParse(t, `<div id="box"><button id="b">x</button></div>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	b := d.ByID("b")
	fired := 0
	d.On(b, "pointerdown", func(dom.Event) { fired++ })

	d.RemoveChild(d.ByID("box"), b)
	require.NoError(t, e.performAction(r, b, ""))
	assert.Zero(t, fired)
}

func TestActRecordsHandlerFailure(t *testing.T) {
	d := mustParse(t, `<button id="b">x</button>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	d.On(d.ByID("b"), "click", func(dom.Event) { panic("boom") })

	e.act(context.Background(), r, d.ByID("b"))
	require.Len(t, r.errors, 1)
	assert.Contains(t, r.errors[0].Message, "boom")
	assert.NotEmpty(t, r.errors[0].Path)
	assert.Equal(t, 1, r.triggers, "a failed interaction still counts as completed")
}
