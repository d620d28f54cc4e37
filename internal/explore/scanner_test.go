package explore

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestScanIsIdempotent(t *testing.T) {
	d := mustParse(t, `<div><button id="b">x</button><p>text</p></div>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	e.scan(r, d.Root())
	captured := len(r.elements)
	require.Greater(t, captured, 0)

	e.scan(r, d.Root())
	assert.Equal(t, captured, len(r.elements), "a second pass over the same tree adds nothing")
	assert.Equal(t, captured, r.reg.CapturedCount())
}

func TestOnInsertedSkipsDoneTriggers(t *testing.T) {
	d := mustParse(t, `<div id="wrap"><button id="b">x</button></div>`, "")
	e := newTestEngine(t, testCfg())
	r := newRun(d)

	b := d.ByID("b")
	r.reg.MarkDoneTrigger(b)

	e.onInserted(r, []*html.Node{d.ByID("wrap")})
	assert.Empty(t, r.queue)
}

func TestTruncateAppendsEllipsis(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := truncate(long, 120)
	assert.Len(t, got, 123)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", truncate("short", 120))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// 121 bytes falls mid-rune for two-byte runes; the cut backs up to the
	// previous boundary instead of emitting invalid UTF-8.
	long := strings.Repeat("é", 100)
	got := truncate(long, 121)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 123)
	assert.True(t, strings.HasSuffix(got, "..."))
}
