package explore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domscout-cli/api/schemas"
	"github.com/xkilldash9x/domscout-cli/internal/config"
	"github.com/xkilldash9x/domscout-cli/internal/dom"
)

// Shared test fixtures for the explore package.

func testCfg() config.ExplorerConfig {
	return config.ExplorerConfig{
		MaxIterations:  100,
		SettleInterval: time.Millisecond,
		ViewportWidth:  1280,
		ViewportHeight: 800,
	}
}

func newTestEngine(t *testing.T, cfg config.ExplorerConfig, opts ...Option) *Engine {
	t.Helper()
	return New(cfg, zaptest.NewLogger(t), opts...)
}

func mustParse(t *testing.T, markup, rawURL string) *dom.Document {
	t.Helper()
	d, err := dom.Parse(markup, rawURL)
	require.NoError(t, err)
	return d
}

func newRun(d *dom.Document) *run {
	return &run{doc: d, reg: NewRegistry(), start: time.Now()}
}

// firstTag returns the first element with the given tag in the main tree.
func firstTag(root *html.Node, tag string) *html.Node {
	if dom.IsElement(root) && dom.TagName(root) == tag {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := firstTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// elementByID finds a captured element in snapshot order.
func elementByID(elements []schemas.CapturedElement, id string) *schemas.CapturedElement {
	for i := range elements {
		if elements[i].ID == id {
			return &elements[i]
		}
	}
	return nil
}
