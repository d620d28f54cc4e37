// Package fetch retrieves the rendered page source of a live URL through a
// headless browser. The exploration engine itself never navigates; fetching
// happens strictly before a run so the engine sees a single settled page.
package fetch

import (
	"context"
	"fmt"
	"time"

	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domscout-cli/internal/config"
)

// PageSource navigates to rawURL, waits the configured post-load interval and
// returns the documentElement's outer HTML.
func PageSource(ctx context.Context, cfg config.FetchConfig, viewportW, viewportH int, rawURL string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("fetch")

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(viewportW, viewportH),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, cfg.NavigationTimeout)
	defer cancelTimeout()

	log.Info("Fetching page source.",
		zap.String("url", rawURL),
		zap.Duration("post_load_wait", cfg.PostLoadWait),
	)

	start := time.Now()
	var source string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(cfg.PostLoadWait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			root, err := cdpdom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			source, err = cdpdom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	log.Info("Page source fetched.",
		zap.Int("bytes", len(source)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return source, nil
}
