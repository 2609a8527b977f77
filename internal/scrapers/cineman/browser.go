package cineman

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

type BrowserOptions struct {
	// Headless is forced on unless ShowWindow is set.
	ShowWindow bool
	// ExecPath overrides the chrome binary chromedp looks up, "" uses the default lookup.
	ExecPath  string
	UserAgent string
}

// Browser is a running headless chrome process, it must be closed by whoever opened it.
type Browser struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	closeOnce     sync.Once
}

// OpenBrowser starts a chrome process, on error nothing is left running.
func OpenBrowser(ctx context.Context, options BrowserOptions) (*Browser, error) {
	userAgent := options.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !options.ShowWindow),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if options.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(options.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// running without actions only launches the browser
	err := chromedp.Run(browserCtx)
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}

	return &Browser{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// Context is the context actions of this browser should run in.
func (b *Browser) Context() context.Context {
	return b.ctx
}

// Close shuts down the chrome process, calling it more than once is a no-op.
func (b *Browser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = chromedp.Cancel(b.ctx)
		b.cancelBrowser()
		b.cancelAlloc()
	})
	return err
}
