// Package capture takes page screenshots with headless Chrome. One
// Capturer holds one browser process and serves any number of
// Screenshot calls before Close.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

var (
	ErrBadViewport = errors.New("viewport dimensions must be positive")
	ErrCaptureURL  = errors.New("page url is required")
)

// Options controls a single screenshot.
type Options struct {
	// Width and Height set the exact viewport in pixels; the written
	// image has exactly these dimensions.
	Width  int
	Height int
	// Wait is how long to let the page settle after navigation before
	// capturing.
	Wait time.Duration
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return ErrBadViewport
	}
	return nil
}

type Capturer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// New starts a headless browser allocator. Close releases it.
func New(ctx context.Context) *Capturer {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	return &Capturer{allocCtx: allocCtx, cancel: cancel}
}

func (c *Capturer) Close() {
	c.cancel()
}

// Screenshot navigates to pageURL in a fresh tab, waits o.Wait for the
// page to render, captures the viewport, and writes it to outPath as
// PNG.
func (c *Capturer) Screenshot(ctx context.Context, pageURL, outPath string, o Options) error {
	if pageURL == "" {
		return ErrCaptureURL
	}
	if err := o.validate(); err != nil {
		return err
	}

	tabCtx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(o.Width), int64(o.Height)),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(o.Wait),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return fmt.Errorf("capture %s: %w", pageURL, err)
	}

	return os.WriteFile(outPath, buf, 0o644)
}
