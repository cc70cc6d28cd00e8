// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromedpBrowser wraps one headless Chromium process. Each PrintPDF runs
// in a fresh tab so renders never leak state into each other.
type chromedpBrowser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

func newChromedpBrowser() (browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &chromedpBrowser{allocCtx: allocCtx, cancel: cancel}, nil
}

// PrintPDF loads the document into a new tab and prints it.
func (b *chromedpBrowser) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

// Close tears the browser process down.
func (b *chromedpBrowser) Close() error {
	b.cancel()
	return nil
}
