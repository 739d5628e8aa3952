// Package webengine drives browser tabs through a headless Chrome
// instance. One Engine owns the browser process; each page created from
// it maps to one Chrome tab.
package webengine

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/core"
)

// Config controls how the browser process is launched.
type Config struct {
	// Headless disables the visible browser window.
	Headless bool
	// NoSandbox disables the Chrome sandbox, needed in containers.
	NoSandbox bool
	// ExecPath overrides the Chrome binary discovered on PATH.
	ExecPath string
}

// Engine launches and owns the browser process.
type Engine struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	log         pslog.Logger
}

// New prepares the browser allocator. The browser process itself starts
// lazily with the first page.
func New(ctx context.Context, cfg Config, logger pslog.Logger) (*Engine, error) {
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	logger.Debug("webengine allocator ready", "headless", cfg.Headless)
	return &Engine{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		log:         logger,
	}, nil
}

// NewPage opens a fresh Chrome tab and blocks until it is usable.
func (e *Engine) NewPage(ctx context.Context) (core.PageEngine, error) {
	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)
	if err := runUnder(ctx, tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("start page: %w", err)
	}
	e.log.Debug("webengine page opened")
	return &page{ctx: tabCtx, cancel: tabCancel, log: e.log}, nil
}

// Close tears down the browser process and every remaining page.
func (e *Engine) Close() error {
	e.allocCancel()
	return nil
}

// runUnder starts the tab while honoring the caller's deadline. The tab
// context itself must outlive the call, so cancellation is observed on
// the side.
func runUnder(ctx context.Context, tabCtx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
