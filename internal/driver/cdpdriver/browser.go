// internal/driver/cdpdriver/browser.go
package cdpdriver

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-heal/internal/config"
)

// flag is one Chrome command-line switch.
type flag struct {
	name  string
	value interface{}
}

// allocatorFlags assembles the launch switches for cfg: the chromedp defaults,
// headless and TLS settings, container-friendly sandbox flags on Linux, then
// any custom args from the configuration.
func allocatorFlags(cfg config.BrowserConfig) []flag {
	flags := []flag{
		{"headless", cfg.Headless},
		{"disable-gpu", cfg.Headless},
		{"disable-extensions", true},
		{"ignore-certificate-errors", cfg.IgnoreTLSErrors},
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags, flag{"allow-insecure-localhost", true})
	}
	if runtime.GOOS == "linux" {
		flags = append(flags,
			flag{"no-sandbox", true},
			flag{"disable-dev-shm-usage", true},
			flag{"disable-setuid-sandbox", true},
		)
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(arg, "=")
		key = strings.TrimPrefix(key, "--")
		if found {
			flags = append(flags, flag{key, value})
		} else {
			flags = append(flags, flag{key, true})
		}
	}
	return flags
}

// AllocatorOptions converts cfg into chromedp exec-allocator options.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	return opts
}

// Browser owns a Chrome process and the tab the Page drives.
type Browser struct {
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	tabCtx      context.Context
	logger      *zap.Logger
}

// NewBrowser launches Chrome with cfg and opens one tab. The browser lives
// until Close is called or ctx is cancelled.
func NewBrowser(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cdp")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))

	// The first Run starts the browser; confirm it responds before handing it out.
	startCtx, cancelStart := context.WithTimeout(tabCtx, 30*time.Second)
	defer cancelStart()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	logger.Info("Browser launched.", zap.Bool("headless", cfg.Headless))
	return &Browser{allocCancel: allocCancel, tabCancel: tabCancel, tabCtx: tabCtx, logger: logger}, nil
}

// Page returns a driver page bound to the browser's tab.
func (b *Browser) Page(opts ...Option) *Page {
	return New(b.tabCtx, b.logger, opts...)
}

// Close terminates the tab and the browser process.
func (b *Browser) Close() {
	b.tabCancel()
	b.allocCancel()
	b.logger.Debug("Browser closed.")
}
