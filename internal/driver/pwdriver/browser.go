// internal/driver/pwdriver/browser.go
package pwdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-heal/internal/config"
)

const installTimeout = 5 * time.Minute

// Browser owns the Playwright driver process, one Chromium instance and the
// page the driver wraps.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *zap.Logger
}

// Launch installs Chromium if needed, starts Playwright and opens a page.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("playwright")

	if err := ensureInstallation(ctx); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	browser, err := pw.Chromium.Launch(launchOptions(cfg))
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser instance: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreTLSErrors)}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: w, Height: h}
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	logger.Info("Browser launched.", zap.String("browser_version", browser.Version()))
	return &Browser{pw: pw, browser: browser, page: page, logger: logger}, nil
}

// ensureInstallation runs the blocking Playwright installer bounded by ctx.
func ensureInstallation(ctx context.Context) error {
	installCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			errCh <- fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

// launchOptions merges the container-friendly defaults with configured args.
func launchOptions(cfg config.BrowserConfig) playwright.BrowserTypeLaunchOptions {
	args := []string{"--disable-gpu", "--no-sandbox", "--disable-dev-shm-usage"}
	if cfg.IgnoreTLSErrors {
		args = append(args, "--ignore-certificate-errors")
	}
	return playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     append(args, cfg.Args...),
		Timeout:  playwright.Float(60000),
	}
}

// Page returns a driver page over the browser's page.
func (b *Browser) Page(opts ...Option) *Page {
	return New(b.page, opts...)
}

// Close shuts down the browser and the Playwright driver.
func (b *Browser) Close() error {
	var firstErr error
	if err := b.browser.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if err := b.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to stop playwright: %w", err)
	}
	b.logger.Debug("Browser closed.")
	return firstErr
}
