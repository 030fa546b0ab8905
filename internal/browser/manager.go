// Package browser owns the single long-lived headless Chrome process and
// hands out isolated page contexts to the rest of the pipeline.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/internal/config"
)

// Manager manages the lifecycle of the browser process and the creation of
// isolated pages. One Manager is shared process-wide; the underlying Chrome
// is started lazily by chromedp on the first page.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// Track open pages for graceful shutdown.
	pages map[string]*Page
	mu    sync.Mutex
}

// NewManager creates and initializes the browser manager.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) *Manager {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		pages:  make(map[string]*Page),
	}

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)

	m.logger.Info("Browser manager initialized",
		zap.Bool("headless", cfg.Headless),
		zap.String("user_agent", cfg.UserAgent),
	)
	return m
}

// allocatorOptions configures the flags for the browser executable.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if m.cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if m.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
	}

	opts = append(opts,
		// Providers sniff for the automation flag; present as a regular browser.
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		// Stability flags for containerized environments.
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),

		chromedp.Flag("ignore-certificate-errors", m.cfg.IgnoreTLSErrors),
	)

	return opts
}

// NewPage creates a new, isolated browser context (own cookie jar and tab).
// The page is tied to the caller's context: cancelling it releases the tab.
func (m *Manager) NewPage(ctx context.Context) (*Page, error) {
	pageCtx, cancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	)

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-pageCtx.Done():
		}
	}()

	// Force the target to materialize so failures surface here, not on the
	// first real navigation.
	if err := chromedp.Run(pageCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize browser page: %w", err)
	}

	id := uuid.New().String()
	p := newPage(pageCtx, cancel, m, id, m.logger)

	m.mu.Lock()
	m.pages[id] = p
	m.mu.Unlock()

	return p, nil
}

// unregisterPage removes a page from the tracking map. Called by Page.Close.
func (m *Manager) unregisterPage(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
}

// Shutdown gracefully closes all open pages and terminates the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager")

	m.mu.Lock()
	open := make([]*Page, 0, len(m.pages))
	for _, p := range m.pages {
		open = append(open, p)
	}
	m.pages = make(map[string]*Page)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range open {
		wg.Add(1)
		go func(p *Page) {
			defer wg.Done()
			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			p.closeWithContext(closeCtx)
		}(p)
	}
	wg.Wait()

	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}

	m.logger.Info("Browser manager shutdown complete")
	return nil
}
