package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

// Page wraps a single isolated chromedp context (one tab with its own cookie
// jar). Every operation takes the caller's context plus an explicit timeout;
// a wait that never completes surfaces as an error, never as a hang.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	mgr    *Manager
	id     string
	logger *zap.Logger
}

func newPage(ctx context.Context, cancel context.CancelFunc, mgr *Manager, id string, logger *zap.Logger) *Page {
	return &Page{
		ctx:    ctx,
		cancel: cancel,
		mgr:    mgr,
		id:     id,
		logger: logger.Named("page").With(zap.String("page_id", id)),
	}
}

// Context returns the underlying chromedp context. Needed by listeners that
// must attach to the target itself (e.g. the token sniffer).
func (p *Page) Context() context.Context {
	return p.ctx
}

// Run executes actions against the page, bounded by timeout and aborted if
// the caller's context is cancelled first.
func (p *Page) Run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Report the caller's cancellation rather than our derived one.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads the URL and waits for the document body to be ready.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.logger.Debug("Navigating", zap.String("url", url))
	return p.Run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (p *Page) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return p.Run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// IsVisible probes for the selector with a short deadline instead of the
// caller's full budget. Used for optional page regions.
func (p *Page) IsVisible(ctx context.Context, sel string, probe time.Duration) bool {
	return p.WaitVisible(ctx, sel, probe) == nil
}

// Click clicks the first visible match for the selector.
func (p *Page) Click(ctx context.Context, sel string, timeout time.Duration) error {
	p.logger.Debug("Clicking", zap.String("selector", sel))
	return p.Run(ctx, timeout, chromedp.Click(sel, chromedp.NodeVisible))
}

// Type focuses the selector, clears it and sends the text as key events.
func (p *Page) Type(ctx context.Context, sel, text string, timeout time.Duration) error {
	p.logger.Debug("Typing", zap.String("selector", sel), zap.Int("length", len(text)))
	return p.Run(ctx, timeout,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.NodeVisible),
	)
}

// SendKeys sends raw key events (arrows, enter) to the selector without
// clearing it first.
func (p *Page) SendKeys(ctx context.Context, sel, keys string, timeout time.Duration) error {
	return p.Run(ctx, timeout, chromedp.SendKeys(sel, keys, chromedp.ByQuery))
}

// Text returns the trimmed text content of the first match.
func (p *Page) Text(ctx context.Context, sel string, timeout time.Duration) (string, error) {
	var out string
	if err := p.Run(ctx, timeout, chromedp.Text(sel, &out, chromedp.NodeVisible)); err != nil {
		return "", err
	}
	return out, nil
}

// OptionalText reads the selector's text, degrading to empty when the node
// is absent. Missing non-critical fields must not fail a record.
func (p *Page) OptionalText(ctx context.Context, sel string, probe time.Duration) string {
	out, err := p.Text(ctx, sel, probe)
	if err != nil {
		return ""
	}
	return out
}

// Location returns the page's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.Run(ctx, 5*time.Second, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// HTML snapshots the full rendered document.
func (p *Page) HTML(ctx context.Context, timeout time.Duration) (string, error) {
	var html string
	if err := p.Run(ctx, timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to snapshot page html: %w", err)
	}
	return html, nil
}

// Evaluate runs the script in the page and unmarshals its result into res.
func (p *Page) Evaluate(ctx context.Context, script string, res interface{}, timeout time.Duration) error {
	return p.Run(ctx, timeout, chromedp.Evaluate(script, res))
}

// Sleep waits inside the page context, typically to let dynamic content
// settle after a tab activation.
func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	return p.Run(ctx, d+time.Second, chromedp.Sleep(d))
}

// Cookies reads the browsing context's cookie jar in order.
func (p *Page) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	var raw []*network.Cookie
	err := p.Run(ctx, 10*time.Second, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(c)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie jar: %w", err)
	}

	cookies := make([]schemas.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, schemas.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

// Close releases the tab and unregisters it from the manager.
func (p *Page) Close() {
	p.closeWithContext(context.Background())
}

func (p *Page) closeWithContext(_ context.Context) {
	p.logger.Debug("Closing page")
	if p.mgr != nil {
		p.mgr.unregisterPage(p.id)
	}
	if p.cancel != nil {
		p.cancel()
	}
}
