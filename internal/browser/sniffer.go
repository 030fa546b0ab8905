package browser

import (
	"context"
	"regexp"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// TokenSniffer observes every outbound request a page issues and captures
// values matching a provider's token pattern. Providers never hand the
// bearer token out through an API; the only way to obtain it is to watch it
// ride along on the page's own traffic during login.
type TokenSniffer struct {
	pattern *regexp.Regexp
	logger  *zap.Logger

	// Bounded buffer of candidate tokens. Writes drop when full; the first
	// observed candidate is almost always the right one.
	candidates chan string
}

// NewTokenSniffer attaches a request observer to the page for the lifetime
// of its context. pattern must contain one capture group for the token.
func NewTokenSniffer(p *Page, pattern *regexp.Regexp, logger *zap.Logger) *TokenSniffer {
	s := &TokenSniffer{
		pattern:    pattern,
		logger:     logger.Named("token_sniffer"),
		candidates: make(chan string, 16),
	}

	chromedp.ListenTarget(p.Context(), func(ev interface{}) {
		if req, ok := ev.(*network.EventRequestWillBeSent); ok {
			s.Offer(req.Request.URL)
		}
	})

	return s
}

// Offer inspects a candidate URL (or any string) for the token pattern and
// buffers the capture. Split out from the event listener so the matching
// logic is testable without a live browser.
func (s *TokenSniffer) Offer(candidate string) {
	m := s.pattern.FindStringSubmatch(candidate)
	if len(m) < 2 {
		return
	}
	select {
	case s.candidates <- m[1]:
		s.logger.Debug("Captured candidate token")
	default:
		// Buffer full; later duplicates carry no new information.
	}
}

// Wait blocks until a token has been observed or the timeout elapses.
func (s *TokenSniffer) Wait(ctx context.Context, timeout time.Duration) (string, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case tok := <-s.candidates:
		return tok, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}
