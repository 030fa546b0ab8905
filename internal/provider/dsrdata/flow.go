// Package dsrdata integrates the DSRdata market-stats provider: a browser
// login flow that harvests the bearer token by watching the page's own
// traffic, and a JSON client that spends it.
package dsrdata

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
	"github.com/manjain15/propwealth-scraper/internal/browser"
	"github.com/manjain15/propwealth-scraper/internal/config"
)

const ProviderName = "dsrdata"

// The token is a 32-char hex identifier carried as a query parameter on the
// provider's own API calls.
var (
	tokenURLPattern    = regexp.MustCompile(`[?&]access_token=([0-9a-f]{32})`)
	tokenAssignPattern = regexp.MustCompile(`access_token['"]?\s*[:=]\s*['"]([0-9a-f]{32})['"]`)
)

// sessionCookieName is the cookie the JSON endpoint requires alongside the
// bearer token.
const sessionCookieName = "PHPSESSID"

// Login page selectors. Hand-identified; when the provider redesigns its
// login UI these are the first thing to break.
const (
	loginEmailSel    = `input[name="email"]`
	loginPasswordSel = `input[name="password"]`
	loginSubmitSel   = `button[type="submit"]`
	loginFormSel     = `form#login-form`
	appSearchSel     = `input#suburb-search`
)

const (
	navTimeout     = 20 * time.Second
	loginSettle    = 20 * time.Second
	tokenWait      = 10 * time.Second
	tokenRetryWait = 8 * time.Second
)

// Flow implements session.Authenticator for DSRdata.
type Flow struct {
	browser *browser.Manager
	cfg     config.DSRDataConfig
	ttl     time.Duration
	logger  *zap.Logger
}

// NewFlow builds the DSRdata login flow.
func NewFlow(b *browser.Manager, cfg config.DSRDataConfig, ttl time.Duration, logger *zap.Logger) *Flow {
	return &Flow{
		browser: b,
		cfg:     cfg,
		ttl:     ttl,
		logger:  logger.Named("dsrdata_flow"),
	}
}

// Login drives the provider's login UI in a fresh browsing context, captures
// the bearer token from observed traffic and reads the session cookie from
// the jar. The page is always released before returning.
func (f *Flow) Login(ctx context.Context) (*schemas.Session, error) {
	pg, err := f.browser.NewPage(ctx)
	if err != nil {
		return nil, schemas.NewFailure(schemas.KindAuthentication, ProviderName, "could not open browsing context", err)
	}
	defer pg.Close()

	// The sniffer must be listening before the first navigation; the token
	// can ride on any request the page makes, including during login.
	sniffer := browser.NewTokenSniffer(pg, tokenURLPattern, f.logger)

	if err := pg.Navigate(ctx, f.cfg.LoginURL, navTimeout); err != nil {
		return nil, schemas.NewFailure(schemas.KindAuthentication, ProviderName, "login page unreachable", err)
	}

	if err := f.submitCredentials(ctx, pg); err != nil {
		return nil, schemas.NewFailure(schemas.KindAuthentication, ProviderName, "login form interaction failed", err)
	}

	f.waitLoginSettled(ctx, pg)

	token, err := f.captureToken(ctx, pg, sniffer)
	if err != nil {
		return nil, err
	}

	cookies, err := pg.Cookies(ctx)
	if err != nil {
		return nil, schemas.NewFailure(schemas.KindTokenCapture, ProviderName, "could not read cookie jar", err)
	}

	s := &schemas.Session{
		Token:      token,
		Cookies:    cookies,
		AcquiredAt: time.Now(),
		TTL:        f.ttl,
	}
	if _, ok := s.Cookie(sessionCookieName); !ok {
		return nil, schemas.NewFailure(schemas.KindTokenCapture, ProviderName,
			"session cookie "+sessionCookieName+" absent after login", nil)
	}

	f.logger.Info("DSRdata login complete", zap.Int("cookies", len(cookies)))
	return s, nil
}

func (f *Flow) submitCredentials(ctx context.Context, pg *browser.Page) error {
	if err := pg.WaitVisible(ctx, loginEmailSel, navTimeout); err != nil {
		return err
	}
	if err := pg.Type(ctx, loginEmailSel, f.cfg.Email, 10*time.Second); err != nil {
		return err
	}
	if err := pg.Type(ctx, loginPasswordSel, f.cfg.Password, 10*time.Second); err != nil {
		return err
	}
	return pg.Click(ctx, loginSubmitSel, 10*time.Second)
}

// waitLoginSettled waits for whichever post-login signal fires first: the
// URL changed, the login form disappeared, or the maximum wait elapsed.
// Deliberately optimistic: a login that silently failed surfaces at the
// first dependent step (token capture) instead of here.
func (f *Flow) waitLoginSettled(ctx context.Context, pg *browser.Page) {
	startURL, _ := pg.Location(ctx)
	deadline := time.Now().Add(loginSettle)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}

		if cur, err := pg.Location(ctx); err == nil && cur != startURL {
			f.logger.Debug("Login settled: URL changed", zap.String("url", cur))
			return
		}

		var formGone bool
		if err := pg.Evaluate(ctx, `document.querySelector('`+loginFormSel+`') === null`, &formGone, 3*time.Second); err == nil && formGone {
			f.logger.Debug("Login settled: login form removed")
			return
		}

		_ = pg.Sleep(ctx, 500*time.Millisecond)
	}
	f.logger.Debug("Login settle window elapsed, proceeding optimistically")
}

// captureToken works through the fallback chain: passively observed request,
// a deliberately triggered in-app search, embedded script bodies, and
// finally the current URL.
func (f *Flow) captureToken(ctx context.Context, pg *browser.Page, sniffer *browser.TokenSniffer) (string, error) {
	if tok, ok := sniffer.Wait(ctx, tokenWait); ok {
		return tok, nil
	}

	// No token observed passively; force a request that carries one.
	f.logger.Debug("No token observed passively, triggering in-app search")
	if pg.IsVisible(ctx, appSearchSel, 5*time.Second) {
		_ = pg.Type(ctx, appSearchSel, "Sydney", 5*time.Second)
		_ = pg.SendKeys(ctx, appSearchSel, "\r", 5*time.Second)
		if tok, ok := sniffer.Wait(ctx, tokenRetryWait); ok {
			return tok, nil
		}
	}

	// Some builds inline the token into a script assignment instead.
	var scripts string
	if err := pg.Evaluate(ctx,
		`Array.from(document.scripts).map(function(s){return s.text||''}).join('\n')`,
		&scripts, 10*time.Second); err == nil {
		if m := tokenAssignPattern.FindStringSubmatch(scripts); len(m) == 2 {
			f.logger.Debug("Token recovered from embedded script")
			return m[1], nil
		}
	}

	if cur, err := pg.Location(ctx); err == nil {
		if m := tokenURLPattern.FindStringSubmatch(cur); len(m) == 2 {
			f.logger.Debug("Token recovered from current URL")
			return m[1], nil
		}
	}

	return "", schemas.NewFailure(schemas.KindTokenCapture, ProviderName,
		"login succeeded but no bearer token was observed", nil)
}
