// Package pricefinder extracts structured property records from a provider
// that exposes no usable JSON endpoint. Everything is read out of the
// rendered UI: login, address search, detail page, tabbed AVM sub-views.
package pricefinder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
	"github.com/manjain15/propwealth-scraper/internal/browser"
	"github.com/manjain15/propwealth-scraper/internal/config"
)

const ProviderName = "pricefinder"

// Hand-identified extraction points. The provider gives no stability
// guarantees for any of these.
const (
	loginEmailSel    = `input[name="username"]`
	loginPasswordSel = `input[name="password"]`
	loginSubmitSel   = `button[type="submit"]`
	loginFormSel     = `form[name="login"]`

	searchInputSel     = `input.address-search`
	suggestionFirstSel = `.autocomplete-suggestions .suggestion:first-child`

	// The detail page's primary content region. Its absence is the one
	// fatal extraction failure; everything below it degrades field by field.
	detailRegionSel = `.property-detail`

	attributesSel   = `.property-detail .attributes`
	descriptionSel  = `.property-detail .description`
	salesHistorySel = `.property-detail .sales-history`
	schoolsSel      = `.property-detail .nearby-schools .school`

	tabSel = `[role="tab"]`
)

const (
	navTimeout    = 20 * time.Second
	detailTimeout = 30 * time.Second
	fieldProbe    = 5 * time.Second
	tabSettle     = 2 * time.Second
)

// Tabs the extractor knows how to read. Each is a distinct detail-page
// sub-state that only renders its values once activated.
var knownTabs = []string{"Valuation", "Rental"}

// Extractor drives the provider's UI to produce PropertyRecords.
type Extractor struct {
	browser *browser.Manager
	cfg     config.PricefinderConfig
	logger  *zap.Logger
}

// NewExtractor builds the navigation-driven extractor.
func NewExtractor(b *browser.Manager, cfg config.PricefinderConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		browser: b,
		cfg:     cfg,
		logger:  logger.Named("pricefinder"),
	}
}

// Property authenticates in a fresh browsing context and extracts the full
// record for one address.
func (e *Extractor) Property(ctx context.Context, address string) (schemas.PropertyRecord, error) {
	pg, err := e.browser.NewPage(ctx)
	if err != nil {
		return schemas.PropertyRecord{}, schemas.NewFailure(schemas.KindAuthentication, ProviderName,
			"could not open browsing context", err)
	}
	defer pg.Close()

	if err := e.login(ctx, pg); err != nil {
		return schemas.PropertyRecord{}, err
	}
	return e.extract(ctx, pg, address)
}

// login submits credentials and waits for the post-login state using the
// same optimistic signal race as the stats provider: URL change, login form
// disappearance, or the settle window elapsing.
func (e *Extractor) login(ctx context.Context, pg *browser.Page) error {
	if err := pg.Navigate(ctx, e.cfg.LoginURL, navTimeout); err != nil {
		return schemas.NewFailure(schemas.KindAuthentication, ProviderName, "login page unreachable", err)
	}
	if err := pg.WaitVisible(ctx, loginEmailSel, navTimeout); err != nil {
		return schemas.NewFailure(schemas.KindAuthentication, ProviderName, "login form never appeared", err)
	}
	if err := pg.Type(ctx, loginEmailSel, e.cfg.Email, 10*time.Second); err != nil {
		return schemas.NewFailure(schemas.KindAuthentication, ProviderName, "could not enter credentials", err)
	}
	if err := pg.Type(ctx, loginPasswordSel, e.cfg.Password, 10*time.Second); err != nil {
		return schemas.NewFailure(schemas.KindAuthentication, ProviderName, "could not enter credentials", err)
	}
	if err := pg.Click(ctx, loginSubmitSel, 10*time.Second); err != nil {
		return schemas.NewFailure(schemas.KindAuthentication, ProviderName, "could not submit login", err)
	}

	startURL, _ := pg.Location(ctx)
	deadline := time.Now().Add(navTimeout)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if cur, err := pg.Location(ctx); err == nil && cur != startURL {
			return nil
		}
		var formGone bool
		if err := pg.Evaluate(ctx, `document.querySelector('`+loginFormSel+`') === null`, &formGone, 3*time.Second); err == nil && formGone {
			return nil
		}
		_ = pg.Sleep(ctx, 500*time.Millisecond)
	}
	// Proceed optimistically; a failed login shows up as a missing search
	// input on the next step.
	return nil
}

// extract runs search → detail page → tabs for one address on an already
// authenticated page.
func (e *Extractor) extract(ctx context.Context, pg *browser.Page, address string) (schemas.PropertyRecord, error) {
	if err := e.search(ctx, pg, address); err != nil {
		return schemas.PropertyRecord{}, err
	}

	if err := pg.WaitVisible(ctx, detailRegionSel, detailTimeout); err != nil {
		return schemas.PropertyRecord{}, schemas.NewFailure(schemas.KindExtraction, ProviderName,
			"property detail region never appeared for "+address, err)
	}

	rec := schemas.PropertyRecord{Address: address}

	html, err := pg.HTML(ctx, 10*time.Second)
	if err != nil {
		return schemas.PropertyRecord{}, schemas.NewFailure(schemas.KindExtraction, ProviderName,
			"could not snapshot detail page", err)
	}
	e.readBaseFields(&rec, html)

	// Valuation and rental figures live behind tabs that must be activated
	// to render. Each activation is its own transition with a settle wait.
	for _, tab := range knownTabs {
		if !e.activateTab(ctx, pg, tab) {
			continue
		}
		tabHTML, err := pg.HTML(ctx, 10*time.Second)
		if err != nil {
			e.logger.Warn("Could not snapshot tab content", zap.String("tab", tab), zap.Error(err))
			continue
		}
		e.readTabFields(&rec, tab, tabHTML)
	}

	if rec.LastSalePrice != "" {
		rec.MarketStatus = "OFF Market"
	} else {
		rec.MarketStatus = "ON Market"
	}

	return rec, nil
}

// search types the address and selects the first suggestion, preferring a
// pointer click and falling back to keyboard selection when no suggestion
// list renders.
func (e *Extractor) search(ctx context.Context, pg *browser.Page, address string) error {
	if err := pg.WaitVisible(ctx, searchInputSel, navTimeout); err != nil {
		return schemas.NewFailure(schemas.KindExtraction, ProviderName, "search input never appeared", err)
	}
	if err := pg.Type(ctx, searchInputSel, address, 10*time.Second); err != nil {
		return schemas.NewFailure(schemas.KindExtraction, ProviderName, "could not enter address", err)
	}

	if pg.IsVisible(ctx, suggestionFirstSel, 8*time.Second) {
		if err := pg.Click(ctx, suggestionFirstSel, 5*time.Second); err == nil {
			return nil
		}
	}

	e.logger.Debug("No suggestion list rendered, selecting via keyboard", zap.String("address", address))
	if err := pg.SendKeys(ctx, searchInputSel, kb.ArrowDown+kb.Enter, 5*time.Second); err != nil {
		return schemas.NewFailure(schemas.KindExtraction, ProviderName, "could not select search result", err)
	}
	return nil
}

// activateTab clicks the tab whose label contains name and waits for its
// content to settle. Returns false when no such tab is visible.
func (e *Extractor) activateTab(ctx context.Context, pg *browser.Page, name string) bool {
	js := fmt.Sprintf(
		`(function(){var ts=document.querySelectorAll('%s');for(var i=0;i<ts.length;i++){`+
			`if(ts[i].textContent.trim().toLowerCase().indexOf(%q)!==-1){ts[i].click();return true}}return false})()`,
		tabSel, strings.ToLower(name))

	var clicked bool
	if err := pg.Evaluate(ctx, js, &clicked, fieldProbe); err != nil || !clicked {
		e.logger.Debug("Tab not present", zap.String("tab", name))
		return false
	}
	_ = pg.Sleep(ctx, tabSettle)
	return true
}

// readBaseFields fills the flat attribute fields, the free-text derived
// fields, the last sale and the schools list from the base detail state.
func (e *Extractor) readBaseFields(rec *schemas.PropertyRecord, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("Could not parse detail page html", zap.Error(err))
		return
	}

	attrs := doc.Find(attributesSel)
	rec.Bedrooms = fieldText(attrs, ".beds .value", `(\d+)\s*bed`)
	rec.Bathrooms = fieldText(attrs, ".baths .value", `(\d+)\s*bath`)
	rec.Parking = fieldText(attrs, ".parking .value", `(\d+)\s*(?:car|park)`)
	rec.LandSize = fieldText(attrs, ".land .value", `([\d,.]+\s*(?:m2|m²|ha|sqm))\s*land`)
	rec.FloorArea = fieldText(attrs, ".floor .value", `([\d,.]+\s*(?:m2|m²|sqm))\s*floor`)

	description := strings.TrimSpace(doc.Find(descriptionSel).Text())
	rec.Description = description
	rec.YearBuilt = parseYearBuilt(description)
	rec.PropertyType = parsePropertyType(description)

	salesText := strings.TrimSpace(doc.Find(salesHistorySel).Text())
	rec.LastSalePrice, rec.LastSaleDate = parseSale(salesText)

	doc.Find(schoolsSel).Each(func(_ int, sel *goquery.Selection) {
		school := schemas.School{
			Name:     strings.TrimSpace(sel.Find(".name").Text()),
			Distance: strings.TrimSpace(sel.Find(".distance").Text()),
			Type:     strings.TrimSpace(sel.Find(".type").Text()),
			Sector:   strings.TrimSpace(sel.Find(".sector").Text()),
		}
		if school.Name != "" {
			rec.Schools = append(rec.Schools, school)
		}
	})
}

// readTabFields reads the range values and yield from an activated tab's
// content region.
func (e *Extractor) readTabFields(rec *schemas.PropertyRecord, tab, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	panel := activePanelText(doc)
	if panel == "" {
		panel = strings.TrimSpace(doc.Find(detailRegionSel).Text())
	}

	switch tab {
	case "Valuation":
		rec.ValuationLow, rec.ValuationMid, rec.ValuationHigh = parseRange(panel)
	case "Rental":
		rec.RentalLow, rec.RentalMid, rec.RentalHigh = parseRange(panel)
		rec.RentalYield = parseYield(panel)
	}
}

// activePanelText reads only the currently shown tab panel. Inactive panels
// stay mounted in the DOM with their stale values, so reading every panel
// would mix figures from different tabs.
func activePanelText(doc *goquery.Document) string {
	if id, ok := doc.Find(`[role="tab"][aria-selected="true"]`).Attr("aria-controls"); ok && id != "" {
		if text := strings.TrimSpace(doc.Find("#" + id).Text()); text != "" {
			return text
		}
	}
	return strings.TrimSpace(doc.Find(`[role="tabpanel"]:not([hidden])`).Text())
}
