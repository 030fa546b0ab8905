// Package schemas holds the data model shared between the scraping pipeline,
// the service facade and the archive store.
package schemas

import (
	"strings"
	"time"
)

// Session is an authenticated provider session captured by observing the
// login flow in a real browser. It is immutable; an expired session is
// replaced by a new one, never mutated in place.
type Session struct {
	Token      string        `json:"token"`
	Cookies    []Cookie      `json:"cookies"`
	AcquiredAt time.Time     `json:"acquired_at"`
	TTL        time.Duration `json:"ttl"`
}

// Cookie is a single (name, value) pair from the browsing context's jar.
// Order is preserved so the Cookie header round-trips the way the browser
// sent it.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ValidAt reports whether the session is still inside its TTL window.
func (s *Session) ValidAt(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return now.Before(s.AcquiredAt.Add(s.TTL))
}

// CookieHeader renders the jar as a Cookie request header value.
func (s *Session) CookieHeader() string {
	parts := make([]string, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Cookie returns the value of the named cookie, if present.
func (s *Session) Cookie(name string) (string, bool) {
	for _, c := range s.Cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Location identifies a suburb for a market-stats request.
type Location struct {
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
}

// Rating buckets for thresholded market indicators.
const (
	RatingLow     = "Low"
	RatingAverage = "Average"
	RatingHigh    = "High"
	RatingFast    = "Fast"
	RatingSlow    = "Slow"
	RatingStrong  = "Strong"
)

// MarketStats is the normalized suburb-level market snapshot. All value
// fields are pre-formatted strings; a field the provider did not supply is
// empty rather than an error.
type MarketStats struct {
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Month    string `json:"month"`
	Year     string `json:"year"`

	StockOnMarket  string `json:"stock_on_market"`
	StockRating    string `json:"stock_rating"`
	DaysOnMarket   string `json:"days_on_market"`
	DOMRating      string `json:"dom_rating"`
	VendorDiscount string `json:"vendor_discount"`
	VacancyRate    string `json:"vacancy_rate"`
	VacancyRating  string `json:"vacancy_rating"`
	RentalYield    string `json:"gross_rental_yield"`
	YieldRating    string `json:"yield_rating"`

	DSRScore         string `json:"dsr_score"`
	Median12Months   string `json:"median_12_months"`
	TypicalValue     string `json:"typical_value"`
	RentersPercent   string `json:"renters_percent"`
	AuctionClearance string `json:"auction_clearance_rate"`
	SearchInterest   string `json:"search_interest"`
	StatReliability  string `json:"statistical_reliability"`

	// Commentary is filled by the optional narrative collaborator; empty
	// when the collaborator is absent or fails.
	Commentary string `json:"commentary,omitempty"`
}

// School is one entry from a property's nearby-schools list.
type School struct {
	Name     string `json:"name"`
	Distance string `json:"distance"`
	Type     string `json:"type"`
	Sector   string `json:"sector"`
}

// PropertyRecord holds the structured attributes extracted from a single
// property detail page.
type PropertyRecord struct {
	Address      string `json:"address"`
	Bedrooms     string `json:"bedrooms"`
	Bathrooms    string `json:"bathrooms"`
	Parking      string `json:"parking"`
	LandSize     string `json:"land_size"`
	FloorArea    string `json:"floor_area"`
	YearBuilt    string `json:"year_built"`
	PropertyType string `json:"property_type"`
	Description  string `json:"description"`

	LastSalePrice string `json:"last_sale_price"`
	LastSaleDate  string `json:"last_sale_date"`

	Schools []School `json:"schools"`

	ValuationLow  string `json:"valuation_low"`
	ValuationMid  string `json:"valuation_mid"`
	ValuationHigh string `json:"valuation_high"`
	RentalLow     string `json:"rental_low"`
	RentalMid     string `json:"rental_mid"`
	RentalHigh    string `json:"rental_high"`
	RentalYield   string `json:"rental_yield"`

	// "OFF Market" when a last sale was found, "ON Market" otherwise.
	MarketStatus string `json:"market_status"`
}

// ComparableRecord is a reduced PropertyRecord produced per item of a batch
// lookup. A failed lookup keeps its slot with Success=false so the result
// sequence always matches the input in length and order.
type ComparableRecord struct {
	Address      string `json:"address"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Bedrooms     string `json:"bedrooms,omitempty"`
	Bathrooms    string `json:"bathrooms,omitempty"`
	Parking      string `json:"parking,omitempty"`
	LandSize     string `json:"land_size,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	SoldPrice    string `json:"sold_price,omitempty"`
	SoldDate     string `json:"sold_date,omitempty"`
}
