package dsrdata

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

// flexValue decodes a JSON field that may arrive as a string or a number,
// preserving the provider's own textual representation.
type flexValue string

func (f *flexValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexValue(s)
		return nil
	}
	*f = flexValue(b)
	return nil
}

func (f flexValue) String() string { return string(f) }

func (f flexValue) float() (float64, bool) {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var currencyPrinter = message.NewPrinter(language.English)

// Normalize converts the raw indicator payload into typed, rated fields.
// Pure: the same input always yields the identical MarketStats. A missing or
// non-numeric source field normalizes to an empty value, never an error.
func Normalize(raw *RawStats) schemas.MarketStats {
	stats := schemas.MarketStats{
		StockOnMarket:    percent(raw.SOMPerc),
		DaysOnMarket:     plain(raw.DOM),
		VendorDiscount:   percent(raw.Discount),
		VacancyRate:      percent(raw.Vacancy),
		RentalYield:      percent(raw.Yield),
		DSRScore:         plain(raw.DSR),
		Median12Months:   currency(raw.Median12),
		TypicalValue:     currency(raw.TV),
		RentersPercent:   percent(raw.Renters),
		AuctionClearance: percent(raw.ACR),
		SearchInterest:   plain(raw.OSI),
		StatReliability:  plain(raw.SR),
	}

	if v, ok := raw.SOMPerc.float(); ok {
		stats.StockRating = rateStock(v)
	}
	if v, ok := raw.DOM.float(); ok {
		stats.DOMRating = rateDOM(v)
	}
	if v, ok := raw.Vacancy.float(); ok {
		stats.VacancyRating = rateVacancy(v)
	}
	if v, ok := raw.Yield.float(); ok {
		stats.YieldRating = rateYield(v)
	}

	return stats
}

// percent keeps the provider's own number text and suffixes the unit.
func percent(f flexValue) string {
	if _, ok := f.float(); !ok {
		return ""
	}
	return f.String() + "%"
}

// plain passes a numeric field through as-is.
func plain(f flexValue) string {
	if _, ok := f.float(); !ok {
		return ""
	}
	return f.String()
}

// currency rounds to whole dollars and groups with the English locale.
func currency(f flexValue) string {
	v, ok := f.float()
	if !ok {
		return ""
	}
	return currencyPrinter.Sprintf("$%d", int64(math.Round(v)))
}

// Rating thresholds are closed at the boundary: a value exactly on a
// threshold takes the lower bucket.

func rateStock(v float64) string {
	switch {
	case v <= 1.5:
		return schemas.RatingLow
	case v <= 3.0:
		return schemas.RatingAverage
	default:
		return schemas.RatingHigh
	}
}

func rateDOM(v float64) string {
	switch {
	case v <= 25:
		return schemas.RatingFast
	case v <= 45:
		return schemas.RatingAverage
	default:
		return schemas.RatingSlow
	}
}

func rateVacancy(v float64) string {
	switch {
	case v <= 2.0:
		return schemas.RatingLow
	case v <= 3.0:
		return schemas.RatingAverage
	default:
		return schemas.RatingHigh
	}
}

func rateYield(v float64) string {
	switch {
	case v >= 5:
		return schemas.RatingStrong
	case v >= 3:
		return schemas.RatingAverage
	default:
		return schemas.RatingLow
	}
}
