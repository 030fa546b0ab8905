package pricefinder

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Free-text parsing for fields the provider renders without stable markup.
// Every parser degrades to empty rather than erroring; a missing field must
// not sink the record.

var (
	yearBuiltPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)year\s*built[:\s]+(\d{4})`),
		regexp.MustCompile(`(?i)\bbuilt\s+in\s+(\d{4})`),
		regexp.MustCompile(`(?i)\bconstructed\s+(?:in\s+)?(\d{4})`),
	}

	propertyTypePattern = regexp.MustCompile(`(?i)\b(house|townhouse|apartment|unit|villa|duplex|vacant land|land)\b`)

	salePricePattern = regexp.MustCompile(`\$\s?([\d,]+(?:\.\d+)?)`)
	saleDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4})\b`),
		regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`),
	}

	rangeValuePattern = regexp.MustCompile(`\$\s?[\d,]+(?:\.\d+)?[kKmM]?`)
	yieldPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

// parseYearBuilt pulls a four-digit construction year out of a free-text
// description block.
func parseYearBuilt(text string) string {
	for _, p := range yearBuiltPatterns {
		if m := p.FindStringSubmatch(text); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

// parsePropertyType recognizes the provider's known dwelling types anywhere
// in the description.
func parsePropertyType(text string) string {
	m := propertyTypePattern.FindStringSubmatch(text)
	if len(m) != 2 {
		return ""
	}
	t := strings.ToLower(m[1])
	if t == "land" {
		return "Vacant Land"
	}
	return cases.Title(language.English).String(t)
}

// parseSale extracts the most recent sale price and date from the sales
// history section's text.
func parseSale(text string) (price, date string) {
	if m := salePricePattern.FindString(text); m != "" {
		price = strings.ReplaceAll(m, " ", "")
	}
	for _, p := range saleDatePatterns {
		if m := p.FindStringSubmatch(text); len(m) == 2 {
			date = m[1]
			break
		}
	}
	return price, date
}

// parseRange reads an AVM low/mid/high triple from a tab's rendered text.
// The provider always renders the three figures in ascending order; fewer
// than three figures fills from the low end.
func parseRange(text string) (low, mid, high string) {
	vals := rangeValuePattern.FindAllString(text, 3)
	for i := range vals {
		vals[i] = strings.ReplaceAll(vals[i], " ", "")
	}
	switch len(vals) {
	case 3:
		return vals[0], vals[1], vals[2]
	case 2:
		return vals[0], vals[1], ""
	case 1:
		return vals[0], "", ""
	}
	return "", "", ""
}

// parseYield extracts a percentage figure from free text.
func parseYield(text string) string {
	if m := yieldPattern.FindStringSubmatch(text); len(m) == 2 {
		return m[1] + "%"
	}
	return ""
}

// fieldText is a capability extractor for one labeled attribute: try the
// structured selector first, then fall back to a pattern over the section's
// full text, then give up with empty. pattern must have one capture group.
func fieldText(section *goquery.Selection, structured, pattern string) string {
	if v := strings.TrimSpace(section.Find(structured).First().Text()); v != "" {
		return v
	}
	re := regexp.MustCompile(`(?i)` + pattern)
	if m := re.FindStringSubmatch(section.Text()); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
