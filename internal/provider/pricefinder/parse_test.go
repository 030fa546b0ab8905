package pricefinder

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYearBuilt(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Charming family home built in 1987 with ocean views", "1987"},
		{"Year built: 2003. Renovated kitchen.", "2003"},
		{"Constructed in 1962 on a large block", "1962"},
		{"Renovated throughout, nothing about age", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseYearBuilt(tt.text), tt.text)
	}
}

func TestParsePropertyType(t *testing.T) {
	assert.Equal(t, "House", parsePropertyType("A lovely four bedroom house on a quiet street"))
	assert.Equal(t, "Townhouse", parsePropertyType("Modern TOWNHOUSE close to transport"))
	assert.Equal(t, "Apartment", parsePropertyType("North-facing apartment with city views"))
	assert.Equal(t, "Vacant Land", parsePropertyType("Rare vacant land opportunity"))
	assert.Equal(t, "", parsePropertyType("A rare opportunity"))
}

func TestParseSale(t *testing.T) {
	t.Run("price and month date", func(t *testing.T) {
		price, date := parseSale("Sold $1,250,000 on 14 Mar 2024 by Ray White")
		assert.Equal(t, "$1,250,000", price)
		assert.Equal(t, "14 Mar 2024", date)
	})

	t.Run("slash date", func(t *testing.T) {
		price, date := parseSale("Last sale: $845,000 (12/08/2019)")
		assert.Equal(t, "$845,000", price)
		assert.Equal(t, "12/08/2019", date)
	})

	t.Run("no sale recorded", func(t *testing.T) {
		price, date := parseSale("No sales history available for this property")
		assert.Empty(t, price)
		assert.Empty(t, date)
	})
}

func TestParseRange(t *testing.T) {
	t.Run("full triple", func(t *testing.T) {
		low, mid, high := parseRange("Estimated value $1.2m — $1.35m — $1.5m (high confidence)")
		assert.Equal(t, "$1.2m", low)
		assert.Equal(t, "$1.35m", mid)
		assert.Equal(t, "$1.5m", high)
	})

	t.Run("weekly rental figures", func(t *testing.T) {
		low, mid, high := parseRange("Rent estimate $620 to $680 to $740 per week")
		assert.Equal(t, "$620", low)
		assert.Equal(t, "$680", mid)
		assert.Equal(t, "$740", high)
	})

	t.Run("partial range fills from the low end", func(t *testing.T) {
		low, mid, high := parseRange("Estimate $900,000")
		assert.Equal(t, "$900,000", low)
		assert.Empty(t, mid)
		assert.Empty(t, high)
	})

	t.Run("no figures", func(t *testing.T) {
		low, mid, high := parseRange("Estimate unavailable")
		assert.Empty(t, low)
		assert.Empty(t, mid)
		assert.Empty(t, high)
	})
}

func TestParseYield(t *testing.T) {
	assert.Equal(t, "3.2%", parseYield("Gross yield 3.2% based on median rent"))
	assert.Equal(t, "4%", parseYield("approx. 4 % return"))
	assert.Equal(t, "", parseYield("yield data unavailable"))
}

func TestFieldTextFallbackChain(t *testing.T) {
	const html = `<div class="attributes">
		<span class="beds"><span class="value">4</span> Beds</span>
		<span class="loose-text">2 bath, 1 car</span>
	</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	attrs := doc.Find(".attributes")

	assert.Equal(t, "4", fieldText(attrs, ".beds .value", `(\d+)\s*bed`), "structured selector wins")
	assert.Equal(t, "2", fieldText(attrs, ".baths .value", `(\d+)\s*bath`), "pattern fallback over section text")
	assert.Equal(t, "", fieldText(attrs, ".pool .value", `(\d+)\s*pool`), "absent field degrades to empty")
}
