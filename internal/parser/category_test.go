package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractProducts(t *testing.T) {
	e, pricer := newTestExtractor(2.0, nil)

	products := e.ExtractProducts(NewDocument(categoryPageHTML))
	require.Len(t, products, 2, "item without a link must be skipped")

	first := products[0]
	assert.Equal(t, "Nike Air Max 90", first.Name)
	assert.Equal(t, "/shoe-1.html", first.Path)
	assert.Equal(t, DefaultBaseURL+"/shoe-1.html", first.URL)
	assert.Equal(t, DefaultBaseURL+"/pic/shoe-1.jpg", first.Image)
	assert.Equal(t, "120,00 €", first.OldPrice)
	assert.Equal(t, "€ 99.80", first.NewPrice)
	assert.True(t, decimal.RequireFromString("99.80").Equal(first.PriceValue))
	assert.Equal(t, "Economie 70 €", first.Economy)

	second := products[1]
	assert.Equal(t, "shoe-2.html", second.Path)
	assert.Equal(t, DefaultBaseURL+"/shoe-2.html", second.URL)
	assert.Equal(t, "https://cdn.example.com/shoe-2.jpg", second.Image)
	assert.Empty(t, second.OldPrice)
	assert.Equal(t, "€ 118.00", second.NewPrice)
	assert.Equal(t, "-40%", second.Economy)

	assert.Equal(t, map[string]int{"49,90 €": 1, "59.00 €": 1}, pricer.calls)
}

func TestExtractProducts_HiddenByOverride(t *testing.T) {
	e, _ := newTestExtractor(2.0, mapOverrides{hidden: map[string]bool{"/shoe-1.html": true}})

	products := e.ExtractProducts(NewDocument(categoryPageHTML))
	require.Len(t, products, 1)
	assert.Equal(t, "shoe-2.html", products[0].Path)
}

func TestExtractProducts_OverridePriceKeepsValue(t *testing.T) {
	e, pricer := newTestExtractor(2.0, mapOverrides{prices: map[string]string{"/shoe-1.html": "€ 55.00"}})

	products := e.ExtractProducts(NewDocument(categoryPageHTML))
	require.Len(t, products, 2)

	assert.Equal(t, "€ 55.00", products[0].NewPrice)
	assert.True(t, decimal.RequireFromString("99.80").Equal(products[0].PriceValue))
	assert.Equal(t, 1, pricer.calls["49,90 €"])
	assert.Zero(t, pricer.calls["€ 55.00"], "override price must not be parsed")
}

func TestExtractProducts_EmptyAndMissing(t *testing.T) {
	e, _ := newTestExtractor(2.0, nil)

	tests := []struct {
		name string
		html string
	}{
		{"Empty markup", ""},
		{"No listings", `<html><body><p>Bienvenue</p></body></html>`},
		{"Broken markup", `<ul class="re00"><li class="hw2"><a>no href`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := e.ExtractProducts(NewDocument(tt.html))
			assert.NotNil(t, products)
			assert.Empty(t, products)
		})
	}

	assert.Empty(t, e.ExtractProducts(nil))
}

func TestExtractProducts_MissingPrice(t *testing.T) {
	e, _ := newTestExtractor(2.0, nil)
	html := `<ul class="re00"><li class="hw2"><a href="/p.html">Sans prix</a></li></ul>`

	products := e.ExtractProducts(NewDocument(html))
	require.Len(t, products, 1)
	assert.Empty(t, products[0].NewPrice)
	assert.True(t, products[0].PriceValue.IsZero())
	assert.Empty(t, products[0].Image)
	assert.Empty(t, products[0].Economy)
}

func TestEconomyText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"Savings label wins", `<li><span>Economie 5 €</span><span>10 €</span><span>-30%</span></li>`, "Economie 5 €"},
		{"Falls back to last span", `<li><span>10 €</span><span>-30%</span></li>`, "-30%"},
		{"Single span", `<li><span>10 €</span></li>`, ""},
		{"No spans", `<li></li>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(tt.html)
			assert.Equal(t, tt.expected, economyText(doc.Find("span")))
		})
	}
}
