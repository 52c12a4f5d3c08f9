package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceUnavailable is shown when a price text holds no readable number.
const PriceUnavailable = "Prix non disponible"

var (
	priceNoise  = regexp.MustCompile(`[^\d,.]`)
	priceNumber = regexp.MustCompile(`\d+\.?\d*`)
)

// PriceParser reads scraped price text and applies the storefront multiplier.
// Each raw string must go through Parse exactly once per extraction.
type PriceParser struct {
	multiplier  decimal.Decimal
	unavailable string
}

func NewPriceParser(multiplier decimal.Decimal) *PriceParser {
	return &PriceParser{
		multiplier:  multiplier,
		unavailable: PriceUnavailable,
	}
}

func (p *PriceParser) Multiplier() decimal.Decimal {
	return p.multiplier
}

// Parse returns the multiplied value and its "€ 0.00" rendering. Empty input
// gives (0, "") and unreadable input gives (0, PriceUnavailable).
func (p *PriceParser) Parse(raw string) (decimal.Decimal, string) {
	if raw == "" {
		return decimal.Zero, ""
	}

	cleaned := priceNoise.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	match := priceNumber.FindString(cleaned)
	if match == "" {
		return decimal.Zero, p.unavailable
	}

	value, err := decimal.NewFromString(strings.TrimSuffix(match, "."))
	if err != nil {
		return decimal.Zero, p.unavailable
	}

	final := value.Mul(p.multiplier)
	return final, FormatPrice(final)
}

// FormatPrice renders a value the way the storefront displays prices.
func FormatPrice(v decimal.Decimal) string {
	return "€ " + v.StringFixed(2)
}
