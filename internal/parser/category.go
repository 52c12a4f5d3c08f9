package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
)

const economyLabel = "Economie"

// ExtractProducts reads every listing container on the page. Items an
// override hides are dropped, malformed items are skipped.
func (e *Extractor) ExtractProducts(doc *goquery.Document) []models.ProductSummary {
	products := make([]models.ProductSummary, 0)
	if doc == nil {
		return products
	}

	doc.Find(listingSelector).Each(func(i int, item *goquery.Selection) {
		product, err := e.extractItem(item)
		if err != nil {
			e.logger.Warn("skipping listing item", "index", i, "error", err)
			return
		}
		if !e.overrides.ApplySummary(&product) {
			e.logger.Debug("listing item hidden by override", "path", product.Path)
			return
		}
		products = append(products, product)
	})

	return products
}

func (e *Extractor) extractItem(item *goquery.Selection) (product models.ProductSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed listing item: %v", r)
		}
	}()

	info := item.Find("li.hw2 a").First()
	href, _ := info.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return product, fmt.Errorf("listing item has no product link")
	}

	spans := item.Find("li.hw2 span")
	priceText := ""
	if spans.Length() > 0 {
		priceText = cleanText(spans.First())
	}
	value, display := e.prices.Parse(priceText)

	product = models.ProductSummary{
		Name:       cleanText(info),
		Path:       href,
		URL:        e.Normalize(href),
		OldPrice:   cleanText(item.Find("li.hw2 s").First()),
		NewPrice:   display,
		PriceValue: value,
		Economy:    economyText(spans),
	}
	if src, ok := item.Find("li.hw1 img").First().Attr("src"); ok {
		product.Image = e.Normalize(src)
	}

	return product, nil
}

// economyText picks the savings badge: the first span mentioning savings,
// else the last span when there are at least two.
func economyText(spans *goquery.Selection) string {
	econ := ""
	spans.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), economyLabel) {
			econ = cleanText(s)
			return false
		}
		return true
	})
	if econ == "" && spans.Length() >= 2 {
		econ = cleanText(spans.Last())
	}
	return econ
}
