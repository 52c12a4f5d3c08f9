package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
)

// DefaultSize is used when a product page offers no size choice.
const DefaultSize = "Unique"

var (
	titleSelectors = []string{"div.h_name", "h1", ".product-title", "#bar b", "title"}
	titleIgnored   = map[string]bool{"Détail": true, "Product": true}
	titleDash      = regexp.MustCompile(`^\s*-\s*`)

	mainImageSelectors = []string{
		"div.views_pics img",
		"a#zoom1 img",
		"img.abc",
		".main-image img",
		`img[src*="/pic/"]`,
		`img[src*="/product/"]`,
	}
	thumbnailSelector = "div.views_pics img, ul.small_pics img, div.small_pics img, .thumbs img"

	priceSelectors = []string{
		`b[style*="color"]`,
		`font[color="#FF0000"]`,
		"span.price",
		"b.price",
		"b[style]",
		"b",
	}
	hasDigit = regexp.MustCompile(`\d`)

	sizeSelectors = []string{`select[name="hw_sizeone"]`, `select[name="hw_size"]`, ".size-select"}
	sizeIgnored   = map[string]bool{"Taille": true, "Size": true}

	descriptionSelectors = []string{"#Content .con_bot", "div#Content", "div.product_description"}
)

// ExtractDetail reads a product page. A page that only carries listings is
// returned as a category record; a page with neither shape, or one hidden by
// an override, yields an empty record.
func (e *Extractor) ExtractDetail(doc *goquery.Document, requestPath string, page int) models.ProductDetail {
	fetchPath := requestPath
	if page > 1 {
		fetchPath = PagePath(requestPath, page)
	}
	detail := models.ProductDetail{
		Path:       requestPath,
		URL:        e.Normalize(fetchPath),
		Breadcrumb: make([]models.Crumb, 0),
		NavLinks:   make([]models.NavLink, 0),
	}

	switch Classify(doc) {
	case PageCategory:
		return e.extractCategoryPage(doc, detail, page)
	case PageUnknown:
		e.logger.Debug("page has no product or listing markup", "path", requestPath)
		return detail
	}

	detail.Title = extractTitle(doc)
	detail.MainImg = e.extractMainImage(doc)
	detail.Thumbnails = e.extractThumbnails(doc, detail.MainImg)
	detail.OldPrice = cleanText(doc.Find("s").First())
	detail.PriceValue, detail.NewPrice = e.prices.Parse(extractPriceText(doc))
	detail.Sizes = extractSizes(doc)
	detail.QtyOptions = e.qtyOptions()
	detail.Description = extractDescription(doc)
	detail.Related = e.ExtractProducts(doc)
	detail.Breadcrumb = e.ExtractBreadcrumb(doc)
	detail.NavLinks = e.ExtractNavLinks(doc)

	if !e.overrides.ApplyDetail(&detail) {
		e.logger.Debug("product hidden by override", "path", requestPath)
		return models.ProductDetail{
			Path:       detail.Path,
			URL:        detail.URL,
			Breadcrumb: make([]models.Crumb, 0),
			NavLinks:   make([]models.NavLink, 0),
		}
	}

	return detail
}

func (e *Extractor) extractCategoryPage(doc *goquery.Document, detail models.ProductDetail, page int) models.ProductDetail {
	paging := e.ExtractPaging(doc, detail.Path, page)

	detail.IsCategory = true
	detail.CategoryTitle = categoryTitle(doc)
	detail.Products = e.ExtractProducts(doc)
	detail.Paging = &paging
	detail.Breadcrumb = e.ExtractBreadcrumb(doc)
	detail.NavLinks = e.ExtractNavLinks(doc)
	return detail
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		title := cleanText(doc.Find(selector).First())
		if title == "" || titleIgnored[title] {
			continue
		}
		if title = titleDash.ReplaceAllString(title, ""); title != "" {
			return title
		}
	}
	return models.UntitledProduct
}

func (e *Extractor) extractMainImage(doc *goquery.Document) string {
	for _, selector := range mainImageSelectors {
		if src, ok := doc.Find(selector).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			return e.Normalize(src)
		}
	}
	return ""
}

func (e *Extractor) extractThumbnails(doc *goquery.Document, mainImg string) []string {
	thumbs := make([]string, 0)
	seen := map[string]bool{mainImg: true}
	doc.Find(thumbnailSelector).Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		thumbs = appendUnique(thumbs, seen, e.Normalize(src))
	})
	return thumbs
}

// extractPriceText returns the first price candidate that holds a digit.
func extractPriceText(doc *goquery.Document) string {
	for _, selector := range priceSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := cleanText(sel); hasDigit.MatchString(text) {
			return text
		}
	}
	return ""
}

func extractSizes(doc *goquery.Document) []string {
	for _, selector := range sizeSelectors {
		sizes := make([]string, 0)
		doc.Find(selector).First().Find("option").Each(func(_ int, opt *goquery.Selection) {
			value := strings.TrimSpace(opt.AttrOr("value", ""))
			if value == "" || sizeIgnored[value] {
				return
			}
			sizes = append(sizes, value)
		})
		if len(sizes) > 0 {
			return sizes
		}
	}
	return []string{DefaultSize}
}

func (e *Extractor) qtyOptions() []int {
	qty := make([]int, e.qtyMax)
	for i := range qty {
		qty[i] = i + 1
	}
	return qty
}

func extractDescription(doc *goquery.Document) string {
	for _, selector := range descriptionSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			return textLines(sel)
		}
	}
	return ""
}
