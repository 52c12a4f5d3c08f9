package parser

import (
	"github.com/PuerkitoBio/goquery"
)

type PageKind int

const (
	PageUnknown PageKind = iota
	PageCategory
	PageProduct
)

func (k PageKind) String() string {
	switch k {
	case PageCategory:
		return "category"
	case PageProduct:
		return "product"
	default:
		return "unknown"
	}
}

const (
	listingSelector = "ul.re00"
	productSelector = `div.views_pics, select[name="hw_sizeone"], select[name="hw_size"]`
)

// Classify decides what a fetched page is. Product pages embed related
// listings, so the product signal wins when both are present.
func Classify(doc *goquery.Document) PageKind {
	if doc == nil {
		return PageUnknown
	}
	if doc.Find(productSelector).Length() > 0 {
		return PageProduct
	}
	if doc.Find(listingSelector).Length() > 0 {
		return PageCategory
	}
	return PageUnknown
}
