package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
)

// ExtractCategories reads the home page sidebar. Each brand link belongs to
// the closest header before it in document order.
func (e *Extractor) ExtractCategories(doc *goquery.Document) *models.Categories {
	categories := models.NewCategories()
	if doc == nil {
		return categories
	}

	sidebar := doc.Find("div.sideBar_left").First()
	if sidebar.Length() == 0 {
		sidebar = doc.Find("#leftsideBar").First()
	}
	if sidebar.Length() == 0 {
		return categories
	}

	lastHeader := ""
	sidebar.Find(".insort0, .insort1 a").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("insort0") {
			lastHeader = cleanText(s)
			categories.Headers = append(categories.Headers, lastHeader)
			return
		}
		href, _ := s.Attr("href")
		title := cleanText(s)
		if href == "" || title == "" {
			return
		}
		categories.Brands = append(categories.Brands, models.Brand{
			Title:  title,
			Path:   href,
			Header: lastHeader,
		})
	})

	return categories
}

// ExtractNavLinks reads the product shortcut bar (div#prohref).
func (e *Extractor) ExtractNavLinks(doc *goquery.Document) []models.NavLink {
	links := make([]models.NavLink, 0)
	if doc == nil {
		return links
	}

	doc.Find("div#prohref a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		title := strings.TrimSpace(a.AttrOr("title", ""))
		if title == "" {
			title = cleanText(a)
		}
		if href == "" || title == "" {
			return
		}

		link := models.NavLink{
			Title: title,
			Path:  PathOnly(href),
			URL:   e.Normalize(href),
		}
		if src, ok := a.Find("img").First().Attr("src"); ok {
			link.Image = e.Normalize(src)
		}
		links = append(links, link)
	})

	return links
}

// ExtractBreadcrumb reads the navigation bar, ignoring embedded scripts.
func (e *Extractor) ExtractBreadcrumb(doc *goquery.Document) []models.Crumb {
	crumbs := make([]models.Crumb, 0)
	if doc == nil {
		return crumbs
	}

	bar := doc.Find("div#bar").First()
	if bar.Length() == 0 {
		return crumbs
	}
	bar = bar.Clone()
	bar.Find("script").Remove()

	bar.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := cleanText(a)
		if href == "" || text == "" {
			return
		}
		crumbs = append(crumbs, models.Crumb{
			Text: text,
			Path: href,
			URL:  e.Normalize(href),
		})
	})

	return crumbs
}

// categoryTitle is the first bold or heading element of the navigation bar.
func categoryTitle(doc *goquery.Document) string {
	return cleanText(doc.Find("div#bar b, div#bar strong, div#bar h1, div#bar h2").First())
}
