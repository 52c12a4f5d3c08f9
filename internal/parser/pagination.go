package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
)

var (
	pageSuffix   = regexp.MustCompile(`_([0-9]+)$`)
	totalItemsRe = regexp.MustCompile(`(?i)Total\s*(\d+)\s*item`)

	prevLabels = []string{"Prev", "Précédent"}
	nextLabels = []string{"Next", "Suivant"}
)

// BasePath strips the ".html" extension and any "_<N>" page suffix.
func BasePath(path string) string {
	base, _, _ := strings.Cut(path, ".html")
	return pageSuffix.ReplaceAllString(base, "")
}

// PagePath builds the site path of page n for a listing path, following the
// site's "<base>_<N>.html" convention.
func PagePath(path string, page int) string {
	base := BasePath(path)
	if page > 1 {
		return fmt.Sprintf("%s_%d.html", base, page)
	}
	return base + ".html"
}

// PageFromPath recovers the page number encoded in a listing path.
func PageFromPath(path string) int {
	base, _, _ := strings.Cut(path, ".html")
	m := pageSuffix.FindStringSubmatch(base)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ExtractPaging reads the page-count control of a listing page.
func (e *Extractor) ExtractPaging(doc *goquery.Document, requestPath string, current int) models.Pagination {
	paging := models.NewPagination(current)
	current = paging.Current
	if doc == nil {
		return paging
	}

	control := doc.Find("div#showpage").First()
	if control.Length() == 0 {
		return paging
	}

	paging.DisplayText = strings.Join(strings.Fields(control.Text()), " ")
	if m := totalItemsRe.FindStringSubmatch(paging.DisplayText); m != nil {
		paging.TotalItems, _ = strconv.Atoi(m[1])
	}

	control.Find(`select[name="page"] option`).Each(func(_ int, opt *goquery.Selection) {
		value, ok := opt.Attr("value")
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return
		}
		paging.Pages = append(paging.Pages, n)
		if n > paging.Total {
			paging.Total = n
		}
	})

	paging.HasPrev = hasAnchor(control, prevLabels) && current > 1
	paging.HasNext = hasAnchor(control, nextLabels) && current < paging.Total

	if paging.HasPrev {
		paging.PrevPath = PagePath(requestPath, current-1)
		paging.PrevURL = e.Normalize(paging.PrevPath)
	}
	if paging.HasNext {
		paging.NextPath = PagePath(requestPath, current+1)
		paging.NextURL = e.Normalize(paging.NextPath)
	}

	return paging
}

func hasAnchor(control *goquery.Selection, labels []string) bool {
	found := false
	control.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := a.Text()
		for _, label := range labels {
			if strings.Contains(text, label) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
