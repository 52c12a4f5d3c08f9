package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

const (
	DefaultBaseURL = "https://www.destockenligne.com"
	DefaultQtyMax  = 10
)

// Pricer turns raw price text into the multiplied value and its display string.
type Pricer interface {
	Parse(raw string) (decimal.Decimal, string)
}

// Overrides applies manual corrections to extracted records. Both methods
// return false when the record must be dropped.
type Overrides interface {
	ApplySummary(p *models.ProductSummary) bool
	ApplyDetail(d *models.ProductDetail) bool
}

type Options struct {
	BaseURL string
	QtyMax  int
}

// Extractor walks parsed storefront markup. It never fails: missing or
// malformed markup yields empty values.
type Extractor struct {
	baseURL   string
	qtyMax    int
	prices    Pricer
	overrides Overrides
	logger    *slog.Logger
}

func NewExtractor(opts Options, prices Pricer, overrides Overrides, logger *slog.Logger) *Extractor {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.QtyMax < 1 {
		opts.QtyMax = DefaultQtyMax
	}
	if overrides == nil {
		overrides = noOverrides{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		baseURL:   opts.BaseURL,
		qtyMax:    opts.QtyMax,
		prices:    prices,
		overrides: overrides,
		logger:    logger.With("component", "extractor"),
	}
}

// BaseURL returns the site root hrefs are resolved against.
func (e *Extractor) BaseURL() string {
	return e.baseURL
}

// Normalize resolves href against the extractor's site root.
func (e *Extractor) Normalize(href string) string {
	return NormalizeHref(href, e.baseURL)
}

// NewDocument parses markup. Unparsable input gives an empty document.
func NewDocument(markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

type noOverrides struct{}

func (noOverrides) ApplySummary(*models.ProductSummary) bool { return true }
func (noOverrides) ApplyDetail(*models.ProductDetail) bool   { return true }

func cleanText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// textLines joins the non-empty text nodes under s with newlines.
func textLines(s *goquery.Selection) string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

func appendUnique(dst []string, seen map[string]bool, values ...string) []string {
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}
