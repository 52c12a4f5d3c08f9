package models

import (
	"github.com/shopspring/decimal"
)

// ProductSummary is one product as it appears in a category listing.
// PriceValue and NewPrice come out of the same price parse; an override
// price replaces NewPrice only.
type ProductSummary struct {
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	URL        string          `json:"url"`
	Image      string          `json:"image,omitempty"`
	OldPrice   string          `json:"old_price"`
	NewPrice   string          `json:"new_price"`
	PriceValue decimal.Decimal `json:"price_value"`
	Economy    string          `json:"economy"`
}

type Pagination struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	HasPrev     bool   `json:"has_prev"`
	HasNext     bool   `json:"has_next"`
	PrevPath    string `json:"prev_path,omitempty"`
	NextPath    string `json:"next_path,omitempty"`
	PrevURL     string `json:"prev_url,omitempty"`
	NextURL     string `json:"next_url,omitempty"`
	Pages       []int  `json:"pages,omitempty"`
	TotalItems  int    `json:"total_items"`
	DisplayText string `json:"display_text,omitempty"`
}

// NewPagination returns the paging record used when a page could not be read.
func NewPagination(current int) Pagination {
	if current < 1 {
		current = 1
	}
	return Pagination{
		Current: current,
		Total:   1,
	}
}

type Crumb struct {
	Text string `json:"text"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// NavLink is a quick link from the site's product shortcut bar.
type NavLink struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	URL   string `json:"url,omitempty"`
	Image string `json:"image,omitempty"`
}

// UntitledProduct stands in for the title of a product page that has none.
const UntitledProduct = "Produit sans nom"

type ProductDetail struct {
	IsCategory bool   `json:"is_category"`
	Path       string `json:"path"`
	URL        string `json:"url"`

	Title       string           `json:"title,omitempty"`
	MainImg     string           `json:"main_img,omitempty"`
	Thumbnails  []string         `json:"thumbnails,omitempty"`
	OldPrice    string           `json:"old_price,omitempty"`
	NewPrice    string           `json:"new_price,omitempty"`
	PriceValue  decimal.Decimal  `json:"price_value"`
	Sizes       []string         `json:"sizes,omitempty"`
	QtyOptions  []int            `json:"qty_options,omitempty"`
	Description string           `json:"description,omitempty"`
	Related     []ProductSummary `json:"related,omitempty"`

	CategoryTitle string           `json:"category_title,omitempty"`
	Products      []ProductSummary `json:"products,omitempty"`
	Paging        *Pagination      `json:"paging,omitempty"`

	Breadcrumb []Crumb   `json:"breadcrumb"`
	NavLinks   []NavLink `json:"nav_links"`
}

// Empty reports whether the detail carries nothing worth rendering.
func (d *ProductDetail) Empty() bool {
	if d == nil {
		return true
	}
	if d.IsCategory {
		return len(d.Products) == 0 && d.CategoryTitle == ""
	}
	untitled := d.Title == "" || d.Title == UntitledProduct
	return untitled && d.MainImg == "" && d.NewPrice == ""
}

type Brand struct {
	Title  string `json:"title"`
	Path   string `json:"path"`
	Header string `json:"header"`
}

type Categories struct {
	Headers []string `json:"headers"`
	Brands  []Brand  `json:"brands"`
}

func NewCategories() *Categories {
	return &Categories{
		Headers: make([]string, 0),
		Brands:  make([]Brand, 0),
	}
}

// OverrideRule is a manual correction keyed by catalog path.
type OverrideRule struct {
	Hidden bool     `json:"hidden,omitempty"`
	Price  *string  `json:"price,omitempty"`
	Image  *string  `json:"image,omitempty"`
	Images []string `json:"images,omitempty"`
}
