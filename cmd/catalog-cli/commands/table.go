package commands

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maltedev/storefront-scraper/internal/models"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderProducts(w io.Writer, products []models.ProductSummary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Name", "Price", "Was", "Economy", "Path"})
	for i, p := range products {
		t.AppendRow(table.Row{i + 1, p.Name, p.NewPrice, p.OldPrice, p.Economy, p.Path})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(products)})
	t.Render()
}

func renderPaging(w io.Writer, paging models.Pagination) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Page", "Of", "Previous", "Next"})
	t.AppendRow(table.Row{paging.Current, paging.Total, paging.PrevPath, paging.NextPath})
	t.Render()
}

func renderCategories(w io.Writer, categories *models.Categories) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Section", "Brand", "Path"})
	for _, b := range categories.Brands {
		t.AppendRow(table.Row{b.Header, b.Title, b.Path})
	}
	t.Render()
}

func renderSections(w io.Writer, sections map[string][]models.NavLink) {
	genders := make([]string, 0, len(sections))
	for g := range sections {
		genders = append(genders, g)
	}
	sort.Strings(genders)

	t := newTable(w)
	t.AppendHeader(table.Row{"Audience", "Link", "Path"})
	for _, g := range genders {
		for _, link := range sections[g] {
			t.AppendRow(table.Row{g, link.Title, link.Path})
		}
	}
	t.Render()
}

func renderDetail(w io.Writer, d models.ProductDetail) {
	t := newTable(w)
	t.AppendRow(table.Row{"Title", d.Title})
	t.AppendRow(table.Row{"Path", d.Path})
	t.AppendRow(table.Row{"Price", d.NewPrice})
	if d.OldPrice != "" {
		t.AppendRow(table.Row{"Was", d.OldPrice})
	}
	t.AppendRow(table.Row{"Sizes", strings.Join(d.Sizes, ", ")})
	t.AppendRow(table.Row{"Quantities", joinInts(d.QtyOptions)})
	t.AppendRow(table.Row{"Image", d.MainImg})
	t.AppendRow(table.Row{"Thumbnails", len(d.Thumbnails)})
	t.AppendRow(table.Row{"Related", len(d.Related)})
	t.Render()
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return ""
	}
	return strconv.Itoa(values[0]) + "-" + strconv.Itoa(values[len(values)-1])
}
