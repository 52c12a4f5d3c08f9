package overrides

import (
	"testing"

	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<ul class="re00">
	<li class="hw1"><img src="/pic/shoe-1.jpg"></li>
	<li class="hw2"><a href="/shoe-1.html">Shoe One</a><span>49,90 €</span></li>
</ul>
<ul class="re00">
	<li class="hw1"><img src="/pic/shoe-2.jpg"></li>
	<li class="hw2"><a href="/shoe-2.html">Shoe Two</a><span>20,00 €</span></li>
</ul>
</body></html>`

const productHTML = `<html><body>
<div class="h_name">Shoe Two</div>
<div class="views_pics"><img src="/pic/a.jpg"><img src="/pic/b.jpg"></div>
<b style="color:red">20,00 €</b>
</body></html>`

func newStore(t *testing.T, table Table) *Store {
	t.Helper()
	store := NewStore("", "/static/images/", testLogger())
	store.Replace(table)
	return store
}

func TestResolveImage(t *testing.T) {
	store := newStore(t, nil)

	assert.Equal(t, "/static/images/shoe.jpg", store.ResolveImage("shoe.jpg"))
	assert.Equal(t, "/static/images/sub/shoe.jpg", store.ResolveImage(" sub/shoe.jpg "))
	assert.Equal(t, "/uploads/shoe.jpg", store.ResolveImage("/uploads/shoe.jpg"))
	assert.Equal(t, "https://cdn.example.com/s.jpg", store.ResolveImage("https://cdn.example.com/s.jpg"))
	assert.Empty(t, store.ResolveImage(""))
}

func TestApplySummary(t *testing.T) {
	store := newStore(t, Table{
		"/hidden.html": {Hidden: true},
		"/priced.html": {Price: strPtr("€ 12.00"), Image: strPtr("single.jpg")},
		"/multi.html":  {Image: strPtr("ignored.jpg"), Images: []string{"", "first.jpg", "second.jpg"}},
	})

	t.Run("no rule leaves record alone", func(t *testing.T) {
		p := models.ProductSummary{Path: "/plain.html", NewPrice: "€ 10.00", Image: "x.jpg"}
		assert.True(t, store.ApplySummary(&p))
		assert.Equal(t, "€ 10.00", p.NewPrice)
		assert.Equal(t, "x.jpg", p.Image)
	})

	t.Run("hidden", func(t *testing.T) {
		p := models.ProductSummary{Path: "/hidden.html"}
		assert.False(t, store.ApplySummary(&p))
	})

	t.Run("price replaces display only", func(t *testing.T) {
		p := models.ProductSummary{Path: "/priced.html", NewPrice: "€ 99.80", PriceValue: decimal.RequireFromString("99.80")}
		assert.True(t, store.ApplySummary(&p))
		assert.Equal(t, "€ 12.00", p.NewPrice)
		assert.True(t, decimal.RequireFromString("99.80").Equal(p.PriceValue))
		assert.Equal(t, "/static/images/single.jpg", p.Image)
	})

	t.Run("images list wins over single image", func(t *testing.T) {
		p := models.ProductSummary{Path: "/multi.html"}
		assert.True(t, store.ApplySummary(&p))
		assert.Equal(t, "/static/images/first.jpg", p.Image)
	})
}

func TestApplyDetail(t *testing.T) {
	store := newStore(t, Table{
		"/multi.html":  {Images: []string{"main.jpg", "https://cdn.example.com/scraped-2.jpg", "extra.jpg"}},
		"/single.html": {Image: strPtr("main.jpg"), Price: strPtr("€ 5.00")},
		"/hidden.html": {Hidden: true},
	})
	scraped := []string{"https://cdn.example.com/scraped-1.jpg", "https://cdn.example.com/scraped-2.jpg"}

	t.Run("images replace main and lead thumbnails", func(t *testing.T) {
		d := models.ProductDetail{Path: "/multi.html", MainImg: "https://cdn.example.com/orig.jpg", Thumbnails: scraped}
		assert.True(t, store.ApplyDetail(&d))
		assert.Equal(t, "/static/images/main.jpg", d.MainImg)
		assert.Equal(t, []string{
			"https://cdn.example.com/scraped-2.jpg",
			"/static/images/extra.jpg",
			"https://cdn.example.com/scraped-1.jpg",
		}, d.Thumbnails)
	})

	t.Run("single image keeps thumbnails", func(t *testing.T) {
		d := models.ProductDetail{Path: "/single.html", Thumbnails: scraped, PriceValue: decimal.NewFromInt(40)}
		assert.True(t, store.ApplyDetail(&d))
		assert.Equal(t, "/static/images/main.jpg", d.MainImg)
		assert.Equal(t, scraped, d.Thumbnails)
		assert.Equal(t, "€ 5.00", d.NewPrice)
		assert.True(t, decimal.NewFromInt(40).Equal(d.PriceValue))
	})

	t.Run("hidden", func(t *testing.T) {
		d := models.ProductDetail{Path: "/hidden.html"}
		assert.False(t, store.ApplyDetail(&d))
	})
}

func TestStore_WithExtractor(t *testing.T) {
	store := newStore(t, Table{
		"/shoe-1.html": {Hidden: true},
		"/shoe-2.html": {Price: strPtr("€ 19.00"), Images: []string{"two.jpg"}},
	})
	e := parser.NewExtractor(parser.Options{}, parser.NewPriceParser(decimal.NewFromInt(2)), store, testLogger())

	products := e.ExtractProducts(parser.NewDocument(listingHTML))
	require.Len(t, products, 1)
	assert.Equal(t, "/shoe-2.html", products[0].Path)
	assert.Equal(t, "€ 19.00", products[0].NewPrice)
	assert.True(t, decimal.NewFromInt(40).Equal(products[0].PriceValue))
	assert.Equal(t, "/static/images/two.jpg", products[0].Image)

	detail := e.ExtractDetail(parser.NewDocument(productHTML), "/shoe-2.html", 1)
	assert.Equal(t, "€ 19.00", detail.NewPrice)
	assert.Equal(t, "/static/images/two.jpg", detail.MainImg)
	assert.Equal(t, []string{parser.DefaultBaseURL + "/pic/b.jpg"}, detail.Thumbnails)

	hidden := e.ExtractDetail(parser.NewDocument(productHTML), "/shoe-1.html", 1)
	assert.True(t, hidden.Empty())
}
