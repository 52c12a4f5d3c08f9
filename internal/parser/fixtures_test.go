package parser

import (
	"io"
	"log/slog"

	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/shopspring/decimal"
)

const categoryPageHTML = `<!DOCTYPE html>
<html>
<head><title>Chaussures Homme</title></head>
<body>
	<div id="bar">
		<a href="/">Accueil</a> &gt;
		<script>var tracking = "<a href='/bad.html'>bad</a>";</script>
		<a href="/Chaussures-Homme-c100.html">Chaussures Homme</a> &gt;
		<b>Nike Air Max</b>
	</div>
	<ul class="re00">
		<li class="hw1"><img src="/pic/shoe-1.jpg"></li>
		<li class="hw2">
			<a href="/shoe-1.html">Nike Air Max 90</a>
			<s>120,00 €</s>
			<span>49,90 €</span>
			<span>Economie 70 €</span>
		</li>
	</ul>
	<ul class="re00">
		<li class="hw1"><img src="https://cdn.example.com/shoe-2.jpg"></li>
		<li class="hw2">
			<a href="shoe-2.html">Nike Air Max 95</a>
			<span>59.00 €</span>
			<span>-40%</span>
		</li>
	</ul>
	<ul class="re00">
		<li class="hw1"><img src="/pic/broken.jpg"></li>
		<li class="hw2"><span>10,00 €</span></li>
	</ul>
	<div id="showpage">
		Total <font color="red">42</font> items
		<a href="/Chaussures-Homme-c100_1.html">Prev</a>
		<select name="page">
			<option value="1">1</option>
			<option value="2" selected>2</option>
			<option value="3">3</option>
		</select>
		<a href="/Chaussures-Homme-c100_3.html">Next</a>
	</div>
</body>
</html>`

const productPageHTML = `<!DOCTYPE html>
<html>
<head><title>Nike Air Max Plus 2025</title></head>
<body>
	<div id="bar">
		<a href="/">Accueil</a> &gt;
		<a href="/Nike-c200.html">Nike</a> &gt;
		<b>Nike Air Max Plus 2025</b>
	</div>
	<div id="prohref">
		<a href="https://www.destockenligne.com/Nike-TN-c300.html?sort=new" title="Nike TN"><img src="/pic/tn.jpg"></a>
		<a href="/Adidas-c301.html">Adidas</a>
	</div>
	<div class="h_name"> - Nike Air Max Plus 2025</div>
	<div class="views_pics">
		<img src="/pic/main.jpg">
		<img src="/pic/side.jpg">
		<img src="/pic/main.jpg">
	</div>
	<s>189,00 €</s>
	<b style="color:red">79,50 €</b>
	<select name="hw_sizeone">
		<option value="">Taille</option>
		<option value="Taille">Taille</option>
		<option value="41">41</option>
		<option value="42">42</option>
	</select>
	<div id="Content">
		<div class="con_bot">
			<p>Dessus en cuir.</p>
			<p>Semelle Air.</p>
		</div>
	</div>
	<ul class="re00">
		<li class="hw1"><img src="/pic/rel-1.jpg"></li>
		<li class="hw2"><a href="/related-1.html">Related One</a><span>30,00 €</span></li>
	</ul>
	<ul class="re00">
		<li class="hw1"><img src="/pic/rel-2.jpg"></li>
		<li class="hw2"><a href="/related-2.html">Related Two</a><span>35,00 €</span></li>
	</ul>
</body>
</html>`

const homePageHTML = `<html><body>
<div class="sideBar_left">
	<div class="block">
		<div class="insort0">Homme</div>
		<div class="insort1"><a href="/Nike-Homme-c1.html">Nike</a></div>
		<div class="insort1"><a href="/Adidas-Homme-c2.html">Adidas</a></div>
	</div>
	<div class="block">
		<div class="insort0">Femme</div>
		<div class="insort1"><a href="/Nike-Femme-c3.html">Nike</a><a href="">Empty</a></div>
	</div>
</div>
</body></html>`

// countingPricer records how often each raw string is parsed.
type countingPricer struct {
	inner Pricer
	calls map[string]int
}

func newCountingPricer(multiplier float64) *countingPricer {
	return &countingPricer{
		inner: NewPriceParser(decimal.NewFromFloat(multiplier)),
		calls: make(map[string]int),
	}
}

func (c *countingPricer) Parse(raw string) (decimal.Decimal, string) {
	c.calls[raw]++
	return c.inner.Parse(raw)
}

// mapOverrides is a minimal stand-in for the override store.
type mapOverrides struct {
	hidden map[string]bool
	prices map[string]string
}

func (m mapOverrides) ApplySummary(p *models.ProductSummary) bool {
	if m.hidden[p.Path] {
		return false
	}
	if price, ok := m.prices[p.Path]; ok {
		p.NewPrice = price
	}
	return true
}

func (m mapOverrides) ApplyDetail(d *models.ProductDetail) bool {
	if m.hidden[d.Path] {
		return false
	}
	if price, ok := m.prices[d.Path]; ok {
		d.NewPrice = price
	}
	return true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExtractor(multiplier float64, overrides Overrides) (*Extractor, *countingPricer) {
	pricer := newCountingPricer(multiplier)
	return NewExtractor(Options{BaseURL: DefaultBaseURL}, pricer, overrides, testLogger()), pricer
}
