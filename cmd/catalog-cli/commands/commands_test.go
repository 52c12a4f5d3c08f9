package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/maltedev/storefront-scraper/internal/catalog"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	lastPath string
	lastPage int
}

func (f *fakeCatalog) ListCategories(context.Context) *models.Categories {
	return &models.Categories{
		Headers: []string{"Homme"},
		Brands:  []models.Brand{{Title: "Nike", Path: "/Nike-Homme-c1.html", Header: "Homme"}},
	}
}

func (f *fakeCatalog) ListCategoryProducts(_ context.Context, path string, page int) catalog.CategoryPage {
	f.lastPath, f.lastPage = path, page
	return catalog.CategoryPage{
		Products: []models.ProductSummary{{Name: "Air Max 90", Path: "/air-max-90.html", NewPrice: "€ 99.80"}},
		Paging:   models.Pagination{Current: page, Total: 3, HasNext: true, NextPath: "/Nike-c1_3.html"},
	}
}

func (f *fakeCatalog) GetProductPage(_ context.Context, path string, page int) models.ProductDetail {
	f.lastPath, f.lastPage = path, page
	if path == "/gone.html" {
		return models.ProductDetail{Path: path}
	}
	return models.ProductDetail{
		Path:       path,
		Title:      "Air Max 90",
		NewPrice:   "€ 99.80",
		Sizes:      []string{"41", "42"},
		QtyOptions: []int{1, 2, 3},
	}
}

func (f *fakeCatalog) Search(_ context.Context, query string) []models.ProductSummary {
	f.lastPath = query
	return []models.ProductSummary{{Name: "Nike Air Max", Path: "/nike-air-max.html"}}
}

func (f *fakeCatalog) GenderSections(context.Context) map[string][]models.NavLink {
	return map[string][]models.NavLink{
		"homme": {{Title: "Running", Path: "/Running-c7.html"}},
		"femme": {{Title: "Sandales", Path: "/Sandales-c8.html"}},
	}
}

func (f *fakeCatalog) HomeProducts(_ context.Context, gender string) []models.ProductSummary {
	f.lastPath = gender
	return []models.ProductSummary{{Name: "Cortez"}}
}

func run(t *testing.T, args ...string) (*fakeCatalog, string, error) {
	t.Helper()

	fake := &fakeCatalog{}
	original := openCatalog
	openCatalog = func(*slog.Logger) (Catalog, func(), error) {
		return fake, func() {}, nil
	}
	t.Cleanup(func() {
		openCatalog = original
		flagJSON, flagVerbose, flagPage = false, false, 1
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return fake, out.String(), err
}

func TestCategoriesCommand(t *testing.T) {
	_, out, err := run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Nike")
	assert.Contains(t, out, "/Nike-Homme-c1.html")
}

func TestCategoryCommand(t *testing.T) {
	fake, out, err := run(t, "category", "https://www.destockenligne.com/Nike-c1.html", "--page", "2")
	require.NoError(t, err)
	assert.Equal(t, "/Nike-c1.html", fake.lastPath)
	assert.Equal(t, 2, fake.lastPage)
	assert.Contains(t, out, "Air Max 90")
	assert.Contains(t, out, "€ 99.80")
	assert.Contains(t, out, "/Nike-c1_3.html")
}

func TestProductCommand(t *testing.T) {
	_, out, err := run(t, "product", "/air-max-90.html")
	require.NoError(t, err)
	assert.Contains(t, out, "41, 42")
	assert.Contains(t, out, "1-3")

	_, _, err = run(t, "product", "/gone.html")
	assert.ErrorContains(t, err, "no product found")
}

func TestSearchCommand_JSON(t *testing.T) {
	fake, out, err := run(t, "search", "nike", "air", "--json")
	require.NoError(t, err)
	assert.Equal(t, "nike air", fake.lastPath)

	var products []models.ProductSummary
	require.NoError(t, json.Unmarshal([]byte(out), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Nike Air Max", products[0].Name)
}

func TestHomeAndSectionsCommands(t *testing.T) {
	fake, out, err := run(t, "home")
	require.NoError(t, err)
	assert.Equal(t, "all", fake.lastPath)
	assert.Contains(t, out, "Cortez")

	fake, _, err = run(t, "home", "femme")
	require.NoError(t, err)
	assert.Equal(t, "femme", fake.lastPath)

	_, out, err = run(t, "sections")
	require.NoError(t, err)
	assert.Contains(t, out, "Running")
	assert.Contains(t, out, "Sandales")
}

func TestOverridesCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "overrides.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		// hidden for stock reasons
		"/shoe-1.html": {hidden: true},
		"/shoe-2.html": {price: "€ 40.00", images: ["a.jpg"]},
	}`), 0o644))

	_, out, err := run(t, "overrides", file)
	require.NoError(t, err)
	assert.Contains(t, out, "/shoe-1.html")
	assert.Contains(t, out, "€ 40.00")

	require.NoError(t, os.WriteFile(file, []byte(`{broken`), 0o644))
	_, _, err = run(t, "overrides", file)
	assert.Error(t, err)
}

func TestJoinInts(t *testing.T) {
	assert.Equal(t, "", joinInts(nil))
	assert.Equal(t, "1-10", joinInts([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
}
