package overrides

import (
	"strings"

	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
)

// ApplySummary applies the rule for p.Path to a listing record. It returns
// false when the product is hidden. An override price replaces the display
// string only; PriceValue keeps the scraped, already multiplied value.
func (s *Store) ApplySummary(p *models.ProductSummary) bool {
	rule, ok := s.Lookup(p.Path)
	if !ok {
		return true
	}
	if rule.Hidden {
		return false
	}

	if rule.Price != nil {
		p.NewPrice = *rule.Price
	}
	if images := s.resolveImages(rule.Images); len(images) > 0 {
		p.Image = images[0]
	} else if rule.Image != nil {
		p.Image = s.ResolveImage(*rule.Image)
	}
	return true
}

// ApplyDetail applies the rule for d.Path to a product page. The first
// override image becomes the main image; the rest lead the thumbnails,
// followed by the scraped ones they do not already contain.
func (s *Store) ApplyDetail(d *models.ProductDetail) bool {
	rule, ok := s.Lookup(d.Path)
	if !ok {
		return true
	}
	if rule.Hidden {
		return false
	}

	if rule.Price != nil {
		d.NewPrice = *rule.Price
	}
	if images := s.resolveImages(rule.Images); len(images) > 0 {
		d.MainImg = images[0]
		d.Thumbnails = mergeImages(images[1:], d.Thumbnails)
	} else if rule.Image != nil {
		d.MainImg = s.ResolveImage(*rule.Image)
	}
	return true
}

// ResolveImage maps a bare filename onto the static asset prefix. URLs and
// absolute paths are returned unchanged.
func (s *Store) ResolveImage(image string) string {
	image = strings.TrimSpace(image)
	if image == "" || parser.IsAbsolute(image) || strings.HasPrefix(image, "/") {
		return image
	}
	return strings.TrimRight(s.imagePrefix, "/") + "/" + image
}

func (s *Store) resolveImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if r := s.ResolveImage(img); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func mergeImages(first, rest []string) []string {
	merged := make([]string, 0, len(first)+len(rest))
	seen := make(map[string]bool, len(first)+len(rest))
	for _, list := range [][]string{first, rest} {
		for _, img := range list {
			if img == "" || seen[img] {
				continue
			}
			seen[img] = true
			merged = append(merged, img)
		}
	}
	return merged
}
