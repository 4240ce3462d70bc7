package service

import (
	"sort"
	"strings"

	"github.com/ristrutturami/backend/internal/models"
)

const (
	CatalogRegional = "regional"
	CatalogNational = "national"
	CatalogAll      = "all"
	CatalogEmpty    = "empty"
)

// ResolveCatalog picks the price items applicable to geoHint: active regional
// pricelists matching the hint, else the national catalog, else every item of
// an active pricelist.
func ResolveCatalog(geoHint string, items []models.PriceItem) []models.PriceItem {
	out, _ := ResolveCatalogLayer(geoHint, items)
	return out
}

// ResolveCatalogLayer is ResolveCatalog that also names the layer used.
func ResolveCatalogLayer(geoHint string, items []models.PriceItem) ([]models.PriceItem, string) {
	hint := normalizeKey(geoHint)

	if hint != "" {
		regional := filterItems(items, func(p models.PriceItem) bool {
			return !p.IsNational() && p.Active && regionMatches(hint, p.Region)
		})
		if len(regional) > 0 {
			sort.SliceStable(regional, func(i, j int) bool {
				if regional[i].Priority == regional[j].Priority {
					return regional[i].Year > regional[j].Year
				}
				return regional[i].Priority > regional[j].Priority
			})
			return regional, CatalogRegional
		}
	}

	national := filterItems(items, func(p models.PriceItem) bool {
		return p.IsNational()
	})
	if len(national) > 0 {
		sortByPriority(national)
		return national, CatalogNational
	}

	// inactive pricelists never price anything, not even as a last resort
	all := filterItems(items, func(p models.PriceItem) bool {
		return p.IsNational() || p.Active
	})
	if len(all) == 0 {
		return []models.PriceItem{}, CatalogEmpty
	}
	sortByPriority(all)
	return all, CatalogAll
}

func regionMatches(hint string, region string) bool {
	r := normalizeKey(region)
	if r == "" {
		return false
	}
	return strings.Contains(r, hint) || strings.Contains(hint, r)
}

func sortByPriority(items []models.PriceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority > items[j].Priority
	})
}

func filterItems(items []models.PriceItem, keep func(models.PriceItem) bool) []models.PriceItem {
	out := make([]models.PriceItem, 0, len(items))
	for _, p := range items {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
