package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ristrutturami/backend/internal/models"
)

const minKeywordLength = 4

// ScopeText flattens the scope document into one lowercase blob. The scope
// has no fixed schema, so matching works on the serialised text.
func ScopeText(scope models.ScopeDocument) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(scope); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(buf.String())), nil
}

// Keywords returns the lowercased match terms of an item, deduplicated and
// in a stable order: code, category, then description words.
func Keywords(item models.PriceItem) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(k string) {
		k = normalizeKey(k)
		if utf8.RuneCountInString(k) < minKeywordLength {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	add(item.ItemCode)
	add(item.Category)
	for _, w := range strings.FieldsFunc(item.Description, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		add(w)
	}
	return out
}

// MatchItems prices every catalog item mentioned in the scope. The first item
// carrying a given code wins, so catalog order decides between duplicates.
func MatchItems(scope models.ScopeDocument, catalog []models.PriceItem, mods models.Modifiers, quantity QuantityStrategy) ([]models.LineItem, error) {
	blob, err := ScopeText(scope)
	if err != nil {
		return nil, err
	}
	if quantity == nil {
		quantity = MeasurementQuantity{}
	}
	return matchText(blob, catalog, mods, quantity), nil
}

func matchText(blob string, catalog []models.PriceItem, mods models.Modifiers, quantity QuantityStrategy) []models.LineItem {
	factor := mods.Product()
	seen := map[string]struct{}{}
	out := []models.LineItem{}
	for _, item := range catalog {
		code := normalizeKey(item.ItemCode)
		if _, dup := seen[code]; dup {
			continue
		}
		keyword, ok := firstMention(blob, Keywords(item))
		if !ok {
			continue
		}
		seen[code] = struct{}{}

		qty := quantity.Quantity(blob, item, keyword)
		unitPrice := item.BasePriceEUR.Mul(factor).Round(2)
		out = append(out, models.LineItem{
			ItemCode:       item.ItemCode,
			Description:    item.Description,
			Unit:           item.Unit,
			Quantity:       qty,
			UnitPrice:      unitPrice,
			Total:          unitPrice.Mul(qty).Round(2),
			MatchedKeyword: keyword,
		})
	}
	return out
}

func firstMention(blob string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(blob, k) {
			return k, true
		}
	}
	return "", false
}
