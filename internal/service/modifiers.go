package service

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

var postalCodePattern = regexp.MustCompile(`\d{5}`)

// ModifierTables is the read-only snapshot of the three lookup tables.
type ModifierTables struct {
	Geo     []models.GeoModifier
	Quality []models.QualityModifier
	Urgency []models.UrgencyModifier
}

// ExtractPostalCode returns the first 5-digit run in geo.
func ExtractPostalCode(geo string) (string, bool) {
	postal := postalCodePattern.FindString(geo)
	return postal, postal != ""
}

// ResolveModifiers never fails: anything it cannot resolve becomes 1.
func ResolveModifiers(geo, qualityTier, urgency string, tables ModifierTables) models.Modifiers {
	mods := models.NeutralModifiers()
	if postal, ok := ExtractPostalCode(geo); ok {
		if m, found := matchGeoModifier(postal, tables.Geo); found {
			mods.Geographic = m
		}
	}

	tier := normalizeKey(qualityTier)
	for _, q := range tables.Quality {
		if normalizeKey(q.QualityTier) == tier && q.Multiplier.IsPositive() {
			mods.Quality = q.Multiplier
			break
		}
	}

	band := normalizeKey(urgency)
	for _, u := range tables.Urgency {
		if normalizeKey(u.UrgencyBand) == band && u.Multiplier.IsPositive() {
			mods.Urgency = u.Multiplier
			break
		}
	}
	return mods
}

// matchGeoModifier walks rows in stored order; a blank pattern is a wildcard.
func matchGeoModifier(postal string, rows []models.GeoModifier) (decimal.Decimal, bool) {
	for _, row := range rows {
		if !row.Multiplier.IsPositive() {
			continue
		}
		if row.CapPattern == nil || strings.TrimSpace(*row.CapPattern) == "" {
			return row.Multiplier, true
		}
		re, err := regexp.Compile(strings.TrimSpace(*row.CapPattern))
		if err != nil {
			continue
		}
		if re.MatchString(postal) {
			return row.Multiplier, true
		}
	}
	return decimal.Decimal{}, false
}
