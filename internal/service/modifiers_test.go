package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func sampleTables() ModifierTables {
	return ModifierTables{
		Geo: []models.GeoModifier{
			{ID: 1, Region: "Lombardia", CapPattern: strPtr("^20"), Multiplier: dec("1.10")},
			{ID: 2, Region: "Broken", CapPattern: strPtr("(["), Multiplier: dec("3")},
			{ID: 3, Region: "Lazio", CapPattern: strPtr("^00"), Multiplier: dec("1.05")},
			{ID: 4, Region: "Zero", CapPattern: strPtr("^9"), Multiplier: dec("0")},
		},
		Quality: []models.QualityModifier{
			{QualityTier: "economico", Multiplier: dec("0.85")},
			{QualityTier: "Premium", Multiplier: dec("1.30")},
		},
		Urgency: []models.UrgencyModifier{
			{UrgencyBand: "urgente", Multiplier: dec("1.20")},
			{UrgencyBand: "flessibile", Multiplier: dec("-1")},
		},
	}
}

func TestExtractPostalCode(t *testing.T) {
	postal, ok := ExtractPostalCode("Via Roma 1, 20121 Milano")
	if !ok || postal != "20121" {
		t.Fatalf("expected 20121, got %q %v", postal, ok)
	}
	if _, ok := ExtractPostalCode("Milano"); ok {
		t.Fatalf("expected no postal code")
	}
}

func TestResolveModifiersMatchesTables(t *testing.T) {
	mods := ResolveModifiers("Milano 20100", " premium ", "URGENTE", sampleTables())
	assertDecimal(t, "1.10", mods.Geographic)
	assertDecimal(t, "1.30", mods.Quality)
	assertDecimal(t, "1.20", mods.Urgency)
	assertDecimal(t, "1.716", mods.Product())
}

func TestResolveModifiersNeutralWhenUnresolved(t *testing.T) {
	mods := ResolveModifiers("Milano", "lusso", "", sampleTables())
	assertDecimal(t, "1", mods.Geographic)
	assertDecimal(t, "1", mods.Quality)
	assertDecimal(t, "1", mods.Urgency)
}

func TestResolveModifiersSkipsInvalidRows(t *testing.T) {
	mods := ResolveModifiers("90100 Palermo", "standard", "flessibile", sampleTables())
	assertDecimal(t, "1", mods.Geographic)
	assertDecimal(t, "1", mods.Urgency)

	mods = ResolveModifiers("00184 Roma", "economico", "", sampleTables())
	assertDecimal(t, "1.05", mods.Geographic)
	assertDecimal(t, "0.85", mods.Quality)
}

func TestResolveModifiersBlankPatternIsWildcard(t *testing.T) {
	tables := ModifierTables{Geo: []models.GeoModifier{
		{ID: 1, Region: "Lazio", CapPattern: strPtr("^00"), Multiplier: dec("1.05")},
		{ID: 2, Region: "Italia", Multiplier: dec("0.95")},
	}}
	mods := ResolveModifiers("10121 Torino", "", "", tables)
	assertDecimal(t, "0.95", mods.Geographic)
}
