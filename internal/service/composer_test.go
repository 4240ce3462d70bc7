package service

import (
	"strings"
	"testing"

	"github.com/ristrutturami/backend/internal/models"
)

func pricedLine(code, total string) models.LineItem {
	return models.LineItem{ItemCode: code, Quantity: dec("1"), UnitPrice: dec(total), Total: dec(total)}
}

func quotes(totals ...string) []models.HistoricalQuote {
	out := make([]models.HistoricalQuote, 0, len(totals))
	for i, t := range totals {
		out = append(out, models.HistoricalQuote{ID: int64(i + 1), TotalEUR: dec(t)})
	}
	return out
}

func guardSettings(pct string, confidence int) models.AISettings {
	return models.AISettings{UseStorici: true, GuardRailPct: dec(pct), DefaultConfidence: confidence, MaxNeighbors: 10}
}

func assertRange(t *testing.T, res models.EstimateResult, base, lo, hi string) {
	t.Helper()
	if !res.BaseCost.Equal(dec(base)) || !res.MinEstimate.Equal(dec(lo)) || !res.MaxEstimate.Equal(dec(hi)) {
		t.Fatalf("expected %s [%s, %s], got %s [%s, %s]", base, lo, hi, res.BaseCost, res.MinEstimate, res.MaxEstimate)
	}
}

func assertConfidence(t *testing.T, want int, res models.EstimateResult) {
	t.Helper()
	if res.Confidence != want {
		t.Fatalf("expected confidence %d, got %d", want, res.Confidence)
	}
}

func TestComposeEstimateEmptyUsesDefaultLine(t *testing.T) {
	res := ComposeEstimate(nil, models.NeutralModifiers(), models.DefaultAISettings(), nil)
	if !res.Success {
		t.Fatalf("expected success")
	}
	if len(res.LineItems) != 1 || res.LineItems[0].ItemCode != DefaultItemCode {
		t.Fatalf("expected the default line only, got %+v", res.LineItems)
	}
	assertRange(t, res, "5000", "4000", "6000")
	assertConfidence(t, 75, res)
	if res.Notes == "" {
		t.Fatalf("expected a note about the default line")
	}
	if res.GuardRail != nil {
		t.Fatalf("expected no guard-rail, got %+v", res.GuardRail)
	}
}

func TestComposeEstimateDefaultLineCarriesModifiers(t *testing.T) {
	mods := models.NeutralModifiers()
	mods.Geographic = dec("1.10")
	mods.Quality = dec("1.20")
	res := ComposeEstimate([]models.LineItem{}, mods, models.DefaultAISettings(), nil)
	assertRange(t, res, "6600", "5280", "7920")
}

func TestComposeEstimateZeroTotalsGetDefaultLine(t *testing.T) {
	res := ComposeEstimate([]models.LineItem{pricedLine("FREE_001", "0")}, models.NeutralModifiers(), models.DefaultAISettings(), nil)
	if len(res.LineItems) != 2 || res.LineItems[1].ItemCode != DefaultItemCode {
		t.Fatalf("expected the default line appended, got %+v", res.LineItems)
	}
	assertRange(t, res, "5000", "4000", "6000")
}

func TestComposeEstimateRoundsToWholeEuros(t *testing.T) {
	res := ComposeEstimate([]models.LineItem{pricedLine("A", "1000.50"), pricedLine("B", "234.06")}, models.NeutralModifiers(), models.DefaultAISettings(), nil)
	assertRange(t, res, "1235", "988", "1481")
}

func TestComposeEstimateGuardRailTightensRange(t *testing.T) {
	res := ComposeEstimate([]models.LineItem{pricedLine("A", "10000")}, models.NeutralModifiers(), guardSettings("10", 75), quotes("8000", "10000"))
	assertRange(t, res, "10000", "8100", "9900")
	g := res.GuardRail
	if g == nil || !g.Applied || g.Neighbors != 2 {
		t.Fatalf("expected an applied guard-rail over 2 quotes, got %+v", g)
	}
	assertDecimal(t, "9000", g.Mean)
	// base sits on the band edge, so no boost
	assertConfidence(t, 75, res)
}

func TestComposeEstimateGuardRailBoostsConfidence(t *testing.T) {
	res := ComposeEstimate([]models.LineItem{pricedLine("A", "10000")}, models.NeutralModifiers(), guardSettings("10", 75), quotes("10000"))
	assertRange(t, res, "10000", "9000", "11000")
	assertConfidence(t, 85, res)

	res = ComposeEstimate([]models.LineItem{pricedLine("A", "10000")}, models.NeutralModifiers(), guardSettings("10", 90), quotes("10000"))
	assertConfidence(t, 95, res)
}

func TestComposeEstimateDisjointHistoryKeepsDefaultRange(t *testing.T) {
	res := ComposeEstimate([]models.LineItem{pricedLine("A", "10000")}, models.NeutralModifiers(), guardSettings("10", 75), quotes("2000"))
	assertRange(t, res, "10000", "8000", "12000")
	if res.GuardRail == nil || res.GuardRail.Applied {
		t.Fatalf("expected a reported but unapplied guard-rail, got %+v", res.GuardRail)
	}
	if !strings.Contains(res.Notes, "Storico non compatibile") {
		t.Fatalf("expected disjoint history note, got %q", res.Notes)
	}
	assertConfidence(t, 75, res)
}

func TestComposeEstimateIgnoresHistoryWhenDisabled(t *testing.T) {
	settings := guardSettings("10", 75)
	settings.UseStorici = false
	res := ComposeEstimate([]models.LineItem{pricedLine("A", "10000")}, models.NeutralModifiers(), settings, quotes("10000"))
	assertRange(t, res, "10000", "8000", "12000")
	if res.GuardRail != nil {
		t.Fatalf("expected no guard-rail, got %+v", res.GuardRail)
	}
}

func TestComposeEstimateLimitsNeighbors(t *testing.T) {
	settings := guardSettings("10", 75)
	settings.MaxNeighbors = 1
	res := ComposeEstimate([]models.LineItem{pricedLine("A", "10000")}, models.NeutralModifiers(), settings, quotes("10000", "50000"))
	if res.GuardRail == nil || res.GuardRail.Neighbors != 1 {
		t.Fatalf("expected one neighbor, got %+v", res.GuardRail)
	}
	assertDecimal(t, "10000", res.GuardRail.Mean)
}

func TestComposeEstimateClampsConfidence(t *testing.T) {
	settings := models.DefaultAISettings()
	settings.DefaultConfidence = 120
	assertConfidence(t, 95, ComposeEstimate(nil, models.NeutralModifiers(), settings, nil))
	settings.DefaultConfidence = -5
	assertConfidence(t, 0, ComposeEstimate(nil, models.NeutralModifiers(), settings, nil))
}

func TestComposeEstimateRangeContainsBase(t *testing.T) {
	cases := [][]models.HistoricalQuote{nil, quotes("9500"), quotes("1000"), quotes("30000", "31000")}
	for i, history := range cases {
		res := ComposeEstimate([]models.LineItem{pricedLine("A", "10000")}, models.NeutralModifiers(), guardSettings("15", 75), history)
		if res.MinEstimate.GreaterThan(res.MaxEstimate) {
			t.Fatalf("case %d: min %s above max %s", i, res.MinEstimate, res.MaxEstimate)
		}
		if res.Confidence < 0 || res.Confidence > 95 {
			t.Fatalf("case %d: confidence %d out of bounds", i, res.Confidence)
		}
	}
}
