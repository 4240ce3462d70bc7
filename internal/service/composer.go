package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

const (
	DefaultItemCode        = "DEFAULT_001"
	DefaultItemDescription = "Lavori di ristrutturazione generici"
	DefaultItemUnit        = "corpo"

	confidenceBoost = 10
	maxConfidence   = 95
)

var (
	defaultItemBase = decimal.NewFromInt(5000)
	rangeLowFactor  = decimal.RequireFromString("0.8")
	rangeHighFactor = decimal.RequireFromString("1.2")
	hundred         = decimal.NewFromInt(100)
)

// DefaultLineItem is the generic line used when nothing in the catalog matched.
func DefaultLineItem(mods models.Modifiers) models.LineItem {
	unitPrice := defaultItemBase.Mul(mods.Product()).Round(2)
	return models.LineItem{
		ItemCode:    DefaultItemCode,
		Description: DefaultItemDescription,
		Unit:        DefaultItemUnit,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   unitPrice,
		Total:       unitPrice,
	}
}

// ComposeEstimate turns priced lines into a range with a confidence score.
// history is only consulted when settings enable the guard-rail.
func ComposeEstimate(lines []models.LineItem, mods models.Modifiers, settings models.AISettings, history []models.HistoricalQuote) models.EstimateResult {
	var notes []string
	base := decimal.Zero
	for _, l := range lines {
		base = base.Add(l.Total)
	}
	// a zero total is never shown: empty or zero-priced matches get the generic line
	if !base.IsPositive() {
		def := DefaultLineItem(mods)
		lines = append(append([]models.LineItem(nil), lines...), def)
		base = base.Add(def.Total)
		notes = append(notes, "Nessuna voce di listino valorizzata: applicata voce generica.")
	}
	minEst := base.Mul(rangeLowFactor)
	maxEst := base.Mul(rangeHighFactor)
	confidence := clampConfidence(settings.DefaultConfidence)

	var guard *models.GuardRail
	if settings.UseStorici {
		if g, ok := computeGuardRail(history, settings); ok {
			lo := decimal.Max(minEst, g.Min)
			hi := decimal.Min(maxEst, g.Max)
			if lo.LessThanOrEqual(hi) {
				minEst, maxEst = lo, hi
				g.Applied = true
			} else {
				notes = append(notes, "Storico non compatibile con la stima: range standard mantenuto.")
			}
			if base.GreaterThan(g.Min) && base.LessThan(g.Max) {
				confidence = clampConfidence(confidence + confidenceBoost)
			}
			notes = append(notes, fmt.Sprintf("Guard-rail su %d preventivi storici.", g.Neighbors))
			g.Min, g.Max = g.Min.Round(2), g.Max.Round(2)
			guard = &g
		}
	}

	return models.EstimateResult{
		Success:     true,
		BaseCost:    base.Round(0),
		MinEstimate: minEst.Round(0),
		MaxEstimate: maxEst.Round(0),
		Confidence:  confidence,
		LineItems:   lines,
		Modifiers:   mods,
		GuardRail:   guard,
		Notes:       strings.Join(notes, " "),
	}
}

func computeGuardRail(history []models.HistoricalQuote, settings models.AISettings) (models.GuardRail, bool) {
	if settings.MaxNeighbors > 0 && len(history) > settings.MaxNeighbors {
		history = history[:settings.MaxNeighbors]
	}
	if len(history) == 0 {
		return models.GuardRail{}, false
	}
	sum := decimal.Zero
	for _, h := range history {
		sum = sum.Add(h.TotalEUR)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(history))))
	pct := settings.GuardRailPct.Div(hundred)
	one := decimal.NewFromInt(1)
	return models.GuardRail{
		Neighbors: len(history),
		Mean:      mean.Round(2),
		Min:       mean.Mul(one.Sub(pct)),
		Max:       mean.Mul(one.Add(pct)),
	}, true
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxConfidence {
		return maxConfidence
	}
	return v
}
