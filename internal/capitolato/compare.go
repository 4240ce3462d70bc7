package capitolato

import (
	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

// MaxDivergencePct is the widest gap between the model midpoint and the
// deterministic base cost that still counts as consistent.
var MaxDivergencePct = decimal.NewFromInt(25)

type Comparison struct {
	Midpoint      decimal.Decimal `json:"llm_midpoint"`
	BaseCost      decimal.Decimal `json:"base_cost"`
	DivergencePct decimal.Decimal `json:"divergence_pct"`
	Consistent    bool            `json:"consistent"`
}

// Compare measures how far the capitolato range sits from the estimate.
func Compare(c Capitolato, est models.EstimateResult) Comparison {
	mid := c.MinEstimate.Add(c.MaxEstimate).Div(decimal.NewFromInt(2)).Round(0)
	out := Comparison{Midpoint: mid, BaseCost: est.BaseCost}
	if !est.BaseCost.IsPositive() {
		return out
	}
	out.DivergencePct = mid.Sub(est.BaseCost).Div(est.BaseCost).Mul(decimal.NewFromInt(100)).Round(1)
	out.Consistent = out.DivergencePct.Abs().LessThanOrEqual(MaxDivergencePct)
	return out
}
