package capitolato

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ristrutturami/backend/internal/models"
)

type Request struct {
	Scope       models.ScopeDocument `json:"scope_json"`
	Geo         string               `json:"geo"`
	QualityTier string               `json:"quality_tier"`
	Urgency     string               `json:"urgency"`
}

type Section struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Works       []string `json:"works,omitempty"`
}

// Capitolato is the narrative work specification with the model's own
// price range, kept apart from the deterministic estimate.
type Capitolato struct {
	Summary      string          `json:"summary"`
	Sections     []Section       `json:"sections"`
	MinEstimate  decimal.Decimal `json:"min_estimate"`
	MaxEstimate  decimal.Decimal `json:"max_estimate"`
	ModelVersion string          `json:"model_version"`
}

// Synthesizer returns the capitolato and the call latency in milliseconds.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Capitolato, int64, error)
}
