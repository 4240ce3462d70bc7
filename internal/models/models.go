package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceItem is a catalog entry. Items with a nil RegionalPricelistID belong
// to the national catalog. Region, Year and Active are copied from the owning
// pricelist when the row is loaded through a join.
type PriceItem struct {
	ID                  int64           `json:"id"`
	ItemCode            string          `json:"item_code"`
	Category            string          `json:"category"`
	Unit                string          `json:"unit"`
	BasePriceEUR        decimal.Decimal `json:"base_price_eur"`
	Description         string          `json:"description"`
	Priority            int             `json:"priority"`
	RegionalPricelistID *string         `json:"regional_pricelist_id"`

	Region string `json:"nome_regione,omitempty"`
	Year   int    `json:"anno_riferimento,omitempty"`
	Active bool   `json:"attivo,omitempty"`
}

// IsNational reports whether the item is not owned by a regional pricelist.
func (p PriceItem) IsNational() bool {
	return p.RegionalPricelistID == nil
}

const (
	SourceCSV   = "csv"
	SourceExcel = "excel"
	SourcePDF   = "pdf"
)

type RegionalPricelist struct {
	ID              string    `json:"id"`
	Nome            string    `json:"nome"`
	NomeRegione     string    `json:"nome_regione"`
	AnnoRiferimento int       `json:"anno_riferimento"`
	Fonte           string    `json:"fonte"`
	Attivo          bool      `json:"attivo"`
	SourceObject    *string   `json:"source_object,omitempty"`
	ItemCount       int       `json:"item_count"`
	CreatedAt       time.Time `json:"created_at"`
}

type GeoModifier struct {
	ID         int64           `json:"id"`
	Region     string          `json:"region"`
	Province   *string         `json:"province,omitempty"`
	CapPattern *string         `json:"cap_pattern,omitempty"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type QualityModifier struct {
	QualityTier string          `json:"quality_tier"`
	Multiplier  decimal.Decimal `json:"multiplier"`
}

type UrgencyModifier struct {
	UrgencyBand string          `json:"urgency_band"`
	Multiplier  decimal.Decimal `json:"multiplier"`
}

const (
	QualityEconomico = "economico"
	QualityStandard  = "standard"
	QualityPremium   = "premium"
)

// AISettings governs the historical guard-rail.
type AISettings struct {
	UseStorici        bool            `json:"use_storici"`
	GuardRailPct      decimal.Decimal `json:"guard_rail_pct"`
	DefaultConfidence int             `json:"default_confidence"`
	MaxNeighbors      int             `json:"max_neighbors"`
}

// DefaultAISettings is used when the settings row is missing.
func DefaultAISettings() AISettings {
	return AISettings{
		UseStorici:        false,
		GuardRailPct:      decimal.NewFromInt(15),
		DefaultConfidence: 75,
		MaxNeighbors:      10,
	}
}

type HistoricalQuote struct {
	ID          int64           `json:"id"`
	TotalEUR    decimal.Decimal `json:"total_eur"`
	Geo         string          `json:"geo"`
	QualityTier string          `json:"quality_tier"`
	ScopeJSON   []byte          `json:"scope_json,omitempty"`
}

// ScopeDocument is the schema-free output of the interview.
type ScopeDocument map[string]any

type LineItem struct {
	ItemCode       string          `json:"item_code"`
	Description    string          `json:"description"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	MatchedKeyword string          `json:"matched_keyword,omitempty"`
}

type Modifiers struct {
	Geographic decimal.Decimal `json:"geographic"`
	Quality    decimal.Decimal `json:"quality"`
	Urgency    decimal.Decimal `json:"urgency"`
}

// NeutralModifiers applies no adjustment.
func NeutralModifiers() Modifiers {
	one := decimal.NewFromInt(1)
	return Modifiers{Geographic: one, Quality: one, Urgency: one}
}

// Product is the combined multiplier applied to catalog prices.
func (m Modifiers) Product() decimal.Decimal {
	return m.Geographic.Mul(m.Quality).Mul(m.Urgency)
}

type GuardRail struct {
	Neighbors int             `json:"neighbors"`
	Mean      decimal.Decimal `json:"mean"`
	Min       decimal.Decimal `json:"min"`
	Max       decimal.Decimal `json:"max"`
	Applied   bool            `json:"applied"`
}

type EstimateResult struct {
	Success     bool            `json:"success"`
	BaseCost    decimal.Decimal `json:"base_cost"`
	MinEstimate decimal.Decimal `json:"min_estimate"`
	MaxEstimate decimal.Decimal `json:"max_estimate"`
	Confidence  int             `json:"confidence"`
	LineItems   []LineItem      `json:"line_items"`
	Modifiers   Modifiers       `json:"modifiers"`
	GuardRail   *GuardRail      `json:"guard_rail,omitempty"`
	Notes       string          `json:"notes"`
	Error       string          `json:"error,omitempty"`
	Fallback    bool            `json:"fallback"`
}
