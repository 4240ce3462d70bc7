package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ristrutturami/backend/internal/models"
)

// MemoryCatalog is a CatalogReader over a fixed snapshot, e.g. an exported
// JSON file used for offline estimates.
type MemoryCatalog struct {
	Items    []models.PriceItem       `json:"items"`
	Geo      []models.GeoModifier     `json:"geo_modifiers"`
	Quality  []models.QualityModifier `json:"quality_modifiers"`
	Urgency  []models.UrgencyModifier `json:"urgency_modifiers"`
	Settings *models.AISettings       `json:"settings,omitempty"`
	History  []models.HistoricalQuote `json:"historical_quotes"`
}

func LoadMemoryCatalog(r io.Reader) (*MemoryCatalog, error) {
	var c MemoryCatalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog snapshot: %w", err)
	}
	return &c, nil
}

func (c *MemoryCatalog) ListPriceItems(ctx context.Context) ([]models.PriceItem, error) {
	return append([]models.PriceItem(nil), c.Items...), ctx.Err()
}

func (c *MemoryCatalog) ListGeoModifiers(ctx context.Context) ([]models.GeoModifier, error) {
	return append([]models.GeoModifier(nil), c.Geo...), ctx.Err()
}

func (c *MemoryCatalog) ListQualityModifiers(ctx context.Context) ([]models.QualityModifier, error) {
	return append([]models.QualityModifier(nil), c.Quality...), ctx.Err()
}

func (c *MemoryCatalog) ListUrgencyModifiers(ctx context.Context) ([]models.UrgencyModifier, error) {
	return append([]models.UrgencyModifier(nil), c.Urgency...), ctx.Err()
}

func (c *MemoryCatalog) GetAISettings(ctx context.Context) (models.AISettings, error) {
	if c.Settings == nil {
		return models.DefaultAISettings(), ctx.Err()
	}
	return *c.Settings, ctx.Err()
}

func (c *MemoryCatalog) ListHistoricalQuotes(ctx context.Context, geo, qualityTier string, limit int) ([]models.HistoricalQuote, error) {
	var out []models.HistoricalQuote
	for _, q := range c.History {
		if normalizeKey(q.Geo) != normalizeKey(geo) || normalizeKey(q.QualityTier) != normalizeKey(qualityTier) {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, ctx.Err()
}
