package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ristrutturami/backend/internal/models"
)

// CatalogReader is the read-only view of the catalog store used for pricing.
type CatalogReader interface {
	ListPriceItems(ctx context.Context) ([]models.PriceItem, error)
	ListGeoModifiers(ctx context.Context) ([]models.GeoModifier, error)
	ListQualityModifiers(ctx context.Context) ([]models.QualityModifier, error)
	ListUrgencyModifiers(ctx context.Context) ([]models.UrgencyModifier, error)
	GetAISettings(ctx context.Context) (models.AISettings, error)
	ListHistoricalQuotes(ctx context.Context, geo, qualityTier string, limit int) ([]models.HistoricalQuote, error)
}

type EstimateRequest struct {
	Scope       models.ScopeDocument
	Geo         string
	QualityTier string
	Urgency     string
}

const (
	FallbackConfidence = 60
	FallbackNotes      = "Stima indicativa di fallback: il calcolo dettagliato non è al momento disponibile."
)

var (
	fallbackBase = decimal.NewFromInt(5000)
	fallbackMin  = decimal.NewFromInt(4000)
	fallbackMax  = decimal.NewFromInt(6000)

	tracer = otel.Tracer("github.com/ristrutturami/backend/internal/service")
)

type Estimator struct {
	Catalog  CatalogReader
	Quantity QuantityStrategy
	Timeout  time.Duration
	Logger   zerolog.Logger
}

type snapshot struct {
	items    []models.PriceItem
	tables   ModifierTables
	settings models.AISettings
}

// Estimate runs one pricing request end to end. Any returned error means the
// caller should answer with FallbackEstimate.
func (e *Estimator) Estimate(ctx context.Context, req EstimateRequest) (models.EstimateResult, error) {
	ctx, span := tracer.Start(ctx, "pricing.estimate", trace.WithAttributes(
		attribute.String("pricing.geo", req.Geo),
		attribute.String("pricing.quality_tier", req.QualityTier),
		attribute.String("pricing.urgency", req.Urgency),
	))
	defer span.End()

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	result, err := e.estimate(ctx, req, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return models.EstimateResult{}, err
	}
	span.SetAttributes(
		attribute.Int("pricing.line_items", len(result.LineItems)),
		attribute.Int("pricing.confidence", result.Confidence),
	)
	return result, nil
}

func (e *Estimator) estimate(ctx context.Context, req EstimateRequest, span trace.Span) (models.EstimateResult, error) {
	snap, err := e.load(ctx)
	if err != nil {
		return models.EstimateResult{}, err
	}

	catalog, layer := ResolveCatalogLayer(req.Geo, snap.items)
	span.SetAttributes(attribute.String("pricing.catalog_layer", layer), attribute.Int("pricing.catalog_size", len(catalog)))
	mods := ResolveModifiers(req.Geo, req.QualityTier, req.Urgency, snap.tables)

	lines, err := MatchItems(req.Scope, catalog, mods, e.quantity())
	if err != nil {
		return models.EstimateResult{}, fmt.Errorf("serialize scope: %w", err)
	}

	var history []models.HistoricalQuote
	if snap.settings.UseStorici {
		history, err = e.Catalog.ListHistoricalQuotes(ctx, req.Geo, req.QualityTier, snap.settings.MaxNeighbors)
		if err != nil {
			return models.EstimateResult{}, fmt.Errorf("load historical quotes: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return models.EstimateResult{}, err
	}

	result := ComposeEstimate(lines, mods, snap.settings, history)
	e.Logger.Debug().
		Str("catalog_layer", layer).
		Int("catalog_size", len(catalog)).
		Int("line_items", len(result.LineItems)).
		Str("base_cost", result.BaseCost.String()).
		Msg("estimate composed")
	return result, nil
}

// load issues the independent catalog reads concurrently and joins them.
func (e *Estimator) load(ctx context.Context) (snapshot, error) {
	ctx, span := tracer.Start(ctx, "pricing.load_snapshot")
	defer span.End()

	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	goSafe(g, func() error {
		items, err := e.Catalog.ListPriceItems(gctx)
		if err != nil {
			return fmt.Errorf("load price items: %w", err)
		}
		snap.items = items
		return nil
	})
	goSafe(g, func() error {
		rows, err := e.Catalog.ListGeoModifiers(gctx)
		if err != nil {
			return fmt.Errorf("load geo modifiers: %w", err)
		}
		snap.tables.Geo = rows
		return nil
	})
	goSafe(g, func() error {
		rows, err := e.Catalog.ListQualityModifiers(gctx)
		if err != nil {
			return fmt.Errorf("load quality modifiers: %w", err)
		}
		snap.tables.Quality = rows
		return nil
	})
	goSafe(g, func() error {
		rows, err := e.Catalog.ListUrgencyModifiers(gctx)
		if err != nil {
			return fmt.Errorf("load urgency modifiers: %w", err)
		}
		snap.tables.Urgency = rows
		return nil
	})
	goSafe(g, func() error {
		settings, err := e.Catalog.GetAISettings(gctx)
		if err != nil {
			return fmt.Errorf("load ai settings: %w", err)
		}
		snap.settings = settings
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return snapshot{}, err
	}
	return snap, nil
}

// goSafe turns a panic in a loader into an error so Wait still returns.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	})
}

func (e *Estimator) quantity() QuantityStrategy {
	if e.Quantity == nil {
		return MeasurementQuantity{Window: defaultMeasurementWindow}
	}
	return e.Quantity
}

// EstimateOrFallback never fails: errors, timeouts and panics all degrade to
// the static fallback estimate.
func (e *Estimator) EstimateOrFallback(ctx context.Context, req EstimateRequest) (result models.EstimateResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			e.Logger.Error().Err(err).Str("geo", req.Geo).Msg("estimate panicked")
			result = FallbackEstimate(err)
		}
	}()

	result, err := e.Estimate(ctx, req)
	if err != nil {
		e.Logger.Error().Err(err).Str("geo", req.Geo).Str("quality_tier", req.QualityTier).Msg("estimate failed, using fallback")
		return FallbackEstimate(err)
	}
	return result
}

// FallbackEstimate is the indicative placeholder returned when pricing fails.
func FallbackEstimate(cause error) models.EstimateResult {
	msg := "estimate computation failed"
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = "estimate timed out"
	}
	return models.EstimateResult{
		Success:     false,
		BaseCost:    fallbackBase,
		MinEstimate: fallbackMin,
		MaxEstimate: fallbackMax,
		Confidence:  FallbackConfidence,
		LineItems:   []models.LineItem{},
		Modifiers:   models.NeutralModifiers(),
		Notes:       FallbackNotes,
		Error:       msg,
		Fallback:    true,
	}
}
