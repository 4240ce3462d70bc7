package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ristrutturami/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

const defaultHistoryLimit = 10

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListPriceItems returns every catalog row with its pricelist's region, year
// and active flag. Layer selection happens in the service.
func (s *Store) ListPriceItems(ctx context.Context) ([]models.PriceItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT i.id, i.item_code, i.category, i.unit, i.base_price_eur, i.description, i.priority,
			i.regional_pricelist_id::text,
			COALESCE(p.nome_regione, ''), COALESCE(p.anno_riferimento, 0), COALESCE(p.attivo, FALSE)
		FROM price_items i
		LEFT JOIN regional_pricelists p ON p.id = i.regional_pricelist_id
		ORDER BY i.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PriceItem
	for rows.Next() {
		var p models.PriceItem
		if err := rows.Scan(&p.ID, &p.ItemCode, &p.Category, &p.Unit, &p.BasePriceEUR, &p.Description, &p.Priority,
			&p.RegionalPricelistID, &p.Region, &p.Year, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListGeoModifiers(ctx context.Context) ([]models.GeoModifier, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, region, province, cap_pattern, multiplier FROM geo_modifiers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GeoModifier
	for rows.Next() {
		var g models.GeoModifier
		if err := rows.Scan(&g.ID, &g.Region, &g.Province, &g.CapPattern, &g.Multiplier); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) ListQualityModifiers(ctx context.Context) ([]models.QualityModifier, error) {
	rows, err := s.Pool.Query(ctx, `SELECT quality_tier, multiplier FROM quality_modifiers ORDER BY quality_tier ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QualityModifier
	for rows.Next() {
		var q models.QualityModifier
		if err := rows.Scan(&q.QualityTier, &q.Multiplier); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) ListUrgencyModifiers(ctx context.Context) ([]models.UrgencyModifier, error) {
	rows, err := s.Pool.Query(ctx, `SELECT urgency_band, multiplier FROM urgency_modifiers ORDER BY urgency_band ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UrgencyModifier
	for rows.Next() {
		var u models.UrgencyModifier
		if err := rows.Scan(&u.UrgencyBand, &u.Multiplier); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetAISettings falls back to the built-in defaults when the row is missing.
func (s *Store) GetAISettings(ctx context.Context) (models.AISettings, error) {
	var st models.AISettings
	err := s.Pool.QueryRow(ctx, `
		SELECT use_storici, guard_rail_pct, default_confidence, max_neighbors
		FROM ai_settings WHERE id = 1
	`).Scan(&st.UseStorici, &st.GuardRailPct, &st.DefaultConfidence, &st.MaxNeighbors)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultAISettings(), nil
	}
	if err != nil {
		return models.AISettings{}, err
	}
	return st, nil
}

func (s *Store) ListHistoricalQuotes(ctx context.Context, geo, qualityTier string, limit int) ([]models.HistoricalQuote, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, total_eur, geo, quality_tier, scope_json
		FROM historical_quotes
		WHERE lower(btrim(geo)) = lower(btrim($1)) AND lower(btrim(quality_tier)) = lower(btrim($2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, geo, qualityTier, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HistoricalQuote
	for rows.Next() {
		var q models.HistoricalQuote
		if err := rows.Scan(&q.ID, &q.TotalEUR, &q.Geo, &q.QualityTier, &q.ScopeJSON); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// CreatePricelist stores the pricelist and its items in one transaction.
func (s *Store) CreatePricelist(ctx context.Context, p models.RegionalPricelist, items []models.PriceItem) (models.RegionalPricelist, error) {
	id := uuid.New()
	if p.ID != "" {
		parsed, err := uuid.Parse(p.ID)
		if err != nil {
			return models.RegionalPricelist{}, fmt.Errorf("pricelist id: %w", err)
		}
		id = parsed
	}
	p.ID = id.String()

	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO regional_pricelists (id, nome, nome_regione, anno_riferimento, fonte, attivo, source_object, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			RETURNING created_at
		`, id, p.Nome, p.NomeRegione, p.AnnoRiferimento, p.Fonte, p.Attivo, p.SourceObject).Scan(&p.CreatedAt); err != nil {
			return fmt.Errorf("insert pricelist: %w", err)
		}

		rows := make([][]any, 0, len(items))
		for _, it := range items {
			rows = append(rows, []any{it.ItemCode, it.Category, it.Unit, it.BasePriceEUR, it.Description, it.Priority, id})
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"price_items"},
			[]string{"item_code", "category", "unit", "base_price_eur", "description", "priority", "regional_pricelist_id"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy price items: %w", err)
		}
		p.ItemCount = int(n)
		return nil
	})
	if err != nil {
		return models.RegionalPricelist{}, err
	}
	return p, nil
}

const pricelistColumns = `p.id::text, p.nome, p.nome_regione, p.anno_riferimento, p.fonte, p.attivo, p.source_object, p.created_at,
	(SELECT COUNT(*) FROM price_items i WHERE i.regional_pricelist_id = p.id)`

func scanPricelist(row pgx.Row) (models.RegionalPricelist, error) {
	var p models.RegionalPricelist
	err := row.Scan(&p.ID, &p.Nome, &p.NomeRegione, &p.AnnoRiferimento, &p.Fonte, &p.Attivo, &p.SourceObject, &p.CreatedAt, &p.ItemCount)
	return p, err
}

func (s *Store) ListPricelists(ctx context.Context) ([]models.RegionalPricelist, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+pricelistColumns+`
		FROM regional_pricelists p
		ORDER BY p.nome_regione ASC, p.anno_riferimento DESC, p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RegionalPricelist{}
	for rows.Next() {
		p, err := scanPricelist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPricelist(ctx context.Context, id string) (models.RegionalPricelist, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.RegionalPricelist{}, ErrNotFound
	}
	p, err := scanPricelist(s.Pool.QueryRow(ctx, `SELECT `+pricelistColumns+` FROM regional_pricelists p WHERE p.id = $1`, parsed))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RegionalPricelist{}, ErrNotFound
	}
	return p, err
}

// SetPricelistActive toggles whether the pricelist's items take part in
// regional resolution.
func (s *Store) SetPricelistActive(ctx context.Context, id string, active bool) (models.RegionalPricelist, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.RegionalPricelist{}, ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE regional_pricelists SET attivo = $1 WHERE id = $2`, active, parsed)
	if err != nil {
		return models.RegionalPricelist{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.RegionalPricelist{}, ErrNotFound
	}
	return s.GetPricelist(ctx, id)
}

// DeletePricelist removes the items and then the pricelist in one
// transaction. It returns the archived source object key, if any.
func (s *Store) DeletePricelist(ctx context.Context, id string) (*string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var sourceObject *string
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT source_object FROM regional_pricelists WHERE id = $1 FOR UPDATE`, parsed).Scan(&sourceObject)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM price_items WHERE regional_pricelist_id = $1`, parsed); err != nil {
			return fmt.Errorf("delete price items: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM regional_pricelists WHERE id = $1`, parsed); err != nil {
			return fmt.Errorf("delete pricelist: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sourceObject, nil
}
