package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ristrutturami/backend/internal/models"
)

func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/app?sslmode=disable": "pgx5://u:p@localhost:5432/app?sslmode=disable",
		"postgresql://localhost/app":                        "pgx5://localhost/app",
		"pgx5://localhost/app":                              "pgx5://localhost/app",
	}
	for in, want := range cases {
		require.Equal(t, want, migrationURL(in), in)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, MigrateUp(url))

	store, err := New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestPricelistLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	region := "Regione-" + uuid.NewString()[:8]

	created, err := store.CreatePricelist(ctx, models.RegionalPricelist{
		Nome:            "Prezzario test",
		NomeRegione:     region,
		AnnoRiferimento: 2024,
		Fonte:           models.SourceCSV,
		Attivo:          true,
	}, []models.PriceItem{
		{ItemCode: "PIASTR_001", Category: "Pavimenti", Unit: "mq", BasePriceEUR: decimal.RequireFromString("45.50"), Description: "Piastrelle", Priority: 2},
		{ItemCode: "LAVABO_01", Category: "Sanitari", Unit: "cad", BasePriceEUR: decimal.NewFromInt(120), Description: "Lavabo", Priority: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 2, created.ItemCount)
	t.Cleanup(func() { _, _ = store.DeletePricelist(context.Background(), created.ID) })

	items, err := store.ListPriceItems(ctx)
	require.NoError(t, err)
	var owned []models.PriceItem
	for _, it := range items {
		if it.RegionalPricelistID != nil && *it.RegionalPricelistID == created.ID {
			owned = append(owned, it)
		}
	}
	require.Len(t, owned, 2)
	require.Equal(t, region, owned[0].Region)
	require.Equal(t, 2024, owned[0].Year)
	require.True(t, owned[0].Active)
	require.True(t, owned[0].BasePriceEUR.Equal(decimal.RequireFromString("45.5")))

	updated, err := store.SetPricelistActive(ctx, created.ID, false)
	require.NoError(t, err)
	require.False(t, updated.Attivo)
	require.Equal(t, 2, updated.ItemCount)

	_, err = store.DeletePricelist(ctx, created.ID)
	require.NoError(t, err)

	_, err = store.GetPricelist(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	var remaining int
	require.NoError(t, store.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM price_items WHERE regional_pricelist_id = $1`, uuid.MustParse(created.ID)).Scan(&remaining))
	require.Equal(t, 0, remaining)
}

func TestUnknownPricelistIsNotFound(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SetPricelistActive(ctx, uuid.NewString(), true)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.DeletePricelist(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSettingsAndModifiersAreSeeded(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	settings, err := store.GetAISettings(ctx)
	require.NoError(t, err)
	require.Positive(t, settings.MaxNeighbors)

	quality, err := store.ListQualityModifiers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, quality)
}
