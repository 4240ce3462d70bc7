// pricingctl runs pricing maintenance tasks outside the HTTP server.
//
// Usage:
//
//	pricingctl migrate up
//	pricingctl import --file lombardia.csv --nome "Prezzario 2024" --regione Lombardia --anno 2024
//	pricingctl estimate --scope scope.json --geo "Milano 20100" --quality standard --urgency normale
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/ristrutturami/backend/internal/db"
	"github.com/ristrutturami/backend/internal/http/handlers"
	"github.com/ristrutturami/backend/internal/importer"
	"github.com/ristrutturami/backend/internal/models"
	"github.com/ristrutturami/backend/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "pricingctl",
		Usage: "Renovation pricing catalog and estimate tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			importCommand(),
			estimateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Str("service", "pricingctl").Logger()
}

func databaseURL(c *cli.Context) (string, error) {
	url := c.String("database-url")
	if url == "" {
		return "", fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	return url, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(c *cli.Context) error {
					url, err := databaseURL(c)
					if err != nil {
						return err
					}
					if err := db.MigrateUp(url); err != nil {
						return err
					}
					logger := newLogger(c)
					logger.Info().Msg("migrations applied")
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "Roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "Number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					url, err := databaseURL(c)
					if err != nil {
						return err
					}
					if err := db.MigrateDown(url, c.Int("steps")); err != nil {
						return err
					}
					logger := newLogger(c)
					logger.Info().Int("steps", c.Int("steps")).Msg("migrations rolled back")
					return nil
				},
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: func(c *cli.Context) error {
					url, err := databaseURL(c)
					if err != nil {
						return err
					}
					version, dirty, err := db.MigrationVersion(url)
					if err != nil {
						return err
					}
					fmt.Printf("version=%d dirty=%t\n", version, dirty)
					return nil
				},
			},
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Load a regional pricelist CSV into the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Pricelist CSV", Required: true},
			&cli.StringFlag{Name: "nome", Usage: "Pricelist name", Required: true},
			&cli.StringFlag{Name: "regione", Usage: "Region name", Required: true},
			&cli.IntFlag{Name: "anno", Usage: "Reference year", Required: true},
			&cli.BoolFlag{Name: "inactive", Usage: "Store the pricelist without activating it"},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			url, err := databaseURL(c)
			if err != nil {
				return err
			}
			path := c.String("file")
			if err := importer.ValidateSource(models.SourceCSV, filepath.Base(path)); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			items, errs := importer.ParsePricelistCSV(f)
			if len(errs) > 0 {
				for _, e := range errs {
					logger.Error().Str("file", path).Msg(e)
				}
				return fmt.Errorf("%d invalid rows in %s", len(errs), path)
			}
			if len(items) == 0 {
				return fmt.Errorf("%s contains no price items", path)
			}

			ctx := context.Background()
			store, err := db.New(ctx, url)
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := store.CreatePricelist(ctx, models.RegionalPricelist{
				Nome:            c.String("nome"),
				NomeRegione:     c.String("regione"),
				AnnoRiferimento: c.Int("anno"),
				Fonte:           models.SourceCSV,
				Attivo:          !c.Bool("inactive"),
			}, items)
			if err != nil {
				return err
			}
			logger.Info().
				Str("pricelist_id", created.ID).
				Str("region", created.NomeRegione).
				Int("items", created.ItemCount).
				Msg("pricelist imported")
			return nil
		},
	}
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Price a scope document and print the result as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scope", Aliases: []string{"s"}, Usage: "Scope document JSON file", Required: true},
			&cli.StringFlag{Name: "geo", Usage: "Free-text location, e.g. \"Milano 20100\"", Required: true},
			&cli.StringFlag{Name: "quality", Value: "standard", Usage: "Quality tier"},
			&cli.StringFlag{Name: "urgency", Value: "normale", Usage: "Urgency band"},
			&cli.StringFlag{Name: "snapshot", Usage: "Catalog snapshot JSON; skips the database"},
			&cli.StringFlag{Name: "quantity", Value: service.QuantityMeasurement, Usage: "Quantity strategy (measurement, hashed)"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "Estimate timeout"},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			ctx := context.Background()

			raw, err := os.ReadFile(c.String("scope"))
			if err != nil {
				return err
			}
			var scope models.ScopeDocument
			if err := json.Unmarshal(raw, &scope); err != nil {
				return fmt.Errorf("scope %s: %w", c.String("scope"), err)
			}

			quantity, err := service.NewQuantityStrategy(c.String("quantity"))
			if err != nil {
				return err
			}

			var catalog service.CatalogReader
			if path := c.String("snapshot"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				mem, err := service.LoadMemoryCatalog(f)
				if err != nil {
					return fmt.Errorf("snapshot %s: %w", path, err)
				}
				catalog = mem
			} else {
				url, err := databaseURL(c)
				if err != nil {
					return err
				}
				store, err := db.New(ctx, url)
				if err != nil {
					return err
				}
				defer store.Close()
				catalog = store
			}

			estimator := &service.Estimator{
				Catalog:  catalog,
				Quantity: quantity,
				Timeout:  c.Duration("timeout"),
				Logger:   logger,
			}
			result := estimator.EstimateOrFallback(ctx, service.EstimateRequest{
				Scope:       scope,
				Geo:         c.String("geo"),
				QualityTier: c.String("quality"),
				Urgency:     c.String("urgency"),
			})

			if err := writeEstimate(os.Stdout, result); err != nil {
				return err
			}
			if result.Fallback {
				return cli.Exit("estimate fell back to the default range", 2)
			}
			return nil
		},
	}
}

// writeEstimate prints the result in the same shape the HTTP API answers with.
func writeEstimate(w io.Writer, result models.EstimateResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(handlers.NewEstimateResponse(result))
}
