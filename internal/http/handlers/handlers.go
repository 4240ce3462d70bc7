package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ristrutturami/backend/internal/capitolato"
	"github.com/ristrutturami/backend/internal/models"
	"github.com/ristrutturami/backend/internal/service"
	"github.com/ristrutturami/backend/internal/storage"
)

// Store is the persistence the handlers need: the pricing read model plus
// pricelist administration.
type Store interface {
	service.CatalogReader
	Ping(ctx context.Context) error
	ListPricelists(ctx context.Context) ([]models.RegionalPricelist, error)
	GetPricelist(ctx context.Context, id string) (models.RegionalPricelist, error)
	CreatePricelist(ctx context.Context, p models.RegionalPricelist, items []models.PriceItem) (models.RegionalPricelist, error)
	SetPricelistActive(ctx context.Context, id string, active bool) (models.RegionalPricelist, error)
	DeletePricelist(ctx context.Context, id string) (*string, error)
}

type Handler struct {
	Store       Store
	Estimator   *service.Estimator
	Synthesizer capitolato.Synthesizer
	Archive     storage.Archive
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
