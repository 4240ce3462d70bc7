package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ristrutturami/backend/internal/models"
	"github.com/ristrutturami/backend/internal/service"
)

type EstimateRequest struct {
	ScopeJSON   map[string]any `json:"scope_json" validate:"required"`
	Geo         string         `json:"geo" validate:"required"`
	QualityTier string         `json:"quality_tier" validate:"required"`
	Urgency     string         `json:"urgency" validate:"required"`
}

type LineItemResponse struct {
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

type ModifiersResponse struct {
	Geographic float64 `json:"geographic"`
	Quality    float64 `json:"quality"`
	Urgency    float64 `json:"urgency"`
}

type GuardRailResponse struct {
	Neighbors int     `json:"neighbors"`
	Mean      float64 `json:"mean"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Applied   bool    `json:"applied"`
}

type EstimateResponse struct {
	Success     bool               `json:"success"`
	BaseCost    int64              `json:"base_cost"`
	MinEstimate int64              `json:"min_estimate"`
	MaxEstimate int64              `json:"max_estimate"`
	Confidence  int                `json:"confidence"`
	LineItems   []LineItemResponse `json:"line_items"`
	Modifiers   ModifiersResponse  `json:"modifiers"`
	GuardRail   *GuardRailResponse `json:"guard_rail,omitempty"`
	Notes       string             `json:"notes"`
	Error       string             `json:"error,omitempty"`
	Fallback    bool               `json:"fallback,omitempty"`
}

// bindEstimateRequest writes the 400 response itself and reports whether the
// request can be priced.
func (h *Handler) bindEstimateRequest(c *gin.Context) (service.EstimateRequest, bool) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payload", err.Error())
		return service.EstimateRequest{}, false
	}
	req.Geo = strings.TrimSpace(req.Geo)
	req.QualityTier = strings.TrimSpace(req.QualityTier)
	req.Urgency = strings.TrimSpace(req.Urgency)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return service.EstimateRequest{}, false
	}
	return service.EstimateRequest{
		Scope:       models.ScopeDocument(req.ScopeJSON),
		Geo:         req.Geo,
		QualityTier: req.QualityTier,
		Urgency:     req.Urgency,
	}, true
}

// @Summary Estimate renovation cost
// @Description Prices a scope document against the resolved catalog. Failures return 500 with a fallback range.
// @Tags pricing
// @Accept json
// @Produce json
// @Param request body EstimateRequest true "scope and context"
// @Success 200 {object} EstimateResponse
// @Failure 400 {object} map[string]any
// @Failure 500 {object} EstimateResponse
// @Router /api/estimate [post]
func (h *Handler) Estimate(c *gin.Context) {
	req, ok := h.bindEstimateRequest(c)
	if !ok {
		return
	}
	result := h.Estimator.EstimateOrFallback(c.Request.Context(), req)
	status := http.StatusOK
	if result.Fallback {
		status = http.StatusInternalServerError
	}
	c.JSON(status, NewEstimateResponse(result))
}

func NewEstimateResponse(r models.EstimateResult) EstimateResponse {
	lines := make([]LineItemResponse, 0, len(r.LineItems))
	for _, l := range r.LineItems {
		lines = append(lines, LineItemResponse{
			ItemCode:    l.ItemCode,
			Description: l.Description,
			Unit:        l.Unit,
			Quantity:    l.Quantity.InexactFloat64(),
			UnitPrice:   l.UnitPrice.InexactFloat64(),
			Total:       l.Total.InexactFloat64(),
		})
	}
	resp := EstimateResponse{
		Success:     r.Success,
		BaseCost:    r.BaseCost.IntPart(),
		MinEstimate: r.MinEstimate.IntPart(),
		MaxEstimate: r.MaxEstimate.IntPart(),
		Confidence:  r.Confidence,
		LineItems:   lines,
		Modifiers: ModifiersResponse{
			Geographic: r.Modifiers.Geographic.InexactFloat64(),
			Quality:    r.Modifiers.Quality.InexactFloat64(),
			Urgency:    r.Modifiers.Urgency.InexactFloat64(),
		},
		Notes:    r.Notes,
		Error:    r.Error,
		Fallback: r.Fallback,
	}
	if g := r.GuardRail; g != nil {
		resp.GuardRail = &GuardRailResponse{
			Neighbors: g.Neighbors,
			Mean:      g.Mean.InexactFloat64(),
			Min:       g.Min.InexactFloat64(),
			Max:       g.Max.InexactFloat64(),
			Applied:   g.Applied,
		}
	}
	return resp
}

type CatalogResponse struct {
	Geo   string             `json:"geo"`
	Layer string             `json:"layer"`
	Items []models.PriceItem `json:"items"`
}

// @Summary Preview the resolved catalog
// @Tags pricing
// @Produce json
// @Param geo query string false "free-text location"
// @Success 200 {object} CatalogResponse
// @Failure 500 {object} map[string]any
// @Router /api/catalog [get]
func (h *Handler) Catalog(c *gin.Context) {
	geo := c.Query("geo")
	items, err := h.Store.ListPriceItems(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load catalog", err.Error())
		return
	}
	resolved, layer := service.ResolveCatalogLayer(geo, items)
	c.JSON(http.StatusOK, CatalogResponse{Geo: geo, Layer: layer, Items: resolved})
}
