package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ristrutturami/backend/internal/capitolato"
	"github.com/ristrutturami/backend/internal/models"
)

type CrossCheckResponse struct {
	Estimate   EstimateResponse      `json:"estimate"`
	Capitolato capitolato.Capitolato `json:"capitolato"`
	Comparison capitolato.Comparison `json:"comparison"`
	LatencyMS  int64                 `json:"latency_ms"`
}

// @Summary Cross-check a synthesized capitolato
// @Description Runs the deterministic estimate and the capitolato synthesizer side by side and reports how far the model's range is from the estimate.
// @Tags pricing
// @Accept json
// @Produce json
// @Param request body EstimateRequest true "scope and context"
// @Success 200 {object} CrossCheckResponse
// @Failure 400 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/capitolato/cross-check [post]
func (h *Handler) CapitolatoCrossCheck(c *gin.Context) {
	req, ok := h.bindEstimateRequest(c)
	if !ok {
		return
	}

	var (
		estimate models.EstimateResult
		synth    capitolato.Capitolato
		latency  int64
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		estimate = h.Estimator.EstimateOrFallback(ctx, req)
		return nil
	})
	g.Go(func() error {
		var err error
		synth, latency, err = h.Synthesizer.Synthesize(ctx, capitolato.Request{
			Scope:       req.Scope,
			Geo:         req.Geo,
			QualityTier: req.QualityTier,
			Urgency:     req.Urgency,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		h.Logger.Error().Err(err).Str("geo", req.Geo).Msg("capitolato synthesis failed")
		writeError(c, http.StatusBadGateway, "SYNTHESIS_ERROR", "Capitolato synthesis failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, CrossCheckResponse{
		Estimate:   NewEstimateResponse(estimate),
		Capitolato: synth,
		Comparison: capitolato.Compare(synth, estimate),
		LatencyMS:  latency,
	})
}
