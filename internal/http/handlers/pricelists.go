package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ristrutturami/backend/internal/db"
	"github.com/ristrutturami/backend/internal/importer"
	"github.com/ristrutturami/backend/internal/models"
)

// @Summary List regional pricelists
// @Tags pricelists
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/pricelists [get]
func (h *Handler) PricelistsList(c *gin.Context) {
	items, err := h.Store.ListPricelists(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load pricelists", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type CreatePricelistForm struct {
	Nome            string `form:"nome" validate:"required"`
	NomeRegione     string `form:"nome_regione" validate:"required"`
	AnnoRiferimento int    `form:"anno_riferimento" validate:"required,gte=1990,lte=2100"`
	Fonte           string `form:"fonte"`
	Attivo          *bool  `form:"attivo"`
}

type ImportSummary struct {
	Pricelist models.RegionalPricelist `json:"pricelist"`
	Parsed    int                      `json:"parsed"`
	Inserted  int                      `json:"inserted"`
	Archived  bool                     `json:"archived"`
}

// @Summary Upload a regional pricelist
// @Description Parses a CSV pricelist and stores it with its items in one transaction.
// @Tags pricelists
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "pricelist.csv"
// @Param nome formData string true "pricelist name"
// @Param nome_regione formData string true "region name"
// @Param anno_riferimento formData int true "reference year"
// @Param fonte formData string false "csv"
// @Param attivo formData bool false "active, default true"
// @Success 201 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/admin/pricelists [post]
func (h *Handler) PricelistCreate(c *gin.Context) {
	var form CreatePricelistForm
	if err := c.ShouldBind(&form); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid form", err.Error())
		return
	}
	form.Nome = strings.TrimSpace(form.Nome)
	form.NomeRegione = strings.TrimSpace(form.NomeRegione)
	if form.Fonte == "" {
		form.Fonte = models.SourceCSV
	}
	if err := h.Validator.Struct(form); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file required", nil)
		return
	}
	if err := importer.ValidateSource(form.Fonte, file.Filename); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unsupported pricelist source", err.Error())
		return
	}

	items, errs := importer.ParseFileHeader(file)
	if len(errs) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", errs)
		return
	}
	if len(items) == 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV contains no price items", nil)
		return
	}

	ctx := c.Request.Context()
	pricelist := models.RegionalPricelist{
		Nome:            form.Nome,
		NomeRegione:     form.NomeRegione,
		AnnoRiferimento: form.AnnoRiferimento,
		Fonte:           models.SourceCSV,
		Attivo:          form.Attivo == nil || *form.Attivo,
	}

	if h.Archive != nil {
		key, err := h.archiveSource(c, form.NomeRegione)
		if err != nil {
			h.Logger.Warn().Err(err).Str("region", form.NomeRegione).Msg("pricelist source not archived")
		} else {
			pricelist.SourceObject = &key
		}
	}

	created, err := h.Store.CreatePricelist(ctx, pricelist, items)
	if err != nil {
		if pricelist.SourceObject != nil {
			if derr := h.Archive.Delete(ctx, *pricelist.SourceObject); derr != nil {
				h.Logger.Warn().Err(derr).Str("object", *pricelist.SourceObject).Msg("orphaned pricelist source")
			}
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store pricelist", err.Error())
		return
	}

	h.Logger.Info().
		Str("pricelist_id", created.ID).
		Str("region", created.NomeRegione).
		Int("items", created.ItemCount).
		Msg("pricelist imported")
	c.JSON(http.StatusCreated, ImportSummary{
		Pricelist: created,
		Parsed:    len(items),
		Inserted:  created.ItemCount,
		Archived:  created.SourceObject != nil,
	})
}

func (h *Handler) archiveSource(c *gin.Context, region string) (string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return "", err
	}
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return h.Archive.Put(c.Request.Context(), region, file.Filename, data)
}

type UpdatePricelistRequest struct {
	Attivo *bool `json:"attivo" validate:"required"`
}

// @Summary Activate or deactivate a pricelist
// @Tags pricelists
// @Accept json
// @Produce json
// @Param id path string true "pricelist id"
// @Param request body UpdatePricelistRequest true "active flag"
// @Success 200 {object} models.RegionalPricelist
// @Failure 404 {object} map[string]any
// @Router /api/admin/pricelists/{id} [patch]
func (h *Handler) PricelistUpdate(c *gin.Context) {
	var req UpdatePricelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	updated, err := h.Store.SetPricelistActive(c.Request.Context(), c.Param("id"), *req.Attivo)
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Pricelist not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update pricelist", err.Error())
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary Delete a pricelist and its items
// @Tags pricelists
// @Produce json
// @Param id path string true "pricelist id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/admin/pricelists/{id} [delete]
func (h *Handler) PricelistDelete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	sourceObject, err := h.Store.DeletePricelist(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Pricelist not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete pricelist", err.Error())
		return
	}
	if sourceObject != nil && h.Archive != nil {
		if err := h.Archive.Delete(ctx, *sourceObject); err != nil {
			h.Logger.Warn().Err(err).Str("object", *sourceObject).Msg("failed to remove pricelist source")
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

const sourceURLTTL = 15 * time.Minute

// @Summary Download link for a pricelist's source file
// @Tags pricelists
// @Produce json
// @Param id path string true "pricelist id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/admin/pricelists/{id}/source [get]
func (h *Handler) PricelistSource(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.Store.GetPricelist(ctx, c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Pricelist not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load pricelist", err.Error())
		return
	}
	if p.SourceObject == nil || h.Archive == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Pricelist has no archived source", nil)
		return
	}
	url, err := h.Archive.URL(ctx, *p.SourceObject, sourceURLTTL)
	if err != nil {
		writeError(c, http.StatusBadGateway, "STORAGE_ERROR", "Failed to sign source URL", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int(sourceURLTTL.Seconds())})
}
