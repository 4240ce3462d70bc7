package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ristrutturami/backend/internal/capitolato"
	"github.com/ristrutturami/backend/internal/config"
	"github.com/ristrutturami/backend/internal/http/handlers"
	"github.com/ristrutturami/backend/internal/http/middleware"
	"github.com/ristrutturami/backend/internal/service"
	"github.com/ristrutturami/backend/internal/storage"

	_ "github.com/ristrutturami/backend/docs"
)

func Router(cfg config.Config, store handlers.Store, estimator *service.Estimator, synth capitolato.Synthesizer, archive storage.Archive, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
	} else {
		for _, o := range strings.Split(cfg.CORSAllowed, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, o)
			}
		}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:       store,
		Estimator:   estimator,
		Synthesizer: synth,
		Archive:     archive,
		Validator:   validator.New(),
		Logger:      logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/estimate", h.Estimate)
		api.GET("/catalog", h.Catalog)
		api.POST("/capitolato/cross-check", h.CapitolatoCrossCheck)
		api.GET("/pricelists", h.PricelistsList)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/pricelists", h.PricelistCreate)
		admin.PATCH("/pricelists/:id", h.PricelistUpdate)
		admin.DELETE("/pricelists/:id", h.PricelistDelete)
		admin.GET("/pricelists/:id/source", h.PricelistSource)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
