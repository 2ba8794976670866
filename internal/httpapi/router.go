package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the router's feature toggles.
type RouterConfig struct {
	// CORSEnabled turns on the CORS middleware with CORSAllowedOrigins.
	CORSEnabled bool

	// CORSAllowedOrigins lists the origins allowed when CORS is enabled.
	// Empty means allow all.
	CORSAllowedOrigins []string

	// APIKey protects the data routes when non-empty. Health and metrics
	// stay public for probes and scrapers.
	APIKey string
}

// NewRouter builds the gin engine with the full middleware stack and routes.
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	if cfg.CORSEnabled {
		corsConfig := cors.DefaultConfig()
		if len(cfg.CORSAllowedOrigins) == 0 {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		}
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, apiKeyHeader, RequestIDHeader)
		corsConfig.ExposeHeaders = append(corsConfig.ExposeHeaders, RequestIDHeader)
		router.Use(cors.New(corsConfig))
	}

	router.Use(
		RequestID(),
		Recovery(),
		HTTPMetrics(),
		gzip.Gzip(gzip.DefaultCompression),
		RequestLogger(),
	)

	router.GET("/health", handler.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/")
	api.Use(APIKeyAuth(cfg.APIKey))

	api.GET("/quote", handler.getBulkQuotes)
	api.GET("/quote/:symbol", handler.getQuote)
	api.GET("/news/:symbol", handler.getNews)
	api.GET("/historical/:symbol", handler.getHistory)
	api.GET("/earnings/:symbol", handler.getEarnings)
	api.GET("/info/:symbol", handler.getInfo)
	api.GET("/splits/:symbol", handler.getSplits)
	api.GET("/snapshot/:symbol", handler.getSnapshot)

	return router
}
