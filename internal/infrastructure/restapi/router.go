package restapi

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterOptions configures the non-API parts of the router.
type RouterOptions struct {
	AllowedOrigins  []string
	SwaggerEnabled  bool
	SwaggerSpecFile string // served at /docs/swagger.yaml
	Logger          *zap.Logger
}

// SetupRouter настраивает и возвращает экземпляр Gin роутера.
func SetupRouter(h *PortfolioHandler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	router.Use(metricsMiddleware())
	if opts.Logger != nil {
		router.Use(requestLogger(opts.Logger))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/chains", h.ListChainsHandler)

		wallets := v1.Group("/wallets")
		wallets.GET("/failed", h.GetFailedWalletsHandler)
		wallets.GET("/:address/holdings", h.GetWalletHoldingsHandler)
		wallets.GET("/:address/holdings/:chain", h.GetChainHoldingsHandler)
		wallets.GET("/:address/history/:chain", h.GetWalletHistoryHandler)
		wallets.GET("/:address/pnl/:chain", h.GetWalletPNLHandler)
		wallets.POST("/:address/snapshots", h.CaptureSnapshotHandler)
		wallets.GET("/:address/snapshots", h.GetSnapshotsHandler)
		wallets.GET("/:address/metrics", h.GetPortfolioMetricsHandler)
		wallets.GET("/:address/risk", h.GetPortfolioRiskHandler)
		wallets.POST("/:address/streams", h.SaveStreamsHandler)
		wallets.GET("/:address/streams", h.GetStreamsHandler)

		tokens := v1.Group("/tokens/:chain")
		tokens.POST("/holders/classify", h.ClassifyHoldersHandler)
		tokens.GET("/price/:token", h.GetTokenPriceHandler)
		tokens.GET("/metadata/:token", h.GetTokenMetadataHandler)
	}

	if opts.SwaggerEnabled && opts.SwaggerSpecFile != "" {
		// swag init не используется, UI читает статический swagger.yaml
		router.StaticFile("/docs/swagger.yaml", opts.SwaggerSpecFile)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
