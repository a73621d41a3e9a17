package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

//go:embed openapi.json
var openAPIDocument []byte

type Registrar interface {
	Register(router gin.IRoutes)
}

type RouterConfig struct {
	Logger            *zap.Logger
	RequestsPerSecond float64
	Burst             int
	// Health serves GET /healthz when set.
	Health http.Handler
}

func NewRouter(cfg RouterConfig, handlers ...Registrar) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDocument)
	})
	router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	if cfg.Health != nil {
		router.GET("/healthz", gin.WrapH(cfg.Health))
	}

	limited := router.Group("/", RateLimit(cfg.RequestsPerSecond, cfg.Burst, logger))
	for _, h := range handlers {
		h.Register(limited)
	}
	return router
}
