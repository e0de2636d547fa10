package api

import (
	"time"

	"github.com/gin-gonic/gin"

	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
)

// NewRouter builds the admin router with middleware and routes
func NewRouter(handler *AdminHandler, logger coreport.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", handler.Health)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/holdings", handler.ListHoldings)
		apiGroup.GET("/users/:id/balance", handler.GetBalance)
		apiGroup.GET("/users/:id/holdings", handler.ListUserHoldings)
	}

	return router
}

// requestLogger logs each admin request with its latency
func requestLogger(logger coreport.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Admin request", map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
	}
}
