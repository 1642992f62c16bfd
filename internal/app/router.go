package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"paygate/internal/handler"
	"paygate/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler *handler.PaymentHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		payments := v1.Group("/payments")
		{
			payments.POST("/initialize", deps.PaymentHandler.InitializePayment)
			payments.POST("/confirm", deps.PaymentHandler.ConfirmPayment)
			payments.GET("/status/:transactionId", deps.PaymentHandler.GetPaymentStatus)
			payments.GET("/reference/:reference", deps.PaymentHandler.GetPaymentByReference)
			payments.POST("/refund/:transactionId", deps.PaymentHandler.RefundPayment)
			payments.POST("/webhook/callback", deps.PaymentHandler.HandleCallback)
			payments.GET("/list", deps.PaymentHandler.ListPayments)
			payments.GET("/stats", deps.PaymentHandler.GetStats)
		}
	}

	return router
}
