package restapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps собирает зависимости роутера.
type RouterDeps struct {
	Operations *OperationsHandler
	Execution  *ExecutionHandler
	// Gatherer is served on /metrics. Nil falls back to the default registry.
	Gatherer prometheus.Gatherer
	// AllowedOrigins restricts CORS. Empty allows every origin.
	AllowedOrigins []string
	Logger         *zap.Logger
}

// SetupRouter настраивает и возвращает экземпляр Gin роутера.
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(deps.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = deps.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	if deps.Logger != nil {
		router.Use(ZapLoggerMiddleware(deps.Logger))
	}
	router.Use(gin.Recovery())

	ops := router.Group("/api/v1/operations")
	{
		if deps.Operations != nil {
			ops.POST("/execution/update-status", deps.Operations.UpdateStatus)
			ops.GET("/execution/pending", deps.Operations.ListPending)
			ops.POST("/allowance/reset-token-status", deps.Operations.ResetTokenStatus)
			ops.POST("/allowance/reset-all-pending", deps.Operations.ResetAllPending)
		}
		if deps.Execution != nil {
			ops.POST("/execution/run/:chain", deps.Execution.Execute)
			ops.POST("/delegation/:chain/check", deps.Execution.CheckDelegations)
		}
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}
