package router

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"github.com/dmarkin/timed-notifier/internal/api/handlers/metrics"
	"github.com/dmarkin/timed-notifier/internal/api/handlers/notification"
	"github.com/dmarkin/timed-notifier/internal/middlewares"
)

func New(notifHandler *notification.Handler, metricsHandler *metrics.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	e.GET("/health", func(c *ginext.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/notifications")
	{
		api.POST("/push", notifHandler.CreatePush)
		api.POST("/email", notifHandler.CreateEmail)
		api.GET("/", notifHandler.List)
		api.GET("/:id", notifHandler.GetStatus)
		api.POST("/:id/force", notifHandler.Force)
		api.POST("/:id/cancel", notifHandler.Cancel)
	}

	e.GET("/api/metrics", metricsHandler.Get)

	return e
}
