package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= 500 {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// RegisterRoutes registers the API's routes under /api/v1.
func RegisterRoutes(router *gin.Engine, api *API) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/ask", api.AskHandler)
		v1.POST("/refresh", api.RefreshHandler)
		v1.GET("/status", api.StatusHandler)
	}

	sessions := v1.Group("/sessions")
	{
		sessions.POST("", api.CreateSessionHandler)
		sessions.GET("/:id/history", api.HistoryHandler)
		sessions.DELETE("/:id", api.DeleteSessionHandler)
	}
}

// NewRouter returns a gin engine with recovery, request logging and the
// API's routes.
func NewRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(api.logger))
	RegisterRoutes(router, api)
	return router
}
