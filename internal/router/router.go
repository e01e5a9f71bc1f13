package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DangLinWang11/tip-app-sub004/internal/api"
	"github.com/DangLinWang11/tip-app-sub004/internal/middleware"
)

// SetupRouter configures the application routes
func SetupRouter(
	authHandler *api.AuthHandler,
	draftHandler *api.DraftHandler,
	reviewHandler *api.ReviewHandler,
) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORS())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	authHandler.RegisterRoutes(v1)
	draftHandler.RegisterRoutes(v1)
	reviewHandler.RegisterRoutes(v1)

	return router
}
