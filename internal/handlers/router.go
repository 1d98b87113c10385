package handlers

import (
	"github.com/artswipe/backend/internal/config"
	"github.com/artswipe/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the API routes. assetsPath is served under /assets when non-empty.
func NewRouter(cfg *config.Config, imageHandler *ImageHandler, assetsPath string) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))

	router.GET("/health", imageHandler.Health)

	if assetsPath != "" {
		router.Static("/assets", assetsPath)
	}

	api := router.Group("/api")
	{
		api.GET("/stats", imageHandler.GetStats)

		images := api.Group("/images")
		{
			images.GET("/pending", imageHandler.GetPendingImages)
			images.GET("/liked", imageHandler.GetLikedImages)
			images.GET("/count", imageHandler.GetImageCount)
			images.POST("/generate", imageHandler.GenerateImages)
			images.POST("/:id/swipe", imageHandler.SwipeImage)
		}
	}

	return router
}
