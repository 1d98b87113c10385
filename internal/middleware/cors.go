package middleware

import (
	"strings"
	"time"

	"github.com/artswipe/backend/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS creates a CORS middleware from the configured origins.
// In development any origin is accepted so the Vite dev server works on any port.
func CORS(cfg *config.Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}

	corsConfig := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}

	switch {
	case cfg.Env == "development":
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	case len(origins) == 0:
		corsConfig.AllowOriginFunc = func(origin string) bool { return false }
	default:
		corsConfig.AllowOrigins = origins
	}

	return cors.New(corsConfig)
}
