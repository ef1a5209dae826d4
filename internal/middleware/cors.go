package middleware

import (
	"time"

	"table_admin/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows any origin outside production and only
// ALLOWED_ORIGIN in production.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if cfg.IsProduction() {
		corsCfg.AllowOrigins = []string{cfg.HTTP.AllowedOrigin}
	} else {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	}

	return cors.New(corsCfg)
}
