package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/communityvault/backend/internal/platform/envutil"
)

func CORS() gin.HandlerFunc {
	origins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if appURL := strings.TrimRight(envutil.Str("APP_URL", ""), "/"); appURL != "" {
		origins = append(origins, appURL)
	}
	for _, extra := range strings.Split(envutil.Str("CORS_ALLOWED_ORIGINS", ""), ",") {
		if extra = strings.TrimSpace(extra); extra != "" {
			origins = append(origins, extra)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "x-whop-user-token"},
		AllowCredentials: true,
	})
}
