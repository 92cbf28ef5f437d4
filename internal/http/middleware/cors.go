package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultOrigins = []string{
	"http://localhost:80",
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:80",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows the dashboard origins. extra comes from CORS_ALLOW_ORIGINS.
func CORS(extra ...string) gin.HandlerFunc {
	origins := append([]string{}, defaultOrigins...)
	for _, o := range extra {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With", headerManagerID, headerRequestID, headerTraceID},
		ExposeHeaders:    []string{headerRequestID, headerTraceID, "Retry-After"},
		AllowCredentials: true,
	})
}
