package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type ManagerMiddleware struct {
	log      *logger.Logger
	required bool
}

// NewManagerMiddleware builds the write gate. With required=false every request passes
// and the manager id is simply recorded when present.
func NewManagerMiddleware(log *logger.Logger, required bool) *ManagerMiddleware {
	return &ManagerMiddleware{log: log.With("middleware", "ManagerMiddleware"), required: required}
}

// RequireManager rejects requests without an X-Manager-ID header when configured to.
// Must run after AttachRequestContext.
func (m *ManagerMiddleware) RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.required {
			c.Next()
			return
		}
		if ctxutil.ManagerID(c.Request.Context()) == "" {
			m.log.Debug("Rejected write without manager id", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing " + headerManagerID + " header", "code": "missing_manager_id"},
			})
			return
		}
		c.Next()
	}
}
