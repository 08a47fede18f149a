package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"watch-party-service/internal/presence"
	"watch-party-service/internal/repositories"
	"watch-party-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints. They are off unless
// explicitly enabled and are not meant to be exposed publicly.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, registry *presence.Registry, users repositories.UserRepository, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/online", func(c *gin.Context) {
		if registry == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "presence registry not configured"})
			return
		}

		ids := registry.OnlineUsers()
		online := make([]gin.H, 0, len(ids))
		if users != nil && len(ids) > 0 {
			resolved, err := users.BulkUsers(c.Request.Context(), ids)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve users"})
				return
			}
			for _, user := range resolved {
				online = append(online, gin.H{"id": user.ID, "username": user.Username, "name": user.Name()})
			}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(ids), "users": online})
	})
}
