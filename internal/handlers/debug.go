package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messageapp/internal/telemetry"
)

// HealthCheck handles GET /healthCheck.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "time": time.Now().UTC()})
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitAudit(emitter, c, telemetry.LevelInfo, "debug.audit_test", "audit test")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
