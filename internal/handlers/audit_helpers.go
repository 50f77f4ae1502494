package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messageapp/internal/middleware"
	"messageapp/internal/observability"
	"messageapp/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(observability.RequestIDKey); id != "" {
		return id
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(observability.RequestIDKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// emitAudit records an audit entry for the current request. A nil emitter drops it.
func emitAudit(audit *telemetry.AuditEmitter, c *gin.Context, level, action, text string) {
	if audit == nil {
		return
	}
	ctx := c.Request.Context()
	var fields map[string]any
	if traceID := observability.TraceIDFromContext(ctx); traceID != "" {
		fields = map[string]any{"trace_id": traceID}
	}
	audit.Emit(ctx, telemetry.Record{
		Level:     level,
		Action:    action,
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
		Fields:    fields,
	})
}
