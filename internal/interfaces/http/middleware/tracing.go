package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns the otelgin middleware, or a pass-through when disabled.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName)
}

// EnrichSpan tags the server span with request_id, subject_id and role once the
// rest of the chain has run, so the actor resolved by auth is known.
func EnrichSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if id := logger.GetRequestID(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if subject := logger.GetSubjectID(ctx); subject != "" {
			span.SetAttributes(attribute.String("subject_id", subject))
		}
		if role := GetRole(c); role != "" {
			span.SetAttributes(attribute.String("role", string(role)))
		}
	}
}
