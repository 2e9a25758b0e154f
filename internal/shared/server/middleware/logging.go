package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ballot-backend/internal/shared/telemetry"
)

// Context keys handlers may set so the request log carries pipeline results.
const (
	PollIDKey   = "pollId"
	ReasonKey   = "reason"
	StageKey    = "stage"
	FileNameKey = "fileName"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"poll_id":     c.GetString(PollIDKey),
			"reason":      c.GetString(ReasonKey),
			"stage":       c.GetString(StageKey),
			"file_name":   c.GetString(FileNameKey),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
