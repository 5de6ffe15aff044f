package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/covena/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MiddlewareConfig configures the request logging middleware.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps a handler error to a log level; nil means every
	// handler error logs at error level.
	ErrorClassifier func(err error) zapcore.Level
}

// GinMiddleware assigns a request id, propagates correlation context and
// emits one structured access log line per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		if companyID := strings.TrimSpace(c.GetHeader("X-Company-ID")); companyID != "" {
			ctx = obscontext.WithCompanyID(ctx, companyID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("response_bytes", c.Writer.Size()),
		}

		log := FromContext(ctx)
		lastErr := c.Errors.Last()
		if lastErr == nil {
			if cfg.Debug || c.Writer.Status() >= 500 {
				log.Info("http.request", fields...)
			}
			return
		}

		fields = append(fields, zap.Error(lastErr.Err))
		level := zap.ErrorLevel
		if cfg.ErrorClassifier != nil {
			level = cfg.ErrorClassifier(lastErr.Err)
		}
		switch level {
		case zap.WarnLevel:
			log.Warn("http.request", fields...)
		case zap.InfoLevel, zap.DebugLevel:
			log.Info("http.request", fields...)
		default:
			log.Error("http.request", fields...)
		}
	}
}
