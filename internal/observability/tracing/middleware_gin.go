package tracing

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/smallbiznis/covena/internal/observability/tracing"

// GinMiddleware starts a server span per request, continuing any remote
// trace context found in the incoming headers.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)

	return func(c *gin.Context) {
		start := time.Now()

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracer.Start(ctx, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(SafeAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			)...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(SafeAttributes(
			attribute.String("http.status_code", strconv.Itoa(status)),
			attribute.String("http.server_duration_ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10)),
		)...)

		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
			for _, ginErr := range c.Errors {
				span.RecordError(SafeError(ginErr.Err))
			}
		}
	}
}
