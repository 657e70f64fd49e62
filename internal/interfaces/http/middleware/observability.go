package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/cle/internal/infrastructure/monitoring"
)

// Observability returns a gin middleware integrating Prometheus metrics and
// OpenTelemetry tracing. Each request gets a span named "METHOD /route",
// and metrics are labeled with the route template to keep cardinality low.
// Observability 返回一个集成了 Prometheus 指标和 OpenTelemetry 跟踪的 gin 中间件。
// 每个请求获得一个名为 "METHOD /route" 的 span，指标使用路由模板作为标签以保持低基数。
func Observability(tracer trace.Tracer, metrics *monitoring.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()

		if span.SpanContext().IsValid() {
			c.Set("trace_id", span.SpanContext().TraceID().String())
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "not_found"
		}

		metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration.Seconds())

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.path", path),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.String("http.client_ip", c.ClientIP()),
		)
	}
}
