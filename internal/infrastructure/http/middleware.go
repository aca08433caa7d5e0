package httptransport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/paysys/payment-integration/internal/observability"
	"github.com/paysys/payment-integration/internal/observability/logctx"
)

// ObservabilityMiddleware handles the request-scoped plumbing in one place:
// W3C trace-context extraction, request-id generation and echo, a
// request-scoped logger on the context, and HTTP metrics with low-cardinality
// labels (the route template, never the raw path).
func ObservabilityMiddleware(base observability.Logger, tel observability.Observability) gin.HandlerFunc {
	if base == nil {
		base = observability.NopLogger()
	}
	metrics := observability.NopMetrics()
	if tel != nil {
		metrics = tel.Metrics()
	}
	reqCounter := metrics.Counter(observability.MHTTPRequests)
	durHist := metrics.Histogram(observability.MHTTPRequestDuration)
	prop := otel.GetTextMapPropagator() // W3C by default

	return func(c *gin.Context) {
		ctx := prop.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		sc := trace.SpanContextFromContext(ctx)

		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = c.GetHeader("X-Correlation-Id")
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", rid)

		fields := []observability.Field{observability.F("request_id", rid)}
		if sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		reqLogger := base.With(fields...)
		c.Request = c.Request.WithContext(logctx.With(ctx, reqLogger))

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		reqCounter.Add(1,
			observability.L("method", c.Request.Method),
			observability.L("route", route),
			observability.L("status", status),
		)
		durHist.Observe(time.Since(start).Seconds(),
			observability.L("method", c.Request.Method),
			observability.L("route", route),
			observability.L("status", status),
		)

		reqLogger.Info("http_request_done",
			observability.F("method", c.Request.Method),
			observability.F("route", route),
			observability.F("status", c.Writer.Status()),
			observability.F("latency_seconds", time.Since(start).Seconds()),
		)
	}
}
