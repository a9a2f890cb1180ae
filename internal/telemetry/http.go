package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelLog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

var (
	httpMetricsEnabled bool
	httpRequestsTotal  metric.Int64Counter
	httpRequestSeconds metric.Float64Histogram
)

func initHTTPMetricsInstruments(serviceName string) {
	meter := otel.Meter(serviceName + "/http")

	var err error
	httpRequestsTotal, err = meter.Int64Counter(
		"codever_http_requests_total",
		metric.WithDescription("Local API requests"),
	)
	if err != nil {
		return
	}

	httpRequestSeconds, err = meter.Float64Histogram(
		"codever_http_request_duration_seconds",
		metric.WithDescription("Local API request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}

	httpMetricsEnabled = true
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// serve runs next and reports the written status and the matched chi route.
// The route is only known once chi has routed the request.
func serve(next http.Handler, w http.ResponseWriter, r *http.Request) (int, string) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(rec, r)

	route := "unknown_route"
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			route = p
		}
	}
	return rec.status, route
}

func ChiTraceMiddleware(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "HTTP "+r.Method+" "+r.URL.Path)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			)
			if id := middleware.GetReqID(ctx); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}

			status, route := serve(next, w, r.WithContext(ctx))

			span.SetName("HTTP " + r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
			)
			if status >= 500 {
				span.SetStatus(codes.Error, "server_error")
			}
		})
	}
}

func ChiMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status, route := serve(next, w, r)
		if !httpMetricsEnabled {
			return
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		httpRequestsTotal.Add(r.Context(), 1, attrs)
		httpRequestSeconds.Record(r.Context(), time.Since(start).Seconds(), attrs)
	})
}

func ChiLogMiddleware(serviceName string) func(http.Handler) http.Handler {
	logger := global.Logger(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			status, route := serve(next, w, r)

			severity := severityForStatus(status)
			var rec otelLog.Record
			rec.SetEventName("http.request")
			rec.SetTimestamp(time.Now())
			rec.SetSeverity(severity)
			rec.SetSeverityText(severityText(severity))
			rec.SetBody(otelLog.StringValue("request completed"))
			rec.AddAttributes(
				otelLog.String("http.method", r.Method),
				otelLog.String("http.route", route),
				otelLog.String("http.request_id", middleware.GetReqID(r.Context())),
				otelLog.Int("http.status_code", status),
				otelLog.Int64("http.duration_ms", time.Since(start).Milliseconds()),
			)
			logger.Emit(r.Context(), rec)
		})
	}
}

// severityForStatus logs the 503 of a session that went away as a warning,
// like any other client-visible refusal.
func severityForStatus(status int) otelLog.Severity {
	switch {
	case status >= 500 && status != http.StatusServiceUnavailable:
		return otelLog.SeverityError
	case status >= 400:
		return otelLog.SeverityWarn
	default:
		return otelLog.SeverityInfo
	}
}
