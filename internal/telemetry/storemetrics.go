package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	storeMetricsEnabled bool
	viewFetchesTotal    metric.Int64Counter
	viewStaleTotal      metric.Int64Counter
	cacheLookupsTotal   metric.Int64Counter
	persistsTotal       metric.Int64Counter
)

func initStoreMetricsInstruments(serviceName string) {
	meter := otel.Meter(serviceName + "/stores")

	var err error
	viewFetchesTotal, err = meter.Int64Counter(
		"codever_view_fetches_total",
		metric.WithDescription("Remote fetches issued by view stores"),
	)
	if err != nil {
		return
	}

	viewStaleTotal, err = meter.Int64Counter(
		"codever_view_stale_responses_total",
		metric.WithDescription("Fetch responses discarded because a newer request was issued"),
	)
	if err != nil {
		return
	}

	cacheLookupsTotal, err = meter.Int64Counter(
		"codever_localcache_lookups_total",
		metric.WithDescription("Persisted cache lookups by result"),
	)
	if err != nil {
		return
	}

	persistsTotal, err = meter.Int64Counter(
		"codever_userdata_persists_total",
		metric.WithDescription("User document persist calls by operation and status"),
	)
	if err != nil {
		return
	}

	storeMetricsEnabled = true
}

func RecordViewFetch(ctx context.Context, view string, err error) {
	if !storeMetricsEnabled {
		return
	}
	viewFetchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("view", view),
		attribute.String("status", statusLabel(err)),
	))
}

func RecordStaleResponse(ctx context.Context, view string) {
	if !storeMetricsEnabled {
		return
	}
	viewStaleTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
}

func RecordCacheLookup(ctx context.Context, key, result string) {
	if !storeMetricsEnabled {
		return
	}
	cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.result", result),
	))
}

func RecordPersist(ctx context.Context, op string, err error) {
	if !storeMetricsEnabled {
		return
	}
	persistsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("status", statusLabel(err)),
	))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
