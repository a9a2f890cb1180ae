package db

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instruments is nil until InitTelemetry; spans still go to the global tracer.
var (
	tracer      trace.Tracer = otel.Tracer("codever/db")
	instruments *queryInstruments
)

type queryInstruments struct {
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// InitTelemetry binds the query tracer and metrics to serviceName. Metric
// registration failures leave metrics off.
func InitTelemetry(serviceName string) {
	tracer = otel.Tracer(serviceName + "/db")
	meter := otel.Meter(serviceName + "/db")

	duration, err := meter.Float64Histogram(
		"codever_db_query_duration_seconds",
		metric.WithDescription("Latency of gateway queries against PostgreSQL"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}
	failures, err := meter.Int64Counter(
		"codever_db_query_errors_total",
		metric.WithDescription("Failed gateway queries against PostgreSQL"),
	)
	if err != nil {
		return
	}
	instruments = &queryInstruments{duration: duration, failures: failures}
}

// observation is one in-flight statement. finish is idempotent so row
// wrappers can call it from Close and Scan alike.
type observation struct {
	ctx   context.Context
	span  trace.Span
	op    string
	start time.Time
	once  sync.Once
}

func observe(ctx context.Context, sql string) (context.Context, *observation) {
	op := statementVerb(sql)
	ctx, span := tracer.Start(ctx, "DB "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
		),
	)
	return ctx, &observation{ctx: ctx, span: span, op: op, start: time.Now()}
}

func (o *observation) finish(err error) {
	o.once.Do(func() {
		failed := err != nil && !errors.Is(err, pgx.ErrNoRows)
		if failed {
			o.span.RecordError(err)
			o.span.SetStatus(codes.Error, "db_error")
		}
		o.span.End()

		m := instruments
		if m == nil {
			return
		}
		opt := metric.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", o.op),
			attribute.String("db.status", outcome(err)),
		)
		m.duration.Record(o.ctx, time.Since(o.start).Seconds(), opt)
		if failed {
			m.failures.Add(o.ctx, 1, opt)
		}
	})
}

type observedQueryer struct {
	next Queryer
}

func observed(q Queryer) Queryer { return observedQueryer{next: q} }

func (q observedQueryer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ctx, o := observe(ctx, sql)
	tag, err := q.next.Exec(ctx, sql, args...)
	o.finish(err)
	return tag, err
}

func (q observedQueryer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, o := observe(ctx, sql)
	rows, err := q.next.Query(ctx, sql, args...)
	if err != nil {
		o.finish(err)
		return rows, err
	}
	return observedRows{Rows: rows, o: o}, nil
}

func (q observedQueryer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, o := observe(ctx, sql)
	return observedRow{row: q.next.QueryRow(ctx, sql, args...), o: o}
}

type observedRows struct {
	pgx.Rows
	o *observation
}

func (r observedRows) Close() {
	r.Rows.Close()
	r.o.finish(r.Rows.Err())
}

type observedRow struct {
	row pgx.Row
	o   *observation
}

func (r observedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	r.o.finish(err)
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pgx.ErrNoRows):
		return "no_rows"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// statementVerb is the leading SQL keyword, upper-cased.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(strings.TrimRight(fields[0], "("))
}
