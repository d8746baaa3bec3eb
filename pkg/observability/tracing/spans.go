package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation names a traced store or cache operation.
type SpanOperation string

const (
	SpanOperationDBQuery  SpanOperation = "db.query"
	SpanOperationDBInsert SpanOperation = "db.insert"
	SpanOperationDBUpdate SpanOperation = "db.update"

	SpanOperationCacheGet     SpanOperation = "cache.get"
	SpanOperationCacheRefresh SpanOperation = "cache.refresh"
)

// StartDatabaseSpan starts a client span for a store operation. The span is
// named "DB <operation> <table>" when a table is given.
func StartDatabaseSpan(ctx context.Context, operation SpanOperation, opts ...DatabaseSpanOption) (context.Context, trace.Span) {
	o := &databaseSpanOptions{
		attributes: []attribute.KeyValue{attribute.String("db.operation", string(operation))},
	}
	for _, opt := range opts {
		opt(o)
	}

	name := fmt.Sprintf("DB %s", operation)
	if o.table != "" {
		name = fmt.Sprintf("DB %s %s", operation, o.table)
	}

	ctx, span := otel.Tracer("database").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(o.attributes...)
	return ctx, span
}

// DatabaseSpanOption configures a database span.
type DatabaseSpanOption func(*databaseSpanOptions)

type databaseSpanOptions struct {
	table      string
	attributes []attribute.KeyValue
}

// WithDBTable sets the table or collection name.
func WithDBTable(table string) DatabaseSpanOption {
	return func(o *databaseSpanOptions) {
		o.table = table
		o.attributes = append(o.attributes, attribute.String("db.table", table))
	}
}

// WithDBSystem sets the database system, e.g. "mongodb" or "postgresql".
func WithDBSystem(system string) DatabaseSpanOption {
	return func(o *databaseSpanOptions) {
		o.attributes = append(o.attributes, attribute.String("db.system", system))
	}
}

func WithDBStatement(statement string) DatabaseSpanOption {
	return func(o *databaseSpanOptions) {
		o.attributes = append(o.attributes, attribute.String("db.statement", statement))
	}
}

func WithDBName(name string) DatabaseSpanOption {
	return func(o *databaseSpanOptions) {
		o.attributes = append(o.attributes, attribute.String("db.name", name))
	}
}

// StartCacheSpan starts a span for a catalog cache operation.
func StartCacheSpan(ctx context.Context, operation SpanOperation, opts ...CacheSpanOption) (context.Context, trace.Span) {
	o := &cacheSpanOptions{
		attributes: []attribute.KeyValue{attribute.String("cache.operation", string(operation))},
	}
	for _, opt := range opts {
		opt(o)
	}

	name := fmt.Sprintf("CACHE %s", operation)
	if o.key != "" {
		name = fmt.Sprintf("CACHE %s %s", operation, o.key)
	}

	ctx, span := otel.Tracer("cache").Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(o.attributes...)
	return ctx, span
}

// CacheSpanOption configures a cache span.
type CacheSpanOption func(*cacheSpanOptions)

type cacheSpanOptions struct {
	key        string
	attributes []attribute.KeyValue
}

func WithCacheSystem(system string) CacheSpanOption {
	return func(o *cacheSpanOptions) {
		o.attributes = append(o.attributes, attribute.String("cache.system", system))
	}
}

func WithCacheKey(key string) CacheSpanOption {
	return func(o *cacheSpanOptions) {
		o.key = key
		o.attributes = append(o.attributes, attribute.String("cache.key", key))
	}
}

// WithCacheHit records whether the snapshot was fresh.
func WithCacheHit(hit bool) CacheSpanOption {
	return func(o *cacheSpanOptions) {
		o.attributes = append(o.attributes, attribute.Bool("cache.hit", hit))
	}
}

// RecordError marks span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess marks span as OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
