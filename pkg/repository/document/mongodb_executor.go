package document

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/tracing"
	mongostore "github.com/Andi3172/fullstack-tic-project/pkg/store/mongodb"
)

// ErrNoDocuments is returned by executors when a single-document read misses.
var ErrNoDocuments = errors.New("document not found")

// MongoExecutor defines the document execution contract used by the
// MongoDB-backed repositories. Documents travel as plain maps so repositories
// can be exercised without a server.
type MongoExecutor interface {
	InsertOne(ctx context.Context, collection string, document map[string]interface{}) (interface{}, error)
	// FindOne returns ErrNoDocuments on a miss.
	FindOne(ctx context.Context, collection string, filter Filter) (map[string]interface{}, error)
	Find(ctx context.Context, collection string, opts QueryOptions) ([]map[string]interface{}, error)
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, opts ...*options.AggregateOptions) ([]map[string]interface{}, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// UpdateOne returns the number of matched documents.
	UpdateOne(ctx context.Context, collection string, filter Filter, update map[string]interface{}) (int64, error)
	// InsertMissing writes each document keyed by its _id only when no
	// document with that id exists, returning how many were inserted.
	InsertMissing(ctx context.Context, collection string, documents []map[string]interface{}) (int64, error)
}

// MongoDBExecutor adapts the store/mongodb adapter to MongoExecutor.
type MongoDBExecutor struct {
	adapter *mongostore.Adapter
	dbName  string
}

// NewMongoDBExecutor creates a new MongoDBExecutor instance.
func NewMongoDBExecutor(adapter *mongostore.Adapter, dbName string) (*MongoDBExecutor, error) {
	if adapter == nil {
		return nil, fmt.Errorf("mongodb adapter is required")
	}
	return &MongoDBExecutor{adapter: adapter, dbName: dbName}, nil
}

func (e *MongoDBExecutor) span(ctx context.Context, op tracing.SpanOperation, collection string) (context.Context, func(error)) {
	ctx, span := tracing.StartDatabaseSpan(ctx, op,
		tracing.WithDBSystem("mongodb"),
		tracing.WithDBName(e.dbName),
		tracing.WithDBTable(collection),
	)
	return ctx, func(err error) {
		if err != nil && !errors.Is(err, ErrNoDocuments) {
			tracing.RecordError(span, err)
		} else {
			tracing.RecordSuccess(span)
		}
		span.End()
	}
}

// InsertOne inserts a document into the collection.
func (e *MongoDBExecutor) InsertOne(ctx context.Context, collection string, document map[string]interface{}) (id interface{}, err error) {
	ctx, done := e.span(ctx, tracing.SpanOperationDBInsert, collection)
	defer func() { done(err) }()

	result, err := e.adapter.InsertOne(ctx, collection, bson.M(document))
	if err != nil {
		return nil, err
	}
	return result.InsertedID, nil
}

// FindOne finds a single document matching the filter.
func (e *MongoDBExecutor) FindOne(ctx context.Context, collection string, filter Filter) (doc map[string]interface{}, err error) {
	ctx, done := e.span(ctx, tracing.SpanOperationDBQuery, collection)
	defer func() { done(err) }()

	out := bson.M{}
	if err := e.adapter.FindOne(ctx, collection, bson.M(filter), &out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocuments
		}
		return nil, err
	}
	return map[string]interface{}(out), nil
}

// Find returns every document matching opts.Filter, honouring sort and limit.
func (e *MongoDBExecutor) Find(ctx context.Context, collection string, opts QueryOptions) (docs []map[string]interface{}, err error) {
	ctx, done := e.span(ctx, tracing.SpanOperationDBQuery, collection)
	defer func() { done(err) }()

	findOpts := options.Find()
	if opts.Sort.Field != "" {
		direction := 1
		if opts.Sort.Order == SortDesc {
			direction = -1
		}
		findOpts.SetSort(bson.D{{Key: opts.Sort.Field, Value: direction}})
	}
	if opts.Pagination.Limit > 0 {
		findOpts.SetLimit(int64(opts.Pagination.Limit))
	}

	filter := bson.M(opts.Filter)
	if filter == nil {
		filter = bson.M{}
	}
	var results []bson.M
	if err := e.adapter.FindAll(ctx, collection, filter, &results, findOpts); err != nil {
		return nil, err
	}
	return toMaps(results), nil
}

// Aggregate runs pipeline against the collection.
func (e *MongoDBExecutor) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, opts ...*options.AggregateOptions) (docs []map[string]interface{}, err error) {
	ctx, done := e.span(ctx, tracing.SpanOperationDBQuery, collection)
	defer func() { done(err) }()

	var results []bson.M
	if err := e.adapter.Aggregate(ctx, collection, pipeline, &results, opts...); err != nil {
		return nil, err
	}
	return toMaps(results), nil
}

// Count returns the number of documents matching filter.
func (e *MongoDBExecutor) Count(ctx context.Context, collection string, filter Filter) (n int64, err error) {
	ctx, done := e.span(ctx, tracing.SpanOperationDBQuery, collection)
	defer func() { done(err) }()

	f := bson.M(filter)
	if f == nil {
		f = bson.M{}
	}
	return e.adapter.CountDocuments(ctx, collection, f)
}

// UpdateOne updates a single document matching the filter.
func (e *MongoDBExecutor) UpdateOne(ctx context.Context, collection string, filter Filter, update map[string]interface{}) (matched int64, err error) {
	ctx, done := e.span(ctx, tracing.SpanOperationDBUpdate, collection)
	defer func() { done(err) }()

	result, err := e.adapter.UpdateOne(ctx, collection, bson.M(filter), bson.M(update))
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

// InsertMissing upserts each document with $setOnInsert so existing ids are
// left untouched.
func (e *MongoDBExecutor) InsertMissing(ctx context.Context, collection string, documents []map[string]interface{}) (inserted int64, err error) {
	if len(documents) == 0 {
		return 0, nil
	}
	ctx, done := e.span(ctx, tracing.SpanOperationDBInsert, collection)
	defer func() { done(err) }()

	models := make([]mongo.WriteModel, 0, len(documents))
	for _, doc := range documents {
		id, ok := doc["_id"]
		if !ok {
			return 0, fmt.Errorf("document without _id cannot be inserted conditionally")
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$setOnInsert": bson.M(doc)}).
			SetUpsert(true))
	}

	result, err := e.adapter.BulkWrite(ctx, collection, models)
	if err != nil {
		return 0, err
	}
	return result.UpsertedCount, nil
}

func toMaps(in []bson.M) []map[string]interface{} {
	out := make([]map[string]interface{}, len(in))
	for i, doc := range in {
		out[i] = map[string]interface{}(doc)
	}
	return out
}

// decode converts a raw document map into a typed document struct through
// BSON, so bson tags and driver types (Decimal128, DateTime) apply.
func decode(doc map[string]interface{}, out interface{}) error {
	raw, err := bson.Marshal(bson.M(doc))
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// encode converts a typed document struct into a map for the executor.
func encode(in interface{}) (map[string]interface{}, error) {
	raw, err := bson.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := bson.M{}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return map[string]interface{}(out), nil
}
