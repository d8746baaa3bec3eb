package document

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
)

// ProductsCollection is the collection holding catalog records.
const ProductsCollection = "products"

const sortKeyField = "_sortKey"

// stringCollation orders string sort keys the way the in-memory comparator
// does: locale aware rather than by byte value.
var stringCollation = &options.Collation{Locale: "en"}

type productDocument struct {
	ID          string          `bson:"_id"`
	Name        string          `bson:"name"`
	Category    string          `bson:"category"`
	Price       *float64        `bson:"price"`
	Image       string          `bson:"image"`
	Description string          `bson:"description"`
	Stock       int             `bson:"stock"`
	Specs       bson.M          `bson:"specs,omitempty"`
	Metadata    productMetadata `bson:"metadata"`
}

type productMetadata struct {
	CreatedAt string `bson:"createdAt"`
}

func (d productDocument) toProduct() catalog.Product {
	var specs map[string]any
	if d.Specs != nil {
		specs = normalize(map[string]interface{}(d.Specs)).(map[string]any)
	}
	return catalog.Product{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		Price:       d.Price,
		Image:       d.Image,
		Description: d.Description,
		Stock:       d.Stock,
		Specs:       specs,
		Metadata:    catalog.Metadata{CreatedAt: d.Metadata.CreatedAt},
	}
}

func productToDocument(p catalog.Product) productDocument {
	return productDocument{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Image:       p.Image,
		Description: p.Description,
		Stock:       p.Stock,
		Specs:       bson.M(p.Specs),
		Metadata:    productMetadata{CreatedAt: p.Metadata.CreatedAt},
	}
}

// normalize converts driver container types into plain maps and slices so
// specs serialize to JSON the same way regardless of how they were decoded.
func normalize(v interface{}) interface{} {
	switch typed := v.(type) {
	case bson.M:
		return normalize(map[string]interface{}(typed))
	case map[string]interface{}:
		out := make(map[string]any, len(typed))
		for k, inner := range typed {
			out[k] = normalize(inner)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(typed))
		for _, elem := range typed {
			out[elem.Key] = normalize(elem.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = normalize(inner)
		}
		return out
	case []interface{}:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = normalize(inner)
		}
		return out
	case primitive.Decimal128:
		if f, err := decimal128ToFloat(typed); err == nil {
			return f
		}
		return typed.String()
	default:
		return v
	}
}

// ProductRepository reads and seeds catalog records in MongoDB. It
// implements catalog.Store.
type ProductRepository struct {
	exec MongoExecutor
}

// NewProductRepository creates a product repository over exec.
func NewProductRepository(exec MongoExecutor) *ProductRepository {
	return &ProductRepository{exec: exec}
}

// GetAll reads the whole collection.
func (r *ProductRepository) GetAll(ctx context.Context) ([]catalog.Product, error) {
	docs, err := r.exec.Find(ctx, ProductsCollection, QueryOptions{Filter: Filter{}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return decodeProducts(docs)
}

// GetByID returns catalog.ErrNotFound when the id does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	doc, err := r.exec.FindOne(ctx, ProductsCollection, Filter{"_id": id})
	if err != nil {
		if errors.Is(err, ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	var pd productDocument
	if err := decode(doc, &pd); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	p := pd.toProduct()
	return &p, nil
}

// RangeQuery returns one batch ordered by (sort key, _id). The sort key
// mirrors catalog.SortKey: a missing price is +Inf and missing strings are
// empty.
func (r *ProductRepository) RangeQuery(ctx context.Context, q catalog.RangeQuery) ([]catalog.Product, error) {
	if !catalog.IsSortable(q.SortBy) {
		return nil, fmt.Errorf("field %q is not sortable", q.SortBy)
	}

	var after *catalog.Product
	if q.AfterID != "" {
		p, err := r.GetByID(ctx, q.AfterID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			after = p
		}
	}

	pipeline := rangePipeline(q, after)
	var opts []*options.AggregateOptions
	if _, isString := catalog.SortKey(catalog.Product{}, q.SortBy).(string); isString {
		opts = append(opts, options.Aggregate().SetCollation(stringCollation))
	}

	docs, err := r.exec.Aggregate(ctx, ProductsCollection, pipeline, opts...)
	if err != nil {
		return nil, fmt.Errorf("range query products: %w", err)
	}
	return decodeProducts(docs)
}

// Count returns the number of records in category, or all records when
// category is empty.
func (r *ProductRepository) Count(ctx context.Context, category string) (int64, error) {
	filter := Filter{}
	if category != "" {
		filter["category"] = category
	}
	n, err := r.exec.Count(ctx, ProductsCollection, filter)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// InsertMissing writes products whose id is not yet stored and returns how
// many were new. Existing records are never overwritten.
func (r *ProductRepository) InsertMissing(ctx context.Context, products []catalog.Product) (int64, error) {
	docs := make([]map[string]interface{}, 0, len(products))
	for _, p := range products {
		doc, err := encode(productToDocument(p))
		if err != nil {
			return 0, fmt.Errorf("encode product %s: %w", p.ID, err)
		}
		docs = append(docs, doc)
	}
	n, err := r.exec.InsertMissing(ctx, ProductsCollection, docs)
	if err != nil {
		return 0, fmt.Errorf("insert products: %w", err)
	}
	return n, nil
}

// ProductIndexes are the indexes backing category filters and range reads.
func ProductIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}}},
	}
}

func rangePipeline(q catalog.RangeQuery, after *catalog.Product) mongo.Pipeline {
	direction := 1
	cmpOp := "$gt"
	if q.Desc {
		direction = -1
		cmpOp = "$lt"
	}

	match := bson.D{}
	if q.Category != "" {
		match = append(match, bson.E{Key: "category", Value: q.Category})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.D{{Key: sortKeyField, Value: sortKeyExpression(q.SortBy)}}}},
	}

	if after != nil {
		key := catalog.SortKey(*after, q.SortBy)
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: sortKeyField, Value: bson.D{{Key: cmpOp, Value: key}}}},
			bson.D{
				{Key: sortKeyField, Value: key},
				{Key: "_id", Value: bson.D{{Key: "$gt", Value: after.ID}}},
			},
		}}}}})
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: sortKeyField, Value: direction}, {Key: "_id", Value: 1}}}},
	)
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(q.Limit)}})
	}
	return pipeline
}

func sortKeyExpression(field string) interface{} {
	switch field {
	case "price":
		return bson.D{{Key: "$ifNull", Value: bson.A{"$price", math.Inf(1)}}}
	case "id":
		return "$_id"
	case "stock":
		return bson.D{{Key: "$ifNull", Value: bson.A{"$stock", 0}}}
	case "createdAt":
		return bson.D{{Key: "$ifNull", Value: bson.A{"$metadata.createdAt", ""}}}
	default:
		return bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, ""}}}
	}
}

func decodeProducts(docs []map[string]interface{}) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(docs))
	for _, doc := range docs {
		var pd productDocument
		if err := decode(doc, &pd); err != nil {
			return nil, fmt.Errorf("decode product %v: %w", doc["_id"], err)
		}
		out = append(out, pd.toProduct())
	}
	return out, nil
}
