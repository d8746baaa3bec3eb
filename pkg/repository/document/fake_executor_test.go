package document

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeExecutor keeps documents in memory and records aggregation calls. It
// supports equality filters and single-field sorts only.
type fakeExecutor struct {
	mu          sync.Mutex
	collections map[string][]map[string]interface{}
	err         error

	pipelines     []mongo.Pipeline
	aggregateOpts [][]*options.AggregateOptions
	aggregateOut  []map[string]interface{}
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{collections: map[string][]map[string]interface{}{}}
}

func (f *fakeExecutor) InsertOne(ctx context.Context, collection string, document map[string]interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.collections[collection] {
		if id, ok := document["_id"]; ok && existing["_id"] == id {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
		}
	}
	f.collections[collection] = append(f.collections[collection], document)
	return document["_id"], nil
}

func (f *fakeExecutor) FindOne(ctx context.Context, collection string, filter Filter) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, doc := range f.collections[collection] {
		if matches(doc, filter) {
			return copyDoc(doc), nil
		}
	}
	return nil, ErrNoDocuments
}

func (f *fakeExecutor) Find(ctx context.Context, collection string, opts QueryOptions) ([]map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []map[string]interface{}
	for _, doc := range f.collections[collection] {
		if matches(doc, opts.Filter) {
			out = append(out, copyDoc(doc))
		}
	}
	if opts.Sort.Field != "" {
		field := opts.Sort.Field
		sort.SliceStable(out, func(i, j int) bool {
			if opts.Sort.Order == SortDesc {
				return sortValue(out[i][field]) > sortValue(out[j][field])
			}
			return sortValue(out[i][field]) < sortValue(out[j][field])
		})
	}
	return out, nil
}

func (f *fakeExecutor) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, opts ...*options.AggregateOptions) ([]map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipelines = append(f.pipelines, pipeline)
	f.aggregateOpts = append(f.aggregateOpts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.aggregateOut, nil
}

func (f *fakeExecutor) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, doc := range f.collections[collection] {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeExecutor) UpdateOne(ctx context.Context, collection string, filter Filter, update map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for _, doc := range f.collections[collection] {
		if !matches(doc, filter) {
			continue
		}
		set, _ := update["$set"].(primitive.M)
		for k, v := range set {
			setPath(doc, strings.Split(k, "."), v)
		}
		return 1, nil
	}
	return 0, nil
}

func (f *fakeExecutor) InsertMissing(ctx context.Context, collection string, documents []map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var inserted int64
	for _, doc := range documents {
		exists := false
		for _, existing := range f.collections[collection] {
			if existing["_id"] == doc["_id"] {
				exists = true
				break
			}
		}
		if !exists {
			f.collections[collection] = append(f.collections[collection], doc)
			inserted++
		}
	}
	return inserted, nil
}

// setPath assigns v at a dotted path, creating intermediate documents.
func setPath(doc map[string]interface{}, path []string, v interface{}) {
	if len(path) == 1 {
		doc[path[0]] = v
		return
	}
	var next map[string]interface{}
	switch child := doc[path[0]].(type) {
	case primitive.M:
		next = child
	case map[string]interface{}:
		next = child
	default:
		next = map[string]interface{}{}
		doc[path[0]] = next
	}
	setPath(next, path[1:], v)
}

func matches(doc map[string]interface{}, filter Filter) bool {
	for k, v := range filter {
		if doc[k] != v {
			return false
		}
	}
	return true
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func sortValue(v interface{}) string {
	switch typed := v.(type) {
	case primitive.DateTime:
		return fmt.Sprintf("%020d", int64(typed))
	default:
		return fmt.Sprint(typed)
	}
}
