package document

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
	"github.com/Andi3172/fullstack-tic-project/pkg/users"
	mongostore "github.com/Andi3172/fullstack-tic-project/pkg/store/mongodb"
)

func TestNewMongoDBExecutor_Validation(t *testing.T) {
	if _, err := NewMongoDBExecutor(nil, "catalog"); err == nil {
		t.Fatal("expected error for nil adapter")
	}

	exec, err := NewMongoDBExecutor(&mongostore.Adapter{}, "catalog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec == nil {
		t.Fatal("expected non-nil executor")
	}
}

func TestMongoDBExecutor_InsertMissingRequiresID(t *testing.T) {
	exec, _ := NewMongoDBExecutor(&mongostore.Adapter{}, "catalog")
	_, err := exec.InsertMissing(context.Background(), ProductsCollection, []map[string]interface{}{{"name": "x"}})
	if err == nil {
		t.Fatal("expected error for document without _id")
	}
}

func price(v float64) *float64 { return &v }

func TestProductRepository_InsertMissingAndGet(t *testing.T) {
	exec := newFakeExecutor()
	repo := NewProductRepository(exec)
	ctx := context.Background()

	products := []catalog.Product{
		{
			ID:       "corsair-vengeance-32gb",
			Name:     "Corsair Vengeance 32GB",
			Category: "memory",
			Price:    price(89.99),
			Specs:    map[string]any{"modules": []any{2, 16}, "timing": map[string]any{"cas": 16}},
			Metadata: catalog.Metadata{CreatedAt: "2024-01-01T00:00:00.000Z"},
		},
		{ID: "mystery-gpu", Name: "Mystery GPU", Category: "video-card"},
	}

	inserted, err := repo.InsertMissing(ctx, products)
	if err != nil || inserted != 2 {
		t.Fatalf("InsertMissing = %d, %v", inserted, err)
	}

	changed := products[0]
	changed.Name = "overwritten"
	inserted, err = repo.InsertMissing(ctx, []catalog.Product{changed})
	if err != nil || inserted != 0 {
		t.Fatalf("second InsertMissing = %d, %v", inserted, err)
	}

	got, err := repo.GetByID(ctx, "corsair-vengeance-32gb")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Corsair Vengeance 32GB" {
		t.Fatalf("existing record was overwritten: %q", got.Name)
	}
	if got.Price == nil || *got.Price != 89.99 {
		t.Fatalf("price = %v", got.Price)
	}
	modules, ok := got.Specs["modules"].([]any)
	if !ok || len(modules) != 2 {
		t.Fatalf("modules not normalized to []any: %#v", got.Specs["modules"])
	}
	if _, ok := got.Specs["timing"].(map[string]any); !ok {
		t.Fatalf("nested spec not normalized to map: %#v", got.Specs["timing"])
	}
	if !(catalog.SpecFilter{Name: catalog.FilterRAMSize, Options: []float64{32}}).Matches(*got) {
		t.Fatal("decoded modules should satisfy the ramSize filter")
	}

	mystery, err := repo.GetByID(ctx, "mystery-gpu")
	if err != nil || mystery.Price != nil {
		t.Fatalf("null price should round-trip as nil, got %+v, %v", mystery, err)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("GetAll = %d, %v", len(all), err)
	}

	n, err := repo.Count(ctx, "memory")
	if err != nil || n != 1 {
		t.Fatalf("Count(memory) = %d, %v", n, err)
	}
	n, err = repo.Count(ctx, "")
	if err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
}

func TestProductRepository_StoreErrors(t *testing.T) {
	exec := newFakeExecutor()
	exec.err = errors.New("connection reset")
	repo := NewProductRepository(exec)
	ctx := context.Background()

	if _, err := repo.GetAll(ctx); !errors.Is(err, exec.err) {
		t.Fatalf("GetAll error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "x"); !errors.Is(err, exec.err) || errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("GetByID error = %v", err)
	}
	if _, err := repo.Count(ctx, ""); !errors.Is(err, exec.err) {
		t.Fatalf("Count error = %v", err)
	}
}

func stageNames(p []bson.D) []string {
	names := make([]string, len(p))
	for i, stage := range p {
		names[i] = stage[0].Key
	}
	return names
}

func TestProductRepository_RangeQueryPipeline(t *testing.T) {
	exec := newFakeExecutor()
	repo := NewProductRepository(exec)
	ctx := context.Background()

	if _, err := repo.InsertMissing(ctx, []catalog.Product{{ID: "cursor", Category: "cpu"}}); err != nil {
		t.Fatalf("InsertMissing: %v", err)
	}
	exec.aggregateOut = []map[string]interface{}{
		{"_id": "next", "name": "Next", "category": "cpu", "price": 120.0, "_sortKey": 120.0},
	}

	got, err := repo.RangeQuery(ctx, catalog.RangeQuery{Category: "cpu", SortBy: "price", AfterID: "cursor", Limit: 10})
	if err != nil {
		t.Fatalf("RangeQuery: %v", err)
	}
	if len(got) != 1 || got[0].ID != "next" || *got[0].Price != 120 {
		t.Fatalf("unexpected result %+v", got)
	}

	pipeline := exec.pipelines[0]
	if want := []string{"$match", "$addFields", "$match", "$sort", "$limit"}; !reflect.DeepEqual(stageNames(pipeline), want) {
		t.Fatalf("stages = %v, want %v", stageNames(pipeline), want)
	}
	if pipeline[0][0].Value.(bson.D)[0].Value != "cpu" {
		t.Fatalf("category not pushed down: %v", pipeline[0])
	}

	cursor := pipeline[2][0].Value.(bson.D)[0].Value.(bson.A)
	after := cursor[0].(bson.D)[0].Value.(bson.D)[0]
	if after.Key != "$gt" || !math.IsInf(after.Value.(float64), 1) {
		t.Fatalf("null-priced cursor should resume after +Inf, got %v", after)
	}
	tie := cursor[1].(bson.D)
	if tie[1].Key != "_id" || tie[1].Value.(bson.D)[0].Value != "cursor" {
		t.Fatalf("tie-break on _id missing: %v", tie)
	}

	sortStage := pipeline[3][0].Value.(bson.D)
	if sortStage[0].Key != sortKeyField || sortStage[0].Value != 1 || sortStage[1].Key != "_id" || sortStage[1].Value != 1 {
		t.Fatalf("unexpected sort stage %v", sortStage)
	}
	if len(exec.aggregateOpts[0]) != 0 {
		t.Fatal("numeric sort should not request a collation")
	}
}

func TestProductRepository_RangeQueryDescendingStrings(t *testing.T) {
	exec := newFakeExecutor()
	repo := NewProductRepository(exec)

	_, err := repo.RangeQuery(context.Background(), catalog.RangeQuery{SortBy: "name", Desc: true, AfterID: "unknown", Limit: 5})
	if err != nil {
		t.Fatalf("RangeQuery: %v", err)
	}

	pipeline := exec.pipelines[0]
	if want := []string{"$match", "$addFields", "$sort", "$limit"}; !reflect.DeepEqual(stageNames(pipeline), want) {
		t.Fatalf("unknown cursor should start from the beginning, stages = %v", stageNames(pipeline))
	}
	if len(pipeline[0][0].Value.(bson.D)) != 0 {
		t.Fatalf("empty category should match everything, got %v", pipeline[0])
	}
	sortStage := pipeline[2][0].Value.(bson.D)
	if sortStage[0].Value != -1 || sortStage[1].Value != 1 {
		t.Fatalf("descending sort must keep _id ascending, got %v", sortStage)
	}
	if len(exec.aggregateOpts[0]) != 1 || exec.aggregateOpts[0][0].Collation == nil {
		t.Fatal("string sort should request a collation")
	}

	if _, err := repo.RangeQuery(context.Background(), catalog.RangeQuery{SortBy: "specs"}); err == nil {
		t.Fatal("expected error for unsortable field")
	}
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	exec := newFakeExecutor()
	repo := NewOrderRepository(exec)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	order := &orders.Order{
		ID:     "order-1",
		UserID: "alice",
		Items: []orders.Item{
			{ProductID: "ram", Name: "RAM", Price: decimal.RequireFromString("0.1"), Quantity: 3},
		},
		Total:     decimal.RequireFromString("0.3"),
		Status:    orders.StatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByID(ctx, "order-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !got.Total.Equal(decimal.RequireFromString("0.3")) || !got.Items[0].Price.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("money lost precision: total=%s price=%s", got.Total, got.Items[0].Price)
	}
	if !got.CreatedAt.Equal(created) || got.Status != orders.StatusPending {
		t.Fatalf("unexpected order %+v", got)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, orders.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	later := created.Add(time.Hour)
	if err := repo.UpdateStatus(ctx, "order-1", orders.StatusShipped, later); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = repo.FindByID(ctx, "order-1")
	if got.Status != orders.StatusShipped || !got.UpdatedAt.Equal(later) {
		t.Fatalf("status update not applied: %+v", got)
	}
	if err := repo.UpdateStatus(ctx, "missing", orders.StatusShipped, later); !errors.Is(err, orders.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListNewestFirst(t *testing.T) {
	exec := newFakeExecutor()
	repo := NewOrderRepository(exec)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, user := range []string{"alice", "bob", "alice"} {
		o := &orders.Order{
			ID:        []string{"o1", "o2", "o3"}[i],
			UserID:    user,
			Total:     decimal.NewFromInt(int64(i)),
			Status:    orders.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base,
		}
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	mine, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "o3" || mine[1].ID != "o1" {
		t.Fatalf("unexpected orders %+v", mine)
	}

	all, err := repo.ListAll(ctx)
	if err != nil || len(all) != 3 || all[0].ID != "o3" {
		t.Fatalf("ListAll = %+v, %v", all, err)
	}
}

func TestNormalize(t *testing.T) {
	in := bson.M{
		"d": bson.D{{Key: "a", Value: bson.A{int32(1), bson.M{"b": "c"}}}},
	}
	want := map[string]any{
		"d": map[string]any{"a": []any{int32(1), map[string]any{"b": "c"}}},
	}
	if got := normalize(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("normalize = %#v, want %#v", got, want)
	}
}

func TestUserRepository_CreateFindTouch(t *testing.T) {
	exec := newFakeExecutor()
	repo := NewUserRepository(exec)
	ctx := context.Background()
	signedUp := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	user := &users.User{
		UID:               "u-alice",
		Email:             "alice@example.com",
		Role:              users.RoleCustomer,
		ShippingAddresses: []users.Address{},
		Metadata:          users.Metadata{CreatedAt: signedUp, LastLogin: signedUp},
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, user); !errors.Is(err, users.ErrUserExists) {
		t.Fatalf("duplicate Create = %v, want ErrUserExists", err)
	}

	later := signedUp.Add(48 * time.Hour)
	if err := repo.TouchLastLogin(ctx, "u-alice", later); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	got, err := repo.FindByID(ctx, "u-alice")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Email != "alice@example.com" || got.Role != users.RoleCustomer || got.ShippingAddresses == nil {
		t.Fatalf("unexpected user %+v", got)
	}
	if !got.Metadata.CreatedAt.Equal(signedUp) || !got.Metadata.LastLogin.Equal(later) {
		t.Fatalf("metadata = %+v", got.Metadata)
	}

	if _, err := repo.FindByID(ctx, "u-ghost"); !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("FindByID missing = %v", err)
	}
	if err := repo.TouchLastLogin(ctx, "u-ghost", later); !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("TouchLastLogin missing = %v", err)
	}

	exec.err = errors.New("connection reset")
	if _, err := repo.FindByID(ctx, "u-alice"); err == nil || errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("store failure must not read as a miss, got %v", err)
	}
}
