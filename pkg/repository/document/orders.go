package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
)

// OrdersCollection is the collection holding placed orders.
const OrdersCollection = "orders"

type orderDocument struct {
	ID        string               `bson:"_id"`
	UserID    string               `bson:"userId"`
	Items     []orderItemDocument  `bson:"items"`
	Total     primitive.Decimal128 `bson:"total"`
	Status    string               `bson:"status"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
	Image     string               `bson:"image"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func decimal128ToFloat(d primitive.Decimal128) (float64, error) {
	return strconv.ParseFloat(d.String(), 64)
}

func orderToDocument(o *orders.Order) (orderDocument, error) {
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDocument{}, fmt.Errorf("encode total: %w", err)
	}
	items := make([]orderItemDocument, 0, len(o.Items))
	for _, item := range o.Items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return orderDocument{}, fmt.Errorf("encode price of %s: %w", item.ProductID, err)
		}
		items = append(items, orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	return orderDocument{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     items,
		Total:     total,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt.UTC(),
		UpdatedAt: o.UpdatedAt.UTC(),
	}, nil
}

func (d orderDocument) toOrder() (orders.Order, error) {
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return orders.Order{}, fmt.Errorf("decode total: %w", err)
	}
	items := make([]orders.Item, 0, len(d.Items))
	for _, item := range d.Items {
		price, err := fromDecimal128(item.Price)
		if err != nil {
			return orders.Order{}, fmt.Errorf("decode price of %s: %w", item.ProductID, err)
		}
		items = append(items, orders.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	return orders.Order{
		ID:        d.ID,
		UserID:    d.UserID,
		Items:     items,
		Total:     total,
		Status:    orders.Status(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

// OrderRepository stores orders in MongoDB with money as Decimal128. It
// implements orders.Store.
type OrderRepository struct {
	exec MongoExecutor
}

// NewOrderRepository creates an order repository over exec.
func NewOrderRepository(exec MongoExecutor) *OrderRepository {
	return &OrderRepository{exec: exec}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, order *orders.Order) error {
	doc, err := orderToDocument(order)
	if err != nil {
		return err
	}
	m, err := encode(doc)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if _, err := r.exec.InsertOne(ctx, OrdersCollection, m); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// FindByID returns orders.ErrOrderNotFound on a miss.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*orders.Order, error) {
	m, err := r.exec.FindOne(ctx, OrdersCollection, Filter{"_id": id})
	if err != nil {
		if errors.Is(err, ErrNoDocuments) {
			return nil, orders.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	o, err := decodeOrder(m)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return r.list(ctx, Filter{"userId": userID})
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]orders.Order, error) {
	return r.list(ctx, Filter{})
}

// UpdateStatus sets the status of an existing order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status orders.Status, updatedAt time.Time) error {
	matched, err := r.exec.UpdateOne(ctx, OrdersCollection, Filter{"_id": id}, map[string]interface{}{
		"$set": bson.M{"status": string(status), "updatedAt": updatedAt.UTC()},
	})
	if err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}
	if matched == 0 {
		return orders.ErrOrderNotFound
	}
	return nil
}

// OrderIndexes backs the per-user listing.
func OrderIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
}

func (r *OrderRepository) list(ctx context.Context, filter Filter) ([]orders.Order, error) {
	docs, err := r.exec.Find(ctx, OrdersCollection, QueryOptions{
		Filter: filter,
		Sort:   Sort{Field: "createdAt", Order: SortDesc},
	})
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	out := make([]orders.Order, 0, len(docs))
	for _, m := range docs {
		o, err := decodeOrder(m)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeOrder(m map[string]interface{}) (orders.Order, error) {
	var doc orderDocument
	if err := decode(m, &doc); err != nil {
		return orders.Order{}, fmt.Errorf("decode order %v: %w", m["_id"], err)
	}
	return doc.toOrder()
}
