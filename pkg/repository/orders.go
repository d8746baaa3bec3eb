package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/tracing"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
)

// Migrations holds the schema for the SQL order store.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations passed to migrate.NewSQLManager.
const MigrationsDir = "migrations"

const (
	ordersTable       = "orders"
	maxStatusAttempts = 3
)

// orderRow is the table shape of an order. Items are stored as JSONB and
// bound as text, since lib/pq would send a []byte as bytea.
type orderRow struct {
	ID        string
	UserID    string
	Items     []byte
	Total     decimal.Decimal
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

func (r *orderRow) GetVersion() int64        { return r.Version }
func (r *orderRow) SetVersion(version int64) { r.Version = version }

type orderRowMapper struct{}

func (orderRowMapper) ToRow(row *orderRow) ([]string, []interface{}, error) {
	return []string{"id", "user_id", "items", "total", "status", "created_at", "updated_at", "version"},
		[]interface{}{row.ID, row.UserID, string(row.Items), row.Total, row.Status, row.CreatedAt, row.UpdatedAt, row.Version},
		nil
}

func (orderRowMapper) FromRow(rows *sql.Rows) (*orderRow, error) {
	row := &orderRow{}
	if err := rows.Scan(&row.ID, &row.UserID, &row.Items, &row.Total, &row.Status, &row.CreatedAt, &row.UpdatedAt, &row.Version); err != nil {
		return nil, err
	}
	return row, nil
}

func (orderRowMapper) GetID(row *orderRow) string { return row.ID }

func rowFromOrder(o *orders.Order) (*orderRow, error) {
	items := o.Items
	if items == nil {
		items = []orders.Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return &orderRow{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     payload,
		Total:     o.Total,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt.UTC(),
		UpdatedAt: o.UpdatedAt.UTC(),
	}, nil
}

func (r *orderRow) toOrder() (orders.Order, error) {
	var items []orders.Item
	if err := json.Unmarshal(r.Items, &items); err != nil {
		return orders.Order{}, fmt.Errorf("decode items of order %s: %w", r.ID, err)
	}
	return orders.Order{
		ID:        r.ID,
		UserID:    r.UserID,
		Items:     items,
		Total:     r.Total,
		Status:    orders.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

// OrderRepository stores orders in PostgreSQL. It implements orders.Store.
type OrderRepository struct {
	crud *GenericCrudRepository[orderRow, string]
}

// NewOrderRepository creates an order repository over executor. The schema
// in Migrations must already be applied.
func NewOrderRepository(executor SQLExecutor) *OrderRepository {
	return &OrderRepository{
		crud: NewGenericCrudRepository[orderRow, string](executor, ordersTable, "id", orderRowMapper{}),
	}
}

// Create inserts order.
func (r *OrderRepository) Create(ctx context.Context, order *orders.Order) (err error) {
	ctx, done := startSpan(ctx, tracing.SpanOperationDBInsert)
	defer func() { done(err) }()

	row, err := rowFromOrder(order)
	if err != nil {
		return err
	}
	return r.crud.Create(ctx, row)
}

// FindByID returns orders.ErrOrderNotFound on a miss.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (_ *orders.Order, err error) {
	ctx, done := startSpan(ctx, tracing.SpanOperationDBQuery)
	defer func() { done(err) }()

	row, err := r.crud.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o, err := row.toOrder()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return r.list(ctx, Filter{"user_id": userID})
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]orders.Order, error) {
	return r.list(ctx, nil)
}

// UpdateStatus rewrites the order under its row version and retries when a
// concurrent update wins the race.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status orders.Status, updatedAt time.Time) (err error) {
	ctx, done := startSpan(ctx, tracing.SpanOperationDBUpdate)
	defer func() { done(err) }()

	for attempt := 1; ; attempt++ {
		row, err := r.crud.FindByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return orders.ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		row.Status = string(status)
		row.UpdatedAt = updatedAt.UTC()
		err = r.crud.Update(ctx, row)

		var conflict *OptimisticLockError
		switch {
		case err == nil:
			return nil
		case errors.Is(err, sql.ErrNoRows):
			return orders.ErrOrderNotFound
		case errors.As(err, &conflict) && attempt < maxStatusAttempts:
			continue
		default:
			return err
		}
	}
}

func (r *OrderRepository) list(ctx context.Context, filter Filter) (_ []orders.Order, err error) {
	ctx, done := startSpan(ctx, tracing.SpanOperationDBQuery)
	defer func() { done(err) }()

	rows, err := r.crud.FindAll(ctx, QueryOptions{
		Filter: filter,
		Sort:   Sort{Field: "created_at", Order: SortDesc},
	})
	if err != nil {
		return nil, err
	}
	out := make([]orders.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toOrder()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func startSpan(ctx context.Context, op tracing.SpanOperation) (context.Context, func(error)) {
	ctx, span := tracing.StartDatabaseSpan(ctx, op,
		tracing.WithDBSystem("postgresql"),
		tracing.WithDBTable(ordersTable),
	)
	return ctx, func(err error) {
		if err != nil && !errors.Is(err, orders.ErrOrderNotFound) {
			tracing.RecordError(span, err)
		} else {
			tracing.RecordSuccess(span)
		}
		span.End()
	}
}
