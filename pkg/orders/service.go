package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// DefaultAdminEmail is granted admin rights when no admin list is configured.
const DefaultAdminEmail = "admin@tic.com"

// AdminRole grants admin rights regardless of email.
const AdminRole = "admin"

// ProductLookup resolves catalog records by id.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

// Caller identifies the authenticated user making a request.
type Caller struct {
	UserID string
	Email  string
	Roles  []string
}

// Service implements order placement and management.
type Service struct {
	store       Store
	products    ProductLookup
	adminEmails map[string]bool
	now         func() time.Time
	newID       func() string
	metrics     *Metrics
	log         logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAdminEmails replaces the set of emails granted admin rights.
func WithAdminEmails(emails ...string) Option {
	return func(s *Service) {
		s.adminEmails = make(map[string]bool, len(emails))
		for _, email := range emails {
			if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
				s.adminEmails[email] = true
			}
		}
	}
}

// WithClock replaces the clock used for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the order id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates an order service.
func NewService(store Store, products ProductLookup, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		products:    products,
		adminEmails: map[string]bool{DefaultAdminEmail: true},
		now:         time.Now,
		newID:       uuid.NewString,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAdmin reports whether caller may manage every order.
func (s *Service) IsAdmin(caller Caller) bool {
	if s.adminEmails[strings.ToLower(caller.Email)] {
		return true
	}
	for _, role := range caller.Roles {
		if role == AdminRole {
			return true
		}
	}
	return false
}

// Place prices every line from the catalog and stores a pending order.
// Lines are priced in request order; the first missing product aborts the
// whole order and nothing is written.
func (s *Service) Place(ctx context.Context, caller Caller, req PlaceRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(req.Items))
	total := decimal.Zero
	for _, line := range req.Items {
		product, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: line.ProductID, Name: line.Name}
			}
			return nil, fmt.Errorf("price order line %s: %w", line.ProductID, err)
		}

		image := product.Image
		if image == "" {
			image = line.Image
		}
		item := Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     decimal.NewFromFloat(product.EffectivePrice()),
			Quantity:  line.Quantity,
			Image:     image,
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
	}

	now := s.now().UTC()
	order := &Order{
		ID:        s.newID(),
		UserID:    caller.UserID,
		Items:     items,
		Total:     total,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}

	s.metrics.placed(total)
	if s.log != nil {
		s.log.Info("order placed",
			"order_id", order.ID,
			"user_id", order.UserID,
			"items", len(order.Items),
			"total", order.Total.StringFixed(2),
		)
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, caller Caller) ([]Order, error) {
	orders, err := s.store.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user: %w", err)
	}
	return orders, nil
}

// ListAll returns every order. Admin only.
func (s *Service) ListAll(ctx context.Context, caller Caller) ([]Order, error) {
	if !s.IsAdmin(caller) {
		return nil, ErrForbidden
	}
	orders, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

// Get returns one order to its owner or an admin.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (*Order, error) {
	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.UserID && !s.IsAdmin(caller) {
		return nil, ErrForbidden
	}
	return order, nil
}

// UpdateStatus moves an order to a new status. Admin only.
func (s *Service) UpdateStatus(ctx context.Context, caller Caller, id string, req StatusRequest) error {
	if !s.IsAdmin(caller) {
		return ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return err
	}
	status := Status(strings.TrimSpace(req.Status))
	if err := s.store.UpdateStatus(ctx, id, status, s.now().UTC()); err != nil {
		return err
	}

	s.metrics.statusChanged(status)
	if s.log != nil {
		s.log.Info("order status updated", "order_id", id, "status", string(status), "by", caller.UserID)
	}
	return nil
}
