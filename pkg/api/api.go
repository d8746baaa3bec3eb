// Package api exposes the catalog and order services over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/Andi3172/fullstack-tic-project/pkg/auth"
	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/controller"
	"github.com/Andi3172/fullstack-tic-project/pkg/middleware/authz"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
	"github.com/Andi3172/fullstack-tic-project/pkg/users"
)

// ProductService is the catalog surface the handlers use.
type ProductService interface {
	ListProducts(ctx context.Context, q catalog.Query) (catalog.Page, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

// OrderService is the order surface the handlers use.
type OrderService interface {
	IsAdmin(caller orders.Caller) bool
	Place(ctx context.Context, caller orders.Caller, req orders.PlaceRequest) (*orders.Order, error)
	ListMine(ctx context.Context, caller orders.Caller) ([]orders.Order, error)
	ListAll(ctx context.Context, caller orders.Caller) ([]orders.Order, error)
	Get(ctx context.Context, caller orders.Caller, id string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, caller orders.Caller, id string, req orders.StatusRequest) error
}

// UserService is the account surface the handlers use.
type UserService interface {
	Sync(ctx context.Context, id users.Identity) (*users.User, bool, error)
}

// Handler serves the public API.
type Handler struct {
	products  ProductService
	orders    OrderService
	users     UserService
	validator auth.TokenValidator
	log       logger.Logger
}

// NewHandler creates a Handler. Without a validator the order routes are
// not registered.
func NewHandler(products ProductService, orderSvc OrderService, validator auth.TokenValidator, log logger.Logger) *Handler {
	return &Handler{products: products, orders: orderSvc, validator: validator, log: log}
}

// WithUsers enables POST /api/users. Like the order routes it needs a
// validator.
func (h *Handler) WithUsers(userSvc UserService) *Handler {
	h.users = userSvc
	return h
}

// Register mounts the API under /api.
//
//	GET   /api/products
//	GET   /api/products/:id
//	POST  /api/users
//	POST  /api/orders
//	GET   /api/orders/my-orders
//	GET   /api/orders/admin/all
//	PATCH /api/orders/:id/status
//	GET   /api/orders/:id
//	GET   /api/orders/:id/invoice
func (h *Handler) Register(r router.Router) {
	products := r.Group("/api/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)

	if h.validator == nil {
		h.log.Warn("order and user routes disabled: no token validator configured")
		return
	}
	authenticate := authz.Authenticate(h.validator)

	if h.users != nil {
		usersGroup := r.Group("/api/users", authenticate)
		usersGroup.POST("", h.syncUser)
	}

	if h.orders == nil {
		h.log.Warn("order routes disabled: no order service configured")
		return
	}
	requireAdmin := authz.RequireAdmin(func(claims *auth.Claims) bool {
		return h.orders.IsAdmin(callerFromClaims(claims))
	})

	ordersGroup := r.Group("/api/orders", authenticate)
	ordersGroup.POST("", h.placeOrder)
	ordersGroup.GET("/my-orders", h.myOrders)
	ordersGroup.GET("/admin/all", h.allOrders, requireAdmin)
	ordersGroup.PATCH("/:id/status", h.updateStatus, requireAdmin)
	ordersGroup.GET("/:id", h.getOrder)
	ordersGroup.GET("/:id/invoice", h.getInvoice)
}

// fail writes err through the error contract and logs server-side faults.
func (h *Handler) fail(c router.Context, err error) error {
	status, body := controller.MapError(c.Request().Context(), err)
	if status >= http.StatusInternalServerError {
		h.log.WithContext(c.Request().Context()).Error("request failed",
			"route", c.Route(),
			"status", status,
			"error", err,
		)
	}
	return c.JSON(status, body)
}

func callerFromClaims(claims *auth.Claims) orders.Caller {
	if claims == nil {
		return orders.Caller{}
	}
	return orders.Caller{UserID: claims.Subject, Email: claims.Email, Roles: claims.Roles}
}

func callerFrom(c router.Context) orders.Caller {
	return callerFromClaims(auth.GetClaims(c.Request().Context()))
}
