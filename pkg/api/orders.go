package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Andi3172/fullstack-tic-project/pkg/controller"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

type placeOrderResponse struct {
	Success bool        `json:"success"`
	OrderID string      `json:"orderId"`
	Total   json.Number `json:"total"`
}

type updateStatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) placeOrder(c router.Context) error {
	var req orders.PlaceRequest
	if err := controller.Bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	order, err := h.orders.Place(c.Request().Context(), callerFrom(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, placeOrderResponse{
		Success: true,
		OrderID: order.ID,
		Total:   json.Number(order.Total.String()),
	})
}

func (h *Handler) myOrders(c router.Context) error {
	list, err := h.orders.ListMine(c.Request().Context(), callerFrom(c))
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, nonNil(list))
}

func (h *Handler) allOrders(c router.Context) error {
	list, err := h.orders.ListAll(c.Request().Context(), callerFrom(c))
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, nonNil(list))
}

func (h *Handler) updateStatus(c router.Context) error {
	var req orders.StatusRequest
	if err := controller.Bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.orders.UpdateStatus(c.Request().Context(), callerFrom(c), c.Param("id"), req); err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, updateStatusResponse{Success: true, Message: "Order updated"})
}

func (h *Handler) getOrder(c router.Context) error {
	order, err := h.orders.Get(c.Request().Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, order)
}

func (h *Handler) getInvoice(c router.Context) error {
	order, err := h.orders.Get(c.Request().Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	// Render fully before writing so a failure still gets a JSON error.
	var buf bytes.Buffer
	if err := orders.RenderInvoice(&buf, order); err != nil {
		return h.fail(c, err)
	}
	w := c.Response()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", orders.InvoiceFilename(order.ID)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(buf.Bytes())
	return err
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil(list []orders.Order) []orders.Order {
	if list == nil {
		return []orders.Order{}
	}
	return list
}
