package api

import (
	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/controller"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

func (h *Handler) listProducts(c router.Context) error {
	q := catalog.ParseQuery(c.Request().URL.Query())
	page, err := h.products.ListProducts(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, page)
}

func (h *Handler) getProduct(c router.Context) error {
	product, err := h.products.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, product)
}
