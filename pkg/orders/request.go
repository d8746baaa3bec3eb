package orders

import (
	"fmt"
	"strings"
)

// ItemRequest is one line of a PlaceRequest as sent by the client. Price is
// required for compatibility but ignored when pricing the order.
type ItemRequest struct {
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	Quantity  int      `json:"quantity"`
	Image     string   `json:"image"`
}

// PlaceRequest is the body of an order placement.
type PlaceRequest struct {
	Items []ItemRequest `json:"items"`
}

// Validate checks the request shape.
func (r PlaceRequest) Validate() error {
	if len(r.Items) == 0 {
		return &ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for i, item := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case strings.TrimSpace(item.ProductID) == "":
			return &ValidationError{Field: field + ".productId", Message: "is required"}
		case strings.TrimSpace(item.Name) == "":
			return &ValidationError{Field: field + ".name", Message: "is required"}
		case item.Price == nil:
			return &ValidationError{Field: field + ".price", Message: "is required"}
		case item.Quantity < 1:
			return &ValidationError{Field: field + ".quantity", Message: "must be at least 1"}
		}
	}
	return nil
}

// StatusRequest is the body of a status update.
type StatusRequest struct {
	Status string `json:"status"`
}

// Validate checks the requested status.
func (r StatusRequest) Validate() error {
	status := Status(strings.TrimSpace(r.Status))
	if status == "" {
		return ErrStatusRequired
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	return nil
}
