package models

import "time"

// OrderStatus is the settlement state of an order. pending is the only
// non-terminal state: an order transitions at most once, to confirmed or to
// cancelled.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a storefront order. TotalAmount is in the smallest currency unit
// (KRW has no minor unit, so won as-is) and is immutable after creation; it is
// the single source of truth every confirmation must match exactly.
type Order struct {
	ID               string      `json:"id"`
	OrderNumber      string      `json:"order_number"`
	TotalAmount      int64       `json:"total_amount"`
	Status           OrderStatus `json:"status"`
	CustomerName     string      `json:"customer_name"`
	CustomerPhone    string      `json:"customer_phone"`
	CustomerEmail    string      `json:"customer_email"`
	ShippingAddress  string      `json:"shipping_address"`
	ShippingPostcode string      `json:"shipping_postcode"`
	ShippingNote     string      `json:"shipping_note,omitempty"`
	PaymentKey       string      `json:"payment_key,omitempty"`
	PaymentMethod    string      `json:"payment_method,omitempty"`
	PaymentApprovedAt *time.Time `json:"payment_approved_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// IsConfirmable reports whether a confirmation may proceed against this
// order's current status.
func (o *Order) IsConfirmable() bool {
	return o.Status == OrderStatusPending
}

// OrderItem is a line item, owned exclusively by the order that created it.
// Price is the unit price captured at order time, independent of later
// catalog price changes.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// CreateOrderRequest is the caller-facing payload for creating a pending
// order.
type CreateOrderRequest struct {
	OrderNumber      string            `json:"order_number"`
	TotalAmount      int64             `json:"total_amount"`
	CustomerName     string            `json:"customer_name"`
	CustomerPhone    string            `json:"customer_phone"`
	CustomerEmail    string            `json:"customer_email"`
	ShippingAddress  string            `json:"shipping_address"`
	ShippingPostcode string            `json:"shipping_postcode"`
	ShippingNote     string            `json:"shipping_note"`
	Items            []CreateOrderItem `json:"items"`
}

// CreateOrderItem is one line of a creation request.
type CreateOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// ConfirmPaymentFields is what the guarded pending→confirmed transition
// writes alongside the status change.
type ConfirmPaymentFields struct {
	PaymentKey    string
	PaymentMethod string
	ApprovedAt    time.Time
}

// StockResult is the per-item outcome of the stock fanout after a confirmed
// settlement. Individual failures never change the confirmation outcome.
type StockResult struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Err       error  `json:"-"`
}
