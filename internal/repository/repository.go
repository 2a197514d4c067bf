package repository

import (
	"context"

	"github.com/goldenrabbit-press/orders-service/internal/models"
)

// OrderRepository is the order store adapter: typed row-level operations over
// orders and order_items. It holds no business logic; all invariants live in
// the lifecycle service.
type OrderRepository interface {
	// CreateOrder inserts a new order row with status pending.
	CreateOrder(ctx context.Context, order *models.Order) error

	// CreateOrderItems inserts all line items for one order. The insert is
	// all-or-nothing; on failure the caller runs the compensating delete of
	// the order row.
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error

	// GetByNumber fetches an order by its human-readable order number.
	// Returns apperrors.ErrNotFound when no row matches.
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)

	// GetItems fetches the line items of an order.
	GetItems(ctx context.Context, orderID string) ([]models.OrderItem, error)

	// ConfirmIfPending is the guarded pending→confirmed transition: a single
	// conditional update matching on order number AND status='pending'.
	// Returns apperrors.ErrNotApplied when zero rows were affected, which the
	// caller must treat as "already confirmed or in an unexpected state",
	// never as a transient error.
	ConfirmIfPending(ctx context.Context, orderNumber string, fields models.ConfirmPaymentFields) (*models.Order, error)

	// CancelByPaymentKey marks the order holding this payment key cancelled.
	// Best-effort: no CAS guard, per the cancellation flow.
	CancelByPaymentKey(ctx context.Context, paymentKey string) error

	// Delete removes an order row. Used only for the compensating rollback of
	// a partially-created order.
	Delete(ctx context.Context, id string) error
}

// StockAdjuster exposes the single atomic stock primitive: decrement by N,
// refuse if the result would go negative. Implementations must express this
// as one conditional update at the storage layer, never read-then-write.
type StockAdjuster interface {
	DecrementStock(ctx context.Context, productID string, quantity int) error
}

// OrderCache caches storefront order reads by order number. It is never
// consulted by the confirmation guards, which always read the store.
type OrderCache interface {
	Get(ctx context.Context, orderNumber string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, orderNumber string) error
}
