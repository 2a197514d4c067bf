package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/goldenrabbit-press/orders-service/internal/apperrors"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/models"
)

// PostgresOrderRepository implements OrderRepository on PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewPostgresOrderRepository(db *sql.DB, logger *logging.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `
	id, order_number, total_amount, status,
	customer_name, customer_phone, customer_email,
	shipping_address, shipping_postcode, shipping_note,
	payment_key, payment_method, payment_approved_at,
	created_at, updated_at
`

// CreateOrder inserts a new order row with status pending.
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	r.logger.Debug("Creating order", logging.Fields{
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
	})

	query := `
		INSERT INTO orders (
			id, order_number, total_amount, status,
			customer_name, customer_phone, customer_email,
			shipping_address, shipping_postcode, shipping_note,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.TotalAmount,
		order.Status,
		order.CustomerName,
		order.CustomerPhone,
		order.CustomerEmail,
		order.ShippingAddress,
		order.ShippingPostcode,
		order.ShippingNote,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", logging.Fields{
			"order_number": order.OrderNumber,
			"error":        err.Error(),
		})
		return err
	}

	r.logger.Info("Order created", logging.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return nil
}

// CreateOrderItems inserts all line items inside one transaction so the
// insert is all-or-nothing. Cross-table atomicity with the order row is still
// the caller's problem (compensating delete).
func (r *PostgresOrderRepository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price,
		); err != nil {
			r.logger.Error("Failed to insert order item", logging.Fields{
				"order_id":   item.OrderID,
				"product_id": item.ProductID,
				"error":      err.Error(),
			})
			return err
		}
	}

	return tx.Commit()
}

// GetByNumber fetches an order by its order number.
func (r *PostgresOrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return r.scanOrder(r.db.QueryRowContext(ctx, query, orderNumber))
}

// GetItems fetches the line items of an order.
func (r *PostgresOrderRepository) GetItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ConfirmIfPending performs the compare-and-swap transition. The WHERE clause
// on status='pending' is what makes two racing confirmations resolve to
// exactly one winner without an application-level lock.
func (r *PostgresOrderRepository) ConfirmIfPending(ctx context.Context, orderNumber string, fields models.ConfirmPaymentFields) (*models.Order, error) {
	r.logger.Debug("Confirming order if pending", logging.Fields{
		"order_number": orderNumber,
	})

	query := `
		UPDATE orders
		SET status = $2, payment_key = $3, payment_method = $4,
		    payment_approved_at = $5, updated_at = $6
		WHERE order_number = $1 AND status = $7
		RETURNING ` + orderColumns

	row := r.db.QueryRowContext(ctx, query,
		orderNumber,
		models.OrderStatusConfirmed,
		fields.PaymentKey,
		fields.PaymentMethod,
		fields.ApprovedAt,
		time.Now(),
		models.OrderStatusPending,
	)

	order, err := r.scanOrder(row)
	if err == apperrors.ErrNotFound {
		// Zero rows matched: status was no longer pending (or the order
		// vanished). The lifecycle layer decides what that means.
		r.logger.Info("Confirm transition not applied", logging.Fields{
			"order_number": orderNumber,
		})
		return nil, apperrors.ErrNotApplied
	}
	if err != nil {
		r.logger.Error("Failed to confirm order", logging.Fields{
			"order_number": orderNumber,
			"error":        err.Error(),
		})
		return nil, err
	}

	r.logger.Info("Order confirmed", logging.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return order, nil
}

// CancelByPaymentKey marks the matching order cancelled. Unconditional by
// design: cancellation follows a successful gateway cancel and does not race
// a replay the way confirmation does.
func (r *PostgresOrderRepository) CancelByPaymentKey(ctx context.Context, paymentKey string) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE payment_key = $1
	`

	result, err := r.db.ExecContext(ctx, query, paymentKey, models.OrderStatusCancelled, time.Now())
	if err != nil {
		r.logger.Error("Failed to cancel order", logging.Fields{
			"payment_key": paymentKey,
			"error":       err.Error(),
		})
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	r.logger.Info("Order cancelled", logging.Fields{"payment_key": paymentKey})
	return nil
}

// Delete removes an order row. order_items cascade at the schema level, but
// this path only ever runs before any item row exists.
func (r *PostgresOrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	r.logger.Info("Order deleted", logging.Fields{"order_id": id})
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresOrderRepository) scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var shippingNote, paymentKey, paymentMethod sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.TotalAmount,
		&order.Status,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerEmail,
		&order.ShippingAddress,
		&order.ShippingPostcode,
		&shippingNote,
		&paymentKey,
		&paymentMethod,
		&approvedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if shippingNote.Valid {
		order.ShippingNote = shippingNote.String
	}
	if paymentKey.Valid {
		order.PaymentKey = paymentKey.String
	}
	if paymentMethod.Valid {
		order.PaymentMethod = paymentMethod.String
	}
	if approvedAt.Valid {
		order.PaymentApprovedAt = &approvedAt.Time
	}

	return &order, nil
}
