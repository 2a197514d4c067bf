package repository

import (
	"context"
	"database/sql"

	"github.com/goldenrabbit-press/orders-service/internal/apperrors"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
)

// PostgresStockAdjuster implements StockAdjuster against the catalog's
// products table. Only stock_quantity is touched here; product identity and
// catalog attributes belong to the catalog subsystem.
type PostgresStockAdjuster struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewPostgresStockAdjuster(db *sql.DB, logger *logging.Logger) *PostgresStockAdjuster {
	return &PostgresStockAdjuster{
		db:     db,
		logger: logger,
	}
}

// DecrementStock runs the single conditional update. The stock_quantity >= $2
// guard makes concurrent decrements for the same product safe: the database
// serializes the row update, and a decrement that would go negative matches
// zero rows instead of clamping or going through.
func (s *PostgresStockAdjuster) DecrementStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return apperrors.NewValidationError("quantity", "quantity must be positive")
	}

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2
	`

	result, err := s.db.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		s.logger.Error("Stock decrement failed", logging.Fields{
			"product_id": productID,
			"quantity":   quantity,
			"error":      err.Error(),
		})
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		s.logger.Info("Stock decrement refused", logging.Fields{
			"product_id": productID,
			"quantity":   quantity,
		})
		return apperrors.ErrInsufficientStock
	}

	s.logger.Debug("Stock decremented", logging.Fields{
		"product_id": productID,
		"quantity":   quantity,
	})
	return nil
}
