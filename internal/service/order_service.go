package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goldenrabbit-press/orders-service/internal/apperrors"
	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/metrics"
	"github.com/goldenrabbit-press/orders-service/internal/models"
	"github.com/goldenrabbit-press/orders-service/internal/repository"
)

// PaymentGateway is what the lifecycle needs from the payment processor.
type PaymentGateway interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*models.TossPayment, error)
	GetPayment(ctx context.Context, paymentKey string) (*models.TossPayment, error)
	Cancel(ctx context.Context, paymentKey, reason string, cancelAmount int64) (*models.TossCancelResult, error)
}

// AdminVerifier answers whether a caller may perform admin-only operations.
type AdminVerifier interface {
	IsAdmin(ctx context.Context, subject string) (bool, error)
}

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderConfirmed(ctx context.Context, order *models.Order) error
	PublishOrderCancelled(ctx context.Context, orderNumber, reason string) error
}

// OrderService owns the order lifecycle: pending creation, guarded
// settlement confirmation, cancellation and reads. All state-machine
// invariants live here; the repositories stay mechanical.
type OrderService struct {
	orderRepo      repository.OrderRepository
	stock          repository.StockAdjuster
	orderCache     repository.OrderCache
	gateway        PaymentGateway
	admins         AdminVerifier
	eventPublisher EventPublisher
	metrics        *metrics.SettlementMetrics
	config         *config.Config
	logger         *logging.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	stock repository.StockAdjuster,
	orderCache repository.OrderCache,
	gateway PaymentGateway,
	admins AdminVerifier,
	eventPublisher EventPublisher,
	m *metrics.SettlementMetrics,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		stock:          stock,
		orderCache:     orderCache,
		gateway:        gateway,
		admins:         admins,
		eventPublisher: eventPublisher,
		metrics:        m,
		config:         cfg,
		logger:         logging.New("order-service"),
	}
}

// CreatePendingOrder persists a new order in status pending together with its
// line items. Nothing survives a partial failure: if any item insert fails,
// the order row is deleted before the error is returned, so the caller sees
// either a complete order or none at all.
func (s *OrderService) CreatePendingOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	s.logger.Info("Creating pending order", logging.Fields{
		"order_number": req.OrderNumber,
		"item_count":   len(req.Items),
	})

	if err := ValidateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	order := &models.Order{
		ID:               uuid.New().String(),
		OrderNumber:      req.OrderNumber,
		TotalAmount:      req.TotalAmount,
		Status:           models.OrderStatusPending,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		ShippingAddress:  req.ShippingAddress,
		ShippingPostcode: req.ShippingPostcode,
		ShippingNote:     req.ShippingNote,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		s.logger.Error("Failed to create order", logging.Fields{
			"order_number": req.OrderNumber,
			"error":        err.Error(),
		})
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	if err := s.orderRepo.CreateOrderItems(ctx, items); err != nil {
		s.logger.Error("Failed to store order items, rolling back order", logging.Fields{
			"order_number": req.OrderNumber,
			"error":        err.Error(),
		})
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil {
			s.logger.Error("Compensating delete failed", logging.Fields{
				"order_number": req.OrderNumber,
				"order_id":     order.ID,
				"error":        delErr.Error(),
			})
		}
		return nil, &apperrors.ItemInsertError{OrderNumber: req.OrderNumber, Err: err}
	}

	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Set(ctx, order); err != nil {
			s.logger.Error("Failed to cache order", logging.Fields{
				"order_number": order.OrderNumber,
				"error":        err.Error(),
			})
		}
	}

	if s.config.Features.EnableOrderEvents {
		if err := s.eventPublisher.PublishOrderCreated(ctx, order); err != nil {
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_number": order.OrderNumber,
				"error":        err.Error(),
			})
		}
	}

	s.logger.Info("Pending order created", logging.Fields{
		"order_number": order.OrderNumber,
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
	})

	return order, nil
}

// ConfirmPayment settles a payment against its pending order. The guards run
// strictly in order: input validation, order lookup, amount check, state
// check, and only then the gateway call. An order that fails any local guard
// never generates gateway traffic, so a mismatched or replayed confirmation
// can never double-charge the customer.
func (s *OrderService) ConfirmPayment(ctx context.Context, req *models.ConfirmPaymentRequest) (*models.TossPayment, error) {
	if err := ValidateConfirmPaymentRequest(req); err != nil {
		s.countConfirmation(metrics.ResultValidationFailed)
		return nil, err
	}

	s.logger.Info("Confirming payment", logging.Fields{
		"order_number": req.OrderID,
		"amount":       req.Amount,
	})

	order, err := s.orderRepo.GetByNumber(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.countConfirmation(metrics.ResultNotFound)
		}
		return nil, err
	}

	if order.TotalAmount != req.Amount {
		s.logger.Error("Confirmation amount does not match order", logging.Fields{
			"order_number":     req.OrderID,
			"stored_amount":    order.TotalAmount,
			"requested_amount": req.Amount,
		})
		s.countConfirmation(metrics.ResultAmountMismatch)
		return nil, &apperrors.AmountMismatchError{
			OrderNumber:     req.OrderID,
			StoredAmount:    order.TotalAmount,
			RequestedAmount: req.Amount,
		}
	}

	if !order.IsConfirmable() {
		s.logger.Info("Rejecting confirmation of non-pending order", logging.Fields{
			"order_number": req.OrderID,
			"status":       order.Status,
		})
		s.countConfirmation(metrics.ResultStateConflict)
		return nil, &apperrors.StateConflictError{
			OrderNumber: req.OrderID,
			Status:      string(order.Status),
		}
	}

	payment, err := s.gateway.Confirm(ctx, req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		s.countConfirmation(classifyGatewayFailure(err))
		return nil, err
	}

	if err := verifyConfirmResponse(req, payment); err != nil {
		s.logger.Error("Gateway response failed integrity check", logging.Fields{
			"order_number": req.OrderID,
			"error":        err.Error(),
		})
		s.countConfirmation(metrics.ResultResponseIntegrity)
		return nil, err
	}

	confirmed, err := s.orderRepo.ConfirmIfPending(ctx, req.OrderID, models.ConfirmPaymentFields{
		PaymentKey:    req.PaymentKey,
		PaymentMethod: payment.Method,
		ApprovedAt:    parseApprovedAt(payment.ApprovedAt),
	})
	if err != nil {
		// The charge is settled but the order did not transition. Whatever
		// the store-side cause, this needs an operator with the payment key.
		s.logger.Error("Payment settled but order transition not applied", logging.Fields{
			"order_number": req.OrderID,
			"payment_key":  req.PaymentKey,
			"error":        err.Error(),
		})
		s.countConfirmation(metrics.ResultReconciliationRequired)
		return nil, &apperrors.ReconciliationRequiredError{
			OrderNumber: req.OrderID,
			PaymentKey:  req.PaymentKey,
		}
	}

	s.adjustStockForOrder(ctx, confirmed)

	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Delete(ctx, confirmed.OrderNumber); err != nil {
			s.logger.Error("Failed to invalidate order cache", logging.Fields{
				"order_number": confirmed.OrderNumber,
				"error":        err.Error(),
			})
		}
	}

	if s.config.Features.EnableOrderEvents {
		if err := s.eventPublisher.PublishOrderConfirmed(ctx, confirmed); err != nil {
			s.logger.Error("Failed to publish order confirmed event", logging.Fields{
				"order_number": confirmed.OrderNumber,
				"error":        err.Error(),
			})
		}
	}

	s.logger.Info("Payment confirmed", logging.Fields{
		"order_number": confirmed.OrderNumber,
		"payment_key":  req.PaymentKey,
		"amount":       req.Amount,
	})
	s.countConfirmation(metrics.ResultConfirmed)

	return payment, nil
}

// CancelPayment cancels a settled payment at the gateway and marks the owning
// order cancelled. Only admins may cancel. The local status write is
// best-effort: once the gateway has accepted the cancel, a store failure is
// logged but the caller still gets the gateway result.
func (s *OrderService) CancelPayment(ctx context.Context, subject, paymentKey string, req *models.CancelPaymentRequest) (*models.TossCancelResult, error) {
	ok, err := s.admins.IsAdmin(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}

	if err := ValidateCancellationReason(req.Reason); err != nil {
		return nil, err
	}

	result, err := s.gateway.Cancel(ctx, paymentKey, req.Reason, req.CancelAmount)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.CancelByPaymentKey(ctx, paymentKey); err != nil {
		s.logger.Error("Gateway cancel succeeded but order status not updated", logging.Fields{
			"payment_key": paymentKey,
			"error":       err.Error(),
		})
	}

	if s.config.Features.EnableOrderCaching && result.OrderID != "" {
		if err := s.orderCache.Delete(ctx, result.OrderID); err != nil {
			s.logger.Error("Failed to invalidate order cache", logging.Fields{
				"order_number": result.OrderID,
				"error":        err.Error(),
			})
		}
	}

	if s.config.Features.EnableOrderEvents {
		if err := s.eventPublisher.PublishOrderCancelled(ctx, result.OrderID, req.Reason); err != nil {
			s.logger.Error("Failed to publish order cancelled event", logging.Fields{
				"payment_key": paymentKey,
				"error":       err.Error(),
			})
		}
	}

	s.logger.Info("Payment cancelled", logging.Fields{
		"payment_key":  paymentKey,
		"order_number": result.OrderID,
		"reason":       req.Reason,
	})

	return result, nil
}

// GetOrder retrieves an order and its items by order number.
func (s *OrderService) GetOrder(ctx context.Context, orderNumber string) (*models.Order, []models.OrderItem, error) {
	s.logger.Debug("Getting order", logging.Fields{"order_number": orderNumber})

	var order *models.Order
	if s.config.Features.EnableOrderCaching {
		if cached, err := s.orderCache.Get(ctx, orderNumber); err == nil && cached != nil {
			s.logger.Debug("Order found in cache", logging.Fields{"order_number": orderNumber})
			order = cached
		}
	}

	if order == nil {
		fetched, err := s.orderRepo.GetByNumber(ctx, orderNumber)
		if err != nil {
			return nil, nil, err
		}
		order = fetched

		if s.config.Features.EnableOrderCaching {
			if err := s.orderCache.Set(ctx, order); err != nil {
				s.logger.Error("Failed to cache order", logging.Fields{
					"order_number": orderNumber,
					"error":        err.Error(),
				})
			}
		}
	}

	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetPaymentInfo queries the gateway for a payment's current state.
func (s *OrderService) GetPaymentInfo(ctx context.Context, paymentKey string) (*models.TossPayment, error) {
	return s.gateway.GetPayment(ctx, paymentKey)
}

// adjustStockForOrder decrements stock for every line item of a confirmed
// order, one goroutine per item. Stock is a separate concern from settlement:
// any failure here is logged and counted, never surfaced to the customer.
func (s *OrderService) adjustStockForOrder(ctx context.Context, order *models.Order) {
	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to load items for stock adjustment", logging.Fields{
			"order_number": order.OrderNumber,
			"error":        err.Error(),
		})
		s.countStockFailure("item_lookup_failed")
		return
	}

	results := make([]models.StockResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item models.OrderItem) {
			defer wg.Done()
			results[i] = models.StockResult{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Err:       s.stock.DecrementStock(ctx, item.ProductID, item.Quantity),
			}
		}(i, item)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err == nil {
			continue
		}
		reason := "error"
		if errors.Is(res.Err, apperrors.ErrInsufficientStock) {
			reason = "insufficient_stock"
		}
		s.logger.Error("Stock decrement failed", logging.Fields{
			"order_number": order.OrderNumber,
			"product_id":   res.ProductID,
			"quantity":     res.Quantity,
			"error":        res.Err.Error(),
		})
		s.countStockFailure(reason)
	}
}

func (s *OrderService) countConfirmation(result string) {
	if s.metrics != nil {
		s.metrics.Confirmations.WithLabelValues(result).Inc()
	}
}

func (s *OrderService) countStockFailure(reason string) {
	if s.metrics != nil {
		s.metrics.StockFailures.WithLabelValues(reason).Inc()
	}
}

// verifyConfirmResponse checks the gateway's confirm payload against what was
// requested. A payload that disagrees on status, amount or order must never
// flip the order to confirmed.
func verifyConfirmResponse(req *models.ConfirmPaymentRequest, payment *models.TossPayment) error {
	if payment.Status != models.PaymentStatusDone {
		return &apperrors.ResponseIntegrityError{
			Field:     "status",
			Requested: models.PaymentStatusDone,
			Received:  payment.Status,
		}
	}
	if payment.TotalAmount != req.Amount {
		return &apperrors.ResponseIntegrityError{
			Field:     "totalAmount",
			Requested: formatAmount(req.Amount),
			Received:  formatAmount(payment.TotalAmount),
		}
	}
	if payment.OrderID != req.OrderID {
		return &apperrors.ResponseIntegrityError{
			Field:     "orderId",
			Requested: req.OrderID,
			Received:  payment.OrderID,
		}
	}
	return nil
}

func classifyGatewayFailure(err error) string {
	if errors.Is(err, apperrors.ErrRetriesExhausted) {
		return metrics.ResultGatewayUnavailable
	}
	var gerr *apperrors.GatewayError
	if errors.As(err, &gerr) && !gerr.Retriable() {
		return metrics.ResultGatewayRejected
	}
	return metrics.ResultGatewayUnavailable
}

func parseApprovedAt(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Now()
}

func formatAmount(amount int64) string {
	return strconv.FormatInt(amount, 10)
}
