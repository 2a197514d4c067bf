package service

import (
	"net/mail"
	"strings"

	"github.com/goldenrabbit-press/orders-service/internal/apperrors"
	"github.com/goldenrabbit-press/orders-service/internal/models"
)

// ValidateCreateOrderRequest validates an order creation request.
func ValidateCreateOrderRequest(req *models.CreateOrderRequest) error {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return apperrors.NewValidationError("order_number", "order number is required")
	}

	if req.TotalAmount <= 0 {
		return apperrors.NewValidationError("total_amount", "total amount must be positive")
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		return apperrors.NewValidationError("customer_name", "customer name is required")
	}

	if strings.TrimSpace(req.CustomerPhone) == "" {
		return apperrors.NewValidationError("customer_phone", "customer phone is required")
	}

	if strings.TrimSpace(req.CustomerEmail) == "" {
		return apperrors.NewValidationError("customer_email", "customer email is required")
	}
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		return apperrors.NewValidationError("customer_email", "customer email is invalid")
	}

	if strings.TrimSpace(req.ShippingAddress) == "" {
		return apperrors.NewValidationError("shipping_address", "shipping address is required")
	}

	if strings.TrimSpace(req.ShippingPostcode) == "" {
		return apperrors.NewValidationError("shipping_postcode", "shipping postcode is required")
	}

	if len(req.Items) == 0 {
		return apperrors.NewValidationError("items", "at least one item is required")
	}

	for _, item := range req.Items {
		if err := validateOrderItem(&item); err != nil {
			return err
		}
	}

	return nil
}

func validateOrderItem(item *models.CreateOrderItem) error {
	if item.ProductID == "" {
		return apperrors.NewValidationError("items", "product ID is required for item")
	}

	if item.Quantity <= 0 {
		return apperrors.NewValidationError("items", "quantity must be positive")
	}

	if item.Price < 0 {
		return apperrors.NewValidationError("items", "price cannot be negative")
	}

	return nil
}

// ValidateConfirmPaymentRequest validates a settlement confirmation request.
func ValidateConfirmPaymentRequest(req *models.ConfirmPaymentRequest) error {
	if strings.TrimSpace(req.PaymentKey) == "" {
		return apperrors.NewValidationError("paymentKey", "payment key is required")
	}

	if strings.TrimSpace(req.OrderID) == "" {
		return apperrors.NewValidationError("orderId", "order ID is required")
	}

	if req.Amount <= 0 {
		return apperrors.NewValidationError("amount", "amount must be positive")
	}

	return nil
}

// ValidateCancellationReason validates a payment cancellation reason.
func ValidateCancellationReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperrors.NewValidationError("reason", "cancellation reason is required")
	}

	if len(reason) > 500 {
		return apperrors.NewValidationError("reason", "cancellation reason too long (max 500 characters)")
	}

	return nil
}
