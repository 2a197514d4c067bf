package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goldenrabbit-press/orders-service/internal/apperrors"
	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/service"
)

// Handlers holds all HTTP handlers for the orders service.
type Handlers struct {
	orderService *service.OrderService
	config       *config.Config
	logger       *logging.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(orderService *service.OrderService, cfg *config.Config) *Handlers {
	return &Handlers{
		orderService: orderService,
		config:       cfg,
		logger:       logging.New("handlers"),
	}
}

// handleError maps service errors onto HTTP responses. Each settlement
// failure mode gets a distinct status so storefront callers can react
// without parsing messages.
func handleError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	var mismatchErr *apperrors.AmountMismatchError
	if errors.As(err, &mismatchErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "payment amount does not match the order",
			"order_number": mismatchErr.OrderNumber,
		})
		return
	}

	var conflictErr *apperrors.StateConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":        conflictErr.Error(),
			"order_number": conflictErr.OrderNumber,
			"status":       conflictErr.Status,
		})
		return
	}

	var reconcileErr *apperrors.ReconciliationRequiredError
	if errors.As(err, &reconcileErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        "payment was processed but the order could not be updated; please contact support",
			"order_number": reconcileErr.OrderNumber,
			"payment_key":  reconcileErr.PaymentKey,
		})
		return
	}

	var integrityErr *apperrors.ResponseIntegrityError
	if errors.As(err, &integrityErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway returned an inconsistent response"})
		return
	}

	if errors.Is(err, apperrors.ErrRetriesExhausted) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway is unavailable, please try again later"})
		return
	}

	var gatewayErr *apperrors.GatewayError
	if errors.As(err, &gatewayErr) {
		if gatewayErr.Retriable() {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway is unavailable, please try again later"})
			return
		}
		c.JSON(http.StatusPaymentRequired, gin.H{"error": gatewayErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
