package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/models"
)

const subjectHeader = "X-User-ID"

// ConfirmPayment handles POST /api/v1/payments/confirm
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	payment, err := h.orderService.ConfirmPayment(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	// The gateway payload goes back to the storefront untouched.
	if len(payment.Raw) > 0 {
		c.Data(http.StatusOK, "application/json", payment.Raw)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// CancelPayment handles POST /api/v1/payments/:paymentKey/cancel
func (h *Handlers) CancelPayment(c *gin.Context) {
	paymentKey := c.Param("paymentKey")
	subject := c.GetHeader(subjectHeader)

	var req models.CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.orderService.CancelPayment(c.Request.Context(), subject, paymentKey, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	if len(result.Raw) > 0 {
		c.Data(http.StatusOK, "application/json", result.Raw)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPayment handles GET /api/v1/payments/:paymentKey
func (h *Handlers) GetPayment(c *gin.Context) {
	paymentKey := c.Param("paymentKey")

	payment, err := h.orderService.GetPaymentInfo(c.Request.Context(), paymentKey)
	if err != nil {
		handleError(c, err)
		return
	}

	if len(payment.Raw) > 0 {
		c.Data(http.StatusOK, "application/json", payment.Raw)
		return
	}
	c.JSON(http.StatusOK, payment)
}
