package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/models"
)

// CreateOrder handles POST /api/v1/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.CreatePendingOrder(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
}

// GetOrder handles GET /api/v1/orders/:orderNumber
func (h *Handlers) GetOrder(c *gin.Context) {
	orderNumber := c.Param("orderNumber")

	order, items, err := h.orderService.GetOrder(c.Request.Context(), orderNumber)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}
