package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/metrics"
	"github.com/goldenrabbit-press/orders-service/internal/models"
)

// TossClient issues HTTP requests to the Toss Payments processor. It knows
// nothing about orders; the resilience policy in retry.go applies uniformly
// to confirm, query and cancel.
type TossClient struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	policy     retryPolicy
	logger     *logging.Logger
	metrics    *metrics.SettlementMetrics
}

// NewTossClient builds a gateway client from config. The secret key becomes a
// Basic auth header (key + ":" base64-encoded, per the Toss API contract) and
// never leaves this package.
func NewTossClient(cfg config.TossConfig, logger *logging.Logger, m *metrics.SettlementMetrics) *TossClient {
	return &TossClient{
		baseURL:    cfg.BaseURL,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.SecretKey+":")),
		httpClient: &http.Client{
			// Per-attempt deadlines come from the retry policy's context;
			// this is a backstop.
			Timeout: cfg.AttemptTimeout + time.Second,
		},
		policy: retryPolicy{
			MaxAttempts:    cfg.MaxAttempts,
			BaseDelay:      cfg.RetryBaseDelay,
			MaxDelay:       cfg.RetryMaxDelay,
			AttemptTimeout: cfg.AttemptTimeout,
		},
		logger:  logger,
		metrics: m,
	}
}

// Confirm asks the processor to settle the payment identified by paymentKey
// for the given order number and amount.
func (c *TossClient) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*models.TossPayment, error) {
	c.logger.Debug("Confirming payment", logging.Fields{
		"order_id": orderID,
		"amount":   amount,
	})

	payload := map[string]interface{}{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amount,
	}

	url := fmt.Sprintf("%s/v1/payments/confirm", c.baseURL)
	body, err := c.doWithRetry(ctx, "confirm", http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}

	var payment models.TossPayment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, err
	}
	payment.Raw = body

	c.logger.Info("Payment confirm response received", logging.Fields{
		"order_id": payment.OrderID,
		"status":   payment.Status,
	})
	return &payment, nil
}

// GetPayment queries the processor for the payment identified by paymentKey.
func (c *TossClient) GetPayment(ctx context.Context, paymentKey string) (*models.TossPayment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentKey)
	body, err := c.doWithRetry(ctx, "query", http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var payment models.TossPayment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, err
	}
	payment.Raw = body
	return &payment, nil
}

// Cancel asks the processor to cancel the settled payment. A zero
// cancelAmount requests a full cancel.
func (c *TossClient) Cancel(ctx context.Context, paymentKey, reason string, cancelAmount int64) (*models.TossCancelResult, error) {
	c.logger.Info("Cancelling payment", logging.Fields{
		"payment_key": paymentKey,
		"reason":      reason,
	})

	payload := map[string]interface{}{
		"cancelReason": reason,
	}
	if cancelAmount > 0 {
		payload["cancelAmount"] = cancelAmount
	}

	url := fmt.Sprintf("%s/v1/payments/%s/cancel", c.baseURL, paymentKey)
	body, err := c.doWithRetry(ctx, "cancel", http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}

	var result models.TossCancelResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	result.Raw = body
	return &result, nil
}
