package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goldenrabbit-press/orders-service/internal/apperrors"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
)

// retryPolicy is the uniform resilience policy for all gateway operations:
// exponential backoff on transport failures and 5xx, immediate return on 4xx,
// a per-attempt wall-clock timeout, and a distinct exhaustion error.
type retryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration

	sleep func(time.Duration)
}

// backoff returns the delay before the given retry (attempt is 1-based for
// the first retry). The base delay doubles per attempt, capped at MaxDelay,
// so delays are strictly increasing up to the cap.
func (p retryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		return p.MaxDelay
	}
	return delay
}

// wait blocks for the backoff delay or until ctx is cancelled, whichever
// comes first. The sleep hook bypasses the timer so tests can observe delays
// without waiting them out.
func (p retryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		p.sleep(d)
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doWithRetry performs one gateway operation under the retry policy and
// returns the response body on HTTP 2xx. A 4xx becomes a GatewayError
// immediately; transport failures and 5xx are retried until the policy is
// exhausted, at which point ErrRetriesExhausted is returned so callers can
// tell "gateway said no" from "gateway was unreachable".
func (c *TossClient) doWithRetry(ctx context.Context, operation, method, url string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.policy.backoff(attempt - 1)
			c.logger.Info("Retrying gateway request", logging.Fields{
				"operation": operation,
				"attempt":   attempt,
				"delay_ms":  delay.Milliseconds(),
			})
			if err := c.policy.wait(ctx, delay); err != nil {
				return nil, fmt.Errorf("%s: %w", operation, err)
			}
		}

		respBody, status, err := c.attempt(ctx, method, url, body, operation)
		if err != nil {
			// Transport failure or per-attempt timeout: eligible for retry.
			lastErr = err
			c.countAttempt(operation, "transport_error")
			c.logger.Error("Gateway request failed", logging.Fields{
				"operation": operation,
				"attempt":   attempt,
				"error":     err.Error(),
			})
			continue
		}

		if status >= 500 {
			lastErr = &apperrors.GatewayError{
				Operation:  operation,
				StatusCode: status,
				Message:    gatewayMessage(respBody),
			}
			c.countAttempt(operation, "server_error")
			continue
		}

		if status >= 400 {
			// Client-side error: retrying cannot fix it. Return at once.
			c.countAttempt(operation, "client_error")
			return nil, &apperrors.GatewayError{
				Operation:  operation,
				StatusCode: status,
				Message:    gatewayMessage(respBody),
			}
		}

		c.countAttempt(operation, "success")
		return respBody, nil
	}

	c.logger.Error("Gateway retries exhausted", logging.Fields{
		"operation": operation,
		"attempts":  c.policy.MaxAttempts,
		"last":      fmt.Sprint(lastErr),
	})
	return nil, fmt.Errorf("%s after %d attempts: %w", operation, c.policy.MaxAttempts, apperrors.ErrRetriesExhausted)
}

// attempt performs a single bounded HTTP call.
func (c *TossClient) attempt(ctx context.Context, method, url string, body []byte, operation string) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.GatewayLatencyMS.WithLabelValues(operation).
			Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return respBody, resp.StatusCode, nil
}

func (c *TossClient) countAttempt(operation, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.GatewayAttempts.WithLabelValues(operation, outcome).Inc()
}

// gatewayMessage pulls the human-readable message out of a gateway failure
// body, which is {"code": ..., "message": ...}.
func gatewayMessage(body []byte) string {
	var failure struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &failure); err != nil || failure.Message == "" {
		return "unknown gateway error"
	}
	return failure.Message
}
