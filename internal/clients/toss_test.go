package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldenrabbit-press/orders-service/internal/apperrors"
	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
)

func testTossConfig() config.TossConfig {
	return config.TossConfig{
		BaseURL:        "https://api.tosspayments.com",
		SecretKey:      "test_sk",
		AttemptTimeout: time.Second,
		MaxAttempts:    3,
		RetryBaseDelay: 10 * time.Millisecond,
		RetryMaxDelay:  40 * time.Millisecond,
	}
}

func newTestClient(baseURL string, delays *[]time.Duration) *TossClient {
	return &TossClient{
		baseURL:    baseURL,
		authHeader: "Basic dGVzdF9zazo=",
		httpClient: &http.Client{},
		policy: retryPolicy{
			MaxAttempts:    3,
			BaseDelay:      10 * time.Millisecond,
			MaxDelay:       40 * time.Millisecond,
			AttemptTimeout: time.Second,
			sleep: func(d time.Duration) {
				*delays = append(*delays, d)
			},
		},
		logger: logging.New("toss-client-test"),
	}
}

func TestConfirm_Success(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments/confirm", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Basic "))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pay_key_123", body["paymentKey"])
		assert.Equal(t, "A-1001", body["orderId"])
		assert.Equal(t, float64(50000), body["amount"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"paymentKey":"pay_key_123","orderId":"A-1001","status":"DONE","totalAmount":50000,"method":"card","approvedAt":"2024-03-01T10:00:00+09:00"}`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(srv.URL, &delays)

	payment, err := c.Confirm(context.Background(), "pay_key_123", "A-1001", 50000)
	require.NoError(t, err)

	assert.Equal(t, "DONE", payment.Status)
	assert.Equal(t, "A-1001", payment.OrderID)
	assert.Equal(t, int64(50000), payment.TotalAmount)
	assert.Equal(t, "card", payment.Method)
	assert.NotEmpty(t, payment.Raw)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, delays)
}

func TestConfirm_ClientErrorNotRetried(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"INVALID_REQUEST","message":"payment key already used"}`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(srv.URL, &delays)

	_, err := c.Confirm(context.Background(), "pay_key_123", "A-1001", 50000)
	require.Error(t, err)

	var gerr *apperrors.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusBadRequest, gerr.StatusCode)
	assert.Equal(t, "payment key already used", gerr.Message)
	assert.False(t, gerr.Retriable())

	// A rejection is final: exactly one request, no backoff.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, delays)
	assert.False(t, errors.Is(err, apperrors.ErrRetriesExhausted))
}

func TestConfirm_ServerErrorExhaustsRetries(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":"PROVIDER_ERROR","message":"temporary failure"}`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(srv.URL, &delays)

	_, err := c.Confirm(context.Background(), "pay_key_123", "A-1001", 50000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRetriesExhausted))

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, delays, 2)
	assert.Less(t, delays[0], delays[1])
}

func TestConfirm_TransportErrorExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	var delays []time.Duration
	c := newTestClient(srv.URL, &delays)

	_, err := c.Confirm(context.Background(), "pay_key_123", "A-1001", 50000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRetriesExhausted))
	assert.Len(t, delays, 2)
}

func TestConfirm_RecoversAfterServerError(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"paymentKey":"pay_key_123","orderId":"A-1001","status":"DONE","totalAmount":50000}`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(srv.URL, &delays)

	payment, err := c.Confirm(context.Background(), "pay_key_123", "A-1001", 50000)
	require.NoError(t, err)
	assert.Equal(t, "DONE", payment.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Len(t, delays, 1)
}

func TestConfirm_CancelledContextStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// No sleep hook: the real timer path must notice cancellation instead of
	// sleeping out the hour-long delay.
	c := &TossClient{
		baseURL:    srv.URL,
		authHeader: "Basic dGVzdF9zazo=",
		httpClient: &http.Client{},
		policy: retryPolicy{
			MaxAttempts:    3,
			BaseDelay:      time.Hour,
			MaxDelay:       time.Hour,
			AttemptTimeout: time.Second,
		},
		logger: logging.New("toss-client-test"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Confirm(ctx, "pay_key_123", "A-1001", 50000)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := retryPolicy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}

	assert.Equal(t, 100*time.Millisecond, p.backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.backoff(3))
	assert.Equal(t, 800*time.Millisecond, p.backoff(4))
	assert.Equal(t, time.Second, p.backoff(5))
	assert.Equal(t, time.Second, p.backoff(40))

	for i := 1; i < 4; i++ {
		assert.Less(t, p.backoff(i), p.backoff(i+1))
	}
}

func TestCancel_CancelAmountHandling(t *testing.T) {
	tests := []struct {
		name         string
		cancelAmount int64
		wantField    bool
	}{
		{"full cancel omits amount", 0, false},
		{"partial cancel includes amount", 20000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/payments/pay_key_123/cancel", r.URL.Path)

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "customer request", body["cancelReason"])

				_, present := body["cancelAmount"]
				assert.Equal(t, tt.wantField, present)

				w.Write([]byte(`{"paymentKey":"pay_key_123","orderId":"A-1001","status":"CANCELED"}`))
			}))
			defer srv.Close()

			var delays []time.Duration
			c := newTestClient(srv.URL, &delays)

			result, err := c.Cancel(context.Background(), "pay_key_123", "customer request", tt.cancelAmount)
			require.NoError(t, err)
			assert.Equal(t, "CANCELED", result.Status)
			assert.NotEmpty(t, result.Raw)
		})
	}
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/pay_key_123", r.URL.Path)
		w.Write([]byte(`{"paymentKey":"pay_key_123","orderId":"A-1001","status":"DONE","totalAmount":50000}`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(srv.URL, &delays)

	payment, err := c.GetPayment(context.Background(), "pay_key_123")
	require.NoError(t, err)
	assert.Equal(t, "A-1001", payment.OrderID)
	assert.Equal(t, "DONE", payment.Status)
}

func TestNewTossClient_AuthHeader(t *testing.T) {
	c := NewTossClient(testTossConfig(), logging.New("toss-client-test"), nil)

	// base64("test_sk:")
	assert.Equal(t, "Basic dGVzdF9zazo=", c.authHeader)
}
