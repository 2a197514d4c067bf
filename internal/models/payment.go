package models

// PaymentStatusDone is the gateway's terminal success status for a confirmed
// payment. Any other value in a confirm response is rejected.
const PaymentStatusDone = "DONE"

// ConfirmPaymentRequest is the caller-facing payload for confirming a
// payment. OrderID is the human-readable order number used as the external
// correlation key with the gateway.
type ConfirmPaymentRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// TossPayment is the gateway's payment object, shared by confirm and query
// responses. Only the fields this service validates or stores are modelled;
// Raw carries the full payload back to the caller untouched.
type TossPayment struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	OrderName   string `json:"orderName,omitempty"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"totalAmount"`
	Method      string `json:"method,omitempty"`
	ApprovedAt  string `json:"approvedAt,omitempty"`

	Raw []byte `json:"-"`
}

// CancelPaymentRequest is the caller-facing payload for cancelling a settled
// payment. CancelAmount of zero means a full cancel.
type CancelPaymentRequest struct {
	Reason       string `json:"reason"`
	CancelAmount int64  `json:"cancelAmount,omitempty"`
}

// TossCancelResult is the processor-defined cancel response, passed through
// to the caller.
type TossCancelResult struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`

	Raw []byte `json:"-"`
}
