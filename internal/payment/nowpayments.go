package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
	"github.com/cryptolotto/lottery-backend/internal/models"
)

// ProviderNOWPayments is the registry key for the NOWPayments adapter
const ProviderNOWPayments = "NOWPAYMENTS"

// NOWPaymentsAdapter implements the Adapter contract for NOWPayments IPN
// notifications. Checkout creation against the live invoice API is not wired
// up yet; created checkouts carry a synthetic id so the reconciliation path
// can be exercised end to end.
type NOWPaymentsAdapter struct {
	apiKey    string
	ipnSecret string
}

// NewNOWPaymentsAdapter creates a NOWPayments adapter
func NewNOWPaymentsAdapter(apiKey, ipnSecret string) *NOWPaymentsAdapter {
	return &NOWPaymentsAdapter{apiKey: apiKey, ipnSecret: ipnSecret}
}

// Name returns the provider key
func (a *NOWPaymentsAdapter) Name() string { return ProviderNOWPayments }

// SignatureHeader returns the NOWPayments IPN signature header
func (a *NOWPaymentsAdapter) SignatureHeader() string { return "X-Nowpayments-Sig" }

// nowpaymentsStatusMap maps NOWPayments payment statuses onto the internal
// vocabulary.
var nowpaymentsStatusMap = map[string]models.PaymentStatus{
	"waiting":        models.PaymentStatusPending,
	"confirming":     models.PaymentStatusProcessing,
	"confirmed":      models.PaymentStatusProcessing,
	"sending":        models.PaymentStatusProcessing,
	"partially_paid": models.PaymentStatusProcessing,
	"finished":       models.PaymentStatusConfirmed,
	"failed":         models.PaymentStatusFailed,
	"refunded":       models.PaymentStatusRefunded,
	"expired":        models.PaymentStatusExpired,
}

type nowpaymentsIPN struct {
	ID string `json:"id"`
	// payment_id arrives as a bare JSON number in live IPNs; json.Number
	// accepts both that and the quoted form.
	PaymentID     json.Number `json:"payment_id"`
	OrderID       string      `json:"order_id"`
	PaymentStatus string      `json:"payment_status"`
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	TxID          string      `json:"txid"`
	Confirmations int         `json:"confirmations"`
	CreatedAt     string      `json:"created_at"`
}

// CreateCheckout returns a checkout with a synthetic payment id
func (a *NOWPaymentsAdapter) CreateCheckout(ctx context.Context, opts CheckoutOptions) (*Checkout, error) {
	id := "nowpay_" + uuid.NewString()
	return &Checkout{
		ID:        id,
		URL:       "https://nowpayments.io/payment/" + id,
		Amount:    opts.Amount,
		Currency:  opts.Currency,
		ExpiresAt: time.Now().Add(time.Hour),
		Metadata:  opts.Metadata,
	}, nil
}

// VerifySignature checks the HMAC-SHA512 IPN signature in constant time.
// Fails closed when no IPN secret is configured.
func (a *NOWPaymentsAdapter) VerifySignature(payload []byte, signature string) bool {
	if a.ipnSecret == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(a.ipnSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseEvent translates a NOWPayments IPN into a normalized event
func (a *NOWPaymentsAdapter) ParseEvent(payload []byte) (*WebhookEvent, error) {
	var ipn nowpaymentsIPN
	if err := json.Unmarshal(payload, &ipn); err != nil {
		return nil, fmt.Errorf("%w: invalid nowpayments IPN payload: %v", apperrors.ErrValidation, err)
	}

	paymentID := ipn.PaymentID.String()
	if paymentID == "" {
		paymentID = ipn.OrderID
	}
	status, ok := nowpaymentsStatusMap[ipn.PaymentStatus]
	if !ok {
		status = models.PaymentStatusPending
	}

	ts := time.Now().UTC()
	if ipn.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, ipn.CreatedAt); err == nil {
			ts = parsed
		}
	}

	return &WebhookEvent{
		ID:              ipn.ID,
		Type:            ipn.PaymentStatus,
		PaymentID:       paymentID,
		Status:          status,
		Amount:          ipn.PriceAmount,
		Currency:        ipn.PriceCurrency,
		TransactionHash: ipn.TxID,
		Confirmations:   ipn.Confirmations,
		Timestamp:       ts,
		Raw:             json.RawMessage(payload),
	}, nil
}
