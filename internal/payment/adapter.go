// Package payment normalizes crypto payment providers behind one adapter
// contract. Each provider translates checkout creation and webhook payloads
// into the shared shapes below; the reconciler consumes only the normalized
// event and never sees provider-specific vocabulary.
package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cryptolotto/lottery-backend/internal/models"
)

// CheckoutOptions describes a checkout-creation request
type CheckoutOptions struct {
	Amount        float64
	Currency      string
	Description   string
	CustomerEmail string
	Metadata      map[string]interface{}
	RedirectURL   string
	CancelURL     string
}

// Checkout is a created provider checkout session
type Checkout struct {
	ID        string
	URL       string
	Amount    float64
	Currency  string
	ExpiresAt time.Time
	Metadata  map[string]interface{}
}

// WebhookEvent is a provider notification normalized to the internal payment
// status vocabulary
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentID       string
	Status          models.PaymentStatus
	Amount          float64
	Currency        string
	TransactionHash string
	Confirmations   int
	Timestamp       time.Time
	Raw             json.RawMessage
}

// Adapter is the capability contract one payment provider implements
type Adapter interface {
	// Name returns the provider key used in payment rows and the registry.
	Name() string

	// SignatureHeader returns the HTTP header carrying this provider's
	// webhook signature. Header presence discriminates the provider.
	SignatureHeader() string

	// CreateCheckout creates a hosted checkout session with the provider.
	CreateCheckout(ctx context.Context, opts CheckoutOptions) (*Checkout, error)

	// VerifySignature checks a webhook payload's authenticity. This is the
	// sole authenticity boundary for incoming events.
	VerifySignature(payload []byte, signature string) bool

	// ParseEvent translates a verified webhook payload into a normalized
	// event.
	ParseEvent(payload []byte) (*WebhookEvent, error)
}
